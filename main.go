package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/armslength-data/sigint.report/internal/api"
	"github.com/armslength-data/sigint.report/internal/config"
	"github.com/armslength-data/sigint.report/internal/db"
	"github.com/armslength-data/sigint.report/internal/fusion"
	"github.com/armslength-data/sigint.report/internal/version"
)

var (
	listen          = flag.String("listen", ":8080", "Listen address")
	dbFile          = flag.String("db", "sigint_data.db", "Path to the SQLite database")
	tuningFile      = flag.String("tuning", "", "Optional tuning config (JSON); defaults apply for unset fields")
	collectorKey    = flag.String("collector-key", "", "Shared key for /api/collector/push (or SIGINT_COLLECTOR_KEY); empty disables ingest")
	analyzeInterval = flag.Duration("analyze-interval", 15*time.Minute, "How often the fusion worker re-analyzes; 0 disables the background worker")
	showVersion     = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		log.Printf("sigint-report %s", version.Version)
		return
	}

	// Subcommands run and exit before any server machinery starts.
	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "migrate":
			db.RunMigrateCommand(args[1:], *dbFile)
			return
		case "analyze":
			runOneShotAnalysis()
			return
		default:
			log.Fatalf("unknown command %q (expected migrate or analyze)", args[0])
		}
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning := loadTuning()
	key := *collectorKey
	if key == "" {
		key = os.Getenv("SIGINT_COLLECTOR_KEY")
	}
	if key == "" {
		log.Print("no collector key configured: ingest endpoint disabled")
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	engine := fusion.NewEngine(tuning)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background fusion worker: periodically re-analyzes the full
	// observation set for new device associations.
	if *analyzeInterval > 0 {
		worker := db.NewFusionWorker(database, engine, *analyzeInterval)
		worker.Start(ctx)
		defer worker.Stop()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// admin debugging routes (tailsql console, backup download)
		database.AttachAdminRoutes(mux)

		apiServer := api.NewServer(database, engine, tuning, key)
		mux.Handle("/api/", apiServer.ServeMux())

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("sigint-report %s listening on %s", version.Version, *listen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

func loadTuning() *config.Tuning {
	if *tuningFile == "" {
		return config.EmptyTuning()
	}
	tuning, err := config.LoadTuning(*tuningFile)
	if err != nil {
		log.Fatalf("Failed to load tuning config: %v", err)
	}
	return tuning
}

// runOneShotAnalysis executes a single fusion batch and exits. Useful from
// cron or when reprocessing after a tuning change.
func runOneShotAnalysis() {
	tuning := loadTuning()

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := db.NewFusionWorker(database, fusion.NewEngine(tuning), 0)
	run, err := worker.RunOnce(ctx)
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}
	log.Printf("analysis run %s: %s, scanned %d devices / %d observations, created %d associations",
		run.RunID, run.Status, run.DevicesScanned, run.ObservationsScanned, run.AssociationsCreated)
}
