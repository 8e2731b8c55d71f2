// Package api serves the HTTP surface: collector ingest, device and
// association reads, on-demand analysis, and debug charts.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/armslength-data/sigint.report/internal/config"
	"github.com/armslength-data/sigint.report/internal/db"
	"github.com/armslength-data/sigint.report/internal/fusion"
)

// ANSI escape codes for request log colouring
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db           *db.DB
	engine       *fusion.Engine
	tuning       *config.Tuning
	collectorKey string
}

// NewServer wires the HTTP surface to the store and analysis engine. An
// empty collectorKey disables the ingest endpoint.
func NewServer(database *db.DB, engine *fusion.Engine, tuning *config.Tuning, collectorKey string) *Server {
	return &Server{
		db:           database,
		engine:       engine,
		tuning:       tuning,
		collectorKey: collectorKey,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/collector/push", s.collectorPush)
	mux.HandleFunc("GET /api/devices", s.listDevices)
	mux.HandleFunc("GET /api/devices/{id}", s.showDevice)
	mux.HandleFunc("GET /api/devices/{id}/observations", s.listDeviceObservations)
	mux.HandleFunc("GET /api/devices/{id}/fix", s.showDeviceFix)
	mux.HandleFunc("POST /api/devices/{id}/tracked", s.setDeviceTracked)
	mux.HandleFunc("POST /api/devices/{id}/flagged", s.setDeviceFlagged)
	mux.HandleFunc("GET /api/associations", s.listAssociations)
	mux.HandleFunc("POST /api/analyze", s.runAnalysis)
	mux.HandleFunc("GET /api/analysis/latest", s.showLatestRun)
	mux.HandleFunc("GET /api/config", s.showConfig)
	mux.HandleFunc("GET /api/healthz", s.healthz)
	mux.HandleFunc("GET /api/charts/rssi", s.chartRSSI)
	mux.HandleFunc("GET /api/charts/associations", s.chartAssociations)
	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
