package db

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/armslength-data/sigint.report/internal/fusion"
	"github.com/armslength-data/sigint.report/internal/timeutil"
)

// FusionWorker periodically loads the device/observation snapshot, runs the
// association engine over it, and persists any new associations. Designed to
// run every few minutes; reruns are cheap because emission is idempotent per
// (pair, type).
type FusionWorker struct {
	DB       *DB
	Engine   *fusion.Engine
	Interval time.Duration
	Clock    timeutil.Clock
	StopChan chan struct{}
}

func NewFusionWorker(db *DB, engine *fusion.Engine, interval time.Duration) *FusionWorker {
	return &FusionWorker{
		DB:       db,
		Engine:   engine,
		Interval: interval,
		Clock:    timeutil.RealClock{},
		StopChan: make(chan struct{}),
	}
}

// Start runs the periodic worker loop in a goroutine. The context bounds
// each batch: cancelling it stops the loop after the in-flight run returns
// its partial results.
func (w *FusionWorker) Start(ctx context.Context) {
	go func() {
		ticker := w.Clock.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				if _, err := w.RunOnce(ctx); err != nil {
					log.Printf("fusion worker run error: %v", err)
				}
			case <-ctx.Done():
				return
			case <-w.StopChan:
				return
			}
		}
	}()
}

// Stop requests the worker to stop.
func (w *FusionWorker) Stop() {
	close(w.StopChan)
}

// RunOnce executes one analysis batch: snapshot, engine, persist. It records
// an analysis_runs row either way and returns the run record. A cancelled
// context still persists whatever the engine produced before the check.
func (w *FusionWorker) RunOnce(ctx context.Context) (*AnalysisRun, error) {
	run, err := w.DB.StartAnalysisRun(w.Clock.Now())
	if err != nil {
		return nil, err
	}

	results, runErr := w.analyze(ctx, run)
	created := 0
	for i := range results {
		inserted, err := w.DB.InsertAssociation(&results[i], w.Clock.Now())
		if err != nil {
			runErr = errors.Join(runErr, err)
			continue
		}
		if inserted {
			created++
		}
	}
	run.AssociationsCreated = created

	switch {
	case runErr != nil:
		run.Status = RunStatusFailed
		run.Error = runErr.Error()
	case ctx.Err() != nil:
		run.Status = RunStatusCancelled
	default:
		run.Status = RunStatusCompleted
	}

	if err := w.DB.FinishAnalysisRun(run, w.Clock.Now()); err != nil {
		return run, err
	}
	if created > 0 {
		log.Printf("fusion run %s: %d new associations from %d devices",
			run.RunID, created, run.DevicesScanned)
	}
	return run, runErr
}

func (w *FusionWorker) analyze(ctx context.Context, run *AnalysisRun) ([]fusion.AnalysisResult, error) {
	devices, err := w.DB.ListDevices()
	if err != nil {
		return nil, err
	}
	observations, err := w.DB.AllObservations()
	if err != nil {
		return nil, err
	}
	existing, err := w.DB.ExistingAssociations()
	if err != nil {
		return nil, err
	}

	run.DevicesScanned = len(devices)
	run.ObservationsScanned = len(observations)

	return w.Engine.AnalyzeDeviceAssociations(ctx, devices, observations, existing), nil
}
