package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AnalysisRun records one batch invocation of the fusion engine for audit:
// when it ran, what it scanned, and what it produced.
type AnalysisRun struct {
	ID                  int64      `json:"id"`
	RunID               string     `json:"run_id"`
	StartedAt           time.Time  `json:"started_at"`
	FinishedAt          *time.Time `json:"finished_at,omitempty"`
	DevicesScanned      int        `json:"devices_scanned"`
	ObservationsScanned int        `json:"observations_scanned"`
	AssociationsCreated int        `json:"associations_created"`
	Status              string     `json:"status"`
	Error               string     `json:"error,omitempty"`
}

// Analysis run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusCancelled = "cancelled"
	RunStatusFailed    = "failed"
)

// StartAnalysisRun opens a new run record with a fresh UUID.
func (db *DB) StartAnalysisRun(startedAt time.Time) (*AnalysisRun, error) {
	run := &AnalysisRun{
		RunID:     uuid.NewString(),
		StartedAt: startedAt.UTC(),
		Status:    RunStatusRunning,
	}
	res, err := db.Exec(`
		INSERT INTO analysis_runs (run_id, started_at_unix, status)
		VALUES (?, ?, ?)`,
		run.RunID, run.StartedAt.Unix(), run.Status)
	if err != nil {
		return nil, fmt.Errorf("starting analysis run: %w", err)
	}
	run.ID, err = res.LastInsertId()
	return run, err
}

// FinishAnalysisRun closes a run record with its final counters and status.
func (db *DB) FinishAnalysisRun(run *AnalysisRun, finishedAt time.Time) error {
	finished := finishedAt.UTC()
	run.FinishedAt = &finished
	_, err := db.Exec(`
		UPDATE analysis_runs
		SET finished_at_unix = ?, devices_scanned = ?, observations_scanned = ?,
			associations_created = ?, status = ?, error = ?
		WHERE id = ?`,
		finished.Unix(), run.DevicesScanned, run.ObservationsScanned,
		run.AssociationsCreated, run.Status, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("finishing analysis run %s: %w", run.RunID, err)
	}
	return nil
}

// LatestAnalysisRun returns the most recently started run, or ErrNotFound.
func (db *DB) LatestAnalysisRun() (*AnalysisRun, error) {
	row := db.QueryRow(`
		SELECT id, run_id, started_at_unix, finished_at_unix, devices_scanned,
			observations_scanned, associations_created, status, error
		FROM analysis_runs ORDER BY started_at_unix DESC, id DESC LIMIT 1`)

	var run AnalysisRun
	var finished sql.NullInt64
	err := row.Scan(&run.ID, &run.RunID, &unixTime{&run.StartedAt}, &finished,
		&run.DevicesScanned, &run.ObservationsScanned, &run.AssociationsCreated,
		&run.Status, &run.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning analysis run: %w", err)
	}
	if finished.Valid {
		t := time.Unix(finished.Int64, 0).UTC()
		run.FinishedAt = &t
	}
	return &run, nil
}
