package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEmptyTuningDefaults(t *testing.T) {
	cfg := EmptyTuning()

	if got := cfg.GetMinObservations(); got != 3 {
		t.Errorf("GetMinObservations = %d, want 3", got)
	}
	if got := cfg.GetMinConfidence(); got != 45 {
		t.Errorf("GetMinConfidence = %d, want 45", got)
	}
	if got := cfg.GetCoMovementWindow(); got != 5*time.Minute {
		t.Errorf("GetCoMovementWindow = %v, want 5m", got)
	}
	if got := cfg.GetSignalPairWindow(); got != 10*time.Second {
		t.Errorf("GetSignalPairWindow = %v, want 10s", got)
	}
	if got := cfg.GetActivationWindow(); got != 15*time.Second {
		t.Errorf("GetActivationWindow = %v, want 15s", got)
	}
	if got := cfg.GetColocationSlot(); got != 10*time.Minute {
		t.Errorf("GetColocationSlot = %v, want 10m", got)
	}
	if got := cfg.GetCoMovementPrior(); got != 0.05 {
		t.Errorf("GetCoMovementPrior = %v, want 0.05", got)
	}
	if got := cfg.GetFrequencyPrior(); got != 0.04 {
		t.Errorf("GetFrequencyPrior = %v, want 0.04", got)
	}
	if got := cfg.GetTxPowerDBm(); got != -40.0 {
		t.Errorf("GetTxPowerDBm = %v, want -40", got)
	}
	if got := cfg.GetPathLossExponent(); got != 2.7 {
		t.Errorf("GetPathLossExponent = %v, want 2.7", got)
	}
	if got := cfg.GetMaxErrorRadiusMeters(); got != 500.0 {
		t.Errorf("GetMaxErrorRadiusMeters = %v, want 500", got)
	}
}

func TestLoadTuningPartialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")
	body := `{"min_confidence": 60, "co_movement_window": "2m", "tx_power_dbm": -45}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning failed: %v", err)
	}

	if got := cfg.GetMinConfidence(); got != 60 {
		t.Errorf("GetMinConfidence = %d, want 60", got)
	}
	if got := cfg.GetCoMovementWindow(); got != 2*time.Minute {
		t.Errorf("GetCoMovementWindow = %v, want 2m", got)
	}
	if got := cfg.GetTxPowerDBm(); got != -45.0 {
		t.Errorf("GetTxPowerDBm = %v, want -45", got)
	}
	// Omitted fields keep their defaults.
	if got := cfg.GetMinObservations(); got != 3 {
		t.Errorf("GetMinObservations = %d, want default 3", got)
	}
}

func TestLoadTuningRejectsNonJSON(t *testing.T) {
	if _, err := LoadTuning("tuning.yaml"); err == nil {
		t.Error("expected error for non-.json extension")
	}
}

func TestLoadTuningMissingFile(t *testing.T) {
	if _, err := LoadTuning(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"prior above one", `{"co_movement_prior": 1.5}`},
		{"negative rate", `{"min_sync_rate": -0.1}`},
		{"bad duration", `{"co_movement_window": "five minutes"}`},
		{"zero min observations", `{"min_observations": 0}`},
		{"confidence above 100", `{"min_confidence": 150}`},
		{"non-positive exponent", `{"path_loss_exponent": 0}`},
		{"non-positive radius cap", `{"max_error_radius_meters": -5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "tuning.json")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := LoadTuning(path); err == nil {
				t.Errorf("expected validation error for %s", tt.body)
			}
		})
	}
}
