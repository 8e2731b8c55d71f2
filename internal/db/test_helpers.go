package db

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/armslength-data/sigint.report/internal/fusion"
)

// setupTestDB creates a migrated temp-dir database named after the test.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	fname := filepath.Join(t.TempDir(), strings.ReplaceAll(t.Name(), "/", "_")+".db")

	db, err := NewDB(fname)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	return db
}

func cleanupTestDB(t *testing.T, db *DB) {
	t.Helper()
	db.Close()
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

// createTestDevice upserts a device with a generated MAC and returns it.
func createTestDevice(t *testing.T, db *DB, mac string, seenAt time.Time) *fusion.Device {
	t.Helper()

	device := &fusion.Device{
		MACAddress: mac,
		Name:       "test device " + mac,
		SignalType: "wifi",
	}
	if err := db.UpsertDevice(device, seenAt); err != nil {
		t.Fatalf("UpsertDevice failed: %v", err)
	}
	return device
}

// createTestObservation appends a geotagged observation with a signal reading.
func createTestObservation(t *testing.T, db *DB, deviceID int64, at time.Time, lat, lon, rssi float64) *fusion.Observation {
	t.Helper()

	obs := &fusion.Observation{
		DeviceID:       deviceID,
		Timestamp:      at,
		Latitude:       floatPtr(lat),
		Longitude:      floatPtr(lon),
		SignalStrength: floatPtr(rssi),
	}
	if err := db.InsertObservation(obs); err != nil {
		t.Fatalf("InsertObservation failed: %v", err)
	}
	return obs
}
