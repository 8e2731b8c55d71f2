package db

import (
	"fmt"

	"github.com/armslength-data/sigint.report/internal/fusion"
)

const observationColumns = `id, device_id, timestamp_unix, latitude, longitude,
	signal_strength, frequency, channel, protocol, encryption,
	heading, speed, altitude`

// InsertObservation appends one observation and fills in its ID.
// Observations are immutable once written.
func (db *DB) InsertObservation(obs *fusion.Observation) error {
	res, err := db.Exec(`
		INSERT INTO observations (device_id, timestamp_unix, latitude, longitude,
			signal_strength, frequency, channel, protocol, encryption,
			heading, speed, altitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.DeviceID, obs.Timestamp.UTC().Unix(),
		nullFloat(obs.Latitude), nullFloat(obs.Longitude),
		nullFloat(obs.SignalStrength), nullFloat(obs.Frequency),
		nullInt(obs.Channel), nullString(obs.Protocol), nullString(obs.Encryption),
		nullFloat(obs.Heading), nullFloat(obs.Speed), nullFloat(obs.Altitude))
	if err != nil {
		return fmt.Errorf("inserting observation for device %d: %w", obs.DeviceID, err)
	}
	obs.ID, err = res.LastInsertId()
	return err
}

// ListObservationsByDevice returns a device's observations oldest-first,
// capped at limit (0 means no cap).
func (db *DB) ListObservationsByDevice(deviceID int64, limit int) ([]fusion.Observation, error) {
	query := `SELECT ` + observationColumns + ` FROM observations
		WHERE device_id = ? ORDER BY timestamp_unix, id`
	args := []any{deviceID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return db.queryObservations(query, args...)
}

// AllObservations returns the full observation snapshot oldest-first. The
// fusion engine consumes this as read-only input.
func (db *DB) AllObservations() ([]fusion.Observation, error) {
	return db.queryObservations(`SELECT ` + observationColumns + ` FROM observations
		ORDER BY timestamp_unix, id`)
}

func (db *DB) queryObservations(query string, args ...any) ([]fusion.Observation, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying observations: %w", err)
	}
	defer rows.Close()

	var observations []fusion.Observation
	for rows.Next() {
		var obs fusion.Observation
		err := rows.Scan(&obs.ID, &obs.DeviceID, &unixTime{&obs.Timestamp},
			&obs.Latitude, &obs.Longitude, &obs.SignalStrength, &obs.Frequency,
			&obs.Channel, &obs.Protocol, &obs.Encryption,
			&obs.Heading, &obs.Speed, &obs.Altitude)
		if err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}
