package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/armslength-data/sigint.report/internal/fusion"
)

const associationColumns = `id, device_id_1, device_id_2, association_type,
	confidence, reasoning, evidence, created_at_unix`

// InsertAssociation persists one analysis result. Device IDs are normalised
// so the lower ID comes first, and the insert is INSERT OR IGNORE against the
// unique (pair, type) index: concurrent or rerun batches cannot produce
// duplicate rows. Returns true when a new row was written.
func (db *DB) InsertAssociation(result *fusion.AnalysisResult, at time.Time) (bool, error) {
	id1, id2 := result.DeviceID1, result.DeviceID2
	if id1 > id2 {
		id1, id2 = id2, id1
	}

	evidence, err := json.Marshal(result.Evidence)
	if err != nil {
		return false, fmt.Errorf("encoding evidence: %w", err)
	}

	res, err := db.Exec(`
		INSERT OR IGNORE INTO device_associations
			(device_id_1, device_id_2, association_type, confidence, reasoning, evidence, created_at_unix)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id1, id2, string(result.Type), result.Confidence,
		result.Reasoning, string(evidence), at.UTC().Unix())
	if err != nil {
		return false, fmt.Errorf("inserting association %d-%d (%s): %w", id1, id2, result.Type, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListAssociations returns every stored association, highest confidence first.
func (db *DB) ListAssociations() ([]fusion.DeviceAssociation, error) {
	return db.queryAssociations(`SELECT ` + associationColumns + `
		FROM device_associations ORDER BY confidence DESC, id`)
}

// AssociationsForDevice returns the associations mentioning a device,
// highest confidence first.
func (db *DB) AssociationsForDevice(deviceID int64) ([]fusion.DeviceAssociation, error) {
	return db.queryAssociations(`SELECT `+associationColumns+`
		FROM device_associations
		WHERE device_id_1 = ? OR device_id_2 = ?
		ORDER BY confidence DESC, id`, deviceID, deviceID)
}

// ExistingAssociations returns the stored associations in the shape the
// engine expects for dedup: it will not re-emit any (pair, type) present here.
func (db *DB) ExistingAssociations() ([]fusion.DeviceAssociation, error) {
	return db.ListAssociations()
}

// LinkedDeviceIDs derives the set of devices associated with deviceID,
// ordered ascending.
func (db *DB) LinkedDeviceIDs(deviceID int64) ([]int64, error) {
	rows, err := db.Query(`
		SELECT DISTINCT linked FROM (
			SELECT device_id_2 AS linked FROM device_associations WHERE device_id_1 = ?
			UNION
			SELECT device_id_1 AS linked FROM device_associations WHERE device_id_2 = ?
		) ORDER BY linked`, deviceID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("querying linked devices for %d: %w", deviceID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (db *DB) queryAssociations(query string, args ...any) ([]fusion.DeviceAssociation, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying associations: %w", err)
	}
	defer rows.Close()

	var associations []fusion.DeviceAssociation
	for rows.Next() {
		var assoc fusion.DeviceAssociation
		var assocType string
		var evidence string
		err := rows.Scan(&assoc.ID, &assoc.DeviceID1, &assoc.DeviceID2,
			&assocType, &assoc.Confidence, &assoc.Reasoning, &evidence,
			&unixTime{&assoc.CreatedAt})
		if err != nil {
			return nil, fmt.Errorf("scanning association: %w", err)
		}
		assoc.Type = fusion.AssociationType(assocType)
		if err := json.Unmarshal([]byte(evidence), &assoc.Evidence); err != nil {
			return nil, fmt.Errorf("decoding evidence for association %d: %w", assoc.ID, err)
		}
		associations = append(associations, assoc)
	}
	return associations, rows.Err()
}
