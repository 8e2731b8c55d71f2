package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/armslength-data/sigint.report/internal/fusion"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const deviceColumns = `id, mac_address, name, signal_type, device_type,
	manufacturer, protocol, encryption, tracked, flagged,
	first_seen_unix, last_seen_unix`

// UpsertDevice inserts a device keyed by MAC address, or refreshes the
// existing row's descriptors and last-seen time. Descriptor fields only
// overwrite when the incoming value is non-empty, so a collector that knows
// less than a previous one cannot blank out what we already learned.
// The device's ID is filled in either way.
func (db *DB) UpsertDevice(device *fusion.Device, seenAt time.Time) error {
	mac := strings.ToUpper(strings.TrimSpace(device.MACAddress))
	if mac == "" {
		return fmt.Errorf("device has no MAC address")
	}
	device.MACAddress = mac

	seen := seenAt.UTC().Unix()
	res, err := db.Exec(`
		INSERT INTO devices (mac_address, name, signal_type, device_type,
			manufacturer, protocol, encryption, first_seen_unix, last_seen_unix)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mac_address) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE name END,
			signal_type = CASE WHEN excluded.signal_type != '' THEN excluded.signal_type ELSE signal_type END,
			device_type = CASE WHEN excluded.device_type != '' THEN excluded.device_type ELSE device_type END,
			manufacturer = CASE WHEN excluded.manufacturer != '' THEN excluded.manufacturer ELSE manufacturer END,
			protocol = CASE WHEN excluded.protocol != '' THEN excluded.protocol ELSE protocol END,
			encryption = CASE WHEN excluded.encryption != '' THEN excluded.encryption ELSE encryption END,
			last_seen_unix = MAX(last_seen_unix, excluded.last_seen_unix)`,
		mac, device.Name, device.SignalType, device.DeviceType,
		device.Manufacturer, device.Protocol, device.Encryption, seen, seen)
	if err != nil {
		return fmt.Errorf("upserting device %s: %w", mac, err)
	}

	// LastInsertId is unreliable after a conflict-update; read the row back.
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		device.ID = id
	}
	return db.QueryRow(`SELECT id, first_seen_unix, last_seen_unix FROM devices WHERE mac_address = ?`, mac).
		Scan(&device.ID, &unixTime{&device.FirstSeen}, &unixTime{&device.LastSeen})
}

// GetDevice loads one device by ID, including its linked device IDs.
func (db *DB) GetDevice(id int64) (*fusion.Device, error) {
	row := db.QueryRow(`SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
	device, err := scanDevice(row)
	if err != nil {
		return nil, err
	}
	device.LinkedIDs, err = db.LinkedDeviceIDs(device.ID)
	if err != nil {
		return nil, err
	}
	return device, nil
}

// ListDevices returns all devices ordered by last-seen, newest first.
func (db *DB) ListDevices() ([]fusion.Device, error) {
	rows, err := db.Query(`SELECT ` + deviceColumns + ` FROM devices ORDER BY last_seen_unix DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	var devices []fusion.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *device)
	}
	return devices, rows.Err()
}

// SetDeviceTracked flips the tracked flag on a device.
func (db *DB) SetDeviceTracked(id int64, tracked bool) error {
	return db.setDeviceFlag(id, "tracked", tracked)
}

// SetDeviceFlagged flips the flagged flag on a device.
func (db *DB) SetDeviceFlagged(id int64, flagged bool) error {
	return db.setDeviceFlag(id, "flagged", flagged)
}

func (db *DB) setDeviceFlag(id int64, column string, value bool) error {
	res, err := db.Exec(`UPDATE devices SET `+column+` = ? WHERE id = ?`, value, id)
	if err != nil {
		return fmt.Errorf("updating device %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(row scanner) (*fusion.Device, error) {
	var device fusion.Device
	err := row.Scan(&device.ID, &device.MACAddress, &device.Name,
		&device.SignalType, &device.DeviceType, &device.Manufacturer,
		&device.Protocol, &device.Encryption, &device.Tracked, &device.Flagged,
		&unixTime{&device.FirstSeen}, &unixTime{&device.LastSeen})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning device: %w", err)
	}
	return &device, nil
}

// unixTime scans a unix-seconds column into a time.Time.
type unixTime struct {
	t *time.Time
}

func (u *unixTime) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*u.t = time.Unix(v, 0).UTC()
	case float64:
		*u.t = time.Unix(int64(v), 0).UTC()
	case nil:
		*u.t = time.Time{}
	default:
		return fmt.Errorf("cannot scan %T into unix time", src)
	}
	return nil
}
