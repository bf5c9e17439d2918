package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"piston_control/internal/models"

	"github.com/google/uuid"
)

type DeviceSQLite struct {
	db *sql.DB
}

func NewDeviceSQLite(db *sql.DB) *DeviceSQLite {
	return &DeviceSQLite{db: db}
}

var _ Devices = (*DeviceSQLite)(nil)

const (
	insertDeviceSQL = `INSERT INTO devices (id, user_id, name, device_id, status, last_seen) VALUES (?, ?, ?, ?, ?, ?)`
	insertPistonSQL = `INSERT INTO pistons (id, device_id, piston_number, state, last_triggered) VALUES (?, ?, ?, ?, ?)`

	selectDeviceColumnsSQL  = `SELECT id, name, device_id, status, last_seen, user_id FROM devices`
	selectDevicesByUserSQL  = selectDeviceColumnsSQL + ` WHERE user_id = ? ORDER BY name, device_id`
	selectDeviceByRefSQL    = selectDeviceColumnsSQL + ` WHERE user_id = ? AND (id = ? OR device_id = ?)`
	selectAllDevicesSQL     = selectDeviceColumnsSQL + ` ORDER BY id`
	selectPistonColumnsSQL  = `SELECT p.id, p.device_id, p.piston_number, p.state, p.last_triggered FROM pistons p`
	selectPistonsByUserSQL  = selectPistonColumnsSQL + ` JOIN devices d ON d.id = p.device_id WHERE d.user_id = ? ORDER BY p.device_id, p.piston_number`
	selectPistonsByDeviceSQL = selectPistonColumnsSQL + ` WHERE p.device_id = ? ORDER BY p.piston_number`
	selectPistonSQL         = selectPistonColumnsSQL + ` WHERE p.device_id = ? AND p.piston_number = ?`

	updatePistonStateSQL  = `UPDATE pistons SET state = ?, last_triggered = ? WHERE device_id = ? AND piston_number = ?`
	updateDeviceStatusSQL = `UPDATE devices SET status = ?, last_seen = ? WHERE id = ?`
)

// Create inserts a device and its pistons in one transaction. A device
// without pistons gets MaxPistons inactive ones.
func (r *DeviceSQLite) Create(ctx context.Context, d *models.Device) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = models.DeviceOffline
	}
	if len(d.Pistons) == 0 {
		d.Pistons = make([]models.Piston, models.MaxPistons)
		for i := range d.Pistons {
			d.Pistons[i] = models.Piston{PistonNumber: i + 1, State: models.PistonInactive}
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create device: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertDeviceSQL, d.ID, d.UserID, d.Name, d.DeviceID, d.Status, nullTime(d.LastSeen)); err != nil {
		return fmt.Errorf("insert device %q: %w", d.DeviceID, err)
	}
	for i := range d.Pistons {
		p := &d.Pistons[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.DeviceID = d.ID
		if _, err := tx.ExecContext(ctx, insertPistonSQL, p.ID, d.ID, p.PistonNumber, p.State, nullTime(p.LastTriggered)); err != nil {
			return fmt.Errorf("insert piston %d of %q: %w", p.PistonNumber, d.DeviceID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create device: %w", err)
	}
	return nil
}

// ListByUser returns the user's devices with their pistons.
func (r *DeviceSQLite) ListByUser(ctx context.Context, userID string) ([]models.Device, error) {
	devices, err := r.queryDevices(ctx, selectDevicesByUserSQL, userID)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return devices, nil
	}
	pistons, err := r.queryPistons(ctx, selectPistonsByUserSQL, userID)
	if err != nil {
		return nil, err
	}
	byDevice := make(map[string][]models.Piston, len(devices))
	for _, p := range pistons {
		byDevice[p.DeviceID] = append(byDevice[p.DeviceID], p)
	}
	for i := range devices {
		devices[i].Pistons = byDevice[devices[i].ID]
		if devices[i].Pistons == nil {
			devices[i].Pistons = []models.Piston{}
		}
	}
	return devices, nil
}

// Get looks a device up by its id or physical device_id, scoped to the user.
func (r *DeviceSQLite) Get(ctx context.Context, userID, ref string) (*models.Device, error) {
	devices, err := r.queryDevices(ctx, selectDeviceByRefSQL, userID, ref, ref)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, ErrNotFound
	}
	d := devices[0]
	if d.Pistons, err = r.queryPistons(ctx, selectPistonsByDeviceSQL, d.ID); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListAll returns every device without pistons.
func (r *DeviceSQLite) ListAll(ctx context.Context) ([]models.Device, error) {
	return r.queryDevices(ctx, selectAllDevicesSQL)
}

// SetPistonState updates one piston and returns its new row.
func (r *DeviceSQLite) SetPistonState(ctx context.Context, deviceID string, number int, state string, at time.Time) (*models.Piston, error) {
	at = utc(at)
	res, err := r.db.ExecContext(ctx, updatePistonStateSQL, state, at, deviceID, number)
	if err := affectedOne(res, err, "update piston", fmt.Sprintf("%s/%d", deviceID, number)); err != nil {
		return nil, err
	}
	pistons, err := r.queryPistons(ctx, selectPistonSQL, deviceID, number)
	if err != nil {
		return nil, err
	}
	if len(pistons) == 0 {
		return nil, ErrNotFound
	}
	return &pistons[0], nil
}

func (r *DeviceSQLite) SetStatus(ctx context.Context, deviceID, status string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, updateDeviceStatusSQL, status, utc(at), deviceID)
	return affectedOne(res, err, "update device status", deviceID)
}

func (r *DeviceSQLite) queryDevices(ctx context.Context, q string, args ...any) ([]models.Device, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select devices: %w", err)
	}
	defer rows.Close()

	out := make([]models.Device, 0, 4)
	for rows.Next() {
		var (
			d        models.Device
			lastSeen sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.DeviceID, &d.Status, &lastSeen, &d.UserID); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		d.LastSeen = timePtr(lastSeen)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return out, nil
}

func (r *DeviceSQLite) queryPistons(ctx context.Context, q string, args ...any) ([]models.Piston, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select pistons: %w", err)
	}
	defer rows.Close()

	out := make([]models.Piston, 0, models.MaxPistons)
	for rows.Next() {
		var (
			p    models.Piston
			last sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.DeviceID, &p.PistonNumber, &p.State, &last); err != nil {
			return nil, fmt.Errorf("scan piston: %w", err)
		}
		p.LastTriggered = timePtr(last)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pistons: %w", err)
	}
	return out, nil
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
