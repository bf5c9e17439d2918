package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"piston_control/internal/models"

	"github.com/google/uuid"
)

type ScheduleSQLite struct {
	db *sql.DB
}

func NewScheduleSQLite(db *sql.DB) *ScheduleSQLite {
	return &ScheduleSQLite{db: db}
}

var _ Schedules = (*ScheduleSQLite)(nil)

const (
	insertScheduleSQL = `
		INSERT INTO schedules (id, user_id, device_id, name, piston_number, action, cron_expression, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	selectScheduleColumnsSQL     = `SELECT id, user_id, device_id, name, piston_number, action, cron_expression, enabled, created_at, updated_at FROM schedules`
	selectSchedulesByUserSQL     = selectScheduleColumnsSQL + ` WHERE user_id = ? ORDER BY created_at`
	selectSchedulesByDeviceSQL   = selectScheduleColumnsSQL + ` WHERE user_id = ? AND device_id = ? ORDER BY created_at`
	selectScheduleByIDSQL        = selectScheduleColumnsSQL + ` WHERE user_id = ? AND id = ?`
	selectEnabledSchedulesSQL    = selectScheduleColumnsSQL + ` WHERE enabled = 1 ORDER BY created_at`
	updateScheduleSQL = `
		UPDATE schedules
		SET name = ?, piston_number = ?, action = ?, cron_expression = ?, enabled = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`
	deleteScheduleSQL = `DELETE FROM schedules WHERE id = ? AND user_id = ?`
)

func (r *ScheduleSQLite) Create(ctx context.Context, s *models.Schedule) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, insertScheduleSQL,
		s.ID, s.UserID, s.DeviceID, s.Name, s.PistonNumber, s.Action, s.CronExpression, s.Enabled, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert schedule %q: %w", s.Name, err)
	}
	return nil
}

// List returns the user's schedules, optionally narrowed to one device.
func (r *ScheduleSQLite) List(ctx context.Context, userID, deviceID string) ([]models.Schedule, error) {
	if deviceID == "" {
		return r.query(ctx, selectSchedulesByUserSQL, userID)
	}
	return r.query(ctx, selectSchedulesByDeviceSQL, userID, deviceID)
}

func (r *ScheduleSQLite) Get(ctx context.Context, userID, id string) (*models.Schedule, error) {
	out, err := r.query(ctx, selectScheduleByIDSQL, userID, id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (r *ScheduleSQLite) Update(ctx context.Context, s *models.Schedule) error {
	s.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, updateScheduleSQL,
		s.Name, s.PistonNumber, s.Action, s.CronExpression, s.Enabled, s.UpdatedAt, s.ID, s.UserID,
	)
	return affectedOne(res, err, "update schedule", s.ID)
}

func (r *ScheduleSQLite) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, deleteScheduleSQL, id, userID)
	return affectedOne(res, err, "delete schedule", id)
}

// ListEnabled returns every enabled schedule across users, for the runner.
func (r *ScheduleSQLite) ListEnabled(ctx context.Context) ([]models.Schedule, error) {
	return r.query(ctx, selectEnabledSchedulesSQL)
}

func (r *ScheduleSQLite) query(ctx context.Context, q string, args ...any) ([]models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select schedules: %w", err)
	}
	defer rows.Close()

	out := make([]models.Schedule, 0, 8)
	for rows.Next() {
		var s models.Schedule
		if err := rows.Scan(&s.ID, &s.UserID, &s.DeviceID, &s.Name, &s.PistonNumber, &s.Action,
			&s.CronExpression, &s.Enabled, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		s.CreatedAt, s.UpdatedAt = s.CreatedAt.UTC(), s.UpdatedAt.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return out, nil
}
