package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"piston_control/internal/models"

	"github.com/google/uuid"
)

const (
	defaultTelemetryLimit = 100
	maxTelemetryLimit     = 1000
)

type TelemetrySQLite struct {
	db *sql.DB
}

func NewTelemetrySQLite(db *sql.DB) *TelemetrySQLite { return &TelemetrySQLite{db: db} }

var _ Telemetry = (*TelemetrySQLite)(nil)

const insertTelemetrySQL = `
	INSERT INTO telemetry (id, device_id, piston_id, event_type, payload, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
`

// Append inserts a new event. Empty ID and zero CreatedAt are filled in.
func (r *TelemetrySQLite) Append(ctx context.Context, e *models.TelemetryEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = utc(e.CreatedAt)

	var pistonID sql.NullString
	if e.PistonID != "" {
		pistonID = sql.NullString{String: e.PistonID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, insertTelemetrySQL,
		e.ID, e.DeviceID, pistonID, e.EventType, nullJSON(e.Payload), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert telemetry %q: %w", e.EventType, err)
	}
	return nil
}

// List returns the user's events matching f, newest first.
func (r *TelemetrySQLite) List(ctx context.Context, userID string, f models.TelemetryFilter) ([]models.TelemetryEvent, error) {
	q, args := buildTelemetryQuery(userID, f)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select telemetry: %w", err)
	}
	defer rows.Close()

	out := make([]models.TelemetryEvent, 0, 64)
	for rows.Next() {
		var (
			ev       models.TelemetryEvent
			pistonID sql.NullString
			payload  sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.DeviceID, &pistonID, &ev.EventType, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan telemetry: %w", err)
		}
		ev.PistonID = pistonID.String
		if payload.Valid && json.Valid([]byte(payload.String)) {
			ev.Payload = json.RawMessage(payload.String)
		}
		ev.CreatedAt = ev.CreatedAt.UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate telemetry: %w", err)
	}
	return out, nil
}

func buildTelemetryQuery(userID string, f models.TelemetryFilter) (string, []any) {
	conds := []string{"d.user_id = ?"}
	args := []any{userID}

	if f.DeviceID != "" {
		conds = append(conds, "(d.id = ? OR d.device_id = ?)")
		args = append(args, f.DeviceID, f.DeviceID)
	}
	if f.PistonNumber > 0 {
		conds = append(conds, "json_extract(t.payload, '$.piston_number') = ?")
		args = append(args, f.PistonNumber)
	}
	if typ := models.EventTypeForAction(f.Action); typ != "" {
		conds = append(conds, "t.event_type = ?")
		args = append(args, typ)
	}
	if !f.StartDate.IsZero() {
		conds = append(conds, "t.created_at >= ?")
		args = append(args, f.StartDate.UTC())
	}
	if !f.EndDate.IsZero() {
		conds = append(conds, "t.created_at <= ?")
		args = append(args, f.EndDate.UTC())
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultTelemetryLimit
	}
	if limit > maxTelemetryLimit {
		limit = maxTelemetryLimit
	}
	args = append(args, limit)

	q := `SELECT t.id, t.device_id, t.piston_id, t.event_type, t.payload, t.created_at
		FROM telemetry t JOIN devices d ON d.id = t.device_id
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY t.created_at DESC
		LIMIT ?`
	return q, args
}
