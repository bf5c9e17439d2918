package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"piston_control/internal/models"
)

var (
	// ErrNotFound is returned when a scoped lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
)

// Preferences is the local key-value store behind the session.
type Preferences interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	// PutMany writes every pair or none of them.
	PutMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

type Users interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, u models.User) error
	UpdatePreferences(ctx context.Context, id string, prefs json.RawMessage) error
	SetAvatar(ctx context.Context, id, url string) error
}

type Devices interface {
	Create(ctx context.Context, d *models.Device) error
	ListByUser(ctx context.Context, userID string) ([]models.Device, error)
	Get(ctx context.Context, userID, ref string) (*models.Device, error)
	ListAll(ctx context.Context) ([]models.Device, error)
	SetPistonState(ctx context.Context, deviceID string, number int, state string, at time.Time) (*models.Piston, error)
	SetStatus(ctx context.Context, deviceID, status string, at time.Time) error
}

type Schedules interface {
	Create(ctx context.Context, s *models.Schedule) error
	List(ctx context.Context, userID, deviceID string) ([]models.Schedule, error)
	Get(ctx context.Context, userID, id string) (*models.Schedule, error)
	Update(ctx context.Context, s *models.Schedule) error
	Delete(ctx context.Context, userID, id string) error
	ListEnabled(ctx context.Context) ([]models.Schedule, error)
}

type Telemetry interface {
	Append(ctx context.Context, e *models.TelemetryEvent) error
	List(ctx context.Context, userID string, f models.TelemetryFilter) ([]models.TelemetryEvent, error)
}

// Repository groups the backend stores.
type Repository struct {
	Users     Users
	Devices   Devices
	Schedules Schedules
	Telemetry Telemetry
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Users:     NewUserSQLite(db),
		Devices:   NewDeviceSQLite(db),
		Schedules: NewScheduleSQLite(db),
		Telemetry: NewTelemetrySQLite(db),
	}
}

// utc normalises timestamps before they hit sqlite; zero becomes now.
func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
