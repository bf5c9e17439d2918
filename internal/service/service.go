package service

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"piston_control/internal/logger"
	"piston_control/internal/models"
	"piston_control/internal/repository"
)

type Authorization interface {
	Register(ctx context.Context, req models.RegisterRequest) (models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (models.AuthResponse, error)
	ParseToken(accessToken string) (string, error)
}

// Profile exposes the signed-in user's account.
type Profile interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	Update(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error)
	UpdatePreferences(ctx context.Context, userID string, prefs json.RawMessage) (*models.User, error)
	SaveAvatar(ctx context.Context, userID, filename string, r io.Reader) (string, error)
	DeleteAvatar(ctx context.Context, userID string) error
}

// Devices exposes device reads and valve commands.
type Devices interface {
	List(ctx context.Context, userID string) ([]models.Device, error)
	Get(ctx context.Context, userID, ref string) (*models.Device, error)
	Control(ctx context.Context, p ControlParams) (*models.Piston, error)
	SetStatus(ctx context.Context, userID, ref, status string) (*models.Device, error)
}

type Schedules interface {
	Create(ctx context.Context, userID string, req models.CreateScheduleRequest) (*models.Schedule, error)
	List(ctx context.Context, userID, deviceRef string) ([]models.Schedule, error)
	Get(ctx context.Context, userID, id string) (*models.Schedule, error)
	Update(ctx context.Context, userID, id string, req models.UpdateScheduleRequest) (*models.Schedule, error)
	Delete(ctx context.Context, userID, id string) error
}

// Telemetry exposes the append-only event log with filtering.
type Telemetry interface {
	List(ctx context.Context, userID string, f models.TelemetryFilter) ([]models.TelemetryEvent, error)
}

// Scheduler fires enabled schedules in the background.
// Stop via context cancellation in main() for graceful shutdown.
type Scheduler interface {
	Run(ctx context.Context, syncInterval time.Duration)
	Resync()
}

// Notifier pushes realtime frames to a user's open connections.
type Notifier interface {
	Publish(userID string, frame any)
}

// Config carries the settings services need from the server config.
type Config struct {
	JWTSecret  string
	TokenTTL   time.Duration
	UploadsDir string
}

// Service aggregates all sub-services.
type Service struct {
	Authorization
	Profile
	Devices
	Schedules
	Telemetry
	Scheduler

	Hub *Hub
}

// NewService wires the repository layer into concrete services.
func NewService(repos *repository.Repository, cfg Config, log *logger.Logger) *Service {
	log = logger.OrNop(log)
	hub := NewHub(log.Named("hub"))
	devices := NewDeviceService(repos.Devices, repos.Telemetry, hub)
	scheduler := NewSchedulerService(repos.Schedules, devices, repos.Telemetry, log.Named("scheduler"))
	return &Service{
		Authorization: NewAuthService(repos.Users, repos.Devices, cfg.JWTSecret, cfg.TokenTTL),
		Profile:       NewProfileService(repos.Users, cfg.UploadsDir),
		Devices:       devices,
		Schedules:     NewScheduleService(repos.Schedules, repos.Devices, scheduler.Resync),
		Telemetry:     NewTelemetryService(repos.Telemetry),
		Scheduler:     scheduler,
		Hub:           hub,
	}
}
