package client

import (
	"context"
	"io"

	pc "piston_control"
	"piston_control/internal/gateway"
	"piston_control/internal/logger"
	"piston_control/internal/models"
)

// Session is what the auth repository writes after sign-in.
type Session interface {
	SaveSession(ctx context.Context, t models.AuthToken) error
	Clear(ctx context.Context) error
}

type Auth interface {
	Register(ctx context.Context, req models.RegisterRequest) pc.Result[models.User]
	Login(ctx context.Context, req models.LoginRequest) pc.Result[models.User]
	Logout(ctx context.Context) error
}

type Devices interface {
	List(ctx context.Context) pc.Result[[]models.Device]
	Get(ctx context.Context, id string) pc.Result[models.Device]
}

type Pistons interface {
	Control(ctx context.Context, deviceID string, number int, activate bool) pc.Result[models.Piston]
}

type Schedules interface {
	Create(ctx context.Context, req models.CreateScheduleRequest) pc.Result[models.Schedule]
	List(ctx context.Context, deviceID string) pc.Result[[]models.Schedule]
	Get(ctx context.Context, id string) pc.Result[models.Schedule]
	Update(ctx context.Context, id string, req models.UpdateScheduleRequest) pc.Result[models.Schedule]
	Delete(ctx context.Context, id string) pc.Result[models.MessageResponse]
}

type Telemetry interface {
	List(ctx context.Context, f models.TelemetryFilter) pc.Result[models.TelemetryListResponse]
}

type Users interface {
	Profile(ctx context.Context) pc.Result[models.User]
	UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) pc.Result[models.User]
	UpdatePreferences(ctx context.Context, req models.UpdatePreferencesRequest) pc.Result[models.User]
}

type Avatars interface {
	Upload(ctx context.Context, image io.Reader, filename string) pc.Result[string]
	Delete(ctx context.Context) pc.Result[models.MessageResponse]
}

type Health interface {
	Check(ctx context.Context) pc.Result[models.HealthResponse]
}

// Repositories groups one façade per backend resource.
type Repositories struct {
	Auth      Auth
	Devices   Devices
	Pistons   Pistons
	Schedules Schedules
	Telemetry Telemetry
	Users     Users
	Avatars   Avatars
	Health    Health
}

func New(gw *gateway.Gateway, session Session, log *logger.Logger) *Repositories {
	log = logger.OrNop(log).Named("client")
	return &Repositories{
		Auth:      NewAuthRepository(gw, session, log),
		Devices:   NewDeviceRepository(gw),
		Pistons:   NewPistonRepository(gw),
		Schedules: NewScheduleRepository(gw),
		Telemetry: NewTelemetryRepository(gw),
		Users:     NewUserRepository(gw),
		Avatars:   NewAvatarRepository(gw, log),
		Health:    NewHealthRepository(gw),
	}
}
