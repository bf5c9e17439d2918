package service

import "errors"

// Control sources recorded in telemetry payloads.
const (
	SourceAPI      = "api"
	SourceSchedule = "schedule"
)

// ControlParams describes one valve command.
type ControlParams struct {
	UserID       string
	DeviceRef    string // devices.id or the physical device_id
	PistonNumber int
	Action       string // activate | deactivate
	Source       string // api | schedule
	ScheduleID   string
}

// Domain errors. Handlers map them onto HTTP status codes.
var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidPiston   = errors.New("piston number must be between 1 and 8")
	ErrInvalidAction   = errors.New("action must be activate or deactivate")
	ErrInvalidStatus   = errors.New("status must be online or offline")
	ErrDeviceOffline   = errors.New("device is offline")
	ErrInvalidCron     = errors.New("invalid cron expression")
	ErrInvalidRange    = errors.New("invalid time range: start_date must be <= end_date")
)
