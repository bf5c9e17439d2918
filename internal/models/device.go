package models

import "time"

// Device status values.
const (
	DeviceOnline  = "online"
	DeviceOffline = "offline"
)

// Piston state values.
const (
	PistonActive   = "active"
	PistonInactive = "inactive"
)

// MaxPistons is the number of valves a controller board exposes.
const MaxPistons = 8

// Device is a controller board with its valves, as returned by the backend.
type Device struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	DeviceID string     `json:"device_id"` // physical identifier
	Status   string     `json:"status"`    // online | offline
	LastSeen *time.Time `json:"last_seen,omitempty"`
	UserID   string     `json:"user_id,omitempty"`
	Pistons  []Piston   `json:"pistons"`
}

// IsOnline reports whether the device was reported online.
func (d Device) IsOnline() bool { return d.Status == DeviceOnline }

// Piston returns the valve with the given 1-based number.
func (d Device) Piston(number int) (Piston, bool) {
	for _, p := range d.Pistons {
		if p.PistonNumber == number {
			return p, true
		}
	}
	return Piston{}, false
}

// ActiveCount returns how many valves are currently open.
func (d Device) ActiveCount() int {
	n := 0
	for _, p := range d.Pistons {
		if p.IsActive() {
			n++
		}
	}
	return n
}

// Piston is a single valve on a device.
type Piston struct {
	ID            string     `json:"id"`
	DeviceID      string     `json:"device_id,omitempty"`
	PistonNumber  int        `json:"piston_number"` // 1-based
	State         string     `json:"state"`         // active | inactive
	LastTriggered *time.Time `json:"last_triggered,omitempty"`
}

func (p Piston) IsActive() bool { return p.State == PistonActive }

// Piston control actions sent to devices/{id}/pistons/{n}.
const (
	ActionActivate   = "activate"
	ActionDeactivate = "deactivate"
)

// PistonControlRequest is the body of a piston command.
type PistonControlRequest struct {
	Action string `json:"action" validate:"required,oneof=activate deactivate"`
}

// PistonControlResponse is the backend answer to a piston command.
type PistonControlResponse struct {
	Message string `json:"message"`
	Piston  Piston `json:"piston"`
}

// DeviceListResponse wraps GET devices.
type DeviceListResponse struct {
	Devices []Device `json:"devices"`
}

// DeviceResponse wraps GET devices/{id}.
type DeviceResponse struct {
	Device Device `json:"device"`
}

// HealthResponse wraps GET health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
