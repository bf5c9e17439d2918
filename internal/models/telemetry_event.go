package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Telemetry event types written by the backend.
const (
	EventPistonActivated   = "piston_activated"
	EventPistonDeactivated = "piston_deactivated"
	EventDeviceOnline      = "device_online"
	EventDeviceOffline     = "device_offline"
	EventScheduleFired     = "schedule_fired"
)

// TelemetryEvent is a single append-only log entry.
type TelemetryEvent struct {
	ID        string          `json:"id"`
	DeviceID  string          `json:"device_id"`
	PistonID  string          `json:"piston_id,omitempty"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// PistonNumber extracts the piston number from the payload, if any.
func (e TelemetryEvent) PistonNumber() (int, bool) {
	if len(e.Payload) == 0 {
		return 0, false
	}
	var p struct {
		Snake *int `json:"piston_number"`
		Camel *int `json:"pistonNumber"`
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return 0, false
	}
	switch {
	case p.Snake != nil:
		return *p.Snake, true
	case p.Camel != nil:
		return *p.Camel, true
	}
	return 0, false
}

// TelemetryFilter narrows GET telemetry. Zero values mean "no filter".
type TelemetryFilter struct {
	DeviceID     string
	PistonNumber int
	Action       string
	StartDate    time.Time
	EndDate      time.Time
	Limit        int
}

// TelemetryListResponse wraps GET telemetry.
type TelemetryListResponse struct {
	Count  int              `json:"count"`
	Events []TelemetryEvent `json:"events"`
}

// EventTypeForAction maps a piston action filter onto the stored event type.
// Anything else is treated as an event type already.
func EventTypeForAction(action string) string {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case ActionActivate:
		return EventPistonActivated
	case ActionDeactivate:
		return EventPistonDeactivated
	}
	return strings.TrimSpace(action)
}
