package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"piston_control/internal/models"
	"piston_control/internal/repository"
)

// DeviceService reads devices and drives valves. Every state change is
// logged to telemetry and pushed to the owner's realtime connections.
type DeviceService struct {
	devices   repository.Devices
	telemetry repository.Telemetry
	notifier  Notifier
	now       func() time.Time
}

func NewDeviceService(devices repository.Devices, telemetry repository.Telemetry, notifier Notifier) *DeviceService {
	return &DeviceService{devices: devices, telemetry: telemetry, notifier: notifier, now: time.Now}
}

var _ Devices = (*DeviceService)(nil)

func (s *DeviceService) List(ctx context.Context, userID string) ([]models.Device, error) {
	return s.devices.ListByUser(ctx, userID)
}

func (s *DeviceService) Get(ctx context.Context, userID, ref string) (*models.Device, error) {
	return s.devices.Get(ctx, userID, ref)
}

// Control sets one piston to the requested state.
func (s *DeviceService) Control(ctx context.Context, p ControlParams) (*models.Piston, error) {
	if p.PistonNumber < 1 || p.PistonNumber > models.MaxPistons {
		return nil, ErrInvalidPiston
	}
	action := strings.ToLower(strings.TrimSpace(p.Action))
	state, ok := map[string]string{
		models.ActionActivate:   models.PistonActive,
		models.ActionDeactivate: models.PistonInactive,
	}[action]
	if !ok {
		return nil, ErrInvalidAction
	}

	d, err := s.devices.Get(ctx, p.UserID, p.DeviceRef)
	if err != nil {
		return nil, err
	}
	if !d.IsOnline() {
		return nil, ErrDeviceOffline
	}

	now := s.now().UTC()
	piston, err := s.devices.SetPistonState(ctx, d.ID, p.PistonNumber, state, now)
	if err != nil {
		return nil, err
	}

	source := p.Source
	if source == "" {
		source = SourceAPI
	}
	payload := map[string]any{"piston_number": p.PistonNumber, "action": action, "source": source}
	if p.ScheduleID != "" {
		payload["schedule_id"] = p.ScheduleID
	}
	if err := s.appendEvent(ctx, d.ID, piston.ID, models.EventTypeForAction(action), payload, now); err != nil {
		return nil, err
	}

	s.notifier.Publish(p.UserID, models.PistonUpdate{
		Type:         models.MessagePistonUpdate,
		DeviceID:     d.DeviceID,
		PistonNumber: p.PistonNumber,
		State:        state,
		Timestamp:    now.Format(time.RFC3339),
	})
	return piston, nil
}

// SetStatus marks a device online or offline, emulating a controller
// connecting to or dropping off the broker.
func (s *DeviceService) SetStatus(ctx context.Context, userID, ref, status string) (*models.Device, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	var eventType string
	switch status {
	case models.DeviceOnline:
		eventType = models.EventDeviceOnline
	case models.DeviceOffline:
		eventType = models.EventDeviceOffline
	default:
		return nil, ErrInvalidStatus
	}

	d, err := s.devices.Get(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.devices.SetStatus(ctx, d.ID, status, now); err != nil {
		return nil, err
	}
	if err := s.appendEvent(ctx, d.ID, "", eventType, nil, now); err != nil {
		return nil, err
	}
	d.Status = status
	d.LastSeen = &now

	s.notifier.Publish(userID, models.DeviceStatus{
		Type:      models.MessageDeviceStatus,
		DeviceID:  d.DeviceID,
		Status:    status,
		Timestamp: now.Format(time.RFC3339),
	})
	return d, nil
}

func (s *DeviceService) appendEvent(ctx context.Context, deviceID, pistonID, eventType string, payload map[string]any, at time.Time) error {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", eventType, err)
		}
		raw = b
	}
	return s.telemetry.Append(ctx, &models.TelemetryEvent{
		DeviceID:  deviceID,
		PistonID:  pistonID,
		EventType: eventType,
		Payload:   raw,
		CreatedAt: at,
	})
}
