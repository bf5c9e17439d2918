package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"piston_control/internal/models"
)

// ErrUnknownFrame is returned for well-formed frames with an unhandled type.
var ErrUnknownFrame = errors.New("unknown frame type")

// Frame is one decoded push message. Exactly one of Piston and Status is set.
type Frame struct {
	Type   string
	Piston *models.PistonUpdate
	Status *models.DeviceStatus
}

// DecodeFrame reads the type discriminator, then the concrete shape.
func DecodeFrame(data []byte) (Frame, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return Frame{}, fmt.Errorf("decode frame envelope: %w", err)
	}
	f := Frame{Type: env.Type}
	switch env.Type {
	case models.MessagePistonUpdate:
		var u models.PistonUpdate
		if err := json.Unmarshal(data, &u); err != nil {
			return Frame{}, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		f.Piston = &u
	case models.MessageDeviceStatus:
		var s models.DeviceStatus
		if err := json.Unmarshal(data, &s); err != nil {
			return Frame{}, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		f.Status = &s
	default:
		return f, fmt.Errorf("%w %q", ErrUnknownFrame, env.Type)
	}
	return f, nil
}
