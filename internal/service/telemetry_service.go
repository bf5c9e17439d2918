package service

import (
	"context"
	"time"

	"piston_control/internal/models"
	"piston_control/internal/repository"
)

type TelemetryService struct {
	telemetry repository.Telemetry
}

func NewTelemetryService(telemetry repository.Telemetry) *TelemetryService {
	return &TelemetryService{telemetry: telemetry}
}

var _ Telemetry = (*TelemetryService)(nil)

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeFilter moves the bounds to UTC and validates the range.
func normalizeFilter(f models.TelemetryFilter) (models.TelemetryFilter, error) {
	f.StartDate = normalizeToUTC(f.StartDate)
	f.EndDate = normalizeToUTC(f.EndDate)
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.StartDate.After(f.EndDate) {
		return models.TelemetryFilter{}, ErrInvalidRange
	}
	if f.PistonNumber < 0 || f.PistonNumber > models.MaxPistons {
		return models.TelemetryFilter{}, ErrInvalidPiston
	}
	return f, nil
}

func (s *TelemetryService) List(ctx context.Context, userID string, f models.TelemetryFilter) ([]models.TelemetryEvent, error) {
	f, err := normalizeFilter(f)
	if err != nil {
		return nil, err
	}
	return s.telemetry.List(ctx, userID, f)
}
