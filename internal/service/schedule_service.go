package service

import (
	"context"
	"fmt"
	"strings"

	"piston_control/internal/cronexpr"
	"piston_control/internal/models"
	"piston_control/internal/repository"
)

// ScheduleService stores schedules and nudges the runner after every change.
type ScheduleService struct {
	schedules repository.Schedules
	devices   repository.Devices
	changed   func()
}

func NewScheduleService(schedules repository.Schedules, devices repository.Devices, changed func()) *ScheduleService {
	if changed == nil {
		changed = func() {}
	}
	return &ScheduleService{schedules: schedules, devices: devices, changed: changed}
}

var _ Schedules = (*ScheduleService)(nil)

func (s *ScheduleService) Create(ctx context.Context, userID string, req models.CreateScheduleRequest) (*models.Schedule, error) {
	if err := validateCron(req.CronExpression); err != nil {
		return nil, err
	}
	d, err := s.devices.Get(ctx, userID, req.DeviceID)
	if err != nil {
		return nil, err
	}
	sc := &models.Schedule{
		Name:           strings.TrimSpace(req.Name),
		DeviceID:       d.ID,
		PistonNumber:   req.PistonNumber,
		Action:         strings.ToUpper(req.Action),
		CronExpression: strings.TrimSpace(req.CronExpression),
		Enabled:        req.Enabled,
		UserID:         userID,
	}
	if err := s.schedules.Create(ctx, sc); err != nil {
		return nil, err
	}
	s.changed()
	return sc, nil
}

// List returns the user's schedules. deviceRef may be the device id or the
// physical device_id; an unknown device yields an empty list.
func (s *ScheduleService) List(ctx context.Context, userID, deviceRef string) ([]models.Schedule, error) {
	if deviceRef == "" {
		return s.schedules.List(ctx, userID, "")
	}
	d, err := s.devices.Get(ctx, userID, deviceRef)
	if repository.IsNotFound(err) {
		return []models.Schedule{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.schedules.List(ctx, userID, d.ID)
}

func (s *ScheduleService) Get(ctx context.Context, userID, id string) (*models.Schedule, error) {
	return s.schedules.Get(ctx, userID, id)
}

// Update applies the non-nil fields of req.
func (s *ScheduleService) Update(ctx context.Context, userID, id string, req models.UpdateScheduleRequest) (*models.Schedule, error) {
	sc, err := s.schedules.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		sc.Name = strings.TrimSpace(*req.Name)
	}
	if req.PistonNumber != nil {
		sc.PistonNumber = *req.PistonNumber
	}
	if req.Action != nil {
		sc.Action = strings.ToUpper(*req.Action)
	}
	if req.CronExpression != nil {
		if err := validateCron(*req.CronExpression); err != nil {
			return nil, err
		}
		sc.CronExpression = strings.TrimSpace(*req.CronExpression)
	}
	if req.Enabled != nil {
		sc.Enabled = *req.Enabled
	}
	if err := s.schedules.Update(ctx, sc); err != nil {
		return nil, err
	}
	s.changed()
	return sc, nil
}

func (s *ScheduleService) Delete(ctx context.Context, userID, id string) error {
	if err := s.schedules.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.changed()
	return nil
}

func validateCron(expr string) error {
	if err := cronexpr.Validate(strings.TrimSpace(expr)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}
	return nil
}
