package viewmodel

import (
	"context"
	"fmt"
	"sync"

	pc "piston_control"
	"piston_control/internal/client"
	"piston_control/internal/cronexpr"
	"piston_control/internal/models"
)

type SchedulesViewModel struct {
	List   *Stream[[]models.Schedule]
	Create *Stream[models.Schedule]
	Update *Stream[models.Schedule]
	Delete *Stream[models.MessageResponse]

	repo client.Schedules

	mu       sync.Mutex
	deviceID string // filter of the last Load
}

func NewSchedulesViewModel(repo client.Schedules) *SchedulesViewModel {
	return &SchedulesViewModel{
		List:   NewStream[[]models.Schedule](),
		Create: NewStream[models.Schedule](),
		Update: NewStream[models.Schedule](),
		Delete: NewStream[models.MessageResponse](),
		repo:   repo,
	}
}

// Load fetches schedules, narrowed to deviceID when set. Later reloads
// reuse the same filter.
func (vm *SchedulesViewModel) Load(ctx context.Context, deviceID string) pc.Result[[]models.Schedule] {
	vm.mu.Lock()
	vm.deviceID = deviceID
	vm.mu.Unlock()
	return run(vm.List, func() pc.Result[[]models.Schedule] { return vm.repo.List(ctx, deviceID) })
}

func (vm *SchedulesViewModel) reload(ctx context.Context) {
	vm.mu.Lock()
	id := vm.deviceID
	vm.mu.Unlock()
	vm.Load(ctx, id)
}

// NewScheduleRequest turns a structured rule into a create request.
func NewScheduleRequest(name, deviceID string, piston int, rule cronexpr.Rule, enabled bool) (models.CreateScheduleRequest, error) {
	expr, err := cronexpr.Build(rule)
	if err != nil {
		return models.CreateScheduleRequest{}, err
	}
	action := rule.Action
	if action == "" {
		action = models.ScheduleActivate
	}
	return models.CreateScheduleRequest{
		Name:           name,
		DeviceID:       deviceID,
		PistonNumber:   piston,
		Action:         action,
		CronExpression: expr,
		Enabled:        enabled,
	}, nil
}

func (vm *SchedulesViewModel) CreateSchedule(ctx context.Context, req models.CreateScheduleRequest) pc.Result[models.Schedule] {
	if err := validateSchedule(req, req.CronExpression); err != nil {
		return reject(vm.Create, err)
	}
	r := run(vm.Create, func() pc.Result[models.Schedule] { return vm.repo.Create(ctx, req) })
	if r.IsSuccess() {
		vm.reload(ctx)
	}
	return r
}

func (vm *SchedulesViewModel) UpdateSchedule(ctx context.Context, id string, req models.UpdateScheduleRequest) pc.Result[models.Schedule] {
	expr := ""
	if req.CronExpression != nil {
		expr = *req.CronExpression
	}
	if err := validateSchedule(req, expr); err != nil {
		return reject(vm.Update, err)
	}
	r := run(vm.Update, func() pc.Result[models.Schedule] { return vm.repo.Update(ctx, id, req) })
	if r.IsSuccess() {
		vm.reload(ctx)
	}
	return r
}

// Toggle flips the enabled flag of s.
func (vm *SchedulesViewModel) Toggle(ctx context.Context, s models.Schedule) pc.Result[models.Schedule] {
	enabled := !s.Enabled
	return vm.UpdateSchedule(ctx, s.ID, models.UpdateScheduleRequest{Enabled: &enabled})
}

func (vm *SchedulesViewModel) DeleteSchedule(ctx context.Context, id string) pc.Result[models.MessageResponse] {
	if id == "" {
		return reject(vm.Delete, fmt.Errorf("schedule id is required"))
	}
	r := run(vm.Delete, func() pc.Result[models.MessageResponse] { return vm.repo.Delete(ctx, id) })
	if r.IsSuccess() {
		vm.reload(ctx)
	}
	return r
}

func validateSchedule(req any, expr string) error {
	if err := models.Validate(req); err != nil {
		return err
	}
	if expr == "" {
		return nil
	}
	if err := cronexpr.Validate(expr); err != nil {
		return &models.ValidationError{Fields: map[string]string{"cronExpression": err.Error()}}
	}
	return nil
}
