package models

import (
	"strings"
	"time"
)

// Schedule actions.
const (
	ScheduleActivate   = "ACTIVATE"
	ScheduleDeactivate = "DEACTIVATE"
)

// Schedule is a recurring (or one-shot) timed piston command fired by the backend.
type Schedule struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	DeviceID       string    `json:"deviceId"`
	PistonNumber   int       `json:"pistonNumber"`
	Action         string    `json:"action"`         // ACTIVATE | DEACTIVATE
	CronExpression string    `json:"cronExpression"` // second minute hour dom month dow [year]
	Enabled        bool      `json:"enabled"`
	UserID         string    `json:"userId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// PistonAction maps the schedule action onto the piston control action.
func (s Schedule) PistonAction() string {
	if strings.EqualFold(s.Action, ScheduleDeactivate) {
		return ActionDeactivate
	}
	return ActionActivate
}

// CreateScheduleRequest is the body of POST schedules.
type CreateScheduleRequest struct {
	Name           string `json:"name" validate:"required,max=100"`
	DeviceID       string `json:"deviceId" validate:"required"`
	PistonNumber   int    `json:"pistonNumber" validate:"min=1,max=8"`
	Action         string `json:"action" validate:"required,oneof=ACTIVATE DEACTIVATE"`
	CronExpression string `json:"cronExpression" validate:"required"`
	Enabled        bool   `json:"enabled"`
}

// UpdateScheduleRequest is the body of PUT schedules/{id}. Nil fields are left unchanged.
type UpdateScheduleRequest struct {
	Name           *string `json:"name,omitempty" validate:"omitempty,max=100"`
	PistonNumber   *int    `json:"pistonNumber,omitempty" validate:"omitempty,min=1,max=8"`
	Action         *string `json:"action,omitempty" validate:"omitempty,oneof=ACTIVATE DEACTIVATE"`
	CronExpression *string `json:"cronExpression,omitempty"`
	Enabled        *bool   `json:"enabled,omitempty"`
}

// ScheduleResponse wraps single-schedule endpoints.
type ScheduleResponse struct {
	Schedule Schedule `json:"schedule"`
}

// ScheduleListResponse wraps GET schedules.
type ScheduleListResponse struct {
	Schedules []Schedule `json:"schedules"`
}
