package client

import (
	"context"
	"net/url"
	"strconv"
	"time"

	pc "piston_control"
	"piston_control/internal/gateway"
	"piston_control/internal/models"
)

type ScheduleRepository struct {
	gw *gateway.Gateway
}

func NewScheduleRepository(gw *gateway.Gateway) *ScheduleRepository {
	return &ScheduleRepository{gw: gw}
}

func (r *ScheduleRepository) Create(ctx context.Context, req models.CreateScheduleRequest) pc.Result[models.Schedule] {
	return unwrapSchedule(gateway.Post[models.ScheduleResponse](ctx, r.gw, "schedules", req))
}

// List returns all schedules, or one device's when deviceID is set.
func (r *ScheduleRepository) List(ctx context.Context, deviceID string) pc.Result[[]models.Schedule] {
	var q url.Values
	if deviceID != "" {
		q = url.Values{"deviceId": {deviceID}}
	}
	res := gateway.Get[models.ScheduleListResponse](ctx, r.gw, "schedules", q)
	return pc.MapResult(res, func(v models.ScheduleListResponse) []models.Schedule { return v.Schedules })
}

func (r *ScheduleRepository) Get(ctx context.Context, id string) pc.Result[models.Schedule] {
	return unwrapSchedule(gateway.Get[models.ScheduleResponse](ctx, r.gw, "schedules/"+url.PathEscape(id), nil))
}

func (r *ScheduleRepository) Update(ctx context.Context, id string, req models.UpdateScheduleRequest) pc.Result[models.Schedule] {
	return unwrapSchedule(gateway.Put[models.ScheduleResponse](ctx, r.gw, "schedules/"+url.PathEscape(id), req))
}

func (r *ScheduleRepository) Delete(ctx context.Context, id string) pc.Result[models.MessageResponse] {
	return gateway.Delete[models.MessageResponse](ctx, r.gw, "schedules/"+url.PathEscape(id))
}

func unwrapSchedule(res pc.Result[models.ScheduleResponse]) pc.Result[models.Schedule] {
	return pc.MapResult(res, func(v models.ScheduleResponse) models.Schedule { return v.Schedule })
}

type TelemetryRepository struct {
	gw *gateway.Gateway
}

func NewTelemetryRepository(gw *gateway.Gateway) *TelemetryRepository {
	return &TelemetryRepository{gw: gw}
}

func (r *TelemetryRepository) List(ctx context.Context, f models.TelemetryFilter) pc.Result[models.TelemetryListResponse] {
	return gateway.Get[models.TelemetryListResponse](ctx, r.gw, "telemetry", TelemetryQuery(f))
}

// TelemetryQuery encodes the non-zero filter fields.
func TelemetryQuery(f models.TelemetryFilter) url.Values {
	q := url.Values{}
	if f.DeviceID != "" {
		q.Set("device_id", f.DeviceID)
	}
	if f.PistonNumber > 0 {
		q.Set("piston_number", strconv.Itoa(f.PistonNumber))
	}
	if f.Action != "" {
		q.Set("action", f.Action)
	}
	if !f.StartDate.IsZero() {
		q.Set("start_date", f.StartDate.UTC().Format(time.RFC3339))
	}
	if !f.EndDate.IsZero() {
		q.Set("end_date", f.EndDate.UTC().Format(time.RFC3339))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}
