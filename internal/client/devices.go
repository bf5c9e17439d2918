package client

import (
	"context"
	"net/url"
	"strconv"

	pc "piston_control"
	"piston_control/internal/gateway"
	"piston_control/internal/models"
)

type DeviceRepository struct {
	gw *gateway.Gateway
}

func NewDeviceRepository(gw *gateway.Gateway) *DeviceRepository { return &DeviceRepository{gw: gw} }

func (r *DeviceRepository) List(ctx context.Context) pc.Result[[]models.Device] {
	res := gateway.Get[models.DeviceListResponse](ctx, r.gw, "devices", nil)
	return pc.MapResult(res, func(v models.DeviceListResponse) []models.Device { return v.Devices })
}

func (r *DeviceRepository) Get(ctx context.Context, id string) pc.Result[models.Device] {
	res := gateway.Get[models.DeviceResponse](ctx, r.gw, "devices/"+url.PathEscape(id), nil)
	return pc.MapResult(res, func(v models.DeviceResponse) models.Device { return v.Device })
}

type PistonRepository struct {
	gw *gateway.Gateway
}

func NewPistonRepository(gw *gateway.Gateway) *PistonRepository { return &PistonRepository{gw: gw} }

// Control sends activate or deactivate for one valve.
func (r *PistonRepository) Control(ctx context.Context, deviceID string, number int, activate bool) pc.Result[models.Piston] {
	action := models.ActionDeactivate
	if activate {
		action = models.ActionActivate
	}
	path := "devices/" + url.PathEscape(deviceID) + "/pistons/" + strconv.Itoa(number)
	res := gateway.Post[models.PistonControlResponse](ctx, r.gw, path, models.PistonControlRequest{Action: action})
	return pc.MapResult(res, func(v models.PistonControlResponse) models.Piston { return v.Piston })
}

type HealthRepository struct {
	gw *gateway.Gateway
}

func NewHealthRepository(gw *gateway.Gateway) *HealthRepository { return &HealthRepository{gw: gw} }

func (r *HealthRepository) Check(ctx context.Context) pc.Result[models.HealthResponse] {
	return gateway.Get[models.HealthResponse](ctx, r.gw, "health", nil)
}
