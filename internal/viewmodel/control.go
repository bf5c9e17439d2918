package viewmodel

import (
	"context"
	"fmt"

	pc "piston_control"
	"piston_control/internal/client"
	"piston_control/internal/models"
)

// ValveGate decides which piston numbers the user may see and drive.
type ValveGate interface {
	IsValveEnabled(n int) bool
}

type ControlViewModel struct {
	Device  *Stream[models.Device]
	Control *Stream[models.Piston]

	devices client.Devices
	pistons client.Pistons
	gate    ValveGate
}

func NewControlViewModel(devices client.Devices, pistons client.Pistons, gate ValveGate) *ControlViewModel {
	return &ControlViewModel{
		Device:  NewStream[models.Device](),
		Control: NewStream[models.Piston](),
		devices: devices,
		pistons: pistons,
		gate:    gate,
	}
}

func (vm *ControlViewModel) Load(ctx context.Context, deviceID string) pc.Result[models.Device] {
	return run(vm.Device, func() pc.Result[models.Device] { return vm.devices.Get(ctx, deviceID) })
}

// Toggle drives one valve and refreshes the device once on success.
func (vm *ControlViewModel) Toggle(ctx context.Context, deviceID string, number int, activate bool) pc.Result[models.Piston] {
	if !vm.gate.IsValveEnabled(number) {
		return reject(vm.Control, fmt.Errorf("valve %d is disabled in settings", number))
	}
	r := run(vm.Control, func() pc.Result[models.Piston] {
		return vm.pistons.Control(ctx, deviceID, number, activate)
	})
	if r.IsSuccess() {
		vm.Load(ctx, deviceID)
	}
	return r
}

// VisiblePistons filters d's pistons through the valve limit.
func (vm *ControlViewModel) VisiblePistons(d models.Device) []models.Piston {
	out := make([]models.Piston, 0, len(d.Pistons))
	for _, p := range d.Pistons {
		if vm.gate.IsValveEnabled(p.PistonNumber) {
			out = append(out, p)
		}
	}
	return out
}
