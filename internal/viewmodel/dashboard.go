package viewmodel

import (
	"context"
	"sync"

	pc "piston_control"
	"piston_control/internal/client"
	"piston_control/internal/models"
)

// PushSource is the live update feed: the WebSocket channel or MQTT.
type PushSource interface {
	Connect()
	Disconnect()
	OnPistonUpdate(fn func(models.PistonUpdate)) (remove func())
	OnDeviceStatus(fn func(models.DeviceStatus)) (remove func())
	OnConnectionChange(fn func(bool)) (remove func())
}

type DashboardViewModel struct {
	Devices   *Stream[[]models.Device]
	Connected *Stream[bool]

	devices client.Devices
	push    PushSource

	mu      sync.Mutex
	removes []func()
}

func NewDashboardViewModel(devices client.Devices, push PushSource) *DashboardViewModel {
	return &DashboardViewModel{
		Devices:   NewStream[[]models.Device](),
		Connected: NewStream[bool](),
		devices:   devices,
		push:      push,
	}
}

func (vm *DashboardViewModel) Refresh(ctx context.Context) pc.Result[[]models.Device] {
	return run(vm.Devices, func() pc.Result[[]models.Device] { return vm.devices.List(ctx) })
}

// Start subscribes to pushes (each one triggers a refresh) and connects.
// Calling Start twice without Stop is a no-op.
func (vm *DashboardViewModel) Start(ctx context.Context) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.removes != nil {
		return
	}
	vm.removes = []func(){
		vm.push.OnPistonUpdate(func(models.PistonUpdate) { vm.Refresh(ctx) }),
		vm.push.OnDeviceStatus(func(models.DeviceStatus) { vm.Refresh(ctx) }),
		vm.push.OnConnectionChange(func(c bool) { vm.Connected.Set(pc.Success(c)) }),
	}
	vm.push.Connect()
}

// Stop is the backgrounding hook: unsubscribe and disconnect.
func (vm *DashboardViewModel) Stop() {
	vm.mu.Lock()
	removes := vm.removes
	vm.removes = nil
	vm.mu.Unlock()
	for _, rm := range removes {
		rm()
	}
	vm.push.Disconnect()
}
