package viewmodel

import (
	"context"

	pc "piston_control"
)

// ValveLimitStore persists the number of valves surfaced in the UI.
type ValveLimitStore interface {
	ValveLimit() int
	SetValveLimit(ctx context.Context, n int) error
}

type SettingsViewModel struct {
	ValveLimit *Stream[int]

	store ValveLimitStore
}

func NewSettingsViewModel(store ValveLimitStore) *SettingsViewModel {
	return &SettingsViewModel{ValveLimit: NewStream[int](), store: store}
}

func (vm *SettingsViewModel) Load() pc.Result[int] {
	r := pc.Success(vm.store.ValveLimit())
	vm.ValveLimit.Set(r)
	return r
}

func (vm *SettingsViewModel) SetValveLimit(ctx context.Context, n int) pc.Result[int] {
	return run(vm.ValveLimit, func() pc.Result[int] {
		if err := vm.store.SetValveLimit(ctx, n); err != nil {
			return pc.Failure[int](err.Error(), 0)
		}
		return pc.Success(vm.store.ValveLimit())
	})
}
