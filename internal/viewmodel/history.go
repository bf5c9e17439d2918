package viewmodel

import (
	"context"

	pc "piston_control"
	"piston_control/internal/client"
	"piston_control/internal/models"
)

type HistoryViewModel struct {
	Events *Stream[models.TelemetryListResponse]

	repo client.Telemetry
}

func NewHistoryViewModel(repo client.Telemetry) *HistoryViewModel {
	return &HistoryViewModel{Events: NewStream[models.TelemetryListResponse](), repo: repo}
}

func (vm *HistoryViewModel) Load(ctx context.Context, f models.TelemetryFilter) pc.Result[models.TelemetryListResponse] {
	return run(vm.Events, func() pc.Result[models.TelemetryListResponse] { return vm.repo.List(ctx, f) })
}
