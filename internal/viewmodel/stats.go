package viewmodel

import (
	"context"
	"sort"
	"time"

	pc "piston_control"
	"piston_control/internal/client"
	"piston_control/internal/models"
)

// DayCount is the number of activations on one calendar day.
type DayCount struct {
	Day   string // YYYY-MM-DD
	Count int
}

// Stats summarises piston usage over a telemetry window.
type Stats struct {
	Events        int
	Activations   map[int]int
	Deactivations map[int]int
	ActiveTime    map[int]time.Duration
	PerDay        []DayCount
}

type StatsViewModel struct {
	Stats *Stream[Stats]

	repo client.Telemetry
	now  func() time.Time
	loc  *time.Location
}

func NewStatsViewModel(repo client.Telemetry) *StatsViewModel {
	return &StatsViewModel{Stats: NewStream[Stats](), repo: repo, now: time.Now, loc: time.Local}
}

func (vm *StatsViewModel) Load(ctx context.Context, f models.TelemetryFilter) pc.Result[Stats] {
	return run(vm.Stats, func() pc.Result[Stats] {
		res := vm.repo.List(ctx, f)
		return pc.MapResult(res, func(v models.TelemetryListResponse) Stats {
			end := vm.now()
			if !f.EndDate.IsZero() && f.EndDate.Before(end) {
				end = f.EndDate
			}
			return Aggregate(v.Events, end, vm.loc)
		})
	})
}

// Aggregate counts activations per piston and per day and sums how long
// each piston stayed open. An activation still open at end counts up to end.
func Aggregate(events []models.TelemetryEvent, end time.Time, loc *time.Location) Stats {
	st := Stats{
		Events:        len(events),
		Activations:   map[int]int{},
		Deactivations: map[int]int{},
		ActiveTime:    map[int]time.Duration{},
	}
	sorted := append([]models.TelemetryEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	type pistonKey struct {
		device string
		number int
	}
	openedAt := map[pistonKey]time.Time{}
	perDay := map[string]int{}
	for _, ev := range sorted {
		n, ok := ev.PistonNumber()
		if !ok {
			continue
		}
		key := pistonKey{ev.DeviceID, n}
		switch ev.EventType {
		case models.EventPistonActivated:
			st.Activations[n]++
			perDay[ev.CreatedAt.In(loc).Format("2006-01-02")]++
			if _, open := openedAt[key]; !open {
				openedAt[key] = ev.CreatedAt
			}
		case models.EventPistonDeactivated:
			st.Deactivations[n]++
			if t, open := openedAt[key]; open {
				st.ActiveTime[n] += ev.CreatedAt.Sub(t)
				delete(openedAt, key)
			}
		}
	}
	for key, t := range openedAt {
		if end.After(t) {
			st.ActiveTime[key.number] += end.Sub(t)
		}
	}

	st.PerDay = make([]DayCount, 0, len(perDay))
	for day, c := range perDay {
		st.PerDay = append(st.PerDay, DayCount{Day: day, Count: c})
	}
	sort.Slice(st.PerDay, func(i, j int) bool { return st.PerDay[i].Day < st.PerDay[j].Day })
	return st
}
