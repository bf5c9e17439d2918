package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"piston_control/internal/cronexpr"
	"piston_control/internal/models"
)

var weekdayNames = map[string]time.Weekday{
	"SUN": time.Sunday, "MON": time.Monday, "TUE": time.Tuesday, "WED": time.Wednesday,
	"THU": time.Thursday, "FRI": time.Friday, "SAT": time.Saturday,
}

// parseRule assembles a schedule rule from the schedule-add flags.
func parseRule(action, at, repeat, days, date string) (cronexpr.Rule, error) {
	var r cronexpr.Rule
	switch strings.ToLower(strings.TrimSpace(action)) {
	case models.ActionActivate:
		r.Action = models.ScheduleActivate
	case models.ActionDeactivate:
		r.Action = models.ScheduleDeactivate
	default:
		return r, fmt.Errorf("action must be activate or deactivate, got %q", action)
	}

	var err error
	if r.Hour, r.Minute, err = parseClock(at); err != nil {
		return r, err
	}
	if r.Repeat, err = cronexpr.ParseRepeat(repeat); err != nil {
		return r, err
	}

	switch r.Repeat {
	case cronexpr.Custom:
		if r.Weekdays, err = parseWeekdays(days); err != nil {
			return r, err
		}
	case cronexpr.Once:
		if r.Date, err = parseDate(date); err != nil {
			return r, err
		}
	}
	return r, nil
}

// parseClock reads HH:MM.
func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("time of day must be HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

// parseWeekdays reads a comma list of day names (MON or Monday).
func parseWeekdays(s string) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if len(part) > 3 {
			part = part[:3]
		}
		d, ok := weekdayNames[part]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, cronexpr.ErrNoWeekdays
	}
	return out, nil
}

// parseDate reads YYYY-MM-DD, or MM-DD for "any year".
func parseDate(s string) (cronexpr.Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return cronexpr.Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
	}
	if t, err := time.Parse("01-02", s); err == nil {
		return cronexpr.Date{Month: t.Month(), Day: t.Day()}, nil
	}
	return cronexpr.Date{}, fmt.Errorf("date must be YYYY-MM-DD or MM-DD, got %q", s)
}

// telemetryFlags registers the history/stats filter flags and returns a
// reader to call after Parse.
func telemetryFlags(fs *flag.FlagSet) func() (models.TelemetryFilter, error) {
	device := fs.String("device", "", "device id")
	piston := fs.Int("piston", 0, "piston number 1-8")
	action := fs.String("action", "", "activate | deactivate or an event type")
	from := fs.String("from", "", "start, YYYY-MM-DD or RFC3339")
	to := fs.String("to", "", "end, YYYY-MM-DD (whole day) or RFC3339")
	limit := fs.Int("limit", 0, "max events")

	return func() (models.TelemetryFilter, error) {
		f := models.TelemetryFilter{DeviceID: *device, PistonNumber: *piston, Action: *action, Limit: *limit}
		if f.PistonNumber < 0 || f.PistonNumber > models.MaxPistons {
			return f, fmt.Errorf("piston must be between 1 and %d", models.MaxPistons)
		}
		if f.Limit < 0 {
			return f, fmt.Errorf("limit must not be negative")
		}
		var err error
		if *from != "" {
			if f.StartDate, _, err = parseFilterTime(*from); err != nil {
				return f, err
			}
		}
		if *to != "" {
			var dateOnly bool
			if f.EndDate, dateOnly, err = parseFilterTime(*to); err != nil {
				return f, err
			}
			if dateOnly {
				f.EndDate = f.EndDate.AddDate(0, 0, 1).Add(-time.Nanosecond)
			}
		}
		if !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.EndDate.Before(f.StartDate) {
			return f, fmt.Errorf("-to is before -from")
		}
		return f, nil
	}
}

// parseFilterTime accepts RFC3339 or a local calendar date.
func parseFilterTime(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("time %q: use YYYY-MM-DD or RFC3339, e.g. 2025-08-27T15:04:05Z", s)
}
