package cronexpr

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate reports whether expr is a well-formed schedule expression.
func Validate(expr string) error {
	_, err := Schedule(expr)
	return err
}

// Schedule turns expr into a cron.Schedule. The optional year field pins
// the schedule to that calendar year.
func Schedule(expr string) (cron.Schedule, error) {
	six, year, err := toRobfig(expr)
	if err != nil {
		return nil, err
	}
	s, err := parser.Parse(six)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", expr, err)
	}
	if year == 0 {
		return s, nil
	}
	return yearSchedule{inner: s, year: year}, nil
}

// Next returns the first activation strictly after t, or the zero time if
// there is none.
func Next(expr string, t time.Time) (time.Time, error) {
	s, err := Schedule(expr)
	if err != nil {
		return time.Time{}, err
	}
	return s.Next(t), nil
}

// toRobfig strips the year and rewrites numeric day-of-week from
// 1=Sunday..7=Saturday to robfig's 0=Sunday..6=Saturday. Ranges that wrap
// past Saturday are expanded into lists.
func toRobfig(expr string) (string, int, error) {
	f := strings.Fields(expr)
	if len(f) != 6 && len(f) != 7 {
		return "", 0, ErrFieldCount
	}
	year := 0
	if len(f) == 7 {
		if !isWildcard(f[6]) {
			y, err := numberIn(f[6], 1970, 2099, "year")
			if err != nil {
				return "", 0, err
			}
			year = y
		}
		f = f[:6]
	}
	dow, err := shiftNumericDays(f[5])
	if err != nil {
		return "", 0, err
	}
	f[5] = dow
	return strings.Join(f, " "), year, nil
}

func shiftNumericDays(field string) (string, error) {
	parts := strings.Split(field, ",")
	for i, part := range parts {
		base, step, hasStep := strings.Cut(part, "/")
		bounds := strings.Split(base, "-")
		if len(bounds) == 2 && !hasStep {
			from, ferr := parseDay(bounds[0])
			to, terr := parseDay(bounds[1])
			if ferr == nil && terr == nil && to < from {
				days := dayRange(from, to)
				list := make([]string, len(days))
				for j, d := range days {
					list[j] = strconv.Itoa(int(d))
				}
				parts[i] = strings.Join(list, ",")
				continue
			}
		}
		for j, b := range bounds {
			n, err := strconv.Atoi(b)
			if err != nil {
				continue
			}
			if n < 1 || n > 7 {
				return "", fmt.Errorf("day of week %d out of range 1-7", n)
			}
			bounds[j] = strconv.Itoa(n - 1)
		}
		parts[i] = strings.Join(bounds, "-")
		if hasStep {
			parts[i] += "/" + step
		}
	}
	return strings.Join(parts, ","), nil
}

type yearSchedule struct {
	inner cron.Schedule
	year  int
}

func (s yearSchedule) Next(t time.Time) time.Time {
	for n := s.inner.Next(t); !n.IsZero(); n = s.inner.Next(n) {
		switch {
		case n.Year() == s.year:
			return n
		case n.Year() > s.year:
			return time.Time{}
		}
	}
	return time.Time{}
}
