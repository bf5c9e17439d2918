// Package cronexpr converts between structured schedule rules and the
// seven-field cron strings stored on schedules:
//
//	second minute hour dayOfMonth month dayOfWeek [year]
//
// Day-of-week accepts names (SUN..SAT, ranges and lists) or numbers with
// 1=Sunday..7=Saturday.
package cronexpr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Repeat is how often a rule fires.
type Repeat int

const (
	Once Repeat = iota
	Everyday
	Weekdays
	Weekends
	Custom
)

func (r Repeat) String() string {
	switch r {
	case Once:
		return "once"
	case Everyday:
		return "everyday"
	case Weekdays:
		return "weekdays"
	case Weekends:
		return "weekends"
	case Custom:
		return "custom"
	default:
		return fmt.Sprintf("repeat(%d)", int(r))
	}
}

// ParseRepeat accepts the names printed by Repeat.String, case-insensitively.
func ParseRepeat(s string) (Repeat, error) {
	for r := Once; r <= Custom; r++ {
		if strings.EqualFold(strings.TrimSpace(s), r.String()) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown repeat %q", s)
}

// Date is a calendar day for one-shot rules. Year 0 means "any year".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (d Date) String() string {
	if d.Year == 0 {
		return fmt.Sprintf("%02d-%02d", int(d.Month), d.Day)
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// valid reports whether d exists on the calendar. Without a year, Feb 29
// is allowed.
func (d Date) valid() bool {
	if d.Month < time.January || d.Month > time.December || d.Day < 1 || d.Day > 31 {
		return false
	}
	year := d.Year
	if year == 0 {
		year = 2000
	}
	return time.Date(year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Day() == d.Day
}

// Rule is the structured form of a schedule's timing.
type Rule struct {
	Action   string // ACTIVATE | DEACTIVATE; not part of the expression
	Hour     int
	Minute   int
	Repeat   Repeat
	Date     Date           // Once only
	Weekdays []time.Weekday // Custom only
}

var (
	ErrFieldCount = errors.New("cron expression must have 6 or 7 fields")
	ErrNoWeekdays = errors.New("custom repeat needs at least one weekday")
)

// mondayFirst orders weekdays the way the expressions list them.
var mondayFirst = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}

var dayNames = map[time.Weekday]string{
	time.Sunday: "SUN", time.Monday: "MON", time.Tuesday: "TUE", time.Wednesday: "WED",
	time.Thursday: "THU", time.Friday: "FRI", time.Saturday: "SAT",
}

// Build renders r as a cron expression.
func Build(r Rule) (string, error) {
	if r.Hour < 0 || r.Hour > 23 {
		return "", fmt.Errorf("hour %d out of range 0-23", r.Hour)
	}
	if r.Minute < 0 || r.Minute > 59 {
		return "", fmt.Errorf("minute %d out of range 0-59", r.Minute)
	}
	prefix := fmt.Sprintf("0 %d %d", r.Minute, r.Hour)

	switch r.Repeat {
	case Everyday:
		return prefix + " ? * *", nil
	case Weekdays:
		return prefix + " ? * MON-FRI", nil
	case Weekends:
		return prefix + " ? * SAT,SUN", nil
	case Custom:
		days := normalizeDays(r.Weekdays)
		if len(days) == 0 {
			return "", ErrNoWeekdays
		}
		names := make([]string, len(days))
		for i, d := range days {
			names[i] = dayNames[d]
		}
		return prefix + " ? * " + strings.Join(names, ","), nil
	case Once:
		d := r.Date
		if !d.valid() {
			return "", fmt.Errorf("invalid date %s", d)
		}
		expr := fmt.Sprintf("%s %d %d ?", prefix, d.Day, int(d.Month))
		if d.Year != 0 {
			expr += " " + strconv.Itoa(d.Year)
		}
		return expr, nil
	default:
		return "", fmt.Errorf("unknown repeat %v", r.Repeat)
	}
}

// Parse recovers the rule from an expression. A day set that matches a
// named repeat (all days, MON-FRI, SAT+SUN) is reported as that repeat.
func Parse(expr string) (Rule, error) {
	f := strings.Fields(expr)
	if len(f) != 6 && len(f) != 7 {
		return Rule{}, ErrFieldCount
	}
	var r Rule
	var err error
	if r.Minute, err = numberIn(f[1], 0, 59, "minute"); err != nil {
		return Rule{}, err
	}
	if r.Hour, err = numberIn(f[2], 0, 23, "hour"); err != nil {
		return Rule{}, err
	}

	dom, month, dow := f[3], f[4], f[5]
	if isNumber(dom) && isNumber(month) {
		r.Repeat = Once
		if r.Date.Day, err = numberIn(dom, 1, 31, "day of month"); err != nil {
			return Rule{}, err
		}
		m, err := numberIn(month, 1, 12, "month")
		if err != nil {
			return Rule{}, err
		}
		r.Date.Month = time.Month(m)
		if len(f) == 7 {
			if r.Date.Year, err = numberIn(f[6], 1970, 2099, "year"); err != nil {
				return Rule{}, err
			}
		}
		if !r.Date.valid() {
			return Rule{}, fmt.Errorf("invalid date %s", r.Date)
		}
		return r, nil
	}

	if !isWildcard(dom) || !isWildcard(month) {
		return Rule{}, fmt.Errorf("unsupported day-of-month/month %q %q", dom, month)
	}
	if len(f) == 7 && !isWildcard(f[6]) {
		return Rule{}, fmt.Errorf("year %q only allowed on one-shot rules", f[6])
	}
	days, err := parseDays(dow)
	if err != nil {
		return Rule{}, err
	}
	r.Repeat = classify(days)
	if r.Repeat == Custom {
		r.Weekdays = days
	}
	return r, nil
}

// Describe renders r as short human text.
func Describe(r Rule) string {
	var b strings.Builder
	switch strings.ToUpper(r.Action) {
	case "DEACTIVATE":
		b.WriteString("Close")
	case "ACTIVATE":
		b.WriteString("Open")
	default:
		b.WriteString("Run")
	}
	fmt.Fprintf(&b, " at %02d:%02d", r.Hour, r.Minute)
	switch r.Repeat {
	case Everyday:
		b.WriteString(" every day")
	case Weekdays:
		b.WriteString(" on weekdays")
	case Weekends:
		b.WriteString(" on weekends")
	case Custom:
		days := normalizeDays(r.Weekdays)
		names := make([]string, len(days))
		for i, d := range days {
			names[i] = d.String()[:3]
		}
		b.WriteString(" on " + strings.Join(names, ", "))
	case Once:
		b.WriteString(" on " + r.Date.String())
	}
	return b.String()
}

func classify(days []time.Weekday) Repeat {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	switch {
	case len(set) == 7:
		return Everyday
	case len(set) == 5 && !set[time.Saturday] && !set[time.Sunday]:
		return Weekdays
	case len(set) == 2 && set[time.Saturday] && set[time.Sunday]:
		return Weekends
	default:
		return Custom
	}
}

// parseDays expands a day-of-week field into a Monday-first set.
func parseDays(field string) ([]time.Weekday, error) {
	if isWildcard(field) {
		return append([]time.Weekday(nil), mondayFirst...), nil
	}
	var out []time.Weekday
	for _, part := range strings.Split(field, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := parseDay(lo)
		if err != nil {
			return nil, err
		}
		if !isRange {
			out = append(out, from)
			continue
		}
		to, err := parseDay(hi)
		if err != nil {
			return nil, err
		}
		out = append(out, dayRange(from, to)...)
	}
	return normalizeDays(out), nil
}

// dayRange lists from..to inclusive, wrapping past Saturday.
func dayRange(from, to time.Weekday) []time.Weekday {
	var out []time.Weekday
	for d := from; ; d = (d + 1) % 7 {
		out = append(out, d)
		if d == to {
			return out
		}
	}
}

func parseDay(s string) (time.Weekday, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 7 {
			return 0, fmt.Errorf("day of week %d out of range 1-7", n)
		}
		return time.Weekday(n - 1), nil
	}
	for d, name := range dayNames {
		if s == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown day of week %q", s)
}

// normalizeDays dedupes and sorts Monday first.
func normalizeDays(days []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]bool, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return mondayIndex(out[i]) < mondayIndex(out[j]) })
	return out
}

func mondayIndex(d time.Weekday) int { return (int(d) + 6) % 7 }

func numberIn(s string, lo, hi int, what string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", what, s)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%s %d out of range %d-%d", what, n, lo, hi)
	}
	return n, nil
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func isWildcard(s string) bool { return s == "*" || s == "?" }
