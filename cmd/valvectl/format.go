package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"piston_control/internal/cronexpr"
	"piston_control/internal/models"
	"piston_control/internal/viewmodel"
)

// now is swapped in tests.
var now = time.Now

const timeLayout = "2006-01-02 15:04"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printDevices(w io.Writer, devices []models.Device) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "no devices")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "DEVICE\tNAME\tSTATUS\tOPEN\tLAST SEEN")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\n", d.DeviceID, d.Name, d.Status, d.ActiveCount(), len(d.Pistons), formatTimePtr(d.LastSeen))
	}
	_ = tw.Flush()
}

func printDevice(w io.Writer, d models.Device, visible []models.Piston) {
	fmt.Fprintf(w, "%s (%s) is %s, last seen %s\n", d.Name, d.DeviceID, d.Status, formatTimePtr(d.LastSeen))
	if len(visible) == 0 {
		fmt.Fprintln(w, "no valves enabled; see 'valvectl limit'")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "PISTON\tSTATE\tLAST TRIGGERED")
	for _, p := range visible {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", p.PistonNumber, p.State, formatTimePtr(p.LastTriggered))
	}
	_ = tw.Flush()
}

// describeSchedule renders the rule in words, or the raw expression when
// it is not one the builder produces.
func describeSchedule(s models.Schedule) string {
	rule, err := cronexpr.Parse(s.CronExpression)
	if err != nil {
		return s.CronExpression
	}
	rule.Action = s.Action
	return fmt.Sprintf("%s, piston %d", cronexpr.Describe(rule), s.PistonNumber)
}

func printSchedules(w io.Writer, list []models.Schedule, at time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no schedules")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tWHEN\tENABLED\tNEXT")
	for _, s := range list {
		next := "-"
		if s.Enabled {
			if t, err := cronexpr.Next(s.CronExpression, at); err == nil {
				next = formatTime(t)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", s.ID, s.Name, describeSchedule(s), s.Enabled, next)
	}
	_ = tw.Flush()
}

func printEvents(w io.Writer, resp models.TelemetryListResponse) {
	if len(resp.Events) == 0 {
		fmt.Fprintln(w, "no events")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "TIME\tEVENT\tPISTON\tDEVICE")
	for _, e := range resp.Events {
		piston := "-"
		if n, ok := e.PistonNumber(); ok {
			piston = fmt.Sprint(n)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", formatTime(e.CreatedAt), e.EventType, piston, e.DeviceID)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d events\n", resp.Count)
}

func printStats(w io.Writer, st viewmodel.Stats) {
	fmt.Fprintf(w, "%d events\n", st.Events)

	numbers := map[int]bool{}
	for n := range st.Activations {
		numbers[n] = true
	}
	for n := range st.Deactivations {
		numbers[n] = true
	}
	sorted := make([]int, 0, len(numbers))
	for n := range numbers {
		sorted = append(sorted, n)
	}
	sort.Ints(sorted)

	if len(sorted) > 0 {
		tw := newTable(w)
		fmt.Fprintln(tw, "PISTON\tOPENED\tCLOSED\tOPEN FOR")
		for _, n := range sorted {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", n, st.Activations[n], st.Deactivations[n], st.ActiveTime[n].Round(time.Second))
		}
		_ = tw.Flush()
	}
	for _, d := range st.PerDay {
		fmt.Fprintf(w, "%s  %d activations\n", d.Day, d.Count)
	}
}

func printUser(w io.Writer, u models.User) {
	tw := newTable(w)
	fmt.Fprintf(tw, "id\t%s\n", u.ID)
	fmt.Fprintf(tw, "email\t%s\n", u.Email)
	fmt.Fprintf(tw, "name\t%s\n", u.Name)
	if u.Phone != "" {
		fmt.Fprintf(tw, "phone\t%s\n", u.Phone)
	}
	if u.DateOfBirth != "" {
		fmt.Fprintf(tw, "date of birth\t%s\n", u.DateOfBirth)
	}
	if u.AvatarURL != "" {
		fmt.Fprintf(tw, "avatar\t%s\n", u.AvatarURL)
	}
	if len(u.Preferences) > 0 {
		fmt.Fprintf(tw, "preferences\t%s\n", u.Preferences)
	}
	_ = tw.Flush()
}
