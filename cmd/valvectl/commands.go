package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	pc "piston_control"
	"piston_control/internal/cronexpr"
	"piston_control/internal/models"
	"piston_control/internal/viewmodel"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"health", "check that the backend answers", cmdHealth},
	{"register", "create an account and sign in", cmdRegister},
	{"login", "sign in", cmdLogin},
	{"logout", "forget the local session", cmdLogout},
	{"devices", "list devices", cmdDevices},
	{"device", "show one device and its enabled valves", cmdDevice},
	{"activate", "open a valve: [-mqtt] <device> <n>", cmdControl(true)},
	{"deactivate", "close a valve: [-mqtt] <device> <n>", cmdControl(false)},
	{"watch", "follow live updates until interrupted [-mqtt]", cmdWatch},
	{"schedules", "list schedules [-device id]", cmdSchedules},
	{"schedule-add", "create a schedule from a time and repeat rule", cmdScheduleAdd},
	{"schedule-edit", "change fields of a schedule <id>", cmdScheduleEdit},
	{"schedule-toggle", "enable or disable a schedule <id>", cmdScheduleToggle},
	{"schedule-rm", "delete a schedule <id>", cmdScheduleDelete},
	{"cron", "explain a cron expression and its next runs", cmdCron},
	{"history", "list telemetry events", cmdHistory},
	{"stats", "summarise valve usage", cmdStats},
	{"profile", "show the signed-in user", cmdProfile},
	{"profile-set", "update name, phone or date of birth", cmdProfileSet},
	{"prefs", "replace preferences with a JSON object", cmdPrefs},
	{"avatar", "upload <file>, or -delete", cmdAvatar},
	{"limit", "show or set how many valves are enabled [0-8]", cmdLimit},
}

var errNotSignedIn = errors.New("not signed in; run 'valvectl login' first")

func (a *app) dispatch(ctx context.Context, name string, args []string) error {
	for _, c := range commands {
		if c.name == name {
			return c.run(ctx, a, args)
		}
	}
	return fmt.Errorf("unknown command %q (see 'valvectl help')", name)
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *app) requireSession() error {
	if !a.session.IsLoggedIn() {
		return errNotSignedIn
	}
	return nil
}

func cmdHealth(ctx context.Context, a *app, _ []string) error {
	h, err := unwrap(a.repos.Health.Check(ctx))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s at %s\n", h.Status, formatTime(h.Timestamp))
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags("register")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password, at least 6 characters")
	name := fs.String("name", "", "display name")
	phone := fs.String("phone", "", "phone number")
	dob := fs.String("dob", "", "date of birth, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	u, err := unwrap(a.auth.SignUp(ctx, models.RegisterRequest{
		Email: *email, Password: *password, Name: *name, Phone: *phone, DateOfBirth: *dob,
	}))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "registered and signed in as %s (%s)\n", u.Email, u.ID)
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	u, err := unwrap(a.auth.SignIn(ctx, models.LoginRequest{Email: *email, Password: *password}))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "signed in as %s\n", u.Email)
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.auth.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "signed out")
	return nil
}

func cmdDevices(ctx context.Context, a *app, _ []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	devices, err := unwrap(viewmodel.NewDashboardViewModel(a.repos.Devices, nil).Refresh(ctx))
	if err != nil {
		return err
	}
	printDevices(a.out, devices)
	return nil
}

func cmdDevice(ctx context.Context, a *app, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if len(args) != 1 {
		return errors.New("usage: device <id>")
	}
	d, err := unwrap(a.control.Load(ctx, args[0]))
	if err != nil {
		return err
	}
	printDevice(a.out, d, a.control.VisiblePistons(d))
	return nil
}

func cmdControl(activate bool) func(context.Context, *app, []string) error {
	name, action := "deactivate", models.ActionDeactivate
	if activate {
		name, action = "activate", models.ActionActivate
	}
	return func(ctx context.Context, a *app, args []string) error {
		fs := newFlags(name)
		viaMQTT := fs.Bool("mqtt", false, "publish the command to the broker instead of the REST API")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 2 {
			return fmt.Errorf("usage: %s [-mqtt] <device> <piston>", name)
		}
		if err := a.requireSession(); err != nil {
			return err
		}
		device := fs.Arg(0)
		n, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			return fmt.Errorf("piston number %q is not a number", fs.Arg(1))
		}

		if *viaMQTT {
			if !a.session.IsValveEnabled(n) {
				return fmt.Errorf("valve %d is disabled in settings", n)
			}
			c := a.mqttClient()
			if err := c.Connect(); err != nil {
				return err
			}
			defer c.Disconnect()
			if err := c.PublishCommand(device, n, action); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "sent %s to piston %d of %s\n", action, n, device)
			return nil
		}

		p, err := unwrap(a.control.Toggle(ctx, device, n, activate))
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "piston %d is now %s\n", p.PistonNumber, p.State)
		return nil
	}
}

// cmdWatch prints the device table on every push until ctx is cancelled.
func cmdWatch(ctx context.Context, a *app, args []string) error {
	fs := newFlags("watch")
	viaMQTT := fs.Bool("mqtt", false, "listen on the MQTT broker instead of the WebSocket")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	var push viewmodel.PushSource
	var broker *mqttPush
	if *viaMQTT {
		broker = &mqttPush{Client: a.mqttClient()}
		push = broker
	} else {
		push = a.realtimeChannel()
	}

	dash := viewmodel.NewDashboardViewModel(a.repos.Devices, push)
	stopDevices := dash.Devices.Observe(func(r pc.Result[[]models.Device]) {
		if devices, ok := r.Value(); ok {
			printDevices(a.out, devices)
		} else if r.IsError() {
			fmt.Fprintln(a.out, "refresh failed:", r.Message())
		}
	})
	defer stopDevices()
	stopConn := dash.Connected.Observe(func(r pc.Result[bool]) {
		if up, ok := r.Value(); ok {
			fmt.Fprintf(a.out, "-- live updates %s\n", map[bool]string{true: "connected", false: "lost"}[up])
		}
	})
	defer stopConn()
	removeUpdates := push.OnPistonUpdate(func(u models.PistonUpdate) {
		fmt.Fprintf(a.out, "-- %s piston %d %s\n", u.DeviceID, u.PistonNumber, u.State)
	})
	defer removeUpdates()

	dash.Refresh(ctx)
	dash.Start(ctx)
	defer dash.Stop()
	if broker != nil {
		if err := broker.Err(); err != nil {
			return err
		}
	}

	<-ctx.Done()
	return nil
}

func cmdSchedules(ctx context.Context, a *app, args []string) error {
	fs := newFlags("schedules")
	device := fs.String("device", "", "only schedules of this device")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	list, err := unwrap(a.schedules.Load(ctx, *device))
	if err != nil {
		return err
	}
	printSchedules(a.out, list, now())
	return nil
}

func cmdScheduleAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlags("schedule-add")
	name := fs.String("name", "", "schedule name")
	device := fs.String("device", "", "device id")
	piston := fs.Int("piston", 0, "piston number 1-8")
	action := fs.String("action", models.ActionActivate, "activate | deactivate")
	at := fs.String("at", "", "time of day, HH:MM")
	repeat := fs.String("repeat", cronexpr.Everyday.String(), "once | everyday | weekdays | weekends | custom")
	days := fs.String("days", "", "custom repeat days, e.g. MON,WED,FRI")
	date := fs.String("date", "", "one-shot date, YYYY-MM-DD or MM-DD")
	disabled := fs.Bool("disabled", false, "create the schedule disabled")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	rule, err := parseRule(*action, *at, *repeat, *days, *date)
	if err != nil {
		return err
	}
	req, err := viewmodel.NewScheduleRequest(*name, *device, *piston, rule, !*disabled)
	if err != nil {
		return err
	}
	s, err := unwrap(a.schedules.CreateSchedule(ctx, req))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created schedule %s: %s\n", s.ID, describeSchedule(s))
	return nil
}

func cmdScheduleEdit(ctx context.Context, a *app, args []string) error {
	fs := newFlags("schedule-edit")
	name := fs.String("name", "", "schedule name")
	piston := fs.Int("piston", 0, "piston number 1-8")
	action := fs.String("action", "", "activate | deactivate")
	expr := fs.String("cron", "", "cron expression")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: schedule-edit [-name s] [-piston n] [-action a] [-cron expr] <id>")
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	var req models.UpdateScheduleRequest
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			req.Name = name
		case "piston":
			req.PistonNumber = piston
		case "action":
			up := strings.ToUpper(*action)
			req.Action = &up
		case "cron":
			req.CronExpression = expr
		}
	})
	s, err := unwrap(a.schedules.UpdateSchedule(ctx, fs.Arg(0), req))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "updated schedule %s: %s\n", s.ID, describeSchedule(s))
	return nil
}

func cmdScheduleToggle(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: schedule-toggle <id>")
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	current, err := unwrap(a.repos.Schedules.Get(ctx, args[0]))
	if err != nil {
		return err
	}
	s, err := unwrap(a.schedules.Toggle(ctx, current))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "schedule %s %s\n", s.ID, map[bool]string{true: "enabled", false: "disabled"}[s.Enabled])
	return nil
}

func cmdScheduleDelete(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: schedule-rm <id>")
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	msg, err := unwrap(a.schedules.DeleteSchedule(ctx, args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg.Message)
	return nil
}

func cmdCron(_ context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New(`usage: cron "<expression>"`)
	}
	rule, err := cronexpr.Parse(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, cronexpr.Describe(rule))
	t := now()
	for i := 0; i < 3; i++ {
		next, err := cronexpr.Next(args[0], t)
		if err != nil {
			return err
		}
		if next.IsZero() {
			break
		}
		fmt.Fprintln(a.out, "  next:", formatTime(next))
		t = next
	}
	return nil
}

func cmdHistory(ctx context.Context, a *app, args []string) error {
	fs := newFlags("history")
	read := telemetryFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := read()
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	resp, err := unwrap(a.history.Load(ctx, f))
	if err != nil {
		return err
	}
	printEvents(a.out, resp)
	return nil
}

func cmdStats(ctx context.Context, a *app, args []string) error {
	fs := newFlags("stats")
	read := telemetryFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := read()
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	st, err := unwrap(a.stats.Load(ctx, f))
	if err != nil {
		return err
	}
	printStats(a.out, st)
	return nil
}

func cmdProfile(ctx context.Context, a *app, _ []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	u, err := unwrap(a.profile.Load(ctx))
	if err != nil {
		return err
	}
	printUser(a.out, u)
	return nil
}

func cmdProfileSet(ctx context.Context, a *app, args []string) error {
	fs := newFlags("profile-set")
	name := fs.String("name", "", "display name")
	phone := fs.String("phone", "", "phone number")
	dob := fs.String("dob", "", "date of birth, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	u, err := unwrap(a.profile.UpdateProfile(ctx, models.UpdateProfileRequest{Name: *name, Phone: *phone, DateOfBirth: *dob}))
	if err != nil {
		return err
	}
	printUser(a.out, u)
	return nil
}

func cmdPrefs(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New(`usage: prefs '{"theme":"dark"}'`)
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	u, err := unwrap(a.profile.UpdatePreferences(ctx, json.RawMessage(args[0])))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "preferences: %s\n", u.Preferences)
	return nil
}

func cmdAvatar(ctx context.Context, a *app, args []string) error {
	fs := newFlags("avatar")
	remove := fs.Bool("delete", false, "remove the current avatar")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	if *remove {
		msg, err := unwrap(a.profile.DeleteAvatar(ctx))
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, msg.Message)
		return nil
	}
	if fs.NArg() != 1 {
		return errors.New("usage: avatar <file> | avatar -delete")
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("open avatar: %w", err)
	}
	defer f.Close()
	url, err := unwrap(a.profile.UploadAvatar(ctx, f, filepath.Base(fs.Arg(0))))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "avatar:", url)
	return nil
}

func cmdLimit(ctx context.Context, a *app, args []string) error {
	var r pc.Result[int]
	switch len(args) {
	case 0:
		r = a.settings.Load()
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("valve limit %q is not a number", args[0])
		}
		r = a.settings.SetValveLimit(ctx, n)
	default:
		return errors.New("usage: limit [n]")
	}
	n, err := unwrap(r)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "valves enabled: %d of %d\n", n, models.MaxPistons)
	return nil
}
