package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"

	pc "piston_control"
	"piston_control/internal/client"
	"piston_control/internal/config"
	"piston_control/internal/gateway"
	"piston_control/internal/logger"
	"piston_control/internal/mqtt"
	"piston_control/internal/realtime"
	"piston_control/internal/repository"
	"piston_control/internal/repository/db"
	"piston_control/internal/session"
	"piston_control/internal/viewmodel"
)

// app is one CLI invocation: the local store, the session and a view
// model per screen.
type app struct {
	cfg     config.Client
	log     *logger.Logger
	out     io.Writer
	conn    *sql.DB
	session *session.Manager
	repos   *client.Repositories

	auth      *viewmodel.AuthViewModel
	control   *viewmodel.ControlViewModel
	schedules *viewmodel.SchedulesViewModel
	history   *viewmodel.HistoryViewModel
	stats     *viewmodel.StatsViewModel
	profile   *viewmodel.ProfileViewModel
	settings  *viewmodel.SettingsViewModel
}

func newApp(ctx context.Context, cfg config.Client, log *logger.Logger, out io.Writer) (*app, error) {
	log = logger.OrNop(log)
	conn, err := db.InitDB(cfg.Store.Path, db.ClientSchema)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	sealer, err := repository.NewSealer(cfg.Store.Secret)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	sess, err := session.Open(ctx, repository.NewPreferenceSQLite(conn, sealer), log)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open session: %w", err)
	}

	gw := gateway.New(gateway.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}, sess, log)
	repos := client.New(gw, sess, log)
	return &app{
		cfg:       cfg,
		log:       log,
		out:       &syncWriter{w: out},
		conn:      conn,
		session:   sess,
		repos:     repos,
		auth:      viewmodel.NewAuthViewModel(repos.Auth, sess),
		control:   viewmodel.NewControlViewModel(repos.Devices, repos.Pistons, sess),
		schedules: viewmodel.NewSchedulesViewModel(repos.Schedules),
		history:   viewmodel.NewHistoryViewModel(repos.Telemetry),
		stats:     viewmodel.NewStatsViewModel(repos.Telemetry),
		profile:   viewmodel.NewProfileViewModel(repos.Users, repos.Avatars),
		settings:  viewmodel.NewSettingsViewModel(sess),
	}, nil
}

func (a *app) Close() {
	if err := a.conn.Close(); err != nil {
		a.log.Errorw("store_close_failed", "err", err)
	}
}

func (a *app) realtimeChannel() *realtime.Channel {
	return realtime.New(realtime.Options{
		URL:              a.cfg.RealtimeURL(),
		ReconnectDelay:   a.cfg.Realtime.ReconnectDelay,
		HandshakeTimeout: a.cfg.Realtime.HandshakeTimeout,
	}, a.session, a.log)
}

func (a *app) mqttClient() *mqtt.Client {
	return mqtt.New(mqtt.Options{
		Broker:         a.cfg.MQTT.Broker,
		ClientID:       a.cfg.MQTT.ClientID,
		Username:       a.cfg.MQTT.Username,
		ConnectTimeout: a.cfg.MQTT.ConnectTimeout,
	}, a.session, a.log)
}

// mqttPush adapts the broker client to the dashboard's push source. The
// connect error is kept for the caller instead of being dropped.
type mqttPush struct {
	*mqtt.Client

	mu  sync.Mutex
	err error
}

func (p *mqttPush) Connect() {
	err := p.Client.Connect()
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *mqttPush) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// unwrap turns a failed Result into an error carrying its message.
func unwrap[T any](r pc.Result[T]) (T, error) {
	if v, ok := r.Value(); ok {
		return v, nil
	}
	var zero T
	if r.IsError() {
		return zero, resultError{message: r.Message(), code: r.Code()}
	}
	return zero, fmt.Errorf("no result (%s)", r.Status())
}

type resultError struct {
	message string
	code    int
}

func (e resultError) Error() string {
	if e.code > 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.message, e.code)
	}
	return e.message
}

// syncWriter serialises output from push callbacks and the main goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
