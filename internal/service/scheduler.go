package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"piston_control/internal/cronexpr"
	"piston_control/internal/logger"
	"piston_control/internal/models"
	"piston_control/internal/repository"

	"github.com/robfig/cron/v3"
)

const (
	defaultSyncInterval = 30 * time.Second
	fireTimeout         = 10 * time.Second
)

// pistonController is the slice of DeviceService the runner needs.
type pistonController interface {
	Control(ctx context.Context, p ControlParams) (*models.Piston, error)
}

type scheduledEntry struct {
	id          cron.EntryID
	fingerprint string
}

// SchedulerService mirrors enabled schedules into a cron runner and fires
// valve commands on their behalf.
type SchedulerService struct {
	schedules repository.Schedules
	control   pistonController
	telemetry repository.Telemetry
	log       *logger.Logger
	cron      *cron.Cron

	mu      sync.Mutex
	entries map[string]scheduledEntry // by schedule id
	resync  chan struct{}
}

func NewSchedulerService(schedules repository.Schedules, control pistonController, telemetry repository.Telemetry, log *logger.Logger) *SchedulerService {
	log = logger.OrNop(log)
	return &SchedulerService{
		schedules: schedules,
		control:   control,
		telemetry: telemetry,
		log:       log,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger{log})),
		),
		entries: map[string]scheduledEntry{},
		resync:  make(chan struct{}, 1),
	}
}

var _ Scheduler = (*SchedulerService)(nil)

// Run starts the cron runner and re-reads schedules every syncInterval or
// whenever Resync is called, until ctx is canceled.
func (s *SchedulerService) Run(ctx context.Context, syncInterval time.Duration) {
	if syncInterval <= 0 {
		syncInterval = defaultSyncInterval
	}
	s.cron.Start()
	defer func() { <-s.cron.Stop().Done() }()

	s.syncLogged(ctx)
	t := time.NewTicker(syncInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.syncLogged(ctx)
		case <-s.resync:
			s.syncLogged(ctx)
		}
	}
}

// Resync asks the runner to re-read schedules soon. Never blocks.
func (s *SchedulerService) Resync() {
	select {
	case s.resync <- struct{}{}:
	default:
	}
}

func (s *SchedulerService) syncLogged(ctx context.Context) {
	if err := s.Sync(ctx); err != nil {
		s.log.Errorw("scheduler_sync_failed", "err", err)
	}
}

// Sync reconciles cron entries with the enabled schedules in storage.
func (s *SchedulerService) Sync(ctx context.Context) error {
	enabled, err := s.schedules.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("list enabled schedules: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]models.Schedule, len(enabled))
	for _, sc := range enabled {
		want[sc.ID] = sc
	}
	for id, e := range s.entries {
		sc, ok := want[id]
		if !ok || fingerprint(sc) != e.fingerprint {
			s.cron.Remove(e.id)
			delete(s.entries, id)
		}
	}
	for id, sc := range want {
		if _, ok := s.entries[id]; ok {
			continue
		}
		sched, err := cronexpr.Schedule(sc.CronExpression)
		if err != nil {
			s.log.Warnw("scheduler_bad_expression", "schedule_id", id, "expr", sc.CronExpression, "err", err)
			continue
		}
		sc := sc
		entryID := s.cron.Schedule(sched, cron.FuncJob(func() { s.fire(sc) }))
		s.entries[id] = scheduledEntry{id: entryID, fingerprint: fingerprint(sc)}
	}
	return nil
}

// Scheduled returns the next activation of every registered schedule.
func (s *SchedulerService) Scheduled() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.entries))
	for id, e := range s.entries {
		out[id] = s.cron.Entry(e.id).Next
	}
	return out
}

// fire runs one schedule and records the outcome.
func (s *SchedulerService) fire(sc models.Schedule) {
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	payload := map[string]any{
		"schedule_id":   sc.ID,
		"piston_number": sc.PistonNumber,
		"action":        sc.PistonAction(),
	}
	_, err := s.control.Control(ctx, ControlParams{
		UserID:       sc.UserID,
		DeviceRef:    sc.DeviceID,
		PistonNumber: sc.PistonNumber,
		Action:       sc.PistonAction(),
		Source:       SourceSchedule,
		ScheduleID:   sc.ID,
	})
	if err != nil {
		payload["error"] = err.Error()
		s.log.Warnw("schedule_fire_failed", "schedule_id", sc.ID, "err", err)
	} else {
		s.log.Infow("schedule_fired", "schedule_id", sc.ID, "piston", sc.PistonNumber, "action", sc.Action)
	}

	raw, _ := json.Marshal(payload)
	if err := s.telemetry.Append(ctx, &models.TelemetryEvent{
		DeviceID:  sc.DeviceID,
		EventType: models.EventScheduleFired,
		Payload:   raw,
	}); err != nil {
		s.log.Errorw("schedule_fired_event_failed", "schedule_id", sc.ID, "err", err)
	}
}

// fingerprint changes whenever a schedule edit affects what or when it fires.
func fingerprint(sc models.Schedule) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s", sc.CronExpression, sc.UserID, sc.DeviceID, sc.PistonNumber, sc.Action)
}

// cronLogger adapts the zap logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron_"+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron_"+msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
