package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"piston_control/internal/models"
)

func TestSchedulerService_SyncTracksEnabledSchedules(t *testing.T) {
	schedules := newMemSchedules()
	ctx := context.Background()
	add := func(id, expr string, enabled bool) {
		_ = schedules.Create(ctx, &models.Schedule{ID: id, UserID: "u1", DeviceID: "d1", PistonNumber: 1, Action: "ACTIVATE", CronExpression: expr, Enabled: enabled})
	}
	add("a", "0 30 7 ? * *", true)
	add("b", "0 0 18 ? * MON-FRI", false)
	add("c", "not a cron", true)

	s := NewSchedulerService(schedules, &DeviceService{}, &memTelemetry{}, nil)
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	got := s.Scheduled()
	if len(got) != 1 {
		t.Fatalf("expected only schedule a, got %v", got)
	}
	if _, ok := got["a"]; !ok {
		t.Fatalf("schedule a missing: %v", got)
	}

	// disable a, enable b
	sa, _ := schedules.Get(ctx, "u1", "a")
	sa.Enabled = false
	_ = schedules.Update(ctx, sa)
	sb, _ := schedules.Get(ctx, "u1", "b")
	sb.Enabled = true
	_ = schedules.Update(ctx, sb)

	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	got = s.Scheduled()
	if _, ok := got["b"]; !ok || len(got) != 1 {
		t.Fatalf("expected only schedule b, got %v", got)
	}
}

func TestSchedulerService_SyncReplacesEditedExpression(t *testing.T) {
	schedules := newMemSchedules()
	ctx := context.Background()
	sc := &models.Schedule{ID: "a", UserID: "u1", DeviceID: "d1", PistonNumber: 1, Action: "ACTIVATE", CronExpression: "0 30 7 ? * *", Enabled: true}
	_ = schedules.Create(ctx, sc)

	s := NewSchedulerService(schedules, &DeviceService{}, &memTelemetry{}, nil)
	_ = s.Sync(ctx)
	before := s.entries["a"]

	sc.CronExpression = "0 45 7 ? * *"
	_ = schedules.Update(ctx, sc)
	_ = s.Sync(ctx)

	after := s.entries["a"]
	if after.id == before.id || after.fingerprint == before.fingerprint {
		t.Fatalf("edited schedule should be re-registered: before=%+v after=%+v", before, after)
	}
}

func TestSchedulerService_FireDrivesPistonAndRecords(t *testing.T) {
	devices, telemetry, notifier := &memDevices{}, &memTelemetry{}, &recordingNotifier{}
	d := seededDevice(t, devices, "u1", models.DeviceOnline)
	control := NewDeviceService(devices, telemetry, notifier)
	s := NewSchedulerService(newMemSchedules(), control, telemetry, nil)

	s.fire(models.Schedule{ID: "s1", UserID: "u1", DeviceID: d.ID, PistonNumber: 4, Action: models.ScheduleDeactivate})

	types := telemetry.types()
	if len(types) != 2 || types[0] != models.EventPistonDeactivated || types[1] != models.EventScheduleFired {
		t.Fatalf("events = %v", types)
	}
	var payload map[string]any
	_ = json.Unmarshal(telemetry.events[0].Payload, &payload)
	if payload["source"] != SourceSchedule || payload["schedule_id"] != "s1" {
		t.Fatalf("control payload = %v", payload)
	}
	if len(notifier.frames) != 1 {
		t.Fatalf("expected a pushed frame")
	}
}

func TestSchedulerService_FireRecordsFailure(t *testing.T) {
	devices, telemetry := &memDevices{}, &memTelemetry{}
	d := seededDevice(t, devices, "u1", models.DeviceOffline)
	s := NewSchedulerService(newMemSchedules(), NewDeviceService(devices, telemetry, &recordingNotifier{}), telemetry, nil)

	s.fire(models.Schedule{ID: "s1", UserID: "u1", DeviceID: d.ID, PistonNumber: 1, Action: models.ScheduleActivate})

	if len(telemetry.events) != 1 || telemetry.events[0].EventType != models.EventScheduleFired {
		t.Fatalf("events = %v", telemetry.types())
	}
	var payload map[string]any
	_ = json.Unmarshal(telemetry.events[0].Payload, &payload)
	if payload["error"] != ErrDeviceOffline.Error() {
		t.Fatalf("payload = %v", payload)
	}
}

func TestSchedulerService_RunStopsOnCancel(t *testing.T) {
	s := NewSchedulerService(newMemSchedules(), &DeviceService{}, &memTelemetry{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	s.Resync()
	s.Resync() // never blocks
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
