package service

import (
	"context"
	"errors"
	"testing"

	"piston_control/internal/models"
	"piston_control/internal/repository"
)

func TestScheduleService_CRUD(t *testing.T) {
	devices, schedules := &memDevices{}, newMemSchedules()
	d := seededDevice(t, devices, "u1", models.DeviceOnline)
	nudges := 0
	svc := NewScheduleService(schedules, devices, func() { nudges++ })
	ctx := context.Background()

	sc, err := svc.Create(ctx, "u1", models.CreateScheduleRequest{
		Name: " Morning ", DeviceID: "D1", PistonNumber: 2, Action: "activate", CronExpression: "0 30 7 ? * MON-FRI", Enabled: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sc.DeviceID != d.ID || sc.Action != models.ScheduleActivate || sc.Name != "Morning" {
		t.Fatalf("unexpected schedule: %+v", sc)
	}

	for _, ref := range []string{"", "D1", d.ID} {
		list, err := svc.List(ctx, "u1", ref)
		if err != nil || len(list) != 1 {
			t.Fatalf("List(%q) = %v, %v", ref, list, err)
		}
	}
	if list, err := svc.List(ctx, "u1", "unknown"); err != nil || len(list) != 0 {
		t.Fatalf("List(unknown) = %v, %v", list, err)
	}

	off := false
	expr := "0 0 18 ? * SAT,SUN"
	upd, err := svc.Update(ctx, "u1", sc.ID, models.UpdateScheduleRequest{Enabled: &off, CronExpression: &expr})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.Enabled || upd.CronExpression != expr || upd.PistonNumber != 2 {
		t.Fatalf("unexpected update: %+v", upd)
	}

	if err := svc.Delete(ctx, "u1", sc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "u1", sc.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Get after delete: %v", err)
	}
	if nudges != 3 {
		t.Fatalf("expected 3 resync nudges, got %d", nudges)
	}
}

func TestScheduleService_RejectsBadInput(t *testing.T) {
	devices, schedules := &memDevices{}, newMemSchedules()
	seededDevice(t, devices, "u1", models.DeviceOnline)
	svc := NewScheduleService(schedules, devices, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", models.CreateScheduleRequest{Name: "x", DeviceID: "D1", PistonNumber: 1, Action: "ACTIVATE", CronExpression: "every morning"})
	if !errors.Is(err, ErrInvalidCron) {
		t.Fatalf("err = %v; want ErrInvalidCron", err)
	}
	_, err = svc.Create(ctx, "u2", models.CreateScheduleRequest{Name: "x", DeviceID: "D1", PistonNumber: 1, Action: "ACTIVATE", CronExpression: "0 0 7 ? * *"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v; want ErrNotFound for a device of another user", err)
	}
	if _, err := svc.Update(ctx, "u1", "missing", models.UpdateScheduleRequest{}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Update(missing) = %v", err)
	}
	if len(schedules.rows) != 0 {
		t.Fatalf("nothing should have been stored")
	}
}
