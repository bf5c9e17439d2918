package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"piston_control/internal/models"
	"piston_control/internal/repository"
	"piston_control/internal/service"
)

func TestSchedules_Create(t *testing.T) {
	s := newTestService()
	sch := &mockSchedules{schedule: &models.Schedule{ID: "s1", Name: "Morning"}}
	s.Schedules = sch
	r := newTestRouter(s)

	body := models.CreateScheduleRequest{Name: "Morning", DeviceID: "D1", PistonNumber: 2, Action: "ACTIVATE", CronExpression: "0 30 7 ? * *", Enabled: true}
	w := doJSON(t, r, http.MethodPost, "/api/schedules", body)
	assertStatus(t, w, http.StatusCreated)
	if got := decodeBody[models.ScheduleResponse](t, w); got.Schedule.ID != "s1" {
		t.Fatalf("unexpected body: %+v", got)
	}
	if sch.lastCreate != body {
		t.Fatalf("create request = %+v", sch.lastCreate)
	}

	body.PistonNumber = 0
	w = doJSON(t, r, http.MethodPost, "/api/schedules", body)
	assertStatus(t, w, http.StatusBadRequest)
	if sch.calls != 1 {
		t.Fatalf("invalid request reached the service")
	}
}

func TestSchedules_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad field", service.ErrInvalidCron), http.StatusBadRequest},
		{repository.ErrNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		s := newTestService()
		s.Schedules = &mockSchedules{err: tc.err}
		r := newTestRouter(s)
		w := doJSON(t, r, http.MethodPut, "/api/schedules/s1", `{"enabled":false}`)
		assertStatus(t, w, tc.want)
	}
}

func TestSchedules_ListPassesDeviceFilter(t *testing.T) {
	s := newTestService()
	sch := &mockSchedules{list: []models.Schedule{{ID: "s1"}, {ID: "s2"}}}
	s.Schedules = sch
	r := newTestRouter(s)

	w := doJSON(t, r, http.MethodGet, "/api/schedules?deviceId=D1", nil)
	assertStatus(t, w, http.StatusOK)
	if got := decodeBody[models.ScheduleListResponse](t, w); len(got.Schedules) != 2 || sch.lastDevice != "D1" {
		t.Fatalf("list = %+v, device = %q", got, sch.lastDevice)
	}
}

func TestSchedules_Delete(t *testing.T) {
	s := newTestService()
	s.Schedules = &mockSchedules{}
	w := doJSON(t, newTestRouter(s), http.MethodDelete, "/api/schedules/s1", nil)
	assertStatus(t, w, http.StatusOK)
	if got := decodeBody[models.MessageResponse](t, w); got.Message != msgScheduleDeleted {
		t.Fatalf("message = %q", got.Message)
	}
}
