package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"piston_control/internal/models"
	"piston_control/internal/service"

	"github.com/gin-gonic/gin"
)

func TestParseTelemetryFilter(t *testing.T) {
	cases := []struct {
		name    string
		query   string
		want    models.TelemetryFilter
		wantMsg string
	}{
		{"empty", "", models.TelemetryFilter{}, ""},
		{
			"all fields",
			"?device_id=D1&piston_number=3&action=activate&start_date=2025-08-01T00:00:00Z&end_date=2025-08-02&limit=50",
			models.TelemetryFilter{
				DeviceID: "D1", PistonNumber: 3, Action: "activate", Limit: 50,
				StartDate: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2025, 8, 2, 23, 59, 59, 999999999, time.UTC),
			},
			"",
		},
		{"datetime end", "?end_date=2025-08-02%2010:00:00", models.TelemetryFilter{EndDate: time.Date(2025, 8, 2, 10, 0, 0, 0, time.UTC)}, ""},
		{"bad piston", "?piston_number=three", models.TelemetryFilter{}, errPistonInvalid},
		{"bad limit", "?limit=-1", models.TelemetryFilter{}, errLimitInvalid},
		{"bad start", "?start_date=yesterday", models.TelemetryFilter{}, errStartInvalid},
		{"bad end", "?end_date=08/02/2025", models.TelemetryFilter{}, errEndInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/api/telemetry"+tc.query, nil)
			got, msg := parseTelemetryFilter(c)
			if msg != tc.wantMsg {
				t.Fatalf("msg = %q; want %q", msg, tc.wantMsg)
			}
			if tc.wantMsg != "" {
				return
			}
			if got.DeviceID != tc.want.DeviceID || got.PistonNumber != tc.want.PistonNumber ||
				got.Action != tc.want.Action || got.Limit != tc.want.Limit ||
				!got.StartDate.Equal(tc.want.StartDate) || !got.EndDate.Equal(tc.want.EndDate) {
				t.Fatalf("filter = %+v; want %+v", got, tc.want)
			}
		})
	}
}

func TestGetTelemetry(t *testing.T) {
	s := newTestService()
	tel := &mockTelemetry{resp: []models.TelemetryEvent{{ID: "e1", EventType: models.EventPistonActivated}}}
	s.Telemetry = tel
	r := newTestRouter(s)

	w := doJSON(t, r, http.MethodGet, "/api/telemetry?device_id=D1", nil)
	assertStatus(t, w, http.StatusOK)
	resp := decodeBody[models.TelemetryListResponse](t, w)
	if resp.Count != 1 || len(resp.Events) != 1 || tel.lastFilter.DeviceID != "D1" {
		t.Fatalf("resp = %+v, filter = %+v", resp, tel.lastFilter)
	}

	tel.err = service.ErrInvalidRange
	w = doJSON(t, r, http.MethodGet, "/api/telemetry?start_date=2025-08-02&end_date=2025-08-01", nil)
	assertStatus(t, w, http.StatusBadRequest)
}
