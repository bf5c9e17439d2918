package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"piston_control/internal/models"
	"piston_control/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	registerResp models.AuthResponse
	registerErr  error
	loginResp    models.AuthResponse
	loginErr     error
	parseID      string
	parseErr     error

	lastRegister   models.RegisterRequest
	lastLogin      models.LoginRequest
	lastParseToken string
	registerCalls  int
}

func (m *mockAuth) Register(_ context.Context, req models.RegisterRequest) (models.AuthResponse, error) {
	m.registerCalls++
	m.lastRegister = req
	return m.registerResp, m.registerErr
}
func (m *mockAuth) Login(_ context.Context, req models.LoginRequest) (models.AuthResponse, error) {
	m.lastLogin = req
	return m.loginResp, m.loginErr
}
func (m *mockAuth) ParseToken(token string) (string, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockDevices struct {
	devices    []models.Device
	device     *models.Device
	piston     *models.Piston
	err        error
	lastParams service.ControlParams
	lastRef    string
	lastStatus string
	calls      int
}

func (m *mockDevices) List(context.Context, string) ([]models.Device, error) {
	return m.devices, m.err
}
func (m *mockDevices) Get(_ context.Context, _ string, ref string) (*models.Device, error) {
	m.lastRef = ref
	return m.device, m.err
}
func (m *mockDevices) Control(_ context.Context, p service.ControlParams) (*models.Piston, error) {
	m.calls++
	m.lastParams = p
	return m.piston, m.err
}
func (m *mockDevices) SetStatus(_ context.Context, _ string, ref, status string) (*models.Device, error) {
	m.lastRef, m.lastStatus = ref, status
	return m.device, m.err
}

type mockSchedules struct {
	schedule   *models.Schedule
	list       []models.Schedule
	err        error
	lastCreate models.CreateScheduleRequest
	lastUpdate models.UpdateScheduleRequest
	lastDevice string
	calls      int
}

func (m *mockSchedules) Create(_ context.Context, _ string, req models.CreateScheduleRequest) (*models.Schedule, error) {
	m.calls++
	m.lastCreate = req
	return m.schedule, m.err
}
func (m *mockSchedules) List(_ context.Context, _ string, deviceRef string) ([]models.Schedule, error) {
	m.calls++
	m.lastDevice = deviceRef
	return m.list, m.err
}
func (m *mockSchedules) Get(context.Context, string, string) (*models.Schedule, error) {
	m.calls++
	return m.schedule, m.err
}
func (m *mockSchedules) Update(_ context.Context, _ string, _ string, req models.UpdateScheduleRequest) (*models.Schedule, error) {
	m.calls++
	m.lastUpdate = req
	return m.schedule, m.err
}
func (m *mockSchedules) Delete(context.Context, string, string) error {
	m.calls++
	return m.err
}

type mockTelemetry struct {
	resp       []models.TelemetryEvent
	err        error
	lastFilter models.TelemetryFilter
}

func (m *mockTelemetry) List(_ context.Context, _ string, f models.TelemetryFilter) ([]models.TelemetryEvent, error) {
	m.lastFilter = f
	return m.resp, m.err
}

type mockProfile struct {
	user         *models.User
	err          error
	avatarURL    string
	lastFilename string
	lastContent  string
	lastPrefs    json.RawMessage
}

func (m *mockProfile) Get(context.Context, string) (*models.User, error) { return m.user, m.err }
func (m *mockProfile) Update(context.Context, string, models.UpdateProfileRequest) (*models.User, error) {
	return m.user, m.err
}
func (m *mockProfile) UpdatePreferences(_ context.Context, _ string, prefs json.RawMessage) (*models.User, error) {
	m.lastPrefs = prefs
	return m.user, m.err
}
func (m *mockProfile) SaveAvatar(_ context.Context, _ string, filename string, r io.Reader) (string, error) {
	b, _ := io.ReadAll(r)
	m.lastFilename, m.lastContent = filename, string(b)
	return m.avatarURL, m.err
}
func (m *mockProfile) DeleteAvatar(context.Context, string) error { return m.err }

type noopScheduler struct{}

func (noopScheduler) Run(context.Context, time.Duration) {}
func (noopScheduler) Resync()                            {}

// ---- Shared Test Helpers ----

const testUserID = "user-1"

// newTestService returns a service whose auth accepts any token as testUserID.
func newTestService() *service.Service {
	return &service.Service{
		Authorization: &mockAuth{parseID: testUserID},
		Profile:       &mockProfile{},
		Devices:       &mockDevices{},
		Schedules:     &mockSchedules{},
		Telemetry:     &mockTelemetry{},
		Scheduler:     noopScheduler{},
		Hub:           service.NewHub(nil),
	}
}

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewHandler(s, "", nil).InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
