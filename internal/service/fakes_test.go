package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"piston_control/internal/models"
	"piston_control/internal/repository"

	"github.com/google/uuid"
)

// In-memory repository fakes shared by the service tests.

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*models.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]*models.User{}} }

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, other := range m.byID {
		if other.Email == u.Email {
			return repository.ErrEmailTaken
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Name, cur.Phone, cur.DateOfBirth = u.Name, u.Phone, u.DateOfBirth
	return nil
}

func (m *memUsers) UpdatePreferences(_ context.Context, id string, prefs json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Preferences = prefs
	return nil
}

func (m *memUsers) SetAvatar(_ context.Context, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	cur.AvatarURL = url
	return nil
}

type memDevices struct {
	mu      sync.Mutex
	devices []*models.Device
}

func (m *memDevices) Create(_ context.Context, d *models.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if len(d.Pistons) == 0 {
		for n := 1; n <= models.MaxPistons; n++ {
			d.Pistons = append(d.Pistons, models.Piston{ID: fmt.Sprintf("%s-p%d", d.ID, n), DeviceID: d.ID, PistonNumber: n, State: models.PistonInactive})
		}
	}
	cp := *d
	cp.Pistons = append([]models.Piston(nil), d.Pistons...)
	m.devices = append(m.devices, &cp)
	return nil
}

func (m *memDevices) ListByUser(_ context.Context, userID string) ([]models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Device{}
	for _, d := range m.devices {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memDevices) find(userID, ref string) *models.Device {
	for _, d := range m.devices {
		if d.UserID == userID && (d.ID == ref || d.DeviceID == ref) {
			return d
		}
	}
	return nil
}

func (m *memDevices) Get(_ context.Context, userID, ref string) (*models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.find(userID, ref)
	if d == nil {
		return nil, repository.ErrNotFound
	}
	cp := *d
	cp.Pistons = append([]models.Piston(nil), d.Pistons...)
	return &cp, nil
}

func (m *memDevices) ListAll(context.Context) ([]models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, *d)
	}
	return out, nil
}

func (m *memDevices) SetPistonState(_ context.Context, deviceID string, number int, state string, at time.Time) (*models.Piston, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devices {
		if d.ID != deviceID {
			continue
		}
		for i := range d.Pistons {
			if d.Pistons[i].PistonNumber == number {
				d.Pistons[i].State = state
				d.Pistons[i].LastTriggered = &at
				p := d.Pistons[i]
				return &p, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memDevices) SetStatus(_ context.Context, deviceID, status string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devices {
		if d.ID == deviceID {
			d.Status = status
			d.LastSeen = &at
			return nil
		}
	}
	return repository.ErrNotFound
}

type memSchedules struct {
	mu   sync.Mutex
	rows map[string]*models.Schedule
}

func newMemSchedules() *memSchedules { return &memSchedules{rows: map[string]*models.Schedule{}} }

func (m *memSchedules) Create(_ context.Context, s *models.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	cp := *s
	m.rows[s.ID] = &cp
	return nil
}

func (m *memSchedules) List(_ context.Context, userID, deviceID string) ([]models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Schedule{}
	for _, s := range m.rows {
		if s.UserID == userID && (deviceID == "" || s.DeviceID == deviceID) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memSchedules) Get(_ context.Context, userID, id string) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok || s.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSchedules) Update(_ context.Context, s *models.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[s.ID]
	if !ok || cur.UserID != s.UserID {
		return repository.ErrNotFound
	}
	cp := *s
	m.rows[s.ID] = &cp
	return nil
}

func (m *memSchedules) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[id]
	if !ok || cur.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memSchedules) ListEnabled(context.Context) ([]models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Schedule{}
	for _, s := range m.rows {
		if s.Enabled {
			out = append(out, *s)
		}
	}
	return out, nil
}

type memTelemetry struct {
	mu       sync.Mutex
	events   []models.TelemetryEvent
	lastList models.TelemetryFilter
}

func (m *memTelemetry) Append(_ context.Context, e *models.TelemetryEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *memTelemetry) List(_ context.Context, _ string, f models.TelemetryFilter) ([]models.TelemetryEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = f
	return append([]models.TelemetryEvent(nil), m.events...), nil
}

func (m *memTelemetry) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}

// recordingNotifier captures published frames.
type recordingNotifier struct {
	mu     sync.Mutex
	frames []any
	users  []string
}

func (r *recordingNotifier) Publish(userID string, frame any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
	r.frames = append(r.frames, frame)
}
