// Package session owns the locally persisted sign-in state and the valve
// limit preference. Manager is the only writer of the bearer token.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"piston_control/internal/logger"
	"piston_control/internal/models"
	"piston_control/internal/repository"
)

const (
	keyToken      = "auth_token"
	keyUserID     = "user_id"
	keyEmail      = "user_email"
	keyValveLimit = "valve_limit"

	// DefaultValveLimit exposes every valve until the user narrows it.
	DefaultValveLimit = models.MaxPistons
)

var ErrValveLimitRange = fmt.Errorf("valve limit must be between 0 and %d", models.MaxPistons)

// Manager caches the session in memory and writes through to the store.
type Manager struct {
	store repository.Preferences
	log   *logger.Logger

	mu         sync.RWMutex
	token      models.AuthToken
	valveLimit int
}

// Open loads the persisted session from store.
func Open(ctx context.Context, store repository.Preferences, log *logger.Logger) (*Manager, error) {
	m := &Manager{store: store, log: logger.OrNop(log).Named("session"), valveLimit: DefaultValveLimit}

	var err error
	if m.token.Token, _, err = store.Get(ctx, keyToken); err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if m.token.UserID, _, err = store.Get(ctx, keyUserID); err != nil {
		return nil, fmt.Errorf("load user id: %w", err)
	}
	if m.token.Email, _, err = store.Get(ctx, keyEmail); err != nil {
		return nil, fmt.Errorf("load email: %w", err)
	}
	raw, ok, err := store.Get(ctx, keyValveLimit)
	if err != nil {
		return nil, fmt.Errorf("load valve limit: %w", err)
	}
	if ok {
		if n, perr := strconv.Atoi(raw); perr == nil && validLimit(n) {
			m.valveLimit = n
		} else {
			m.log.Warnw("valve_limit_ignored", "raw", raw)
		}
	}
	return m, nil
}

// SaveSession persists a freshly issued token with its user id and email.
func (m *Manager) SaveSession(ctx context.Context, t models.AuthToken) error {
	if t.Token == "" {
		return errors.New("save session: empty token")
	}
	err := m.store.PutMany(ctx, map[string]string{
		keyToken:  t.Token,
		keyUserID: t.UserID,
		keyEmail:  t.Email,
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	m.mu.Lock()
	m.token = t
	m.mu.Unlock()
	m.log.Infow("session_saved", "user_id", t.UserID)
	return nil
}

// Clear drops the session. The valve limit survives sign-out.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.token = models.AuthToken{}
	m.mu.Unlock()
	if err := m.store.Delete(ctx, keyToken, keyUserID, keyEmail); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.log.Infow("session_cleared")
	return nil
}

// Token returns the bearer token, or "" when signed out. Safe for concurrent use.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token.Token
}

func (m *Manager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token.UserID
}

func (m *Manager) Email() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token.Email
}

func (m *Manager) IsLoggedIn() bool { return m.Token() != "" }

func (m *Manager) ValveLimit() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.valveLimit
}

func (m *Manager) SetValveLimit(ctx context.Context, n int) error {
	if !validLimit(n) {
		return ErrValveLimitRange
	}
	if err := m.store.Put(ctx, keyValveLimit, strconv.Itoa(n)); err != nil {
		return fmt.Errorf("save valve limit: %w", err)
	}
	m.mu.Lock()
	m.valveLimit = n
	m.mu.Unlock()
	return nil
}

// IsValveEnabled reports whether valve n is within the user's limit.
func (m *Manager) IsValveEnabled(n int) bool {
	return n >= 1 && n <= m.ValveLimit()
}

func validLimit(n int) bool { return n >= 0 && n <= models.MaxPistons }
