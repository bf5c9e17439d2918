package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

type PreferenceSQLite struct {
	db     *sql.DB
	sealer *Sealer
}

func NewPreferenceSQLite(db *sql.DB, sealer *Sealer) *PreferenceSQLite {
	return &PreferenceSQLite{db: db, sealer: sealer}
}

var _ Preferences = (*PreferenceSQLite)(nil)

const (
	upsertPreferenceSQL = `
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at
	`
	selectPreferenceSQL = `SELECT value FROM preferences WHERE key = ?`
	deletePreferenceSQL = `DELETE FROM preferences WHERE key = ?`
)

// Get returns the decrypted value; ok is false when the key is absent.
func (r *PreferenceSQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var sealed []byte
	err := r.db.QueryRowContext(ctx, selectPreferenceSQL, key).Scan(&sealed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select preference %q: %w", key, err)
	}
	plain, err := r.sealer.Open(key, sealed)
	if err != nil {
		return "", false, err
	}
	return string(plain), true, nil
}

func (r *PreferenceSQLite) Put(ctx context.Context, key, value string) error {
	sealed, err := r.sealer.Seal(key, []byte(value))
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, upsertPreferenceSQL, key, sealed, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert preference %q: %w", key, err)
	}
	return nil
}

// PutMany upserts all values in one transaction, in key order.
func (r *PreferenceSQLite) PutMany(ctx context.Context, values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sealed := make([][]byte, len(keys))
	for i, k := range keys {
		b, err := r.sealer.Seal(k, []byte(values[k]))
		if err != nil {
			return err
		}
		sealed[i] = b
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put preferences: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for i, k := range keys {
		if _, err := tx.ExecContext(ctx, upsertPreferenceSQL, k, sealed[i], now); err != nil {
			return fmt.Errorf("upsert preference %q: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put preferences: %w", err)
	}
	return nil
}

// Delete removes all keys atomically.
func (r *PreferenceSQLite) Delete(ctx context.Context, keys ...string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete preferences: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, deletePreferenceSQL, k); err != nil {
			return fmt.Errorf("delete preference %q: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete preferences: %w", err)
	}
	return nil
}
