package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"piston_control/internal/models"

	"github.com/google/uuid"
)

type UserSQLite struct {
	db *sql.DB
}

func NewUserSQLite(db *sql.DB) *UserSQLite {
	return &UserSQLite{db: db}
}

// Ensure implementation of Users interface at compile time.
var _ Users = (*UserSQLite)(nil)

const (
	insertUserSQL = `
		INSERT INTO users (id, email, password_hash, name, phone, date_of_birth, avatar_url, preferences, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	selectUserColumnsSQL    = `SELECT id, email, password_hash, name, phone, date_of_birth, avatar_url, preferences FROM users`
	selectUserByEmailSQL    = selectUserColumnsSQL + ` WHERE email = ?`
	selectUserByIDSQL       = selectUserColumnsSQL + ` WHERE id = ?`
	updateUserProfileSQL    = `UPDATE users SET name = ?, phone = ?, date_of_birth = ? WHERE id = ?`
	updateUserPreferencesSQL = `UPDATE users SET preferences = ? WHERE id = ?`
	updateUserAvatarSQL     = `UPDATE users SET avatar_url = ? WHERE id = ?`
)

// Create inserts a new user, assigning an ID when empty.
func (r *UserSQLite) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	email := strings.ToLower(strings.TrimSpace(u.Email))
	_, err := r.db.ExecContext(ctx, insertUserSQL,
		u.ID, email, u.PasswordHash, u.Name, u.Phone, u.DateOfBirth, u.AvatarURL,
		nullJSON(u.Preferences), time.Now().UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user %q: %w", email, err)
	}
	u.Email = email
	return nil
}

// GetByEmail fetches a user by email. Returns (nil, nil) if not found.
func (r *UserSQLite) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectUserByEmailSQL, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user %q: %w", email, err)
	}
	return u, nil
}

func (r *UserSQLite) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectUserByIDSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user %q: %w", id, err)
	}
	return u, nil
}

func (r *UserSQLite) UpdateProfile(ctx context.Context, u models.User) error {
	res, err := r.db.ExecContext(ctx, updateUserProfileSQL, u.Name, u.Phone, u.DateOfBirth, u.ID)
	return affectedOne(res, err, "update profile", u.ID)
}

func (r *UserSQLite) UpdatePreferences(ctx context.Context, id string, prefs json.RawMessage) error {
	res, err := r.db.ExecContext(ctx, updateUserPreferencesSQL, nullJSON(prefs), id)
	return affectedOne(res, err, "update preferences", id)
}

func (r *UserSQLite) SetAvatar(ctx context.Context, id, url string) error {
	res, err := r.db.ExecContext(ctx, updateUserAvatarSQL, url, id)
	return affectedOne(res, err, "update avatar", id)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u     models.User
		prefs sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.DateOfBirth, &u.AvatarURL, &prefs); err != nil {
		return nil, err
	}
	if prefs.Valid && prefs.String != "" {
		u.Preferences = json.RawMessage(prefs.String)
	}
	return &u, nil
}

func nullJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

// affectedOne maps a zero-row update onto ErrNotFound.
func affectedOne(res sql.Result, err error, op, id string) error {
	if err != nil {
		return fmt.Errorf("%s %q: %w", op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %q rows affected: %w", op, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
