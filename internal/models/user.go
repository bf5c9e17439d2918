package models

import "encoding/json"

// User is the profile of the signed-in account.
type User struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	Name         string          `json:"name,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	DateOfBirth  string          `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	AvatarURL    string          `json:"avatar_url,omitempty"`
	Preferences  json.RawMessage `json:"preferences,omitempty"`
	PasswordHash string          `json:"-"` // don’t expose hash
}

// AuthToken is the persisted session.
type AuthToken struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// RegisterRequest is the body of POST auth/register.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,max=128"`
	Name        string `json:"name" validate:"required,max=100"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,max=32"`
	DateOfBirth string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// LoginRequest is the body of POST auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by both register and login.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// UpdateProfileRequest is the body of PUT user/profile. Empty fields are left unchanged.
type UpdateProfileRequest struct {
	Name        string `json:"name,omitempty" validate:"omitempty,max=100"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,max=32"`
	DateOfBirth string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// UpdatePreferencesRequest is the body of PUT user/preferences.
type UpdatePreferencesRequest struct {
	Preferences json.RawMessage `json:"preferences" validate:"required"`
}

// UserResponse wraps user endpoints.
type UserResponse struct {
	User User `json:"user"`
}

// AvatarResponse is returned by POST user/avatar.
type AvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the structured error body the backend sends on non-2xx.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
