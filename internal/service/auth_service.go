package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"piston_control/internal/models"
	"piston_control/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 24 * time.Hour

// AuthService handles registration, login and token checks.
type AuthService struct {
	users      repository.Users
	devices    repository.Devices
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

func NewAuthService(users repository.Users, devices repository.Devices, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{users: users, devices: devices, signingKey: []byte(secret), ttl: ttl, now: time.Now}
}

// Claims defines JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Register creates the user, seeds a demo controller and signs them in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (models.AuthResponse, error) {
	hash, err := hashPassword(req.Password)
	if err != nil {
		return models.AuthResponse{}, fmt.Errorf("invalid password: %w", err)
	}
	u := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		DateOfBirth:  req.DateOfBirth,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return models.AuthResponse{}, err
	}
	if err := s.devices.Create(ctx, demoDevice(u.ID, s.now())); err != nil {
		return models.AuthResponse{}, fmt.Errorf("seed device: %w", err)
	}
	token, err := s.issueToken(u.ID, u.Email)
	if err != nil {
		return models.AuthResponse{}, err
	}
	return models.AuthResponse{Token: token, User: *u}, nil
}

// Login validates credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (models.AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return models.AuthResponse{}, err
	}
	if u == nil {
		return models.AuthResponse{}, ErrUserNotFound
	}
	if err := verifyPassword(u.PasswordHash, req.Password); err != nil {
		return models.AuthResponse{}, ErrInvalidPassword
	}
	token, err := s.issueToken(u.ID, u.Email)
	if err != nil {
		return models.AuthResponse{}, err
	}
	return models.AuthResponse{Token: token, User: *u}, nil
}

// ParseToken parses JWT and returns userID
func (s *AuthService) ParseToken(accessToken string) (string, error) {
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure HMAC signing is used
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

func (s *AuthService) issueToken(userID, email string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
		UserID: userID,
		Email:  email,
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// demoDevice is the controller every new account starts with.
func demoDevice(userID string, now time.Time) *models.Device {
	at := now.UTC()
	return &models.Device{
		UserID:   userID,
		Name:     "Demo controller",
		DeviceID: "DEV-" + strings.ToUpper(uuid.NewString()[:8]),
		Status:   models.DeviceOnline,
		LastSeen: &at,
	}
}

// helper: hash password safely
func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// helper: verify password against hash
func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
