package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"piston_control/internal/models"
	"piston_control/internal/repository"

	"github.com/google/uuid"
)

// AvatarURLPrefix is where the router serves stored avatars.
const AvatarURLPrefix = "/uploads/"

// maxAvatarBytes caps a single avatar upload.
const maxAvatarBytes = 5 << 20

var (
	ErrAvatarTooLarge   = errors.New("avatar exceeds 5 MB")
	ErrInvalidPrefs     = errors.New("preferences must be a JSON object")
	allowedAvatarSuffix = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}
)

type ProfileService struct {
	users      repository.Users
	uploadsDir string
}

func NewProfileService(users repository.Users, uploadsDir string) *ProfileService {
	return &ProfileService{users: users, uploadsDir: uploadsDir}
}

var _ Profile = (*ProfileService)(nil)

func (s *ProfileService) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Update overwrites the non-empty profile fields.
func (s *ProfileService) Update(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		u.Name = req.Name
	}
	if req.Phone != "" {
		u.Phone = req.Phone
	}
	if req.DateOfBirth != "" {
		u.DateOfBirth = req.DateOfBirth
	}
	if err := s.users.UpdateProfile(ctx, *u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *ProfileService) UpdatePreferences(ctx context.Context, userID string, prefs json.RawMessage) (*models.User, error) {
	var obj map[string]any
	if err := json.Unmarshal(prefs, &obj); err != nil || obj == nil {
		return nil, ErrInvalidPrefs
	}
	if err := s.users.UpdatePreferences(ctx, userID, prefs); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

// SaveAvatar stores the image under the uploads dir and returns its URL.
// The previous avatar file, if any, is removed.
func (s *ProfileService) SaveAvatar(ctx context.Context, userID, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedAvatarSuffix[ext] {
		ext = ".img"
	}
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}
	name := userID + "-" + uuid.NewString()[:8] + ext
	dst := filepath.Join(s.uploadsDir, name)

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create avatar file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, maxAvatarBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > maxAvatarBytes {
		err = ErrAvatarTooLarge
	}
	if err != nil {
		_ = os.Remove(dst)
		if errors.Is(err, ErrAvatarTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("write avatar: %w", err)
	}

	prev, err := s.users.GetByID(ctx, userID)
	if err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	url := AvatarURLPrefix + name
	if err := s.users.SetAvatar(ctx, userID, url); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	s.removeStored(prev.AvatarURL)
	return url, nil
}

func (s *ProfileService) DeleteAvatar(ctx context.Context, userID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.SetAvatar(ctx, userID, ""); err != nil {
		return err
	}
	s.removeStored(u.AvatarURL)
	return nil
}

// removeStored deletes a file previously written by SaveAvatar.
func (s *ProfileService) removeStored(url string) {
	if !strings.HasPrefix(url, AvatarURLPrefix) {
		return
	}
	_ = os.Remove(filepath.Join(s.uploadsDir, path.Base(url)))
}
