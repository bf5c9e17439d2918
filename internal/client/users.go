package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	pc "piston_control"
	"piston_control/internal/gateway"
	"piston_control/internal/logger"
	"piston_control/internal/models"
)

type UserRepository struct {
	gw *gateway.Gateway
}

func NewUserRepository(gw *gateway.Gateway) *UserRepository { return &UserRepository{gw: gw} }

func (r *UserRepository) Profile(ctx context.Context) pc.Result[models.User] {
	return unwrapUser(gateway.Get[models.UserResponse](ctx, r.gw, "user/profile", nil))
}

func (r *UserRepository) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) pc.Result[models.User] {
	return unwrapUser(gateway.Put[models.UserResponse](ctx, r.gw, "user/profile", req))
}

func (r *UserRepository) UpdatePreferences(ctx context.Context, req models.UpdatePreferencesRequest) pc.Result[models.User] {
	return unwrapUser(gateway.Put[models.UserResponse](ctx, r.gw, "user/preferences", req))
}

func unwrapUser(res pc.Result[models.UserResponse]) pc.Result[models.User] {
	return pc.MapResult(res, func(v models.UserResponse) models.User { return v.User })
}

const avatarField = "avatar"

type AvatarRepository struct {
	gw  *gateway.Gateway
	log *logger.Logger
	// tempDir is where uploads are staged; "" means os.TempDir.
	tempDir string
}

func NewAvatarRepository(gw *gateway.Gateway, log *logger.Logger) *AvatarRepository {
	return &AvatarRepository{gw: gw, log: logger.OrNop(log)}
}

// Upload stages image in a temp file and posts it as multipart. The temp
// file is removed whatever the outcome.
func (r *AvatarRepository) Upload(ctx context.Context, image io.Reader, filename string) pc.Result[string] {
	tmp, err := os.CreateTemp(r.tempDir, "avatar-*"+filepath.Ext(filename))
	if err != nil {
		return pc.Failure[string](fmt.Sprintf("prepare upload: %v", err), 0)
	}
	defer func() {
		_ = tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			r.log.Warnw("avatar_temp_cleanup_failed", "path", tmp.Name(), "err", err)
		}
	}()

	if _, err := io.Copy(tmp, image); err != nil {
		return pc.Failure[string](fmt.Sprintf("prepare upload: %v", err), 0)
	}
	head := make([]byte, 512)
	n, _ := tmp.ReadAt(head, 0)
	contentType := http.DetectContentType(head[:n])
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return pc.Failure[string](fmt.Sprintf("prepare upload: %v", err), 0)
	}

	res := gateway.PostMultipart[models.AvatarResponse](ctx, r.gw, "user/avatar", avatarField, filepath.Base(filename), contentType, tmp)
	return pc.MapResult(res, func(v models.AvatarResponse) string { return v.AvatarURL })
}

func (r *AvatarRepository) Delete(ctx context.Context) pc.Result[models.MessageResponse] {
	return gateway.Delete[models.MessageResponse](ctx, r.gw, "user/avatar")
}
