package client

import (
	"context"

	pc "piston_control"
	"piston_control/internal/gateway"
	"piston_control/internal/logger"
	"piston_control/internal/models"
)

type AuthRepository struct {
	gw      *gateway.Gateway
	session Session
	log     *logger.Logger
}

func NewAuthRepository(gw *gateway.Gateway, session Session, log *logger.Logger) *AuthRepository {
	return &AuthRepository{gw: gw, session: session, log: logger.OrNop(log)}
}

var _ Auth = (*AuthRepository)(nil)

func (r *AuthRepository) Register(ctx context.Context, req models.RegisterRequest) pc.Result[models.User] {
	return r.signIn(ctx, "auth/register", req)
}

func (r *AuthRepository) Login(ctx context.Context, req models.LoginRequest) pc.Result[models.User] {
	return r.signIn(ctx, "auth/login", req)
}

// signIn persists the returned token before reporting success.
func (r *AuthRepository) signIn(ctx context.Context, path string, body any) pc.Result[models.User] {
	res := gateway.Post[models.AuthResponse](ctx, r.gw, path, body)
	auth, ok := res.Value()
	if !ok {
		return pc.MapResult(res, func(a models.AuthResponse) models.User { return a.User })
	}
	if auth.Token == "" {
		return pc.Failure[models.User]("server returned no token", 0)
	}
	err := r.session.SaveSession(ctx, models.AuthToken{Token: auth.Token, UserID: auth.User.ID, Email: auth.User.Email})
	if err != nil {
		r.log.Errorw("session_save_failed", "err", err)
		return pc.Failure[models.User]("Could not save session: "+err.Error(), 0)
	}
	return pc.Success(auth.User)
}

// Logout only clears local state; tokens are stateless on the backend.
func (r *AuthRepository) Logout(ctx context.Context) error {
	return r.session.Clear(ctx)
}
