package viewmodel

import (
	"context"

	pc "piston_control"
	"piston_control/internal/client"
	"piston_control/internal/models"
)

// SessionReader is the read side of the token store.
type SessionReader interface {
	IsLoggedIn() bool
	Email() string
}

type AuthViewModel struct {
	Login    *Stream[models.User]
	Register *Stream[models.User]

	auth    client.Auth
	session SessionReader
}

func NewAuthViewModel(auth client.Auth, session SessionReader) *AuthViewModel {
	return &AuthViewModel{
		Login:    NewStream[models.User](),
		Register: NewStream[models.User](),
		auth:     auth,
		session:  session,
	}
}

func (vm *AuthViewModel) IsLoggedIn() bool { return vm.session.IsLoggedIn() }

func (vm *AuthViewModel) SignIn(ctx context.Context, req models.LoginRequest) pc.Result[models.User] {
	if err := models.Validate(req); err != nil {
		return reject(vm.Login, err)
	}
	return run(vm.Login, func() pc.Result[models.User] { return vm.auth.Login(ctx, req) })
}

func (vm *AuthViewModel) SignUp(ctx context.Context, req models.RegisterRequest) pc.Result[models.User] {
	if err := models.Validate(req); err != nil {
		return reject(vm.Register, err)
	}
	return run(vm.Register, func() pc.Result[models.User] { return vm.auth.Register(ctx, req) })
}

// SignOut clears the session and resets both streams.
func (vm *AuthViewModel) SignOut(ctx context.Context) error {
	if err := vm.auth.Logout(ctx); err != nil {
		return err
	}
	vm.Login.Set(pc.Idle[models.User]())
	vm.Register.Set(pc.Idle[models.User]())
	return nil
}
