package viewmodel

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	pc "piston_control"
	"piston_control/internal/client"
	"piston_control/internal/models"
)

type ProfileViewModel struct {
	Profile      *Stream[models.User]
	Update       *Stream[models.User]
	Avatar       *Stream[string]
	AvatarDelete *Stream[models.MessageResponse]

	users   client.Users
	avatars client.Avatars
}

func NewProfileViewModel(users client.Users, avatars client.Avatars) *ProfileViewModel {
	return &ProfileViewModel{
		Profile:      NewStream[models.User](),
		Update:       NewStream[models.User](),
		Avatar:       NewStream[string](),
		AvatarDelete: NewStream[models.MessageResponse](),
		users:        users,
		avatars:      avatars,
	}
}

func (vm *ProfileViewModel) Load(ctx context.Context) pc.Result[models.User] {
	return run(vm.Profile, func() pc.Result[models.User] { return vm.users.Profile(ctx) })
}

// UpdateProfile saves the edits and publishes the new profile.
func (vm *ProfileViewModel) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) pc.Result[models.User] {
	if err := models.Validate(req); err != nil {
		return reject(vm.Update, err)
	}
	r := run(vm.Update, func() pc.Result[models.User] { return vm.users.UpdateProfile(ctx, req) })
	if r.IsSuccess() {
		vm.Profile.Set(r)
	}
	return r
}

func (vm *ProfileViewModel) UpdatePreferences(ctx context.Context, prefs json.RawMessage) pc.Result[models.User] {
	if !json.Valid(prefs) {
		return reject(vm.Update, errors.New("preferences must be valid JSON"))
	}
	req := models.UpdatePreferencesRequest{Preferences: prefs}
	r := run(vm.Update, func() pc.Result[models.User] { return vm.users.UpdatePreferences(ctx, req) })
	if r.IsSuccess() {
		vm.Profile.Set(r)
	}
	return r
}

func (vm *ProfileViewModel) UploadAvatar(ctx context.Context, image io.Reader, filename string) pc.Result[string] {
	r := run(vm.Avatar, func() pc.Result[string] { return vm.avatars.Upload(ctx, image, filename) })
	if r.IsSuccess() {
		vm.Load(ctx)
	}
	return r
}

func (vm *ProfileViewModel) DeleteAvatar(ctx context.Context) pc.Result[models.MessageResponse] {
	r := run(vm.AvatarDelete, func() pc.Result[models.MessageResponse] { return vm.avatars.Delete(ctx) })
	if r.IsSuccess() {
		vm.Load(ctx)
	}
	return r
}
