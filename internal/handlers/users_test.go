package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"piston_control/internal/models"
	"piston_control/internal/service"
)

func multipartRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write([]byte(content))
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/user/avatar", &buf)
	req.Header = authHeader("token")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAvatar(t *testing.T) {
	s := newTestService()
	prof := &mockProfile{avatarURL: "/uploads/user-1-abcd.png"}
	s.Profile = prof
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, "avatar", "me.png", "PNGDATA"))

	assertStatus(t, w, http.StatusOK)
	if got := decodeBody[models.AvatarResponse](t, w); got.AvatarURL != prof.avatarURL {
		t.Fatalf("avatar_url = %q", got.AvatarURL)
	}
	if prof.lastFilename != "me.png" || prof.lastContent != "PNGDATA" {
		t.Fatalf("service got %q / %q", prof.lastFilename, prof.lastContent)
	}
}

func TestUploadAvatar_Errors(t *testing.T) {
	s := newTestService()
	s.Profile = &mockProfile{}
	w := httptest.NewRecorder()
	newTestRouter(s).ServeHTTP(w, multipartRequest(t, "picture", "me.png", "x"))
	assertStatus(t, w, http.StatusBadRequest)
	if got := errorMessage(t, w); got != errAvatarMissing {
		t.Fatalf("message = %q", got)
	}

	s.Profile = &mockProfile{err: service.ErrAvatarTooLarge}
	w = httptest.NewRecorder()
	newTestRouter(s).ServeHTTP(w, multipartRequest(t, "avatar", "me.png", "x"))
	assertStatus(t, w, http.StatusRequestEntityTooLarge)
}

func TestProfileEndpoints(t *testing.T) {
	s := newTestService()
	prof := &mockProfile{user: &models.User{ID: testUserID, Name: "Ann"}}
	s.Profile = prof
	r := newTestRouter(s)

	w := doJSON(t, r, http.MethodGet, "/api/user/profile", nil)
	assertStatus(t, w, http.StatusOK)
	if got := decodeBody[models.UserResponse](t, w); got.User.Name != "Ann" {
		t.Fatalf("user = %+v", got.User)
	}

	w = doJSON(t, r, http.MethodPut, "/api/user/profile", `{"date_of_birth":"01.04.1990"}`)
	assertStatus(t, w, http.StatusBadRequest)

	w = doJSON(t, r, http.MethodPut, "/api/user/preferences", `{"preferences":{"valveLimit":4}}`)
	assertStatus(t, w, http.StatusOK)
	if string(prof.lastPrefs) != `{"valveLimit":4}` {
		t.Fatalf("prefs = %s", prof.lastPrefs)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/user/avatar", nil)
	assertStatus(t, w, http.StatusOK)
	if got := decodeBody[models.MessageResponse](t, w); got.Message != msgAvatarDeleted {
		t.Fatalf("message = %q", got.Message)
	}
}
