package handlers

import (
	"errors"
	"net/http"

	"piston_control/internal/models"
	"piston_control/internal/repository"
	"piston_control/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errInternal      = "internal server error"
	errInvalidBody   = "invalid body: "
	errNotFound      = "not found"
	errInvalidCreds  = "invalid credentials"
	errMissingUserID = "missing user id in context"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrEmailTaken), errors.Is(err, service.ErrDeviceOffline):
		return http.StatusConflict
	case errors.Is(err, service.ErrAvatarTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrInvalidPiston),
		errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidCron),
		errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrInvalidPrefs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// jsonError writes the {error, message} body the client parses.
func jsonError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, models.ErrorResponse{Error: http.StatusText(code), Message: message})
}

// fail answers with the status for err. Unexpected errors are logged and
// hidden behind a generic message.
func (h *Handler) fail(c *gin.Context, err error, logKey string, kv ...interface{}) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		if h.log != nil {
			h.log.Errorw(logKey, append([]interface{}{"err", err}, kv...)...)
		}
		jsonError(c, code, errInternal)
		return
	}
	msg := err.Error()
	if code == http.StatusNotFound {
		msg = errNotFound
	}
	jsonError(c, code, msg)
}

// bindValid binds the JSON body into dst and runs field validation.
// Returns false if the request was already answered.
func (h *Handler) bindValid(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if h.log != nil {
			h.log.Infow("bad_request_body", "path", c.FullPath(), "err", err)
		}
		jsonError(c, http.StatusBadRequest, errInvalidBody+err.Error())
		return false
	}
	if err := models.Validate(dst); err != nil {
		jsonError(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
