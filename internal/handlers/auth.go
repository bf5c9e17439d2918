package handlers

import (
	"errors"
	"net/http"

	"piston_control/internal/models"
	"piston_control/internal/service"

	"github.com/gin-gonic/gin"
)

// @Summary      Register
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.RegisterRequest  true  "New account"
// @Success      201   {object}  models.AuthResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      409   {object}  models.ErrorResponse
// @Router       /api/auth/register [post]
func (h *Handler) register(c *gin.Context) {
	var input models.RegisterRequest
	if ok := h.bindValid(c, &input); !ok {
		return
	}

	resp, err := h.services.Register(c.Request.Context(), input)
	if err != nil {
		if h.log != nil {
			h.log.Infow("auth_register_failed", "email", input.Email, "err", err)
		}
		h.fail(c, err, "auth_register_failed")
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.LoginRequest  true  "Credentials"
// @Success      200   {object}  models.AuthResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      401   {object}  models.ErrorResponse
// @Router       /api/auth/login [post]
func (h *Handler) login(c *gin.Context) {
	var input models.LoginRequest
	if ok := h.bindValid(c, &input); !ok {
		return
	}

	resp, err := h.services.Login(c.Request.Context(), input)
	if err != nil {
		if h.log != nil {
			h.log.Infow("auth_login_failed", "email", input.Email, "err", err)
		}
		if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrInvalidPassword) {
			jsonError(c, http.StatusUnauthorized, errInvalidCreds)
			return
		}
		h.fail(c, err, "auth_login_failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}
