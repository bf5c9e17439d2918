package handlers

import (
	"net/http"
	"strconv"
	"time"

	"piston_control/internal/models"
	"piston_control/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	msgPistonActivated   = "piston activated"
	msgPistonDeactivated = "piston deactivated"
	errPistonNumber      = "piston number must be an integer between 1 and 8"
)

// statusRequest is the body of PUT devices/{id}/status.
type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=online offline"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  models.HealthResponse
// @Router       /api/health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{Status: statusOK, Timestamp: time.Now().UTC()})
}

// @Summary      List devices
// @Tags         devices
// @Produce      json
// @Success      200  {object}  models.DeviceListResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/devices [get]
// @Security     BearerAuth
func (h *Handler) listDevices(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	devices, err := h.services.Devices.List(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err, "devices_list_failed", "user_id", uid)
		return
	}
	c.JSON(http.StatusOK, models.DeviceListResponse{Devices: devices})
}

// @Summary      Get device
// @Tags         devices
// @Produce      json
// @Param        id   path      string  true  "Device id or physical device_id"
// @Success      200  {object}  models.DeviceResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/devices/{id} [get]
// @Security     BearerAuth
func (h *Handler) getDevice(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	d, err := h.services.Devices.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.fail(c, err, "device_get_failed", "user_id", uid, "device", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, models.DeviceResponse{Device: *d})
}

// @Summary      Control piston
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id      path      string                       true  "Device id or physical device_id"
// @Param        number  path      int                          true  "Piston number (1-8)"
// @Param        body    body      models.PistonControlRequest  true  "activate | deactivate"
// @Success      200     {object}  models.PistonControlResponse
// @Failure      400     {object}  models.ErrorResponse
// @Failure      404     {object}  models.ErrorResponse
// @Failure      409     {object}  models.ErrorResponse
// @Router       /api/devices/{id}/pistons/{number} [post]
// @Security     BearerAuth
func (h *Handler) controlPiston(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n < 1 || n > models.MaxPistons {
		jsonError(c, http.StatusBadRequest, errPistonNumber)
		return
	}
	var input models.PistonControlRequest
	if ok := h.bindValid(c, &input); !ok {
		return
	}

	p, err := h.services.Devices.Control(c.Request.Context(), service.ControlParams{
		UserID:       uid,
		DeviceRef:    c.Param("id"),
		PistonNumber: n,
		Action:       input.Action,
		Source:       service.SourceAPI,
	})
	if err != nil {
		h.fail(c, err, "piston_control_failed", "user_id", uid, "device", c.Param("id"), "piston", n)
		return
	}
	if h.log != nil {
		h.log.Infow("piston_controlled", "user_id", uid, "device", c.Param("id"), "piston", n, "state", p.State)
	}

	msg := msgPistonDeactivated
	if p.IsActive() {
		msg = msgPistonActivated
	}
	c.JSON(http.StatusOK, models.PistonControlResponse{Message: msg, Piston: *p})
}

// @Summary      Set device status
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id    path      string         true  "Device id or physical device_id"
// @Param        body  body      statusRequest  true  "online | offline"
// @Success      200   {object}  models.DeviceResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      404   {object}  models.ErrorResponse
// @Router       /api/devices/{id}/status [put]
// @Security     BearerAuth
func (h *Handler) setDeviceStatus(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var input statusRequest
	if ok := h.bindValid(c, &input); !ok {
		return
	}
	d, err := h.services.Devices.SetStatus(c.Request.Context(), uid, c.Param("id"), input.Status)
	if err != nil {
		h.fail(c, err, "device_status_failed", "user_id", uid, "device", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, models.DeviceResponse{Device: *d})
}
