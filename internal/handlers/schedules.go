package handlers

import (
	"net/http"

	"piston_control/internal/models"

	"github.com/gin-gonic/gin"
)

const msgScheduleDeleted = "schedule deleted"

// @Summary      Create schedule
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body      models.CreateScheduleRequest  true  "Schedule"
// @Success      201   {object}  models.ScheduleResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      404   {object}  models.ErrorResponse
// @Router       /api/schedules [post]
// @Security     BearerAuth
func (h *Handler) createSchedule(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var input models.CreateScheduleRequest
	if ok := h.bindValid(c, &input); !ok {
		return
	}
	sc, err := h.services.Schedules.Create(c.Request.Context(), uid, input)
	if err != nil {
		h.fail(c, err, "schedule_create_failed", "user_id", uid)
		return
	}
	c.JSON(http.StatusCreated, models.ScheduleResponse{Schedule: *sc})
}

// @Summary      List schedules
// @Tags         schedules
// @Produce      json
// @Param        deviceId  query     string  false  "Device id or physical device_id"
// @Success      200       {object}  models.ScheduleListResponse
// @Router       /api/schedules [get]
// @Security     BearerAuth
func (h *Handler) listSchedules(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.services.Schedules.List(c.Request.Context(), uid, c.Query("deviceId"))
	if err != nil {
		h.fail(c, err, "schedule_list_failed", "user_id", uid)
		return
	}
	c.JSON(http.StatusOK, models.ScheduleListResponse{Schedules: list})
}

// @Summary      Get schedule
// @Tags         schedules
// @Produce      json
// @Param        id   path      string  true  "Schedule id"
// @Success      200  {object}  models.ScheduleResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/schedules/{id} [get]
// @Security     BearerAuth
func (h *Handler) getSchedule(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	sc, err := h.services.Schedules.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.fail(c, err, "schedule_get_failed", "user_id", uid, "schedule_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, models.ScheduleResponse{Schedule: *sc})
}

// @Summary      Update schedule
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        id    path      string                        true  "Schedule id"
// @Param        body  body      models.UpdateScheduleRequest  true  "Fields to change"
// @Success      200   {object}  models.ScheduleResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      404   {object}  models.ErrorResponse
// @Router       /api/schedules/{id} [put]
// @Security     BearerAuth
func (h *Handler) updateSchedule(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var input models.UpdateScheduleRequest
	if ok := h.bindValid(c, &input); !ok {
		return
	}
	sc, err := h.services.Schedules.Update(c.Request.Context(), uid, c.Param("id"), input)
	if err != nil {
		h.fail(c, err, "schedule_update_failed", "user_id", uid, "schedule_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, models.ScheduleResponse{Schedule: *sc})
}

// @Summary      Delete schedule
// @Tags         schedules
// @Produce      json
// @Param        id   path      string  true  "Schedule id"
// @Success      200  {object}  models.MessageResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/schedules/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteSchedule(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.services.Schedules.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		h.fail(c, err, "schedule_delete_failed", "user_id", uid, "schedule_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: msgScheduleDeleted})
}
