package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"piston_control/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	errStartInvalid  = "invalid 'start_date'; use RFC3339 or YYYY-MM-DD"
	errEndInvalid    = "invalid 'end_date'; use RFC3339 or YYYY-MM-DD"
	errPistonInvalid = "invalid 'piston_number'"
	errLimitInvalid  = "invalid 'limit'"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      List telemetry
// @Description  Filter events by device, piston, action and date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). A date-only end_date is treated as end of that day.
// @Tags         telemetry
// @Produce      json
// @Param        device_id      query     string  false  "Device id or physical device_id"
// @Param        piston_number  query     int     false  "Piston number (1-8)"
// @Param        action         query     string  false  "activate | deactivate or a raw event type"
// @Param        start_date     query     string  false  "Start of range"  example(2025-08-01)
// @Param        end_date       query     string  false  "End of range"    example(2025-08-31)
// @Param        limit          query     int     false  "Max events (default 100, max 1000)"
// @Success      200            {object}  models.TelemetryListResponse
// @Failure      400            {object}  models.ErrorResponse
// @Failure      401            {object}  models.ErrorResponse
// @Router       /api/telemetry [get]
// @Security     BearerAuth
func (h *Handler) getTelemetry(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	f, msg := parseTelemetryFilter(c)
	if msg != "" {
		jsonError(c, http.StatusBadRequest, msg)
		return
	}
	events, err := h.services.Telemetry.List(c.Request.Context(), uid, f)
	if err != nil {
		h.fail(c, err, "telemetry_list_failed", "user_id", uid, "filter", f)
		return
	}
	c.JSON(http.StatusOK, models.TelemetryListResponse{Count: len(events), Events: events})
}

// parseTelemetryFilter reads the query string. A non-empty message means
// the request is malformed.
func parseTelemetryFilter(c *gin.Context) (models.TelemetryFilter, string) {
	f := models.TelemetryFilter{
		DeviceID: strings.TrimSpace(c.Query("device_id")),
		Action:   strings.TrimSpace(c.Query("action")),
	}
	var err error
	if qs := c.Query("piston_number"); qs != "" {
		if f.PistonNumber, err = strconv.Atoi(qs); err != nil {
			return f, errPistonInvalid
		}
	}
	if qs := c.Query("limit"); qs != "" {
		if f.Limit, err = strconv.Atoi(qs); err != nil || f.Limit < 0 {
			return f, errLimitInvalid
		}
	}
	if qs := c.Query("start_date"); qs != "" {
		if f.StartDate, err = parseQueryTime(qs); err != nil {
			return f, errStartInvalid
		}
	}
	if qs := c.Query("end_date"); qs != "" {
		if f.EndDate, err = parseQueryTime(qs); err != nil {
			return f, errEndInvalid
		}
		// If the user didn't include a time component, treat the end as the end of that day.
		if isDateOnly(qs) {
			f.EndDate = f.EndDate.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	return f, ""
}

func parseQueryTime(s string) (time.Time, error) {
	// Try multiple accepted formats, normalizing to UTC.
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
