package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userId"

func (h *Handler) userIdMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		jsonError(c, http.StatusUnauthorized, "missing Authorization header")
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		jsonError(c, http.StatusUnauthorized, "invalid Authorization header format")
		return
	}

	userId, err := h.services.ParseToken(parts[1])
	if err != nil {
		jsonError(c, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	// store in Gin context
	c.Set(userIDKey, userId)
	c.Next()
}

// currentUser returns the id stored by userIdMiddleware.
func currentUser(c *gin.Context) (string, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		jsonError(c, http.StatusUnauthorized, errMissingUserID)
		return "", false
	}
	id, ok := v.(string)
	if !ok || id == "" {
		jsonError(c, http.StatusUnauthorized, errMissingUserID)
		return "", false
	}
	return id, true
}
