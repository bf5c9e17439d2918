package handlers

import (
	"net/http"

	"piston_control/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	avatarField      = "avatar"
	errAvatarMissing = "multipart field 'avatar' is required"
	msgAvatarDeleted = "avatar deleted"
)

// @Summary      Get profile
// @Tags         user
// @Produce      json
// @Success      200  {object}  models.UserResponse
// @Router       /api/user/profile [get]
// @Security     BearerAuth
func (h *Handler) getProfile(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	u, err := h.services.Profile.Get(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err, "profile_get_failed", "user_id", uid)
		return
	}
	c.JSON(http.StatusOK, models.UserResponse{User: *u})
}

// @Summary      Update profile
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        body  body      models.UpdateProfileRequest  true  "Fields to change"
// @Success      200   {object}  models.UserResponse
// @Failure      400   {object}  models.ErrorResponse
// @Router       /api/user/profile [put]
// @Security     BearerAuth
func (h *Handler) updateProfile(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var input models.UpdateProfileRequest
	if ok := h.bindValid(c, &input); !ok {
		return
	}
	u, err := h.services.Profile.Update(c.Request.Context(), uid, input)
	if err != nil {
		h.fail(c, err, "profile_update_failed", "user_id", uid)
		return
	}
	c.JSON(http.StatusOK, models.UserResponse{User: *u})
}

// @Summary      Update preferences
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        body  body      models.UpdatePreferencesRequest  true  "Arbitrary JSON object"
// @Success      200   {object}  models.UserResponse
// @Failure      400   {object}  models.ErrorResponse
// @Router       /api/user/preferences [put]
// @Security     BearerAuth
func (h *Handler) updatePreferences(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var input models.UpdatePreferencesRequest
	if ok := h.bindValid(c, &input); !ok {
		return
	}
	u, err := h.services.Profile.UpdatePreferences(c.Request.Context(), uid, input.Preferences)
	if err != nil {
		h.fail(c, err, "preferences_update_failed", "user_id", uid)
		return
	}
	c.JSON(http.StatusOK, models.UserResponse{User: *u})
}

// @Summary      Upload avatar
// @Tags         user
// @Accept       multipart/form-data
// @Produce      json
// @Param        avatar  formData  file  true  "Image"
// @Success      200     {object}  models.AvatarResponse
// @Failure      400     {object}  models.ErrorResponse
// @Failure      413     {object}  models.ErrorResponse
// @Router       /api/user/avatar [post]
// @Security     BearerAuth
func (h *Handler) uploadAvatar(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	fh, err := c.FormFile(avatarField)
	if err != nil {
		jsonError(c, http.StatusBadRequest, errAvatarMissing)
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err, "avatar_open_failed", "user_id", uid)
		return
	}
	defer f.Close()

	url, err := h.services.Profile.SaveAvatar(c.Request.Context(), uid, fh.Filename, f)
	if err != nil {
		h.fail(c, err, "avatar_save_failed", "user_id", uid)
		return
	}
	c.JSON(http.StatusOK, models.AvatarResponse{AvatarURL: url})
}

// @Summary      Delete avatar
// @Tags         user
// @Produce      json
// @Success      200  {object}  models.MessageResponse
// @Router       /api/user/avatar [delete]
// @Security     BearerAuth
func (h *Handler) deleteAvatar(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.services.Profile.DeleteAvatar(c.Request.Context(), uid); err != nil {
		h.fail(c, err, "avatar_delete_failed", "user_id", uid)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: msgAvatarDeleted})
}
