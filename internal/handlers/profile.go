package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/vidstream/internal/middleware/auth"
	"github.com/Skotchmaster/vidstream/internal/models"
)

func (h *AuthHandler) CurrentUser(c echo.Context) error {
	user, err := h.Svc.CurrentUser(c.Request().Context(), authmw.UserID(c))
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "current user fetched", user)
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	userID := authmw.UserID(c)
	if err := h.Svc.ChangePassword(c.Request().Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		return serviceError(err)
	}

	h.publishUserEvent(c, "password_changed", &models.User{ID: userID})

	return respond(c, http.StatusOK, "password changed successfully", nil)
}

func (h *AuthHandler) UpdateAccount(c echo.Context) error {
	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	user, err := h.Svc.UpdateAccount(c.Request().Context(), authmw.UserID(c), req.FullName, req.Email)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "account updated successfully", user)
}

func (h *AuthHandler) UpdateAvatar(c echo.Context) error {
	url, err := h.uploadFormFile(c, "avatar")
	if err != nil {
		return err
	}

	user, err := h.Svc.UpdateImage(c.Request().Context(), authmw.UserID(c), "avatar", url)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "avatar updated successfully", user)
}

func (h *AuthHandler) UpdateCoverImage(c echo.Context) error {
	url, err := h.uploadFormFile(c, "coverImage")
	if err != nil {
		return err
	}

	user, err := h.Svc.UpdateImage(c.Request().Context(), authmw.UserID(c), "cover_image", url)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "cover image updated successfully", user)
}
