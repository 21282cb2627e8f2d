package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/vidstream/internal/logging"
	"github.com/Skotchmaster/vidstream/internal/media"
	authmw "github.com/Skotchmaster/vidstream/internal/middleware/auth"
	"github.com/Skotchmaster/vidstream/internal/models"
	"github.com/Skotchmaster/vidstream/internal/mykafka"
	"github.com/Skotchmaster/vidstream/internal/service"
)

type AuthHandler struct {
	Svc      *service.SessionService
	Media    media.Store
	Producer *mykafka.Producer
}

// Register handles the multipart registration form: text fields plus required
// avatar and coverImage file parts, both stored through the media store
// before the user record is created.
func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()

	in := service.RegisterInput{
		Username: c.FormValue("username"),
		Email:    c.FormValue("email"),
		FullName: c.FormValue("fullName"),
		Password: c.FormValue("password"),
	}

	avatarURL, err := h.uploadFormFile(c, "avatar")
	if err != nil {
		return err
	}
	coverURL, err := h.uploadFormFile(c, "coverImage")
	if err != nil {
		return err
	}
	in.Avatar = avatarURL
	in.CoverImage = coverURL

	user, err := h.Svc.Register(ctx, in)
	if err != nil {
		return serviceError(err)
	}

	h.publishUserEvent(c, "user_registered", user)

	return respond(c, http.StatusCreated, "user registered successfully", user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	result, err := h.Svc.Login(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return serviceError(err)
	}

	setSessionCookies(c, &result.TokenPair)
	h.publishUserEvent(c, "user_logged_in", result.User)

	return respond(c, http.StatusOK, "user logged in successfully", echo.Map{
		"user":         result.User,
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	userID := authmw.UserID(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	if err := h.Svc.Logout(c.Request().Context(), userID); err != nil {
		return serviceError(err)
	}

	clearSessionCookies(c)
	h.publishUserEvent(c, "user_logged_out", &models.User{ID: userID})

	return respond(c, http.StatusOK, "user logged out successfully", nil)
}

// RefreshToken rotates the token pair. The refresh token comes from the
// cookie, falling back to the request body for non-browser clients.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	presented := ""
	if ck, err := c.Cookie(refreshCookieName); err == nil {
		presented = ck.Value
	}
	if presented == "" {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := c.Bind(&req); err == nil {
			presented = req.RefreshToken
		}
	}
	if presented == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	result, err := h.Svc.Refresh(c.Request().Context(), presented)
	if err != nil {
		return serviceError(err)
	}

	setSessionCookies(c, &result.TokenPair)

	return respond(c, http.StatusOK, "tokens refreshed", echo.Map{
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
	})
}

func (h *AuthHandler) uploadFormFile(c echo.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("please provide %s file", field))
	}

	src, err := fh.Open()
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("cannot read %s file", field))
	}
	defer src.Close()

	url, err := h.Media.Upload(c.Request().Context(), fh.Filename, src, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("media upload failed", "field", field, "error", err)
		return "", echo.NewHTTPError(http.StatusInternalServerError, "media upload failed")
	}
	return url, nil
}

func (h *AuthHandler) publishUserEvent(c echo.Context, eventType string, user *models.User) {
	event := map[string]interface{}{
		"type":     eventType,
		"userID":   user.ID,
		"username": user.Username,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(user.ID), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "type", eventType, "error", err)
	}
}
