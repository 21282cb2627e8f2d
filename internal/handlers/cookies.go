package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/vidstream/internal/service"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

// CreateCookie builds a session cookie with the fixed attribute set. Clearing
// MUST go through the same function so attributes always match the ones used
// when setting.
func CreateCookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func setSessionCookies(c echo.Context, pair *service.TokenPair) {
	c.SetCookie(CreateCookie(accessCookieName, pair.AccessToken, pair.AccessExp))
	c.SetCookie(CreateCookie(refreshCookieName, pair.RefreshToken, pair.RefreshExp))
}

func clearSessionCookies(c echo.Context) {
	expired := time.Now().Add(-time.Hour)
	c.SetCookie(CreateCookie(accessCookieName, "", expired))
	c.SetCookie(CreateCookie(refreshCookieName, "", expired))
}
