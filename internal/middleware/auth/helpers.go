package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/vidstream/internal/tokens"
)

const (
	claimsKey = "authClaims"
	userIDKey = "userID"
)

func setUserContext(c echo.Context, claims *tokens.AccessClaims) {
	c.Set(userIDKey, claims.ID)
	c.Set(claimsKey, claims)
}

// UserID returns the authenticated user id, zero when unauthenticated.
func UserID(c echo.Context) uint {
	if v, ok := c.Get(userIDKey).(uint); ok {
		return v
	}
	return 0
}

func Claims(c echo.Context) *tokens.AccessClaims {
	if v, ok := c.Get(claimsKey).(*tokens.AccessClaims); ok {
		return v
	}
	return nil
}
