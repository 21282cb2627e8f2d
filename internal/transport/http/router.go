package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/vidstream/internal/handlers"
	authmw "github.com/Skotchmaster/vidstream/internal/middleware/auth"
)

type Deps struct {
	DB           *gorm.DB
	AuthHandler  *handlers.AuthHandler
	AccessSecret []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	users := e.Group("/api/v1/users")

	users.POST("/register", d.AuthHandler.Register)
	users.POST("/login", d.AuthHandler.Login)
	users.POST("/refreshToken", d.AuthHandler.RefreshToken)

	secured := users.Group("", authmw.RequireLogin(d.AccessSecret))

	secured.POST("/logout", d.AuthHandler.Logout)
	secured.POST("/change-password", d.AuthHandler.ChangePassword)
	secured.GET("/current-user", d.AuthHandler.CurrentUser)
	secured.PATCH("/update-account", d.AuthHandler.UpdateAccount)
	secured.PATCH("/avatar", d.AuthHandler.UpdateAvatar)
	secured.PATCH("/cover-image", d.AuthHandler.UpdateCoverImage)
}
