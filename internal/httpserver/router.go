package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mpetrashov/projecthub/internal/middleware"
)

type Deps struct {
	Auth     *AuthHTTP
	Projects *ProjectHTTP
	AuthMW   *middleware.SimpleAuth
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	auth := e.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/logout", d.Auth.Logout)

	projects := e.Group("/projects", d.AuthMW.RequireAuth)
	projects.GET("/search", d.Projects.SearchProjects)
	projects.POST("", d.Projects.Create)
	projects.GET("", d.Projects.List)
	projects.GET("/:id", d.Projects.Get)
	projects.PATCH("/:id", d.Projects.Patch)
	projects.DELETE("/:id", d.Projects.Delete)
}
