package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-service/internal/handler"
	"github.com/iliyamo/user-service/internal/middleware"
)

// RegisterRoutes registers the operational routes that never require
// authentication: the health check and, when metrics is non-nil, the
// Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, metrics http.Handler) {
	e.GET("/healthz", handler.Health(db))
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterUsers registers the user endpoints under prefix. Login and
// register are public and pass through limit; every other route requires a
// valid bearer token checked by tokens before the handler runs.
//
// Middleware is attached per route: Group.Use would also wrap the group's
// not-found catch-all and answer unknown paths with 401.
func RegisterUsers(e *echo.Echo, prefix string, h *handler.UserHandler, tokens middleware.TokenValidator, limit echo.MiddlewareFunc) {
	var public []echo.MiddlewareFunc
	if limit != nil {
		public = append(public, limit)
	}
	g := e.Group(prefix)
	g.POST("/login", h.Login, public...)
	g.POST("/register", h.Register, public...)

	bearer := middleware.BearerAuth(tokens)
	g.POST("/change-password", h.ChangePassword, bearer)
	g.POST("/delete", h.Delete, bearer)
	g.PUT("/update", h.Update, bearer)
	g.GET("/all-users", h.GetAll, bearer)
	g.GET("/:id", h.GetByID, bearer)
}
