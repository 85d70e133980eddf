// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/handler"
	"github.com/iliyamo/venue-reservation/internal/middleware"
)

// RegisterRoutes registers the unauthenticated infrastructure routes.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the session endpoints.  Register, login, refresh
// and refresh-token logout live under /v1/auth and need no session.
// /v1/me and /v1/logout require a valid access token: the latter is the
// revoke-all-sessions form of logout, which identifies the user from the
// bearer token instead of a refresh token in the body.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/logout", a.Logout)
}

// RegisterPublic registers the guest browse endpoints.  The cache
// middleware is applied here and nowhere else: availability is read-heavy
// and tolerates a few seconds of staleness, order data does not.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/availability", p.Availability, cache)
}

// RegisterPayment registers the gateway callback.  It is authenticated by
// a shared webhook token inside the handler, not by JWT: the gateway has
// no user session.
func RegisterPayment(e *echo.Echo, p *handler.PaymentHandler) {
	e.POST("/v1/payments/notify", p.Notify)
}
