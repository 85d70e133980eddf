package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/handler"
	"github.com/iliyamo/venue-reservation/internal/middleware"
	"github.com/iliyamo/venue-reservation/internal/model"
)

// RegisterCustomer registers the customer-scoped booking endpoints under
// /v1.  All routes require a valid JWT with the CUSTOMER role; ownership
// of the addressed order is enforced inside the handlers.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer),
	)
	g.POST("/orders", h.CreateOrder)
	g.GET("/my-orders", h.ListOrders)
	g.GET("/orders/:id", h.GetOrder)
	g.POST("/orders/:id/cancel", h.CancelOrder)
}
