package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/handler"
	"github.com/iliyamo/venue-reservation/internal/middleware"
	"github.com/iliyamo/venue-reservation/internal/model"
)

// RegisterOperator registers the back-office order endpoints under
// /v1/admin.  All routes require the OPERATOR role.
func RegisterOperator(e *echo.Echo, h *handler.OperatorHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOperator),
	)
	g.GET("/orders", h.SearchOrders)
	g.GET("/orders/:id", h.GetOrder)
	g.POST("/orders/:id/confirm", h.ConfirmOrder)
	g.POST("/orders/:id/cancel", h.CancelOrder)
	g.PATCH("/orders/:id", h.UpdateOrder)
	g.GET("/slots/:id/snapshots", h.SlotSnapshots)
}
