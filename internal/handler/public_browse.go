package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/service"
)

// PublicHandler serves the unauthenticated browse endpoints.  These are
// the routes behind the Redis response cache.
type PublicHandler struct {
	Booking *service.Booking
}

func NewPublicHandler(b *service.Booking) *PublicHandler {
	if b == nil {
		panic("nil booking service passed to NewPublicHandler")
	}
	return &PublicHandler{Booking: b}
}

// Availability lists per-slot capacity and remaining seats for one date,
// e.g. GET /v1/availability?date=2026-09-12.
func (h *PublicHandler) Availability(c echo.Context) error {
	slots, err := h.Booking.Availability(c.Request().Context(), c.QueryParam("date"))
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":  c.QueryParam("date"),
		"slots": slots,
	})
}
