package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/service"
)

// CustomerHandler serves the customer-facing booking endpoints.  Every
// route resolves the customer from the JWT; customers can only ever see
// and mutate their own orders.
type CustomerHandler struct {
	Booking *service.Booking
}

func NewCustomerHandler(b *service.Booking) *CustomerHandler {
	if b == nil {
		panic("nil booking service passed to NewCustomerHandler")
	}
	return &CustomerHandler{Booking: b}
}

// CreateOrder books a reservation for the authenticated customer.
func (h *CustomerHandler) CreateOrder(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req service.CreateInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	view, err := h.Booking.Create(c.Request().Context(), uid, req)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}

// ListOrders returns the authenticated customer's orders, newest first.
func (h *CustomerHandler) ListOrders(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	views, err := h.Booking.FindByUser(c.Request().Context(), uid)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": views})
}

// GetOrder returns one of the customer's own orders including its full
// operation-log trail.
func (h *CustomerHandler) GetOrder(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	view, err := h.Booking.FindByID(c.Request().Context(), id)
	if err != nil {
		return writeBookingError(c, err)
	}
	// Hide other customers' orders rather than confirming they exist.
	if view.CustomerID != uid {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "order not found"})
	}
	return c.JSON(http.StatusOK, view)
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// CancelOrder cancels one of the customer's own orders, freeing the slot
// seat immediately.
func (h *CustomerHandler) CancelOrder(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	existing, err := h.Booking.FindByID(c.Request().Context(), id)
	if err != nil {
		return writeBookingError(c, err)
	}
	if existing.CustomerID != uid {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "order not found"})
	}

	var req cancelReq
	_ = c.Bind(&req)
	if req.Reason == "" {
		req.Reason = "cancelled by customer"
	}
	view, err := h.Booking.Cancel(c.Request().Context(), id, req.Reason, "CUSTOMER_REQUEST", uid)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}
