package handler

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/service"
)

// PaymentHandler receives the payment gateway's completion callback.
type PaymentHandler struct {
	Booking *service.Booking
}

func NewPaymentHandler(b *service.Booking) *PaymentHandler {
	if b == nil {
		panic("nil booking service passed to NewPaymentHandler")
	}
	return &PaymentHandler{Booking: b}
}

type paymentNotifyReq struct {
	OrderNo   string `json:"order_no"`
	PaymentID string `json:"payment_id"`
}

// Notify applies a payment completion to the referenced order.  Gateways
// redeliver notifications until they see a 2xx, so a duplicate of an
// already-applied payment answers 200 without changing anything.  The
// optional PAYMENT_WEBHOOK_TOKEN shared secret gates the endpoint.
func (h *PaymentHandler) Notify(c echo.Context) error {
	if want := os.Getenv("PAYMENT_WEBHOOK_TOKEN"); want != "" {
		if c.Request().Header.Get("X-Webhook-Token") != want {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
	}
	var req paymentNotifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	view, err := h.Booking.CompletePayment(c.Request().Context(), req.OrderNo, req.PaymentID)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"order_no": view.OrderNo,
		"status":   view.Status,
	})
}
