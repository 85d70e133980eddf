package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/repository"
	"github.com/iliyamo/venue-reservation/internal/service"
)

// OperatorHandler serves the back-office order endpoints.  Operators see
// every order and drive the confirm/cancel/amend lifecycle.
type OperatorHandler struct {
	Booking   *service.Booking
	Snapshots *repository.SnapshotRepo
}

func NewOperatorHandler(b *service.Booking, snaps *repository.SnapshotRepo) *OperatorHandler {
	if b == nil || snaps == nil {
		panic("nil dependency passed to NewOperatorHandler")
	}
	return &OperatorHandler{Booking: b, Snapshots: snaps}
}

type confirmReq struct {
	RequiresPayment bool   `json:"requires_payment"`
	Remark          string `json:"remark"`
}

// ConfirmOrder accepts a pending order.  With requires_payment the order
// waits for the gateway callback; without it the order completes at once.
func (h *OperatorHandler) ConfirmOrder(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	view, err := h.Booking.Confirm(c.Request().Context(), id, req.RequiresPayment, req.Remark, uid)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

type operatorCancelReq struct {
	Reason     string `json:"reason"`
	ReasonType string `json:"reason_type"`
}

// CancelOrder cancels any non-terminal order on behalf of the venue.
func (h *OperatorHandler) CancelOrder(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	var req operatorCancelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ReasonType == "" {
		req.ReasonType = "OPERATOR_DECISION"
	}
	view, err := h.Booking.Cancel(c.Request().Context(), id, req.Reason, req.ReasonType, uid)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// UpdateOrder amends contact details of a non-terminal order.
func (h *OperatorHandler) UpdateOrder(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	var req service.UpdateInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	view, err := h.Booking.Update(c.Request().Context(), id, req, uid)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// GetOrder returns any order with items and the full log trail.
func (h *OperatorHandler) GetOrder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	view, err := h.Booking.FindByID(c.Request().Context(), id)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// SearchOrders pages through orders filtered by the query parameters
// customer_id, slot_id, status, date and order_no.
func (h *OperatorHandler) SearchOrders(c echo.Context) error {
	var f repository.OrderFilter
	if v := c.QueryParam("customer_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer_id"})
		}
		f.CustomerID = n
	}
	if v := c.QueryParam("slot_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot_id"})
		}
		f.TimeSlotTemplateID = n
	}
	f.Status = model.OrderStatus(c.QueryParam("status"))
	f.ReservationDate = c.QueryParam("date")
	f.OrderNo = c.QueryParam("order_no")

	page := repository.Page{
		Number: atoiDefault(c.QueryParam("page"), 1),
		Size:   atoiDefault(c.QueryParam("page_size"), 20),
	}

	views, total, err := h.Booking.FindByConditions(c.Request().Context(), f, page)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"orders":    views,
		"total":     total,
		"page":      page.Number,
		"page_size": page.Size,
	})
}

// SlotSnapshots returns the inventory snapshot history for one slot and
// date, newest first, e.g. GET /v1/admin/slots/3/snapshots?date=2026-09-12.
// Each row records capacity and occupancy at the instant a booking
// committed, so the trail shows how the slot filled up.
func (h *OperatorHandler) SlotSnapshots(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	date := c.QueryParam("date")
	if date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date required"})
	}
	snaps, err := h.Snapshots.ListBySlot(c.Request().Context(), date, id)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"slot_id":   id,
		"date":      date,
		"snapshots": snaps,
	})
}

func atoiDefault(s string, d int) int {
	if s == "" {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return d
}
