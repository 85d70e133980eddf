// Package service contains the reservation booking engine: validation,
// catalog resolution, total computation, order-number allocation and the
// order state machine, orchestrated over narrow storage interfaces so the
// business rules stay testable without a database.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/queue"
	"github.com/iliyamo/venue-reservation/internal/repository"
	"github.com/iliyamo/venue-reservation/internal/utils"
)

// OrderStore is the persistence contract the booking engine needs for the
// order aggregate.  The MySQL implementation lives in internal/repository;
// tests substitute an in-memory fake with the same locking semantics.
type OrderStore interface {
	CreateWithAdmission(ctx context.Context, o *model.ReservationOrder, capacity uint32) error
	Mutate(ctx context.Context, id uint64, fn repository.MutateFn) (*model.ReservationOrder, error)
	MutateByOrderNumber(ctx context.Context, orderNo string, fn repository.MutateFn) (*model.ReservationOrder, error)
	GetByID(ctx context.Context, id uint64) (*model.ReservationOrder, error)
	GetByOrderNumber(ctx context.Context, orderNo string) (*model.ReservationOrder, error)
	ListByCustomer(ctx context.Context, customerID uint64) ([]*model.ReservationOrder, error)
	FindByConditions(ctx context.Context, f repository.OrderFilter, p repository.Page) ([]*model.ReservationOrder, int64, error)
	CountActiveBySlot(ctx context.Context, date string, slotID uint64) (uint32, error)
}

// CatalogStore resolves the external catalog references a booking names.
type CatalogStore interface {
	PackageByID(ctx context.Context, id uint64) (*model.ScenarioPackage, error)
	TierByID(ctx context.Context, id uint64) (*model.PriceTier, error)
	TimeSlotTemplateByID(ctx context.Context, id uint64) (*model.TimeSlotTemplate, error)
	AddonItemByID(ctx context.Context, id uint64) (*model.AddonItem, error)
	ListActiveSlots(ctx context.Context) ([]model.TimeSlotTemplate, error)
}

// UserDirectory looks up display names for operation-log attribution.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// EventPublisher emits reservation events after a state change commits.
// Publishing is best effort and never fails the booking operation.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// ValidationError reports malformed input naming the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

const (
	dateLayout = "2006-01-02"

	// Order-number collisions within one second are improbable but
	// possible; a handful of retries with fresh numbers is plenty before
	// giving up.
	maxOrderNoAttempts = 3
)

var phoneRE = regexp.MustCompile(`^\+?[0-9][0-9\-]{4,18}[0-9]$`)

// Booking orchestrates the reservation lifecycle.
type Booking struct {
	orders  OrderStore
	catalog CatalogStore
	users   UserDirectory
	events  EventPublisher
}

// NewBooking wires the booking engine.  users and events may be nil: log
// attribution then falls back to ids and events are skipped.
func NewBooking(orders OrderStore, catalog CatalogStore, users UserDirectory, events EventPublisher) *Booking {
	if orders == nil || catalog == nil {
		panic("nil store passed to NewBooking")
	}
	return &Booking{orders: orders, catalog: catalog, users: users, events: events}
}

// CreateItemInput is one requested add-on line.
type CreateItemInput struct {
	AddonID  uint64 `json:"addon_id"`
	Quantity uint32 `json:"quantity"`
}

// CreateInput carries everything a customer submits when booking.
type CreateInput struct {
	PackageID          uint64            `json:"package_id"`
	TierID             uint64            `json:"tier_id"`
	TimeSlotTemplateID uint64            `json:"time_slot_template_id"`
	ReservationDate    string            `json:"reservation_date"`
	ContactName        string            `json:"contact_name"`
	ContactPhone       string            `json:"contact_phone"`
	Remark             string            `json:"remark"`
	Items              []CreateItemInput `json:"items"`
}

// UpdateInput carries the contact-field amendment of an order.  Nil
// pointers leave the corresponding field unchanged.
type UpdateInput struct {
	ContactName  *string `json:"contact_name"`
	ContactPhone *string `json:"contact_phone"`
	Remark       *string `json:"remark"`
}

// OrderView is the full order projection returned to callers: the
// aggregate plus the display label for its status.
type OrderView struct {
	model.ReservationOrder
	StatusLabel string `json:"status_label"`
}

func newOrderView(o *model.ReservationOrder) *OrderView {
	return &OrderView{ReservationOrder: *o, StatusLabel: o.Status.Label()}
}

// Create books a new reservation.  It validates input, resolves every
// catalog reference, computes the total, allocates an order number and
// persists the aggregate in one admission-gated transaction.  On
// insufficient inventory nothing is written.  Order-number collisions are
// retried with fresh numbers.
func (s *Booking) Create(ctx context.Context, customerID uint64, req CreateInput) (*OrderView, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	if _, err := s.catalog.PackageByID(ctx, req.PackageID); err != nil {
		return nil, err
	}
	tier, err := s.catalog.TierByID(ctx, req.TierID)
	if err != nil {
		return nil, err
	}
	if tier.PackageID != req.PackageID {
		return nil, &ValidationError{Field: "tier_id", Reason: "tier does not belong to the selected package"}
	}
	slot, err := s.catalog.TimeSlotTemplateByID(ctx, req.TimeSlotTemplateID)
	if err != nil {
		return nil, err
	}
	if !slot.IsActive {
		return nil, &ValidationError{Field: "time_slot_template_id", Reason: "slot is not bookable"}
	}

	items := make([]model.ReservationItem, 0, len(req.Items))
	total := tier.PriceCents
	for _, in := range req.Items {
		addon, err := s.catalog.AddonItemByID(ctx, in.AddonID)
		if err != nil {
			return nil, err
		}
		subtotal := addon.PriceCents * int64(in.Quantity)
		items = append(items, model.ReservationItem{
			AddonID:        addon.ID,
			NameSnapshot:   addon.Name,
			UnitPriceCents: addon.PriceCents,
			Quantity:       in.Quantity,
			SubtotalCents:  subtotal,
		})
		total += subtotal
	}

	now := time.Now().UTC()
	o := &model.ReservationOrder{
		CustomerID:         customerID,
		PackageID:          req.PackageID,
		TierID:             req.TierID,
		TimeSlotTemplateID: req.TimeSlotTemplateID,
		ReservationDate:    req.ReservationDate,
		StartTime:          slot.StartTime,
		ContactName:        req.ContactName,
		ContactPhone:       req.ContactPhone,
		Remark:             req.Remark,
		TotalAmountCents:   total,
		Status:             model.StatusPending,
		Items:              items,
		Logs: []model.OperationLog{{
			Kind:         model.OpCreate,
			OperatorID:   customerID,
			OperatorName: s.displayName(ctx, customerID),
			Before:       model.ChangeSet{},
			After:        model.ChangeSet{model.KeyStatus: string(model.StatusPending)},
			CreatedAt:    now,
		}},
	}

	for attempt := 0; ; attempt++ {
		no, err := utils.NewOrderNumber()
		if err != nil {
			return nil, err
		}
		o.OrderNo = no
		err = s.orders.CreateWithAdmission(ctx, o, slot.Capacity)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateOrderNumber) && attempt+1 < maxOrderNoAttempts {
			continue
		}
		return nil, err
	}

	s.publish(ctx, queue.EventReservationCreated, o)
	return newOrderView(o), nil
}

// Confirm moves a PENDING order to CONFIRMED (payment required) or
// straight to COMPLETED (no payment).
func (s *Booking) Confirm(ctx context.Context, orderID uint64, requiresPayment bool, remark string, operatorID uint64) (*OrderView, error) {
	opName := s.displayName(ctx, operatorID)
	o, err := s.orders.Mutate(ctx, orderID, func(o *model.ReservationOrder) (*model.OperationLog, error) {
		before, after, err := o.Confirm(requiresPayment)
		if err != nil {
			return nil, err
		}
		return &model.OperationLog{
			Kind:         model.OpConfirm,
			OperatorID:   operatorID,
			OperatorName: opName,
			Before:       before,
			After:        after,
			Remark:       remark,
			CreatedAt:    time.Now().UTC(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if o.Status == model.StatusCompleted {
		s.publish(ctx, queue.EventReservationCompleted, o)
	}
	return newOrderView(o), nil
}

// Cancel moves a non-terminal order to CANCELLED.  The slot's occupancy
// drops immediately because admission counting excludes CANCELLED orders;
// no separate release step exists.
func (s *Booking) Cancel(ctx context.Context, orderID uint64, reason, reasonType string, operatorID uint64) (*OrderView, error) {
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Reason: "required"}
	}
	opName := s.displayName(ctx, operatorID)
	o, err := s.orders.Mutate(ctx, orderID, func(o *model.ReservationOrder) (*model.OperationLog, error) {
		before, after, err := o.Cancel(reason, reasonType, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		return &model.OperationLog{
			Kind:         model.OpCancel,
			OperatorID:   operatorID,
			OperatorName: opName,
			Before:       before,
			After:        after,
			Remark:       reason,
			CreatedAt:    time.Now().UTC(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventReservationCancelled, o)
	return newOrderView(o), nil
}

// Update amends the contact fields of a non-terminal order.  When nothing
// actually changed no audit entry is written.
func (s *Booking) Update(ctx context.Context, orderID uint64, in UpdateInput, operatorID uint64) (*OrderView, error) {
	if in.ContactName != nil && *in.ContactName == "" {
		return nil, &ValidationError{Field: "contact_name", Reason: "must not be empty"}
	}
	if in.ContactPhone != nil && !phoneRE.MatchString(*in.ContactPhone) {
		return nil, &ValidationError{Field: "contact_phone", Reason: "malformed phone number"}
	}
	opName := s.displayName(ctx, operatorID)
	o, err := s.orders.Mutate(ctx, orderID, func(o *model.ReservationOrder) (*model.OperationLog, error) {
		before, after, err := o.UpdateContact(in.ContactName, in.ContactPhone, in.Remark)
		if err != nil {
			return nil, err
		}
		if len(after) == 0 {
			return nil, nil // nothing changed
		}
		return &model.OperationLog{
			Kind:         model.OpUpdate,
			OperatorID:   operatorID,
			OperatorName: opName,
			Before:       before,
			After:        after,
			CreatedAt:    time.Now().UTC(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return newOrderView(o), nil
}

// CompletePayment applies a payment-gateway completion callback, looked up
// by the external order number.  Redelivery of the notification that
// already completed the order is a silent no-op; any other state is an
// invalid transition.
func (s *Booking) CompletePayment(ctx context.Context, orderNo, paymentID string) (*OrderView, error) {
	if !utils.IsOrderNumber(orderNo) {
		return nil, &ValidationError{Field: "order_no", Reason: "malformed order number"}
	}
	if paymentID == "" {
		return nil, &ValidationError{Field: "payment_id", Reason: "required"}
	}
	applied := false
	o, err := s.orders.MutateByOrderNumber(ctx, orderNo, func(o *model.ReservationOrder) (*model.OperationLog, error) {
		before, after, err := o.CompletePayment(paymentID, time.Now().UTC())
		if errors.Is(err, model.ErrPaymentAlreadyApplied) {
			return nil, nil // duplicate delivery, keep the committed state
		}
		if err != nil {
			return nil, err
		}
		applied = true
		return &model.OperationLog{
			Kind:      model.OpPayment,
			Before:    before,
			After:     after,
			CreatedAt: time.Now().UTC(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if applied {
		s.publish(ctx, queue.EventReservationCompleted, o)
	}
	return newOrderView(o), nil
}

// FindByID returns the full order view including the log trail.
func (s *Booking) FindByID(ctx context.Context, orderID uint64) (*OrderView, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return newOrderView(o), nil
}

// FindByOrderNumber returns the full order view looked up by its external
// order number.
func (s *Booking) FindByOrderNumber(ctx context.Context, orderNo string) (*OrderView, error) {
	o, err := s.orders.GetByOrderNumber(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	return newOrderView(o), nil
}

// FindByUser lists all orders of one customer, newest first.
func (s *Booking) FindByUser(ctx context.Context, customerID uint64) ([]*OrderView, error) {
	orders, err := s.orders.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	views := make([]*OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderView(o))
	}
	return views, nil
}

// FindByConditions returns one page of orders matching the filter and the
// total match count.
func (s *Booking) FindByConditions(ctx context.Context, f repository.OrderFilter, p repository.Page) ([]*OrderView, int64, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, &ValidationError{Field: "status", Reason: "unknown status"}
	}
	if f.ReservationDate != "" {
		if _, err := time.Parse(dateLayout, f.ReservationDate); err != nil {
			return nil, 0, &ValidationError{Field: "reservation_date", Reason: "expected YYYY-MM-DD"}
		}
	}
	orders, total, err := s.orders.FindByConditions(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	views := make([]*OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderView(o))
	}
	return views, total, nil
}

// Availability reports per-slot capacity, occupancy and remaining seats
// for one date across all active slot templates.
func (s *Booking) Availability(ctx context.Context, date string) ([]model.SlotAvailability, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	slots, err := s.catalog.ListActiveSlots(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		occupied, err := s.orders.CountActiveBySlot(ctx, date, slot.ID)
		if err != nil {
			return nil, err
		}
		remaining := uint32(0)
		if occupied < slot.Capacity {
			remaining = slot.Capacity - occupied
		}
		out = append(out, model.SlotAvailability{
			TimeSlotTemplateID: slot.ID,
			StartTime:          slot.StartTime,
			EndTime:            slot.EndTime,
			Capacity:           slot.Capacity,
			Occupied:           occupied,
			Remaining:          remaining,
		})
	}
	return out, nil
}

func validateCreate(req CreateInput) error {
	if req.PackageID == 0 {
		return &ValidationError{Field: "package_id", Reason: "required"}
	}
	if req.TierID == 0 {
		return &ValidationError{Field: "tier_id", Reason: "required"}
	}
	if req.TimeSlotTemplateID == 0 {
		return &ValidationError{Field: "time_slot_template_id", Reason: "required"}
	}
	if _, err := time.Parse(dateLayout, req.ReservationDate); err != nil {
		return &ValidationError{Field: "reservation_date", Reason: "expected YYYY-MM-DD"}
	}
	if req.ContactName == "" {
		return &ValidationError{Field: "contact_name", Reason: "required"}
	}
	if !phoneRE.MatchString(req.ContactPhone) {
		return &ValidationError{Field: "contact_phone", Reason: "malformed phone number"}
	}
	for _, it := range req.Items {
		if it.AddonID == 0 {
			return &ValidationError{Field: "items", Reason: "addon_id required"}
		}
		if it.Quantity < 1 {
			return &ValidationError{Field: "items", Reason: "quantity must be at least 1"}
		}
	}
	return nil
}

// displayName resolves a user's display name for log attribution.  It
// falls back to a synthetic name so a directory outage never blocks a
// booking operation.
func (s *Booking) displayName(ctx context.Context, userID uint64) string {
	if userID == 0 {
		return "system"
	}
	if s.users == nil {
		return fmt.Sprintf("user-%d", userID)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u.Name == "" {
		return fmt.Sprintf("user-%d", userID)
	}
	return u.Name
}

// publish emits an event for a committed state change.  Failures are
// logged inside the publisher and ignored here: the booking itself has
// already committed.
func (s *Booking) publish(ctx context.Context, kind string, o *model.ReservationOrder) {
	if s.events == nil {
		return
	}
	ev := queue.NewReservationEvent(kind)
	ev.OrderID = o.ID
	ev.OrderNo = o.OrderNo
	ev.CustomerID = o.CustomerID
	ev.ReservationDate = o.ReservationDate
	ev.TimeSlotTemplateID = o.TimeSlotTemplateID
	ev.Status = string(o.Status)
	ev.TotalAmountCents = o.TotalAmountCents
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Printf("booking: publish %s for order %d failed: %v", kind, o.ID, err)
	}
}
