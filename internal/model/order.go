package model

import (
	"fmt"
	"strconv"
	"time"
)

// OrderStatus enumerates the lifecycle states of a reservation order.
// PENDING is the initial state assigned at booking time.  COMPLETED and
// CANCELLED are terminal: once reached, the order row never changes again
// and only the operation-log trail may still grow.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether no further transition is permitted from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is one of the four known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Label returns the human-readable display label for a status.  Unknown
// values fall back to the raw string so broken rows remain visible.
func (s OrderStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending confirmation"
	case StatusConfirmed:
		return "Confirmed, awaiting payment"
	case StatusCompleted:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// InvalidTransitionError is returned when an operation is attempted from a
// state that is not a valid source for it.  It names both the current and
// the requested target status so callers can report the exact business
// reason instead of a generic failure.
type InvalidTransitionError struct {
	Current   OrderStatus
	Requested OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.Current, e.Requested)
}

// ErrPaymentAlreadyApplied signals that a payment notification carried the
// same payment id that already completed the order.  Duplicate gateway
// deliveries are expected and callers treat this as a no-op success.
var ErrPaymentAlreadyApplied = fmt.Errorf("payment already applied")

// ReservationItem is a purchased add-on line owned by an order.  Name and
// unit price are snapshots taken at booking time: later edits or deletions
// of the catalog add-on must never change a placed order.
//
// Fields:
//  ID             – primary key identifier.
//  OrderID        – owning reservation order.
//  AddonID        – catalog add-on the snapshot was taken from.
//  NameSnapshot   – add-on name as of booking time.
//  UnitPriceCents – unit price in cents as of booking time.
//  Quantity       – purchased quantity (>= 1).
//  SubtotalCents  – UnitPriceCents * Quantity.
//  CreatedAt      – creation timestamp.
type ReservationItem struct {
	ID             uint64    `json:"id"`
	OrderID        uint64    `json:"order_id"`
	AddonID        uint64    `json:"addon_id"`
	NameSnapshot   string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       uint32    `json:"quantity"`
	SubtotalCents  int64     `json:"subtotal_cents"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReservationOrder is the aggregate root of the booking engine.  It owns
// its add-on items and its append-only operation-log trail and enforces
// the status state machine through the transition methods below.  All
// transition methods mutate the receiver in place and return the before
// and after change sets for the audit entry the caller must append; they
// never touch storage themselves.
type ReservationOrder struct {
	ID                 uint64      `json:"id"`
	OrderNo            string      `json:"order_no"`
	CustomerID         uint64      `json:"customer_id"`
	PackageID          uint64      `json:"package_id"`
	TierID             uint64      `json:"tier_id"`
	TimeSlotTemplateID uint64      `json:"time_slot_template_id"`
	ReservationDate    string      `json:"reservation_date"` // YYYY-MM-DD
	StartTime          string      `json:"start_time"`       // HH:MM
	ContactName        string      `json:"contact_name"`
	ContactPhone       string      `json:"contact_phone"`
	Remark             string      `json:"remark"`
	TotalAmountCents   int64       `json:"total_amount_cents"`
	Status             OrderStatus `json:"status"`
	RequiresPayment    bool        `json:"requires_payment"`
	PaymentID          *string     `json:"payment_id,omitempty"`
	PaidAt             *time.Time  `json:"paid_at,omitempty"`
	CancelReason       *string     `json:"cancel_reason,omitempty"`
	CancelReasonType   *string     `json:"cancel_reason_type,omitempty"`
	CancelledAt        *time.Time  `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`

	Items []ReservationItem `json:"items"`
	Logs  []OperationLog    `json:"logs,omitempty"`
}

// ItemsSubtotalCents sums the subtotals of all owned add-on lines.
func (o *ReservationOrder) ItemsSubtotalCents() int64 {
	var sum int64
	for _, it := range o.Items {
		sum += it.SubtotalCents
	}
	return sum
}

// Confirm moves a PENDING order forward.  When payment is required the
// order becomes CONFIRMED and waits for the payment callback; otherwise it
// completes directly.  Any other source state is rejected.
func (o *ReservationOrder) Confirm(requiresPayment bool) (before, after ChangeSet, err error) {
	target := StatusCompleted
	if requiresPayment {
		target = StatusConfirmed
	}
	if o.Status != StatusPending {
		return nil, nil, &InvalidTransitionError{Current: o.Status, Requested: target}
	}
	before = ChangeSet{KeyStatus: string(o.Status), KeyRequiresPayment: strconv.FormatBool(o.RequiresPayment)}
	o.Status = target
	o.RequiresPayment = requiresPayment
	after = ChangeSet{KeyStatus: string(o.Status), KeyRequiresPayment: strconv.FormatBool(o.RequiresPayment)}
	return before, after, nil
}

// Cancel moves a non-terminal order to CANCELLED and records the reason.
// Cancelling an already terminal order is rejected, never silently
// accepted, so a duplicate cancel cannot mask a lost update.
func (o *ReservationOrder) Cancel(reason, reasonType string, now time.Time) (before, after ChangeSet, err error) {
	if o.Status.Terminal() {
		return nil, nil, &InvalidTransitionError{Current: o.Status, Requested: StatusCancelled}
	}
	before = ChangeSet{KeyStatus: string(o.Status)}
	o.Status = StatusCancelled
	o.CancelReason = &reason
	if reasonType != "" {
		o.CancelReasonType = &reasonType
	}
	t := now.UTC()
	o.CancelledAt = &t
	after = ChangeSet{KeyStatus: string(o.Status), KeyCancelReason: reason}
	return before, after, nil
}

// UpdateContact amends the contact fields of a non-terminal order.  Nil
// pointers leave the corresponding field untouched.  The returned change
// sets contain only the keys that actually changed; when nothing changed
// both are empty and the caller may skip the audit entry.
func (o *ReservationOrder) UpdateContact(name, phone, remark *string) (before, after ChangeSet, err error) {
	if o.Status.Terminal() {
		return nil, nil, &InvalidTransitionError{Current: o.Status, Requested: o.Status}
	}
	before = ChangeSet{}
	after = ChangeSet{}
	if name != nil && *name != o.ContactName {
		before[KeyContactName] = o.ContactName
		o.ContactName = *name
		after[KeyContactName] = o.ContactName
	}
	if phone != nil && *phone != o.ContactPhone {
		before[KeyContactPhone] = o.ContactPhone
		o.ContactPhone = *phone
		after[KeyContactPhone] = o.ContactPhone
	}
	if remark != nil && *remark != o.Remark {
		before[KeyRemark] = o.Remark
		o.Remark = *remark
		after[KeyRemark] = o.Remark
	}
	return before, after, nil
}

// CompletePayment moves a CONFIRMED order to COMPLETED and records the
// payment reference.  A duplicate notification carrying the payment id
// that already completed the order returns ErrPaymentAlreadyApplied so the
// caller can treat redelivery as a no-op; any other source state is an
// invalid transition.
func (o *ReservationOrder) CompletePayment(paymentID string, now time.Time) (before, after ChangeSet, err error) {
	if o.Status == StatusCompleted && o.PaymentID != nil && *o.PaymentID == paymentID {
		return nil, nil, ErrPaymentAlreadyApplied
	}
	if o.Status != StatusConfirmed {
		return nil, nil, &InvalidTransitionError{Current: o.Status, Requested: StatusCompleted}
	}
	before = ChangeSet{KeyStatus: string(o.Status)}
	o.Status = StatusCompleted
	o.PaymentID = &paymentID
	t := now.UTC()
	o.PaidAt = &t
	after = ChangeSet{KeyStatus: string(o.Status), KeyPaymentID: paymentID}
	return before, after, nil
}
