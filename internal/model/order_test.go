package model

import (
	"errors"
	"testing"
	"time"
)

func orderIn(status OrderStatus) *ReservationOrder {
	o := &ReservationOrder{
		ID:               1,
		OrderNo:          "RS202601021504059999",
		Status:           status,
		ContactName:      "Alice",
		ContactPhone:     "13800000000",
		TotalAmountCents: 14000,
	}
	if status == StatusCompleted {
		pid := "pay-001"
		o.PaymentID = &pid
	}
	return o
}

func TestConfirmFromPending(t *testing.T) {
	o := orderIn(StatusPending)
	before, after, err := o.Confirm(true)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if o.Status != StatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", o.Status)
	}
	if !o.RequiresPayment {
		t.Error("requires_payment flag not set")
	}
	if before[KeyStatus] != string(StatusPending) || after[KeyStatus] != string(StatusConfirmed) {
		t.Errorf("change set wrong: before=%v after=%v", before, after)
	}
}

func TestConfirmWithoutPaymentCompletesDirectly(t *testing.T) {
	o := orderIn(StatusPending)
	_, after, err := o.Confirm(false)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if o.Status != StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", o.Status)
	}
	if o.PaymentID != nil {
		t.Error("no payment fields expected on a free completion")
	}
	if after[KeyStatus] != string(StatusCompleted) {
		t.Errorf("after change set wrong: %v", after)
	}
}

func TestCancelSetsReasonAndTime(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	o := orderIn(StatusConfirmed)
	_, after, err := o.Cancel("resource conflict", "OPERATOR", now)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if o.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", o.Status)
	}
	if o.CancelReason == nil || *o.CancelReason != "resource conflict" {
		t.Error("cancel reason not recorded")
	}
	if o.CancelledAt == nil || !o.CancelledAt.Equal(now) {
		t.Error("cancelled_at not recorded")
	}
	if after[KeyCancelReason] != "resource conflict" {
		t.Errorf("after change set wrong: %v", after)
	}
}

func TestCompletePaymentFromConfirmed(t *testing.T) {
	o := orderIn(StatusConfirmed)
	_, after, err := o.CompletePayment("pay-123", time.Now())
	if err != nil {
		t.Fatalf("complete payment failed: %v", err)
	}
	if o.Status != StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", o.Status)
	}
	if o.PaymentID == nil || *o.PaymentID != "pay-123" {
		t.Error("payment id not recorded")
	}
	if after[KeyPaymentID] != "pay-123" {
		t.Errorf("after change set wrong: %v", after)
	}
}

func TestDuplicatePaymentIsNoOp(t *testing.T) {
	o := orderIn(StatusCompleted)
	_, _, err := o.CompletePayment("pay-001", time.Now())
	if !errors.Is(err, ErrPaymentAlreadyApplied) {
		t.Fatalf("expected ErrPaymentAlreadyApplied, got %v", err)
	}
}

func TestMismatchedDuplicatePaymentRejected(t *testing.T) {
	o := orderIn(StatusCompleted)
	_, _, err := o.CompletePayment("pay-other", time.Now())
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if ite.Current != StatusCompleted || ite.Requested != StatusCompleted {
		t.Errorf("wrong pair: %s -> %s", ite.Current, ite.Requested)
	}
}

// TestTransitionClosure walks every (state, operation) pair and checks the
// observed outcome against the transition table: disallowed pairs must be
// rejected with the correct current/requested statuses.
func TestTransitionClosure(t *testing.T) {
	all := []OrderStatus{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}
	type op struct {
		name      string
		run       func(o *ReservationOrder) error
		sources   map[OrderStatus]bool
		requested func(from OrderStatus) OrderStatus
	}
	name := "Bob"
	ops := []op{
		{
			name: "confirm",
			run: func(o *ReservationOrder) error {
				_, _, err := o.Confirm(true)
				return err
			},
			sources:   map[OrderStatus]bool{StatusPending: true},
			requested: func(OrderStatus) OrderStatus { return StatusConfirmed },
		},
		{
			name: "cancel",
			run: func(o *ReservationOrder) error {
				_, _, err := o.Cancel("test", "", time.Now())
				return err
			},
			sources:   map[OrderStatus]bool{StatusPending: true, StatusConfirmed: true},
			requested: func(OrderStatus) OrderStatus { return StatusCancelled },
		},
		{
			name: "update",
			run: func(o *ReservationOrder) error {
				_, _, err := o.UpdateContact(&name, nil, nil)
				return err
			},
			sources:   map[OrderStatus]bool{StatusPending: true, StatusConfirmed: true},
			requested: func(from OrderStatus) OrderStatus { return from },
		},
		{
			name: "completePayment",
			run: func(o *ReservationOrder) error {
				_, _, err := o.CompletePayment("pay-x", time.Now())
				return err
			},
			sources:   map[OrderStatus]bool{StatusConfirmed: true},
			requested: func(OrderStatus) OrderStatus { return StatusCompleted },
		},
	}
	for _, operation := range ops {
		for _, from := range all {
			o := orderIn(from)
			err := operation.run(o)
			if operation.sources[from] {
				if err != nil {
					t.Errorf("%s from %s: unexpected rejection: %v", operation.name, from, err)
				}
				continue
			}
			var ite *InvalidTransitionError
			if !errors.As(err, &ite) {
				t.Errorf("%s from %s: expected InvalidTransitionError, got %v", operation.name, from, err)
				continue
			}
			if ite.Current != from {
				t.Errorf("%s from %s: error names current=%s", operation.name, from, ite.Current)
			}
			if want := operation.requested(from); ite.Requested != want {
				t.Errorf("%s from %s: error names requested=%s, want %s", operation.name, from, ite.Requested, want)
			}
		}
	}
}

func TestUpdateContactRecordsOnlyChangedFields(t *testing.T) {
	o := orderIn(StatusPending)
	phone := "13900000000"
	same := o.ContactName
	before, after, err := o.UpdateContact(&same, &phone, nil)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(before) != 1 || len(after) != 1 {
		t.Fatalf("expected exactly one changed field, before=%v after=%v", before, after)
	}
	if before[KeyContactPhone] != "13800000000" || after[KeyContactPhone] != phone {
		t.Errorf("phone change not captured: before=%v after=%v", before, after)
	}
}

func TestItemsSubtotal(t *testing.T) {
	o := orderIn(StatusPending)
	o.Items = []ReservationItem{
		{UnitPriceCents: 2000, Quantity: 2, SubtotalCents: 4000},
		{UnitPriceCents: 1500, Quantity: 1, SubtotalCents: 1500},
	}
	if got := o.ItemsSubtotalCents(); got != 5500 {
		t.Errorf("expected 5500, got %d", got)
	}
}
