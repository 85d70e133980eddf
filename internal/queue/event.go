// Package queue defines the reservation domain events exchanged over the
// message broker, the publisher that emits them and the background
// consumer that turns them into audit log lines.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds carried in ReservationEvent.Kind.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationCompleted = "reservation.completed"
)

// ReservationEvent is published after a booking state change commits.  It
// carries enough for downstream consumers to log, notify or feed
// analytics without querying the primary database.
type ReservationEvent struct {
	EventID            string `json:"event_id"`
	Kind               string `json:"kind"`
	OrderID            uint64 `json:"order_id"`
	OrderNo            string `json:"order_no"`
	CustomerID         uint64 `json:"customer_id"`
	ReservationDate    string `json:"reservation_date"`
	TimeSlotTemplateID uint64 `json:"time_slot_template_id"`
	Status             string `json:"status"`
	TotalAmountCents   int64  `json:"total_amount_cents"`
	OccurredAt         string `json:"occurred_at"`
}

// NewReservationEvent assigns a fresh event id and the current UTC
// occurrence time.
func NewReservationEvent(kind string) ReservationEvent {
	return ReservationEvent{
		EventID:    uuid.NewString(),
		Kind:       kind,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
