package queue

import (
	"strings"
	"testing"
)

func TestNewReservationEvent(t *testing.T) {
	ev := NewReservationEvent(EventReservationCreated)
	if ev.Kind != EventReservationCreated {
		t.Errorf("expected kind %s, got %s", EventReservationCreated, ev.Kind)
	}
	if ev.EventID == "" {
		t.Error("expected event id to be assigned")
	}
	if ev.OccurredAt == "" {
		t.Error("expected occurred_at to be assigned")
	}
	other := NewReservationEvent(EventReservationCreated)
	if other.EventID == ev.EventID {
		t.Error("event ids must be unique per event")
	}
}

func TestFormatEventLine(t *testing.T) {
	ev := ReservationEvent{
		EventID:            "e-1",
		Kind:               EventReservationCancelled,
		OrderID:            7,
		OrderNo:            "RS202601021504051234",
		CustomerID:         3,
		ReservationDate:    "2026-01-02",
		TimeSlotTemplateID: 2,
		Status:             "CANCELLED",
		TotalAmountCents:   14000,
		OccurredAt:         "2026-01-02T15:04:05Z",
	}
	line := FormatEventLine(ev)
	if !strings.HasSuffix(line, "\n") {
		t.Error("line must end with a newline")
	}
	for _, want := range []string{"reservation.cancelled", "order_no=RS202601021504051234", "status=CANCELLED", "total=14000 cents"} {
		if !strings.Contains(line, want) {
			t.Errorf("line missing %q: %s", want, line)
		}
	}
}
