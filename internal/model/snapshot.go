package model

import "time"

// SlotInventorySnapshot is a write-once audit record of a slot's capacity
// and occupancy taken at the moment a booking committed.  It links back to
// the order whose admission produced it so capacity disputes can be
// replayed from the trail.
//
// Fields:
//  ID                 – primary key identifier.
//  TimeSlotTemplateID – the slot template the booking was admitted into.
//  ReservationDate    – the concrete date of the slot (YYYY-MM-DD).
//  Capacity           – total capacity of the slot at commit time.
//  Occupied           – non-cancelled orders counted at commit time,
//                       including the causing order itself.
//  OrderID            – the order whose creation caused the snapshot.
//  CreatedAt          – when the snapshot was written.
type SlotInventorySnapshot struct {
	ID                 uint64    `json:"id"`
	TimeSlotTemplateID uint64    `json:"time_slot_template_id"`
	ReservationDate    string    `json:"reservation_date"`
	Capacity           uint32    `json:"capacity"`
	Occupied           uint32    `json:"occupied"`
	OrderID            uint64    `json:"order_id"`
	CreatedAt          time.Time `json:"created_at"`
}
