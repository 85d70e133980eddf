package model

import "time"

// The catalog entities below are external collaborators of the booking
// engine: the service only ever reads them to resolve references and take
// price/name snapshots.  Their admin CRUD lives outside this repository.

// ScenarioPackage is a bookable themed venue scenario.
type ScenarioPackage struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PriceTier is a priced level of a scenario package.  The tier price is
// the base of an order's total amount.
type PriceTier struct {
	ID         uint64    `json:"id"`
	PackageID  uint64    `json:"package_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TimeSlotTemplate defines a daily bookable window with finite capacity.
// A (template, date) pair is the contended resource of the whole engine:
// the number of non-cancelled orders for the pair must never exceed
// Capacity.
type TimeSlotTemplate struct {
	ID        uint64    `json:"id"`
	StartTime string    `json:"start_time"` // HH:MM
	EndTime   string    `json:"end_time"`   // HH:MM
	Capacity  uint32    `json:"capacity"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddonItem is an optional extra customers may attach to a reservation.
// Orders copy its name and price at booking time (see ReservationItem).
type AddonItem struct {
	ID         uint64    `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SlotAvailability is the read-only projection served to browsing
// customers: one row per active slot template for a given date.
type SlotAvailability struct {
	TimeSlotTemplateID uint64 `json:"time_slot_template_id"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	Capacity           uint32 `json:"capacity"`
	Occupied           uint32 `json:"occupied"`
	Remaining          uint32 `json:"remaining"`
}
