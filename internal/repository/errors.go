// Package repository implements MySQL persistence for the booking engine.
// The sentinel values below let higher layers distinguish business
// rejections from infrastructure failures without string matching.  All
// repositories assume UTC timestamps throughout.
package repository

import "errors"

// ErrOrderNotFound is returned when no reservation order matches the given
// id or order number.
var ErrOrderNotFound = errors.New("reservation order not found")

// Catalog lookups return a per-entity not-found so order creation can
// name the exact missing reference.
var (
	ErrPackageNotFound = errors.New("scenario package not found")
	ErrTierNotFound    = errors.New("price tier not found")
	ErrSlotNotFound    = errors.New("time slot template not found")
	ErrAddonNotFound   = errors.New("addon item not found")
)

// ErrInsufficientInventory is returned by the admission check when the
// slot already holds as many non-cancelled orders as its capacity allows.
// The enclosing transaction is rolled back and nothing is written.
var ErrInsufficientInventory = errors.New("insufficient slot inventory")

// ErrDuplicateOrderNumber is returned when the order insert hits the
// UNIQUE index on order_no.  Callers allocate a fresh number and retry.
var ErrDuplicateOrderNumber = errors.New("order number already taken")

// ErrEmailExists is returned when registering a user with a taken email.
var ErrEmailExists = errors.New("email already exists")
