package utils

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// Order numbers are the externally visible natural key of a reservation:
// a fixed prefix, a second-precision UTC timestamp and a 4-digit random
// suffix, 20 characters total (e.g. RS202601021504051234).  The suffix
// keeps collisions within one second improbable but the generator alone
// does not guarantee uniqueness; the reservation_orders.order_no UNIQUE
// index does, and callers retry with a fresh number on a duplicate key.

const (
	orderNoPrefix    = "RS"
	orderNoTimestamp = "20060102150405"
	orderNoLen       = 20
)

// NewOrderNumber allocates a candidate order number from the current UTC
// time and a cryptographically random 4-digit suffix.
func NewOrderNumber() (string, error) {
	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	suffix := binary.BigEndian.Uint64(raw[:]) % 10000
	ts := time.Now().UTC().Format(orderNoTimestamp)
	buf := make([]byte, 0, orderNoLen)
	buf = append(buf, orderNoPrefix...)
	buf = append(buf, ts...)
	buf = append(buf,
		byte('0'+suffix/1000%10),
		byte('0'+suffix/100%10),
		byte('0'+suffix/10%10),
		byte('0'+suffix%10),
	)
	return string(buf), nil
}

// IsOrderNumber checks the literal shape of s: the fixed prefix followed
// by digits only, at the fixed total length.  It does not consult storage.
func IsOrderNumber(s string) bool {
	if len(s) != orderNoLen {
		return false
	}
	if s[:len(orderNoPrefix)] != orderNoPrefix {
		return false
	}
	for i := len(orderNoPrefix); i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
