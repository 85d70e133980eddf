package model

import "time"

// OperationKind enumerates the state-changing operations recorded in the
// audit trail.  One log entry is appended per operation; entries are never
// mutated or deleted once written.
type OperationKind string

const (
	OpCreate  OperationKind = "CREATE"
	OpConfirm OperationKind = "CONFIRM"
	OpCancel  OperationKind = "CANCEL"
	OpUpdate  OperationKind = "UPDATE"
	OpPayment OperationKind = "PAYMENT"
)

// ChangeSet keys.  The before/after payload of a log entry is restricted
// to this documented set so entries remain machine-checkable instead of an
// open-ended untyped bag.
const (
	KeyStatus          = "status"
	KeyRequiresPayment = "requires_payment"
	KeyPaymentID       = "payment_id"
	KeyContactName     = "contact_name"
	KeyContactPhone    = "contact_phone"
	KeyRemark          = "remark"
	KeyCancelReason    = "cancel_reason"
)

// ChangeSet holds the values of the fields an operation changed, keyed by
// the constants above.  All values are stringified for uniform storage.
type ChangeSet map[string]string

// OperationLog is one append-only audit record for a reservation order.
//
// Fields:
//  ID           – primary key identifier.
//  OrderID      – order the entry belongs to.
//  Kind         – which operation was performed.
//  OperatorID   – user who performed it (the customer on CREATE, zero for
//                 system-originated entries such as payment callbacks).
//  OperatorName – display name captured at write time.
//  Before       – values of the changed fields before the operation.
//  After        – values of the changed fields after the operation.
//  Remark       – free-text note supplied by the operator.
//  CreatedAt    – when the entry was written.
type OperationLog struct {
	ID           uint64        `json:"id"`
	OrderID      uint64        `json:"order_id"`
	Kind         OperationKind `json:"kind"`
	OperatorID   uint64        `json:"operator_id"`
	OperatorName string        `json:"operator_name"`
	Before       ChangeSet     `json:"before"`
	After        ChangeSet     `json:"after"`
	Remark       string        `json:"remark,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}
