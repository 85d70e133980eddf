package model

import "time"

// Role names stored in users.role and carried in the JWT "role" claim.
const (
	RoleCustomer = "CUSTOMER"
	RoleOperator = "OPERATOR"
)

// User is an account able to call the API: customers book sessions,
// operators confirm/cancel/amend them.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique, stored lower-cased.
//  PasswordHash – bcrypt hash; the plain password is never persisted.
//  Name         – display name, copied into operation-log entries.
//  Role         – CUSTOMER or OPERATOR.
//  IsActive     – whether the account may log in.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshToken models a row in refresh_tokens.  Only the SHA-256 hash of
// the raw token is stored.
type RefreshToken struct {
	ID        uint64     `json:"id"`
	UserID    uint64     `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
