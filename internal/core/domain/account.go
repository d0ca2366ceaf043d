package domain

import "time"

// Role classifies an account within the star topology.
type Role string

const (
	// RoleNormal accounts may only exchange messages with the privileged account.
	RoleNormal Role = "normal"
	// RolePrivileged is the single hub account that may talk to anyone.
	// Exactly one privileged account is expected to exist; that uniqueness is
	// an external data-integrity assumption, not enforced by this package.
	RolePrivileged Role = "privileged"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleNormal || r == RolePrivileged
}

// CanAddress is the addressing policy: a pair of accounts may exchange
// messages iff at least one side is privileged. Pure, no I/O.
func CanAddress(sender, receiver Role) bool {
	return sender == RolePrivileged || receiver == RolePrivileged
}

// Account models an authenticated actor in the system.
type Account struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email,omitempty" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         Role      `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}
