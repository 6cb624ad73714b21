package models

import "time"

// MaxUsernameLength is the upper bound on usernames. Tokens resolving to a
// longer name are treated as invalid and evicted.
const MaxUsernameLength = 32

// Session maps an opaque bearer token to a username. A user may hold several
// concurrent sessions (multiple tabs / devices).
type Session struct {
	Token     string    `db:"token" json:"-"`
	Username  string    `db:"username" json:"username"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// User is a platform account. Role "staff" grants access to the staff room
// and the moderation endpoints.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// RoleStaff is the role string backing the staff checks.
const RoleStaff = "staff"
