// Package auth implements credential checks, bearer tokens and the
// request middleware that resolves the caller identity.
package auth

import "time"

// Built-in role names. Owners are superusers in all but name.
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// User represents an account able to log in.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsSuperuser  bool
	IsActive     bool
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
