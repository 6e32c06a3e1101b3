// Package users manages user accounts and their role assignments.
package users

import "time"

// User represents a user account for management.
type User struct {
	ID          int64
	Email       string
	Name        string
	IsSuperuser bool
	IsActive    bool
	Roles       []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
