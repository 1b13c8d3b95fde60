package model

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// User is a marketplace account. Registration creates it as pending; an
// admin approves it into a regular user.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Roles.
const (
	RoleAdmin   = "admin"
	RoleUser    = "user"
	RolePending = "pending"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// RoleAtLeast checks if role meets or exceeds the minimum required role.
// Pending accounts rank below every role that can use the marketplace.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin:   3,
		RoleUser:    2,
		RolePending: 1,
	}
	return levels[role] > 0 && levels[role] >= levels[minimum]
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ValidatePassword checks the password length policy.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}
	return nil
}
