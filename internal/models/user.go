package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents a registered account holder.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique, stored normalized).
	Email string

	// DisplayName is the name shown on reports.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last account change.
	UpdatedAt int64
}

// NewUser creates a User with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        NormalizeEmail(email),
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TrustedContact is a participant without an account, invited informally by a
// card owner. A contact belongs to exactly one owner.
type TrustedContact struct {
	// ID is the unique identifier for the contact (UUID format).
	ID string

	// OwnerID is the user who created the contact.
	OwnerID string

	// Name is the display name given by the owner.
	Name string

	// Email is the contact's email address (stored normalized).
	// Shared with a User's email, it merges both into one identity on reports.
	Email string

	// CreatedAt is the Unix timestamp when the contact was created.
	CreatedAt int64
}

// NormalizeEmail lowercases and trims an email address so it can be used as
// an identity key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
