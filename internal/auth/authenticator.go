// Package auth resolves who is acting on the sharing engine: password
// accounts hashed with bcrypt, and signed tokens naming the acting user.
package auth

import (
	"context"

	"github.com/mmynk/cardsplit/internal/models"
)

// Authenticator defines the interface for authentication implementations.
type Authenticator interface {
	// Register creates a new user account with the given email and credential.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
