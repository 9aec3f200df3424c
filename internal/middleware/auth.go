// Package middleware wraps CLI commands with the concerns every command
// shares: resolving the acting user and logging the outcome.
package middleware

import (
	"context"

	"github.com/mmynk/cardsplit/internal/auth"
)

// Command runs one subcommand with its remaining arguments.
type Command func(ctx context.Context, args []string) error

// Interceptor wraps a Command.
type Interceptor func(next Command) Command

// Chain applies interceptors so that the first one runs outermost.
func Chain(cmd Command, interceptors ...Interceptor) Command {
	for i := len(interceptors) - 1; i >= 0; i-- {
		cmd = interceptors[i](cmd)
	}
	return cmd
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// EmailKey is the context key for storing the authenticated user's email.
	EmailKey contextKey = "email"
)

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetEmail extracts the user email from the context.
// Returns empty string if not found.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// actor carries the authenticated user back out to interceptors that wrap
// RequireAuth, which only see the context they were called with.
type actor struct {
	userID string
}

const actorKey contextKey = "actor"

// withActor returns ctx carrying an empty actor that WithClaims will fill.
func withActor(ctx context.Context) (context.Context, *actor) {
	a := &actor{}
	return context.WithValue(ctx, actorKey, a), a
}

// WithClaims stores the token's user in ctx.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	if a, ok := ctx.Value(actorKey).(*actor); ok {
		a.userID = claims.UserID
	}
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	return context.WithValue(ctx, EmailKey, claims.Email)
}

// RequireAuth validates token and runs the command as its user.
// Commands fail with auth.ErrMissingToken or auth.ErrInvalidToken otherwise.
func RequireAuth(jwtManager *auth.JWTManager, token string) Interceptor {
	return func(next Command) Command {
		return func(ctx context.Context, args []string) error {
			claims, err := jwtManager.Validate(token)
			if err != nil {
				return err
			}
			return next(WithClaims(ctx, claims), args)
		}
	}
}
