package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mmynk/cardsplit/internal/auth"
	"github.com/mmynk/cardsplit/internal/errs"
)

// Logging logs every command run with its user, duration and outcome.
// Expected failures such as a rejected split are logged at warn level.
func Logging(name string) Interceptor {
	return func(next Command) Command {
		return func(ctx context.Context, args []string) error {
			start := time.Now()

			ctx, who := withActor(ctx)
			err := next(ctx, args)

			userID := who.userID
			if userID == "" {
				userID = GetUserID(ctx)
			}
			duration := time.Since(start).Milliseconds()
			switch {
			case err == nil:
				slog.Info("Command ok",
					"command", name,
					"user_id", userID,
					"duration_ms", duration,
				)
			case isExpected(err):
				slog.Warn("Command rejected",
					"command", name,
					"error", err,
					"user_id", userID,
					"duration_ms", duration,
				)
			default:
				slog.Error("Command failed",
					"command", name,
					"error", err,
					"user_id", userID,
					"duration_ms", duration,
				)
			}

			return err
		}
	}
}

func isExpected(err error) bool {
	for _, target := range []error{
		errs.ErrValidation,
		errs.ErrNotFound,
		errs.ErrUnauthorized,
		errs.ErrConflict,
		auth.ErrInvalidCredentials,
		auth.ErrInvalidToken,
		auth.ErrMissingToken,
		auth.ErrEmailExists,
		auth.ErrWeakPassword,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
