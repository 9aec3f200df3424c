package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/mmynk/cardsplit/internal/auth"
	"github.com/mmynk/cardsplit/internal/errs"
	"github.com/mmynk/cardsplit/internal/models"
)

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)
	token, err := jwtManager.Generate(&models.User{ID: "u-1", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var gotUser, gotEmail string
	cmd := func(ctx context.Context, args []string) error {
		gotUser, gotEmail = GetUserID(ctx), GetEmail(ctx)
		return nil
	}

	t.Run("valid token sets user", func(t *testing.T) {
		if err := RequireAuth(jwtManager, token)(cmd)(context.Background(), nil); err != nil {
			t.Fatalf("command failed: %v", err)
		}
		if gotUser != "u-1" || gotEmail != "alice@example.com" {
			t.Errorf("context user = %q/%q, want u-1/alice@example.com", gotUser, gotEmail)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		err := RequireAuth(jwtManager, "")(cmd)(context.Background(), nil)
		if !errors.Is(err, auth.ErrMissingToken) {
			t.Errorf("got %v, want ErrMissingToken", err)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		err := RequireAuth(jwtManager, "not-a-jwt")(cmd)(context.Background(), nil)
		if !errors.Is(err, auth.ErrInvalidToken) {
			t.Errorf("got %v, want ErrInvalidToken", err)
		}
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Interceptor {
		return func(next Command) Command {
			return func(ctx context.Context, args []string) error {
				order = append(order, name)
				return next(ctx, args)
			}
		}
	}

	cmd := Chain(func(context.Context, []string) error {
		order = append(order, "cmd")
		return nil
	}, tag("outer"), tag("inner"))

	if err := cmd(context.Background(), nil); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if fmt.Sprint(order) != "[outer inner cmd]" {
		t.Errorf("order = %v, want [outer inner cmd]", order)
	}
}

func TestLoggingPassesErrorThrough(t *testing.T) {
	want := errs.NotFound("item", "i-1")
	err := Logging("unsplit")(func(context.Context, []string) error { return want })(context.Background(), nil)
	if !errors.Is(err, want) {
		t.Errorf("got %v, want %v", err, want)
	}
	if !isExpected(err) {
		t.Error("NotFoundError should be an expected failure")
	}
	if isExpected(errors.New("disk full")) {
		t.Error("plain error should not be an expected failure")
	}
}

func TestLoggingRecordsAuthenticatedUser(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	jwtManager := auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)
	token, err := jwtManager.Generate(&models.User{ID: "u-1", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	tests := []struct {
		name     string
		token    string
		wantUser string
	}{
		{"valid token", token, "u-1"},
		{"missing token", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			cmd := Chain(func(context.Context, []string) error { return nil },
				Logging("whoami"), RequireAuth(jwtManager, tt.token))
			_ = cmd(context.Background(), nil)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
			}
			if entry["user_id"] != tt.wantUser {
				t.Errorf("user_id = %v, want %q", entry["user_id"], tt.wantUser)
			}
			if entry["command"] != "whoami" {
				t.Errorf("command = %v, want whoami", entry["command"])
			}
		})
	}
}
