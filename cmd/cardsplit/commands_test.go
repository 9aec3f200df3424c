package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/cardsplit/internal/auth"
	"github.com/mmynk/cardsplit/internal/config"
	"github.com/mmynk/cardsplit/internal/errs"
	"github.com/mmynk/cardsplit/internal/metrics"
	"github.com/mmynk/cardsplit/internal/service"
	"github.com/mmynk/cardsplit/internal/storage/sqlite"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "cli.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{JWTSecret: "0123456789abcdef0123456789abcdef", TokenTTL: time.Hour, LogLevel: "error"}
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var out bytes.Buffer
	return &app{
		cfg:        cfg,
		jwtManager: jwtManager,
		sharing:    service.NewSharingService(store, metrics.NewRecorder()),
		invoices:   service.NewInvoiceService(store),
		accounts:   service.NewAccountService(auth.NewPasswordAuthenticator(store), jwtManager, store, logger),
		out:        &out,
	}, &out
}

// runCmd runs one command and returns its trimmed output.
func runCmd(t *testing.T, a *app, out *bytes.Buffer, args ...string) string {
	t.Helper()
	out.Reset()
	if err := a.dispatch(context.Background(), args); err != nil {
		t.Fatalf("%s failed: %v", args[0], err)
	}
	return strings.TrimSpace(out.String())
}

func field(t *testing.T, output, key string) string {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		if v, ok := strings.CutPrefix(line, key+" "); ok {
			return v
		}
	}
	t.Fatalf("no %q in output %q", key, output)
	return ""
}

func TestCommandFlow(t *testing.T) {
	a, out := newTestApp(t)

	reg := runCmd(t, a, out, "register", "-email", "owner@example.com", "-name", "Owner", "-password", "owner-pass")
	a.token = field(t, reg, "token")

	bobOut := runCmd(t, a, out, "register", "-email", "bob@example.com", "-name", "Bob", "-password", "bob-pass-1")
	bobID := field(t, bobOut, "user")
	bobToken := field(t, bobOut, "token")

	contact := runCmd(t, a, out, "contact-add", "-name", "Alice", "-email", "alice@example.com")
	card := runCmd(t, a, out, "card-add", "-name", "Visa")
	inv := runCmd(t, a, out, "invoice-add", "-card", card, "-period", "2024-03")
	item := runCmd(t, a, out, "item-add", "-invoice", inv, "-amount", "100.00", "-desc", "Market")

	split := runCmd(t, a, out, "split", "-item", item, "user:"+bobID+"=0.33*", contact+"=67%")
	if !strings.Contains(split, "33.00") || !strings.Contains(split, "67.00") {
		t.Errorf("split output missing amounts:\n%s", split)
	}

	if got := runCmd(t, a, out, "user-share", "-invoice", inv); got != "0.00" {
		t.Errorf("owner share = %s, want 0.00", got)
	}
	if got := runCmd(t, a, out, "user-share", "-invoice", inv, "-user", bobID); got != "33.00" {
		t.Errorf("bob share = %s, want 33.00", got)
	}

	parts := runCmd(t, a, out, "participants", "-invoice", inv)
	if !strings.Contains(parts, "bob@example.com") || !strings.Contains(parts, "alice@example.com") {
		t.Errorf("participants output:\n%s", parts)
	}

	// Bob may not settle Alice's share.
	shares := runCmd(t, a, out, "shares", "-item", item)
	var aliceShare string
	for _, line := range strings.Split(shares, "\n") {
		if strings.Contains(line, contact) {
			aliceShare = strings.Fields(line)[0]
		}
	}
	a.token = bobToken
	err := a.dispatch(context.Background(), []string{"pay", "-method", "pix", aliceShare})
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Errorf("pay by bob = %v, want ErrUnauthorized", err)
	}
	if exitCode(err) != 5 {
		t.Errorf("exit code = %d, want 5", exitCode(err))
	}
}

func TestCommandFlow_StrangerRefused(t *testing.T) {
	a, out := newTestApp(t)

	owner := runCmd(t, a, out, "register", "-email", "owner@example.com", "-name", "Owner", "-password", "owner-pass")
	ownerID := field(t, owner, "user")
	ownerToken := field(t, owner, "token")
	bobID := field(t, runCmd(t, a, out, "register", "-email", "bob@example.com", "-name", "Bob", "-password", "bob-pass-1"), "user")
	strangerToken := field(t, runCmd(t, a, out, "register", "-email", "eve@example.com", "-name", "Eve", "-password", "eve-pass-1"), "token")

	a.token = ownerToken
	card := runCmd(t, a, out, "card-add", "-name", "Visa")
	inv := runCmd(t, a, out, "invoice-add", "-card", card, "-period", "2024-03")
	item := runCmd(t, a, out, "item-add", "-invoice", inv, "-amount", "100.00")
	runCmd(t, a, out, "split", "-item", item, "user:"+ownerID+"=0.5", "user:"+bobID+"=0.2")

	a.token = strangerToken
	tests := []struct {
		name string
		args []string
	}{
		{"split", []string{"split", "-item", item, "user:" + bobID + "=1"}},
		{"unsplit", []string{"unsplit", "-item", item}},
		{"participants", []string{"participants", "-invoice", inv}},
		{"invoice-add", []string{"invoice-add", "-card", card, "-period", "2024-04"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := a.dispatch(context.Background(), tt.args)
			if !errors.Is(err, errs.ErrUnauthorized) {
				t.Fatalf("%s by stranger = %v, want ErrUnauthorized", tt.name, err)
			}
			if exitCode(err) != 5 {
				t.Errorf("exit code = %d, want 5", exitCode(err))
			}
			if out.Len() != 0 {
				t.Errorf("stranger got output:\n%s", out.String())
			}
		})
	}

	a.token = ownerToken
	shares := runCmd(t, a, out, "shares", "-item", item)
	if !strings.Contains(shares, "50.00") || !strings.Contains(shares, "20.00") {
		t.Errorf("owner's split was changed:\n%s", shares)
	}
}

func TestDispatchLogsUser(t *testing.T) {
	a, out := newTestApp(t)

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	reg := runCmd(t, a, out, "register", "-email", "owner@example.com", "-name", "Owner", "-password", "owner-pass")
	userID := field(t, reg, "user")
	a.token = field(t, reg, "token")

	logs.Reset()
	runCmd(t, a, out, "whoami")

	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("failed to decode log line %q: %v", line, err)
		}
		if entry["command"] != "whoami" {
			continue
		}
		found = true
		if entry["user_id"] != userID {
			t.Errorf("user_id = %v, want %s", entry["user_id"], userID)
		}
	}
	if !found {
		t.Errorf("no command log for whoami in:\n%s", logs.String())
	}
}

func TestDispatchErrors(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	if err := a.dispatch(ctx, []string{"frobnicate"}); !errors.Is(err, errUsage) {
		t.Errorf("unknown command = %v, want errUsage", err)
	}
	if err := a.dispatch(ctx, []string{"whoami"}); !errors.Is(err, auth.ErrMissingToken) {
		t.Errorf("whoami without token = %v, want ErrMissingToken", err)
	}

	a.cfg.JWTSecret = ""
	if err := a.dispatch(ctx, []string{"login", "-email", "x@example.com", "-password", "whatever1"}); err == nil {
		t.Error("login without JWT secret should fail")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errUsage, 2},
		{errs.Invalid("i", "percentage", "2", "too big"), 3},
		{errs.NotFound("item", "i"), 4},
		{auth.ErrInvalidToken, 5},
		{&errs.ConflictError{Op: "replace"}, 6},
		{errors.New("disk full"), 1},
	}

	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
