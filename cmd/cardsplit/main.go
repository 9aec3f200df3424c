package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/mmynk/cardsplit/internal/auth"
	"github.com/mmynk/cardsplit/internal/cli"
	"github.com/mmynk/cardsplit/internal/config"
	"github.com/mmynk/cardsplit/internal/errs"
	"github.com/mmynk/cardsplit/internal/metrics"
	"github.com/mmynk/cardsplit/internal/service"
	"github.com/mmynk/cardsplit/internal/storage/sqlite"
	"github.com/mmynk/cardsplit/pkg/logging"
)

const usage = `usage: cardsplit [-db PATH] [-token TOKEN] <command> [flags]

accounts:
  register      -email E -name N [-password P]
  login         -email E [-password P]
  whoami
  contact-add   -name N [-email E]

invoices:
  card-add      -name N
  invoice-add   -card ID -period YYYY-MM
  item-add      -invoice ID -amount A [-desc D]
  item-edit     -item ID -amount A
  invoice       -invoice ID

sharing:
  split         -item ID <user|contact>:<id>=<pct>[*]...
  split         -item ID -even <user|contact>:<id>...
  unsplit       -item ID
  shares        [-item ID | -user ID]
  pay           [-method M] [-at DATE] SHARE_ID...
  unpay         -share ID
  recalculate

reports:
  user-share    -invoice ID [-user ID]
  participants  -invoice ID
`

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file for local development (ignore errors in production)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.Setup(cfg.SlogLevel())

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		return 1
	}

	global, args, err := cli.ParseGlobal(os.Args[1:])
	if err != nil {
		if !errors.Is(err, cli.ErrMissingCommand) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	if global.DBPath != "" {
		cfg.DBPath = global.DBPath
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		return 1
	}
	defer store.Close()
	slog.Debug("Storage initialized", "database", cfg.DBPath)

	var jwtManager *auth.JWTManager
	if cfg.JWTSecret != "" {
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	}

	rec := metrics.NewRecorder()
	a := &app{
		cfg:        cfg,
		token:      global.Token,
		jwtManager: jwtManager,
		sharing:    service.NewSharingService(store, rec),
		invoices:   service.NewInvoiceService(store),
		accounts:   service.NewAccountService(auth.NewPasswordAuthenticator(store), jwtManager, store, logger),
		out:        os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = a.dispatch(ctx, args)
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, usage)
	case err != nil:
		fmt.Fprintln(os.Stderr, "error:", err)
	}

	if cfg.PushgatewayURL != "" {
		if perr := rec.Push(cfg.PushgatewayURL, "cardsplit"); perr != nil {
			slog.Warn("Metrics push failed", "url", cfg.PushgatewayURL, "error", perr)
		}
	}

	return exitCode(err)
}

// exitCode maps command errors to process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return 2
	case errors.Is(err, errs.ErrValidation):
		return 3
	case errors.Is(err, errs.ErrNotFound):
		return 4
	case errors.Is(err, errs.ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		return 5
	case errors.Is(err, errs.ErrConflict):
		return 6
	default:
		return 1
	}
}
