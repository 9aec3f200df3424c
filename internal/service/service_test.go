package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/cardsplit/internal/metrics"
	"github.com/mmynk/cardsplit/internal/models"
	"github.com/mmynk/cardsplit/internal/storage/sqlite"
)

// testEnv is a fresh database with an owner, a card and an invoice.
type testEnv struct {
	store    *sqlite.SQLiteStore
	metrics  *metrics.Recorder
	sharing  *SharingService
	invoices *InvoiceService

	owner   *models.User
	bob     *models.User
	carol   *models.User
	alice   *models.TrustedContact // owned by owner
	invoice *models.Invoice
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	rec := metrics.NewRecorder()
	env := &testEnv{
		store:    store,
		metrics:  rec,
		sharing:  NewSharingService(store, rec),
		invoices: NewInvoiceService(store),
	}

	env.owner = createUser(t, store, "owner@example.com", "Owner")
	env.bob = createUser(t, store, "bob@example.com", "Bob")
	env.carol = createUser(t, store, "carol@example.com", "Carol")
	env.alice = createContact(t, store, env.owner.ID, "Alice", "alice@example.com")

	card, err := env.invoices.CreateCard(ctx, env.owner.ID, "Visa")
	if err != nil {
		t.Fatalf("CreateCard failed: %v", err)
	}
	env.invoice, err = env.invoices.CreateInvoice(ctx, env.owner.ID, card.ID, "2024-03")
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	return env
}

func createUser(t *testing.T, store *sqlite.SQLiteStore, email, name string) *models.User {
	t.Helper()
	u := models.NewUser(email, name, "hash")
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return u
}

func createContact(t *testing.T, store *sqlite.SQLiteStore, ownerID, name, email string) *models.TrustedContact {
	t.Helper()
	c := &models.TrustedContact{
		ID:        name + "-" + ownerID[:8],
		OwnerID:   ownerID,
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().Unix(),
	}
	if err := store.CreateContact(context.Background(), c); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}
	return c
}

func (env *testEnv) addItem(t *testing.T, amount string) *models.InvoiceItem {
	t.Helper()
	item, err := env.invoices.AddItem(context.Background(), env.owner.ID, env.invoice.ID, "purchase", dec(amount))
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	return item
}

func (env *testEnv) split(t *testing.T, itemID string, reqs ...models.AllocationRequest) []models.Share {
	t.Helper()
	shares, err := env.sharing.CreateSharesFromRequests(context.Background(), itemID, reqs)
	if err != nil {
		t.Fatalf("CreateSharesFromRequests failed: %v", err)
	}
	return shares
}

func req(p models.Participant, pct string) models.AllocationRequest {
	return models.AllocationRequest{Participant: p, Percentage: dec(pct)}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", label, got.StringFixed(2), want)
	}
}
