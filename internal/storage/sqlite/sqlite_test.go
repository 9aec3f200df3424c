package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/cardsplit/internal/errs"
	"github.com/mmynk/cardsplit/internal/models"
	"github.com/mmynk/cardsplit/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// seedItem creates an owner, a card, an invoice and one item of the given amount.
func seedItem(t *testing.T, store *SQLiteStore, amount string) (*models.User, *models.InvoiceItem) {
	t.Helper()
	ctx := context.Background()

	owner := models.NewUser("owner@example.com", "Owner", "hash")
	if err := store.CreateUser(ctx, owner); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	card := &models.CreditCard{OwnerID: owner.ID, Name: "Visa"}
	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatalf("CreateCard failed: %v", err)
	}
	inv := &models.Invoice{CardID: card.ID, Period: "2024-03"}
	if err := store.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	item := &models.InvoiceItem{InvoiceID: inv.ID, Description: "Groceries", Amount: decimal.RequireFromString(amount)}
	if err := store.CreateItem(ctx, item); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	return owner, item
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	owner, item := seedItem(t, store, "100.00")
	bob := models.NewUser("Bob@Example.com ", "Bob", "hash")
	if err := store.CreateUser(ctx, bob); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	contact := &models.TrustedContact{ID: "contact-1", OwnerID: owner.ID, Name: "Alice", Email: "alice@example.com"}
	if err := store.CreateContact(ctx, contact); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	paidAt := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	shares := []models.Share{
		{
			ID: "share-1", ItemID: item.ID, Participant: models.UserParticipant(bob.ID), Position: 0,
			Percentage: decimal.RequireFromString("0.5"), Amount: decimal.RequireFromString("50.00"),
			Responsible: true, CreatedAt: created,
		},
		{
			ID: "share-2", ItemID: item.ID, Participant: models.ContactParticipant(contact.ID), Position: 1,
			Percentage: decimal.RequireFromString("0.25"), Amount: decimal.RequireFromString("25.00"),
			Paid: true, PaymentMethod: "pix", PaidAt: &paidAt, CreatedAt: created,
		},
	}

	t.Run("GetUserByEmail normalizes email", func(t *testing.T) {
		got, err := store.GetUserByEmail(ctx, "  BOB@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if got.ID != bob.ID {
			t.Errorf("ID mismatch: got %s, want %s", got.ID, bob.ID)
		}
	})

	t.Run("missing rows map to NotFoundError", func(t *testing.T) {
		if _, err := store.GetUserByID(ctx, "nope"); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("GetUserByID error = %v, want ErrNotFound", err)
		}
		if _, err := store.GetItem(ctx, "nope"); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("GetItem error = %v, want ErrNotFound", err)
		}
		if _, err := store.GetShare(ctx, "nope"); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("GetShare error = %v, want ErrNotFound", err)
		}
		if _, err := store.GetInvoice(ctx, "nope"); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("GetInvoice error = %v, want ErrNotFound", err)
		}
		if _, err := store.GetCard(ctx, "nope"); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("GetCard error = %v, want ErrNotFound", err)
		}
	})

	t.Run("GetCard returns owner", func(t *testing.T) {
		inv, err := store.GetInvoice(ctx, item.InvoiceID)
		if err != nil {
			t.Fatalf("GetInvoice failed: %v", err)
		}
		card, err := store.GetCard(ctx, inv.CardID)
		if err != nil {
			t.Fatalf("GetCard failed: %v", err)
		}
		if card.OwnerID != owner.ID || card.Name != "Visa" {
			t.Errorf("card = %+v, want Visa owned by %s", card, owner.ID)
		}
	})

	t.Run("GetItem resolves card owner", func(t *testing.T) {
		got, err := store.GetItem(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}
		if got.OwnerID != owner.ID {
			t.Errorf("OwnerID mismatch: got %s, want %s", got.OwnerID, owner.ID)
		}
		if !got.Amount.Equal(decimal.RequireFromString("100")) {
			t.Errorf("Amount mismatch: got %s, want 100", got.Amount)
		}
	})

	t.Run("InsertShares round trips every field", func(t *testing.T) {
		if err := store.InsertShares(ctx, shares); err != nil {
			t.Fatalf("InsertShares failed: %v", err)
		}

		got, err := store.ListSharesByItem(ctx, item.ID)
		if err != nil {
			t.Fatalf("ListSharesByItem failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Expected 2 shares, got %d", len(got))
		}
		if got[0].Participant != models.UserParticipant(bob.ID) || !got[0].Responsible {
			t.Errorf("first share mismatch: %+v", got[0])
		}
		if got[1].Participant != models.ContactParticipant(contact.ID) {
			t.Errorf("second share participant = %v", got[1].Participant)
		}
		if !got[1].Paid || got[1].PaymentMethod != "pix" || got[1].PaidAt == nil || !got[1].PaidAt.Equal(paidAt) {
			t.Errorf("payment fields mismatch: %+v", got[1])
		}
		if !got[1].Percentage.Equal(decimal.RequireFromString("0.25")) || !got[1].Amount.Equal(decimal.RequireFromString("25")) {
			t.Errorf("decimal fields mismatch: pct=%s amount=%s", got[1].Percentage, got[1].Amount)
		}
		if !got[0].CreatedAt.Equal(created) {
			t.Errorf("CreatedAt mismatch: got %v, want %v", got[0].CreatedAt, created)
		}
	})

	t.Run("duplicate participant violates unique constraint", func(t *testing.T) {
		dup := shares[0]
		dup.ID = "share-dup"
		if err := store.InsertShares(ctx, []models.Share{dup}); err == nil {
			t.Error("Expected error inserting duplicate participant, got nil")
		}
	})

	t.Run("ListSharesByUser only returns user shares", func(t *testing.T) {
		got, err := store.ListSharesByUser(ctx, bob.ID)
		if err != nil {
			t.Fatalf("ListSharesByUser failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != "share-1" {
			t.Errorf("Expected [share-1], got %+v", got)
		}
	})

	t.Run("GetInvoice loads items with shares", func(t *testing.T) {
		got, err := store.GetInvoice(ctx, item.InvoiceID)
		if err != nil {
			t.Fatalf("GetInvoice failed: %v", err)
		}
		if got.OwnerID != owner.ID {
			t.Errorf("OwnerID mismatch: got %s, want %s", got.OwnerID, owner.ID)
		}
		if len(got.Items) != 1 || len(got.Items[0].Shares) != 2 {
			t.Fatalf("Expected 1 item with 2 shares, got %+v", got.Items)
		}
		if !got.Items[0].UnsharedAmount().Equal(decimal.NewFromInt(25)) {
			t.Errorf("UnsharedAmount = %s, want 25", got.Items[0].UnsharedAmount())
		}
	})

	t.Run("UpdateSharePayment clears payment", func(t *testing.T) {
		sh, err := store.GetShare(ctx, "share-2")
		if err != nil {
			t.Fatalf("GetShare failed: %v", err)
		}
		sh.Paid, sh.PaymentMethod, sh.PaidAt = false, "", nil
		if err := store.UpdateSharePayment(ctx, sh); err != nil {
			t.Fatalf("UpdateSharePayment failed: %v", err)
		}

		got, _ := store.GetShare(ctx, "share-2")
		if got.Paid || got.PaymentMethod != "" || got.PaidAt != nil {
			t.Errorf("Expected cleared payment, got %+v", got)
		}
	})

	t.Run("ListSharedItems skips unshared items", func(t *testing.T) {
		extra := &models.InvoiceItem{InvoiceID: item.InvoiceID, Description: "Fuel", Amount: decimal.NewFromInt(40)}
		if err := store.CreateItem(ctx, extra); err != nil {
			t.Fatalf("CreateItem failed: %v", err)
		}

		items, err := store.ListSharedItems(ctx)
		if err != nil {
			t.Fatalf("ListSharedItems failed: %v", err)
		}
		if len(items) != 1 || items[0].ID != item.ID || len(items[0].Shares) != 2 {
			t.Errorf("Expected only %s with 2 shares, got %+v", item.ID, items)
		}
	})

	t.Run("CreateItem rejects non-positive amount", func(t *testing.T) {
		bad := &models.InvoiceItem{InvoiceID: item.InvoiceID, Amount: decimal.Zero}
		if err := store.CreateItem(ctx, bad); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("CreateItem error = %v, want ErrValidation", err)
		}
	})

	t.Run("DeleteSharesByItem reports count", func(t *testing.T) {
		n, err := store.DeleteSharesByItem(ctx, item.ID)
		if err != nil {
			t.Fatalf("DeleteSharesByItem failed: %v", err)
		}
		if n != 2 {
			t.Errorf("Expected 2 deleted, got %d", n)
		}
		n, _ = store.DeleteSharesByItem(ctx, item.ID)
		if n != 0 {
			t.Errorf("Expected 0 deleted on second call, got %d", n)
		}
	})
}

func TestInTx(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, item := seedItem(t, store, "10.00")

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.InTx(ctx, func(q storage.Queries) error {
			item.Amount = decimal.NewFromInt(99)
			if err := q.UpdateItemAmount(ctx, item); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("InTx error = %v, want boom", err)
		}

		got, _ := store.GetItem(ctx, item.ID)
		if !got.Amount.Equal(decimal.NewFromInt(10)) {
			t.Errorf("Expected rollback to keep 10, got %s", got.Amount)
		}
	})

	t.Run("commits on success", func(t *testing.T) {
		err := store.InTx(ctx, func(q storage.Queries) error {
			item.Amount = decimal.RequireFromString("12.50")
			return q.UpdateItemAmount(ctx, item)
		})
		if err != nil {
			t.Fatalf("InTx failed: %v", err)
		}

		got, _ := store.GetItem(ctx, item.ID)
		if !got.Amount.Equal(decimal.RequireFromString("12.5")) {
			t.Errorf("Expected 12.50, got %s", got.Amount)
		}
	})
}
