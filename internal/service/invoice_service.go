package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/cardsplit/internal/calculator"
	"github.com/mmynk/cardsplit/internal/errs"
	"github.com/mmynk/cardsplit/internal/models"
	"github.com/mmynk/cardsplit/internal/storage"
)

// InvoiceService answers who owes what on an invoice.
type InvoiceService struct {
	store storage.Store
}

// NewInvoiceService creates a new InvoiceService with the given storage backend.
func NewInvoiceService(store storage.Store) *InvoiceService {
	return &InvoiceService{store: store}
}

// CreateCard registers a credit card owned by ownerID.
func (s *InvoiceService) CreateCard(ctx context.Context, ownerID, name string) (*models.CreditCard, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Invalid("", "card name", name, "must not be empty")
	}
	if _, err := s.store.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}

	card := &models.CreditCard{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: time.Now().Unix(),
	}
	if err := s.store.CreateCard(ctx, card); err != nil {
		return nil, err
	}

	slog.Info("Card created", "card_id", card.ID, "owner_id", ownerID)
	return card, nil
}

// CreateInvoice opens a billing period on a card. Only the card owner may.
func (s *InvoiceService) CreateInvoice(ctx context.Context, actingUserID, cardID, period string) (*models.Invoice, error) {
	if _, err := time.Parse("2006-01", period); err != nil {
		return nil, errs.Invalid("", "period", period, "must be YYYY-MM")
	}

	invoice := &models.Invoice{
		ID:        uuid.New().String(),
		CardID:    cardID,
		Period:    period,
		CreatedAt: time.Now().Unix(),
	}
	err := s.store.InTx(ctx, func(q storage.Queries) error {
		card, err := q.GetCard(ctx, cardID)
		if err != nil {
			return err
		}
		if actingUserID == "" || card.OwnerID != actingUserID {
			return &errs.UnauthorizedError{Kind: "card", ID: cardID, UserID: actingUserID, Action: "open an invoice on"}
		}
		return q.CreateInvoice(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Invoice created", "invoice_id", invoice.ID, "card_id", cardID, "period", period)
	return invoice, nil
}

// AddItem records a charge on an invoice. Only the card owner may.
func (s *InvoiceService) AddItem(ctx context.Context, actingUserID, invoiceID, description string, amount decimal.Decimal) (*models.InvoiceItem, error) {
	item := &models.InvoiceItem{
		ID:          uuid.New().String(),
		InvoiceID:   invoiceID,
		Description: strings.TrimSpace(description),
		Amount:      amount,
		CreatedAt:   time.Now().Unix(),
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, errs.Invalid(item.ID, "amount", amount.String(), "must have at most 2 decimal places")
	}

	err := s.store.InTx(ctx, func(q storage.Queries) error {
		inv, err := q.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.OwnerID != actingUserID {
			return &errs.UnauthorizedError{Kind: "invoice", ID: invoiceID, UserID: actingUserID, Action: "add items to"}
		}
		item.OwnerID = inv.OwnerID
		return q.CreateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Item added", "item_id", item.ID, "invoice_id", invoiceID, "amount", amount.StringFixed(2))
	return item, nil
}

// UpdateItemAmount corrects the amount of a charge. Its shares keep their
// stored amounts until the next recalculation.
func (s *InvoiceService) UpdateItemAmount(ctx context.Context, actingUserID, itemID string, amount decimal.Decimal) (*models.InvoiceItem, error) {
	if !amount.Equal(amount.Round(2)) {
		return nil, errs.Invalid(itemID, "amount", amount.String(), "must have at most 2 decimal places")
	}

	var item *models.InvoiceItem
	err := s.store.InTx(ctx, func(q storage.Queries) error {
		var err error
		item, err = q.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item.OwnerID != actingUserID {
			return &errs.UnauthorizedError{Kind: "item", ID: itemID, UserID: actingUserID, Action: "edit"}
		}
		item.Amount = amount
		return q.UpdateItemAmount(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Item amount updated", "item_id", itemID, "amount", amount.StringFixed(2))
	return item, nil
}

// GetInvoice returns an invoice with its items and shares.
func (s *InvoiceService) GetInvoice(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	return s.store.GetInvoice(ctx, invoiceID)
}

// CalculateUserShare returns how much of an invoice falls to userID.
func (s *InvoiceService) CalculateUserShare(ctx context.Context, invoiceID, userID string) (decimal.Decimal, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, err
	}

	amount := calculator.UserShare(inv, userID)
	slog.Debug("User share calculated", "invoice_id", invoiceID, "user_id", userID, "amount", amount.StringFixed(2))
	return amount, nil
}

// CalculateOtherParticipantShares returns one row per email identity that
// owes ownerID on the invoice. ownerID must own the invoice's card.
func (s *InvoiceService) CalculateOtherParticipantShares(ctx context.Context, invoiceID, ownerID string) ([]models.ParticipantShare, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if ownerID == "" || inv.OwnerID != ownerID {
		return nil, &errs.UnauthorizedError{Kind: "invoice", ID: invoiceID, UserID: ownerID, Action: "report on"}
	}

	ids, err := s.identities(ctx, inv)
	if err != nil {
		return nil, err
	}

	rows, err := calculator.OtherParticipantShares(inv, ownerID, ids)
	if err != nil {
		slog.Error("CalculateOtherParticipantShares failed", "invoice_id", invoiceID, "error", err)
		return nil, err
	}
	return rows, nil
}

// identities loads the name, email and owner of every participant on inv.
func (s *InvoiceService) identities(ctx context.Context, inv *models.Invoice) (calculator.Identities, error) {
	var userIDs, contactIDs []string
	for _, item := range inv.Items {
		for _, sh := range item.Shares {
			if id, ok := sh.Participant.UserID(); ok {
				userIDs = append(userIDs, id)
			}
			if id, ok := sh.Participant.ContactID(); ok {
				contactIDs = append(contactIDs, id)
			}
		}
	}

	users, err := s.store.GetUsersByIDs(ctx, dedupe(userIDs))
	if err != nil {
		return nil, err
	}
	contacts, err := s.store.GetContactsByIDs(ctx, dedupe(contactIDs))
	if err != nil {
		return nil, err
	}

	ids := make(calculator.Identities, len(users)+len(contacts))
	for id, u := range users {
		ids[models.UserParticipant(id).Key()] = calculator.Identity{Name: u.DisplayName, Email: u.Email}
	}
	for id, c := range contacts {
		ids[models.ContactParticipant(id).Key()] = calculator.Identity{Name: c.Name, Email: c.Email, OwnerID: c.OwnerID}
	}
	return ids, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
