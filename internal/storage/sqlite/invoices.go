package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/cardsplit/internal/errs"
	"github.com/mmynk/cardsplit/internal/models"
)

// CreateCard persists a new credit card.
func (s *queries) CreateCard(ctx context.Context, card *models.CreditCard) error {
	if card.ID == "" {
		card.ID = uuid.New().String()
	}
	if card.CreatedAt == 0 {
		card.CreatedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		"INSERT INTO credit_cards (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)",
		card.ID, card.OwnerID, card.Name, card.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert credit card: %w", err)
	}
	return nil
}

// GetCard retrieves a credit card by ID.
func (s *queries) GetCard(ctx context.Context, cardID string) (*models.CreditCard, error) {
	card := &models.CreditCard{}
	err := s.q.QueryRowContext(ctx,
		"SELECT id, owner_id, name, created_at FROM credit_cards WHERE id = ?", cardID,
	).Scan(&card.ID, &card.OwnerID, &card.Name, &card.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("credit card", cardID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credit card: %w", err)
	}
	return card, nil
}

// CreateInvoice persists a new invoice and fills in its owner.
func (s *queries) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	if invoice.CreatedAt == 0 {
		invoice.CreatedAt = time.Now().Unix()
	}

	err := s.q.QueryRowContext(ctx,
		"SELECT owner_id FROM credit_cards WHERE id = ?", invoice.CardID,
	).Scan(&invoice.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return errs.NotFound("credit card", invoice.CardID)
	}
	if err != nil {
		return fmt.Errorf("failed to get credit card: %w", err)
	}

	_, err = s.q.ExecContext(ctx,
		"INSERT INTO invoices (id, card_id, period, created_at) VALUES (?, ?, ?, ?)",
		invoice.ID, invoice.CardID, invoice.Period, invoice.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

// GetInvoice retrieves an invoice by ID, including all items and their shares.
func (s *queries) GetInvoice(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	err := s.q.QueryRowContext(ctx, `
		SELECT i.id, i.card_id, c.owner_id, i.period, i.created_at
		FROM invoices i
		JOIN credit_cards c ON c.id = i.card_id
		WHERE i.id = ?`,
		invoiceID,
	).Scan(&invoice.ID, &invoice.CardID, &invoice.OwnerID, &invoice.Period, &invoice.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("invoice", invoiceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	itemRows, err := s.q.QueryContext(ctx, `
		SELECT id, invoice_id, description, amount, created_at
		FROM invoice_items
		WHERE invoice_id = ?
		ORDER BY created_at, rowid`,
		invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer itemRows.Close()

	byID := make(map[string]int)
	for itemRows.Next() {
		var item models.InvoiceItem
		if err := itemRows.Scan(&item.ID, &item.InvoiceID, &item.Description, &item.Amount, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.OwnerID = invoice.OwnerID
		byID[item.ID] = len(invoice.Items)
		invoice.Items = append(invoice.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	shares, err := s.listShares(ctx, `
		JOIN invoice_items it ON it.id = s.item_id
		WHERE it.invoice_id = ?
		ORDER BY s.item_id, s.position`,
		invoiceID,
	)
	if err != nil {
		return nil, err
	}
	for _, sh := range shares {
		i := byID[sh.ItemID]
		invoice.Items[i].Shares = append(invoice.Items[i].Shares, sh)
	}

	return invoice, nil
}

// CreateItem persists a new invoice item.
func (s *queries) CreateItem(ctx context.Context, item *models.InvoiceItem) error {
	if !item.Amount.IsPositive() {
		return errs.Invalid(item.ID, "amount", item.Amount.String(), "must be greater than 0")
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt == 0 {
		item.CreatedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		"INSERT INTO invoice_items (id, invoice_id, description, amount, created_at) VALUES (?, ?, ?, ?, ?)",
		item.ID, item.InvoiceID, item.Description, item.Amount.StringFixed(2), item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// GetItem retrieves an item together with its card owner.
func (s *queries) GetItem(ctx context.Context, itemID string) (*models.InvoiceItem, error) {
	item := &models.InvoiceItem{}
	err := s.q.QueryRowContext(ctx, `
		SELECT it.id, it.invoice_id, c.owner_id, it.description, it.amount, it.created_at
		FROM invoice_items it
		JOIN invoices i ON i.id = it.invoice_id
		JOIN credit_cards c ON c.id = i.card_id
		WHERE it.id = ?`,
		itemID,
	).Scan(&item.ID, &item.InvoiceID, &item.OwnerID, &item.Description, &item.Amount, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("item", itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// UpdateItemAmount changes an item's amount.
func (s *queries) UpdateItemAmount(ctx context.Context, item *models.InvoiceItem) error {
	if !item.Amount.IsPositive() {
		return errs.Invalid(item.ID, "amount", item.Amount.String(), "must be greater than 0")
	}

	result, err := s.q.ExecContext(ctx,
		"UPDATE invoice_items SET amount = ? WHERE id = ?",
		item.Amount.StringFixed(2), item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item amount: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.NotFound("item", item.ID)
	}
	return nil
}

// ListSharedItems retrieves every item with at least one share.
func (s *queries) ListSharedItems(ctx context.Context) ([]models.InvoiceItem, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT it.id, it.invoice_id, c.owner_id, it.description, it.amount, it.created_at
		FROM invoice_items it
		JOIN invoices i ON i.id = it.invoice_id
		JOIN credit_cards c ON c.id = i.card_id
		WHERE EXISTS (SELECT 1 FROM shares s WHERE s.item_id = it.id)
		ORDER BY it.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared items: %w", err)
	}
	defer rows.Close()

	var items []models.InvoiceItem
	byID := make(map[string]int)
	for rows.Next() {
		var item models.InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.OwnerID, &item.Description, &item.Amount, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		byID[item.ID] = len(items)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	shares, err := s.listShares(ctx, "ORDER BY s.item_id, s.position")
	if err != nil {
		return nil, err
	}
	for _, sh := range shares {
		if i, ok := byID[sh.ItemID]; ok {
			items[i].Shares = append(items[i].Shares, sh)
		}
	}

	return items, nil
}
