// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/cardsplit/internal/models"
)

// Queries are the reads and writes available both directly on a Store and
// inside a transaction.
//
// Lookups of a single row return an errs.NotFoundError when the row is
// missing.
type Queries interface {
	// CreateUser persists a new user.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail retrieves a user by normalized email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUsersByIDs retrieves several users keyed by ID. Unknown IDs are omitted.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// CreateContact persists a new trusted contact.
	CreateContact(ctx context.Context, contact *models.TrustedContact) error

	// GetContactsByIDs retrieves several contacts keyed by ID. Unknown IDs are omitted.
	GetContactsByIDs(ctx context.Context, ids []string) (map[string]*models.TrustedContact, error)

	// CreateCard persists a new credit card.
	CreateCard(ctx context.Context, card *models.CreditCard) error

	// GetCard retrieves a credit card by ID.
	GetCard(ctx context.Context, cardID string) (*models.CreditCard, error)

	// CreateInvoice persists a new invoice for a card. Items are not written.
	CreateInvoice(ctx context.Context, invoice *models.Invoice) error

	// GetInvoice retrieves an invoice with its items and their shares.
	GetInvoice(ctx context.Context, invoiceID string) (*models.Invoice, error)

	// CreateItem persists a new invoice item. Shares are not written.
	CreateItem(ctx context.Context, item *models.InvoiceItem) error

	// GetItem retrieves an item without its shares.
	GetItem(ctx context.Context, itemID string) (*models.InvoiceItem, error)

	// UpdateItemAmount changes the amount of an item. Existing shares keep
	// their stored amounts until they are recalculated.
	UpdateItemAmount(ctx context.Context, item *models.InvoiceItem) error

	// ListSharedItems retrieves every item that has at least one share,
	// with its shares loaded.
	ListSharedItems(ctx context.Context) ([]models.InvoiceItem, error)

	// GetShare retrieves a share by ID.
	GetShare(ctx context.Context, shareID string) (*models.Share, error)

	// ListSharesByItem retrieves an item's shares in position order.
	ListSharesByItem(ctx context.Context, itemID string) ([]models.Share, error)

	// ListSharesByUser retrieves every share held by a user.
	ListSharesByUser(ctx context.Context, userID string) ([]models.Share, error)

	// InsertShares persists new shares.
	InsertShares(ctx context.Context, shares []models.Share) error

	// DeleteSharesByItem removes every share of an item and reports how many
	// were removed.
	DeleteSharesByItem(ctx context.Context, itemID string) (int, error)

	// UpdateSharePayment writes Paid, PaymentMethod and PaidAt of a share.
	UpdateSharePayment(ctx context.Context, share *models.Share) error

	// UpdateShareAmount writes Amount of a share.
	UpdateShareAmount(ctx context.Context, share *models.Share) error
}

// Store defines the interface for persistence used by the services.
// This abstraction allows swapping storage backends without changing the
// service layer.
type Store interface {
	Queries

	// InTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise, so readers never see a partial
	// result.
	InTx(ctx context.Context, fn func(q Queries) error) error

	// Close releases any resources held by the store.
	Close() error
}
