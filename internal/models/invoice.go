package models

import "github.com/shopspring/decimal"

// CreditCard is a card owned by one user. Every invoice of the card
// belongs to that owner.
type CreditCard struct {
	ID        string
	OwnerID   string
	Name      string
	CreatedAt int64
}

// Invoice is one billing cycle's worth of charges on one credit card.
type Invoice struct {
	// ID is the unique identifier for the invoice (UUID format).
	ID string

	// CardID is the credit card the invoice belongs to.
	CardID string

	// OwnerID is the card owner. Populated via JOIN.
	OwnerID string

	// Period is the billing month in YYYY-MM format.
	Period string

	// Items are the purchases on the invoice, each with its shares loaded.
	Items []InvoiceItem

	// CreatedAt is the Unix timestamp when the invoice was created.
	CreatedAt int64
}

// Total returns the sum of all item amounts.
func (inv *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range inv.Items {
		total = total.Add(item.Amount)
	}
	return total
}

// InvoiceItem is a single charge within an invoice.
type InvoiceItem struct {
	// ID is the unique identifier for the item (UUID format).
	ID string

	// InvoiceID is the invoice this item belongs to.
	InvoiceID string

	// OwnerID is the owner of the invoice's card. Populated via JOIN.
	OwnerID string

	// Description is the merchant text of the purchase.
	Description string

	// Amount is the charge, scale 2. Always greater than zero.
	Amount decimal.Decimal

	// Shares are the allocations of this item, in request order.
	// Only populated when loaded through an invoice.
	Shares []Share

	// CreatedAt is the Unix timestamp when the item was recorded.
	CreatedAt int64
}

// SharedAmount returns the sum of all share amounts on the item.
func (it *InvoiceItem) SharedAmount() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range it.Shares {
		sum = sum.Add(s.Amount)
	}
	return sum
}

// UnsharedAmount returns the part of the item that falls to the card owner.
func (it *InvoiceItem) UnsharedAmount() decimal.Decimal {
	return it.Amount.Sub(it.SharedAmount())
}
