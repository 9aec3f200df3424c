package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Share is one participant's allocation of one invoice item.
// Any part of the item not covered by shares falls to the card owner.
type Share struct {
	// ID is the unique identifier for the share (UUID format).
	ID string

	// ItemID is the invoice item this share allocates.
	ItemID string

	// Participant is who holds the share. Unique within one item.
	Participant Participant

	// Position is the index of the share in the request that created it.
	// The share with the highest position absorbs rounding drift.
	Position int

	// Percentage is the fraction of the item amount, in (0, 1].
	Percentage decimal.Decimal

	// Amount is Percentage × item amount, scale 2, after drift correction.
	Amount decimal.Decimal

	// Responsible marks the primary payer among the item's shares.
	// Informational only.
	Responsible bool

	// Paid tells whether the participant has settled this share.
	Paid bool

	// PaymentMethod is how the share was settled. Empty when unpaid.
	PaymentMethod string

	// PaidAt is when the share was settled. Nil when unpaid.
	PaidAt *time.Time

	// CreatedAt is set once when the share is created.
	CreatedAt time.Time
}

// AllocationRequest asks for one participant to hold a percentage of an item.
type AllocationRequest struct {
	Participant Participant
	Percentage  decimal.Decimal
	Responsible bool
}

// ParticipantShare is the total one email identity owes on an invoice.
type ParticipantShare struct {
	// Name is taken from the first share seen for the email.
	Name string

	// Email is the normalized identity key.
	Email string

	// TotalAmount is the sum of the identity's share amounts.
	TotalAmount decimal.Decimal

	// PaidAmount is the part of TotalAmount already marked paid.
	PaidAmount decimal.Decimal

	// ShareCount is the number of shares aggregated.
	ShareCount int
}

// PendingAmount returns what the identity still owes.
func (p ParticipantShare) PendingAmount() decimal.Decimal {
	return p.TotalAmount.Sub(p.PaidAmount)
}
