package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/cardsplit/internal/errs"
	"github.com/mmynk/cardsplit/internal/models"
)

// Identity is what reports need to know about a participant.
type Identity struct {
	Name  string
	Email string

	// OwnerID is the owning user for trusted contacts. Empty for users.
	OwnerID string
}

// Identities maps Participant.Key() to the participant's identity.
type Identities map[string]Identity

// UserShare computes how much of an invoice falls to one user.
//
// The card owner bears every item's unshared remainder plus any share they
// hold personally. Anyone else bears only the shares held as a user.
// Summed over the owner and every user participant, the result equals the
// invoice total.
func UserShare(inv *models.Invoice, userID string) decimal.Decimal {
	isOwner := inv.OwnerID == userID

	total := decimal.Zero
	for i := range inv.Items {
		item := &inv.Items[i]
		if isOwner {
			total = total.Add(item.UnsharedAmount())
		}
		for _, s := range item.Shares {
			if s.Participant.IsUser(userID) {
				total = total.Add(s.Amount)
			}
		}
	}
	return total
}

// OtherParticipantShares aggregates what everyone except the owner owes on an
// invoice, one row per email.
//
// Shares held by the owner as a user are skipped, and so are shares of
// contacts that belong to another owner. A user and a contact with the same
// email merge into one row; the name of the first share seen wins. Rows come
// back in order of first appearance. Participants without an email are kept
// apart, keyed by their participant reference.
func OtherParticipantShares(inv *models.Invoice, ownerID string, ids Identities) ([]models.ParticipantShare, error) {
	index := make(map[string]int)
	var result []models.ParticipantShare

	for _, item := range inv.Items {
		for _, s := range item.Shares {
			if s.Participant.IsUser(ownerID) {
				continue
			}

			ident, ok := ids[s.Participant.Key()]
			if !ok {
				return nil, errs.NotFound(s.Participant.Kind().String(), s.Participant.ID())
			}
			if _, isContact := s.Participant.ContactID(); isContact && ident.OwnerID != ownerID {
				continue
			}

			email := models.NormalizeEmail(ident.Email)
			key := email
			if key == "" {
				key = s.Participant.Key()
			}

			i, seen := index[key]
			if !seen {
				i = len(result)
				index[key] = i
				result = append(result, models.ParticipantShare{
					Name:        ident.Name,
					Email:       email,
					TotalAmount: decimal.Zero,
					PaidAmount:  decimal.Zero,
				})
			}

			row := &result[i]
			row.TotalAmount = row.TotalAmount.Add(s.Amount)
			if s.Paid {
				row.PaidAmount = row.PaidAmount.Add(s.Amount)
			}
			row.ShareCount++
		}
	}

	return result, nil
}
