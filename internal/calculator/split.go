package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/cardsplit/internal/errs"
	"github.com/mmynk/cardsplit/internal/models"
)

var one = decimal.NewFromInt(1)

// Allocate turns an ordered list of allocation requests for one item into
// shares whose amounts are exact to the cent.
//
// Algorithm:
//   - every request gets round(percentage × amount, 2), half-up
//   - the last request absorbs the residual so that the share amounts sum to
//     round(Σ percentage × amount, 2)
//
// The cent-level result therefore depends on request order. Callers that care
// should sort requests deterministically before calling.
//
// Besides malformed requests, Allocate rejects with a ValidationError any
// split where the correction would leave the last share below zero.
//
// Allocate has no side effects: IDs and timestamps are left for the caller.
func Allocate(item models.InvoiceItem, requests []models.AllocationRequest) ([]models.Share, error) {
	if !item.Amount.IsPositive() {
		return nil, errs.Invalid(item.ID, "amount", item.Amount.String(), "must be greater than 0")
	}

	seen := make(map[string]bool, len(requests))
	percentages := make([]decimal.Decimal, len(requests))
	for i, req := range requests {
		if !req.Participant.Valid() {
			return nil, errs.Invalid(item.ID, "participant", req.Participant.Key(), "must reference a user or a contact")
		}
		key := req.Participant.Key()
		if seen[key] {
			return nil, errs.Invalid(item.ID, "participant", key, "appears more than once")
		}
		seen[key] = true

		if !req.Percentage.IsPositive() {
			return nil, errs.Invalid(item.ID, "percentage", req.Percentage.String(), "must be greater than 0")
		}
		if req.Percentage.GreaterThan(one) {
			return nil, errs.Invalid(item.ID, "percentage", req.Percentage.String(), "must be at most 1")
		}
		percentages[i] = req.Percentage
	}

	amounts, err := distribute(item.ID, item.Amount, percentages)
	if err != nil {
		return nil, err
	}

	shares := make([]models.Share, len(requests))
	for i, req := range requests {
		shares[i] = models.Share{
			ItemID:      item.ID,
			Participant: req.Participant,
			Position:    i,
			Percentage:  req.Percentage,
			Amount:      amounts[i],
			Responsible: req.Responsible,
		}
	}
	return shares, nil
}

// Reallocate re-derives the amounts of an item's existing shares from their
// stored percentages and the item's current amount, applying the same
// last-share correction as Allocate. Shares are returned in position order
// with only Amount changed. The boolean reports whether any amount differs
// from what was stored.
func Reallocate(itemID string, itemAmount decimal.Decimal, shares []models.Share) ([]models.Share, bool, error) {
	if !itemAmount.IsPositive() {
		return nil, false, errs.Invalid(itemID, "amount", itemAmount.String(), "must be greater than 0")
	}

	ordered := make([]models.Share, len(shares))
	copy(ordered, shares)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	percentages := make([]decimal.Decimal, len(ordered))
	for i, s := range ordered {
		percentages[i] = s.Percentage
	}

	amounts, err := distribute(itemID, itemAmount, percentages)
	if err != nil {
		return nil, false, err
	}

	changed := false
	for i := range ordered {
		if !ordered[i].Amount.Equal(amounts[i]) {
			ordered[i].Amount = amounts[i]
			changed = true
		}
	}
	return ordered, changed, nil
}

// EvenSplit builds requests that divide an item evenly among participants.
// Percentages carry four decimal places and sum to exactly 1; the last
// participant takes the remainder of the division.
func EvenSplit(participants []models.Participant) []models.AllocationRequest {
	if len(participants) == 0 {
		return nil
	}

	n := int64(len(participants))
	each := one.DivRound(decimal.NewFromInt(n), 8).Truncate(4)
	last := one.Sub(each.Mul(decimal.NewFromInt(n - 1)))

	requests := make([]models.AllocationRequest, len(participants))
	for i, p := range participants {
		requests[i] = models.AllocationRequest{Participant: p, Percentage: each}
	}
	requests[len(requests)-1].Percentage = last
	return requests
}

// distribute computes the corrected amount for each percentage.
func distribute(itemID string, total decimal.Decimal, percentages []decimal.Decimal) ([]decimal.Decimal, error) {
	sumPercent := decimal.Zero
	for _, p := range percentages {
		sumPercent = sumPercent.Add(p)
	}
	if sumPercent.GreaterThan(one) {
		return nil, errs.Invalid(itemID, "percentage sum", sumPercent.String(), "must not exceed 1")
	}

	amounts := make([]decimal.Decimal, len(percentages))
	if len(amounts) == 0 {
		return amounts, nil
	}

	sumRaw := decimal.Zero
	for i, p := range percentages {
		amounts[i] = p.Mul(total).Round(2)
		sumRaw = sumRaw.Add(amounts[i])
	}

	target := sumPercent.Mul(total).Round(2)
	last := len(amounts) - 1
	amounts[last] = amounts[last].Add(target.Sub(sumRaw))

	// The residual can only push the last share below zero when the split is
	// finer than the item's cents.
	if amounts[last].IsNegative() {
		return nil, errs.Invalid(itemID, "percentage", percentages[last].String(),
			"rounding residual exceeds the last share; split is too fine for the item amount")
	}
	return amounts, nil
}
