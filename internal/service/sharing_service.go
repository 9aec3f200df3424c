package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/cardsplit/internal/calculator"
	"github.com/mmynk/cardsplit/internal/errs"
	"github.com/mmynk/cardsplit/internal/metrics"
	"github.com/mmynk/cardsplit/internal/models"
	"github.com/mmynk/cardsplit/internal/storage"
)

// SharingService creates, reads, removes and settles the shares of invoice items.
// Every mutation runs inside one storage transaction.
type SharingService struct {
	store   storage.Store
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewSharingService creates a new SharingService with the given storage backend.
// rec may be nil.
func NewSharingService(store storage.Store, rec *metrics.Recorder) *SharingService {
	return &SharingService{
		store:   store,
		metrics: rec,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// itemGuard decides inside the transaction whether an item may be changed.
type itemGuard func(item *models.InvoiceItem) error

// ownedBy admits only the owner of the item's card.
func ownedBy(actingUserID, action string) itemGuard {
	return func(item *models.InvoiceItem) error {
		if actingUserID == "" || item.OwnerID != actingUserID {
			return &errs.UnauthorizedError{Kind: "item", ID: item.ID, UserID: actingUserID, Action: action}
		}
		return nil
	}
}

// CreateSharesFromRequests replaces the shares of an item with the allocation
// of requests. An empty request list leaves the item unshared.
func (s *SharingService) CreateSharesFromRequests(ctx context.Context, itemID string, requests []models.AllocationRequest) ([]models.Share, error) {
	return s.replaceShares(ctx, itemID, requests, nil)
}

// SplitItem is CreateSharesFromRequests on behalf of actingUserID, who must
// own the item's card.
func (s *SharingService) SplitItem(ctx context.Context, actingUserID, itemID string, requests []models.AllocationRequest) ([]models.Share, error) {
	return s.replaceShares(ctx, itemID, requests, ownedBy(actingUserID, "split"))
}

func (s *SharingService) replaceShares(ctx context.Context, itemID string, requests []models.AllocationRequest, guard itemGuard) ([]models.Share, error) {
	var (
		shares  []models.Share
		removed int
	)

	err := s.store.InTx(ctx, func(q storage.Queries) error {
		item, err := q.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(item); err != nil {
				return err
			}
		}

		if err := checkParticipants(ctx, q, item, requests); err != nil {
			return err
		}

		shares, err = calculator.Allocate(*item, requests)
		if err != nil {
			return err
		}

		removed, err = q.DeleteSharesByItem(ctx, item.ID)
		if err != nil {
			return err
		}

		now := s.now()
		for i := range shares {
			shares[i].ID = uuid.New().String()
			shares[i].CreatedAt = now
		}
		return q.InsertShares(ctx, shares)
	})
	if err != nil {
		slog.Error("CreateSharesFromRequests failed", "item_id", itemID, "error", err)
		s.metrics.Failed("create_shares")
		return nil, err
	}

	s.metrics.SharesRemoved(removed)
	s.metrics.SharesCreated(len(shares))
	slog.Info("Shares replaced", "item_id", itemID, "removed", removed, "count", len(shares))
	return shares, nil
}

// checkParticipants verifies that every referenced user and contact exists and
// that contacts belong to the item's card owner.
func checkParticipants(ctx context.Context, q storage.Queries, item *models.InvoiceItem, requests []models.AllocationRequest) error {
	var userIDs, contactIDs []string
	for _, req := range requests {
		if id, ok := req.Participant.UserID(); ok {
			userIDs = append(userIDs, id)
		}
		if id, ok := req.Participant.ContactID(); ok {
			contactIDs = append(contactIDs, id)
		}
	}

	users, err := q.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return err
	}
	for _, id := range userIDs {
		if _, ok := users[id]; !ok {
			return errs.NotFound("user", id)
		}
	}

	contacts, err := q.GetContactsByIDs(ctx, contactIDs)
	if err != nil {
		return err
	}
	for _, id := range contactIDs {
		c, ok := contacts[id]
		if !ok {
			return errs.NotFound("contact", id)
		}
		if c.OwnerID != item.OwnerID {
			return errs.Invalid(item.ID, "participant", models.ContactParticipant(id).Key(),
				"contact belongs to another card owner")
		}
	}
	return nil
}

// GetSharesForItem returns an item's shares in request order.
func (s *SharingService) GetSharesForItem(ctx context.Context, itemID string) ([]models.Share, error) {
	if _, err := s.store.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	shares, err := s.store.ListSharesByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares for item %s: %w", itemID, err)
	}
	return shares, nil
}

// GetSharesForUser returns every share a user holds as a user participant.
func (s *SharingService) GetSharesForUser(ctx context.Context, userID string) ([]models.Share, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	shares, err := s.store.ListSharesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares for user %s: %w", userID, err)
	}
	return shares, nil
}

// RemoveShares deletes every share of an item, leaving its full amount to the
// card owner. It reports how many shares were removed.
func (s *SharingService) RemoveShares(ctx context.Context, itemID string) (int, error) {
	return s.removeShares(ctx, itemID, nil)
}

// UnsplitItem is RemoveShares on behalf of actingUserID, who must own the
// item's card.
func (s *SharingService) UnsplitItem(ctx context.Context, actingUserID, itemID string) (int, error) {
	return s.removeShares(ctx, itemID, ownedBy(actingUserID, "unsplit"))
}

func (s *SharingService) removeShares(ctx context.Context, itemID string, guard itemGuard) (int, error) {
	var removed int
	err := s.store.InTx(ctx, func(q storage.Queries) error {
		item, err := q.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(item); err != nil {
				return err
			}
		}
		removed, err = q.DeleteSharesByItem(ctx, itemID)
		return err
	})
	if err != nil {
		slog.Error("RemoveShares failed", "item_id", itemID, "error", err)
		s.metrics.Failed("remove_shares")
		return 0, err
	}

	s.metrics.SharesRemoved(removed)
	slog.Info("Shares removed", "item_id", itemID, "count", removed)
	return removed, nil
}

// MarkShareAsPaid records that a share was settled. A zero paidAt means now.
func (s *SharingService) MarkShareAsPaid(ctx context.Context, shareID, paymentMethod string, paidAt time.Time, actingUserID string) (*models.Share, error) {
	shares, err := s.setPaid(ctx, []string{shareID}, true, paymentMethod, paidAt, actingUserID)
	if err != nil {
		return nil, err
	}
	return &shares[0], nil
}

// MarkShareAsUnpaid clears the payment of a share.
func (s *SharingService) MarkShareAsUnpaid(ctx context.Context, shareID, actingUserID string) (*models.Share, error) {
	shares, err := s.setPaid(ctx, []string{shareID}, false, "", time.Time{}, actingUserID)
	if err != nil {
		return nil, err
	}
	return &shares[0], nil
}

// MarkSharesAsPaidBulk marks every listed share as paid, or none of them.
// Repeated IDs are paid once.
func (s *SharingService) MarkSharesAsPaidBulk(ctx context.Context, shareIDs []string, paymentMethod string, paidAt time.Time, actingUserID string) ([]models.Share, error) {
	if len(shareIDs) == 0 {
		return nil, nil
	}
	return s.setPaid(ctx, dedupe(shareIDs), true, paymentMethod, paidAt, actingUserID)
}

func (s *SharingService) setPaid(ctx context.Context, shareIDs []string, paid bool, paymentMethod string, paidAt time.Time, actingUserID string) ([]models.Share, error) {
	if paid && paidAt.IsZero() {
		paidAt = s.now()
	}

	action := "mark paid"
	if !paid {
		action = "mark unpaid"
	}

	updated := make([]models.Share, 0, len(shareIDs))
	err := s.store.InTx(ctx, func(q storage.Queries) error {
		// Authorization is read inside the transaction so it holds for the write.
		owners := make(map[string]string)
		for _, id := range shareIDs {
			share, err := q.GetShare(ctx, id)
			if err != nil {
				return err
			}

			ownerID, ok := owners[share.ItemID]
			if !ok {
				item, err := q.GetItem(ctx, share.ItemID)
				if err != nil {
					return err
				}
				ownerID = item.OwnerID
				owners[share.ItemID] = ownerID
			}

			if !canSettle(share, ownerID, actingUserID) {
				return &errs.UnauthorizedError{Kind: "share", ID: share.ID, UserID: actingUserID, Action: action}
			}

			share.Paid = paid
			if paid {
				t := paidAt
				share.PaymentMethod = paymentMethod
				share.PaidAt = &t
			} else {
				share.PaymentMethod = ""
				share.PaidAt = nil
			}

			if err := q.UpdateSharePayment(ctx, share); err != nil {
				return err
			}
			updated = append(updated, *share)
		}
		return nil
	})
	if err != nil {
		slog.Error("Payment update failed", "share_ids", shareIDs, "paid", paid, "acting_user", actingUserID, "error", err)
		s.metrics.Failed("set_paid")
		return nil, err
	}

	s.metrics.SharesPaid(len(updated), paid)
	slog.Info("Payment status updated", "count", len(updated), "paid", paid, "acting_user", actingUserID)
	return updated, nil
}

// canSettle reports whether actingUserID may change the payment of share.
// Contacts have no account, so only the card owner settles their shares.
func canSettle(share *models.Share, ownerID, actingUserID string) bool {
	if actingUserID == "" {
		return false
	}
	return actingUserID == ownerID || share.Participant.IsUser(actingUserID)
}

// RecalculateAllShares re-derives every share amount from its percentage and
// its item's current amount. It returns the number of items whose shares
// changed; a second run right after a successful one returns 0.
func (s *SharingService) RecalculateAllShares(ctx context.Context) (int, error) {
	modified := 0
	err := s.store.InTx(ctx, func(q storage.Queries) error {
		items, err := q.ListSharedItems(ctx)
		if err != nil {
			return err
		}

		for _, item := range items {
			stored := make(map[string]models.Share, len(item.Shares))
			for _, sh := range item.Shares {
				stored[sh.ID] = sh
			}

			corrected, changed, err := calculator.Reallocate(item.ID, item.Amount, item.Shares)
			if err != nil {
				return err
			}
			if !changed {
				continue
			}

			for i := range corrected {
				if corrected[i].Amount.Equal(stored[corrected[i].ID].Amount) {
					continue
				}
				if err := q.UpdateShareAmount(ctx, &corrected[i]); err != nil {
					return err
				}
			}
			slog.Debug("Item shares recalculated", "item_id", item.ID, "amount", item.Amount.StringFixed(2))
			modified++
		}
		return nil
	})
	if err != nil {
		slog.Error("RecalculateAllShares failed", "error", err)
		s.metrics.Failed("recalculate")
		return 0, err
	}

	s.metrics.Recalculated(modified)
	slog.Info("Shares recalculated", "modified_items", modified)
	return modified, nil
}
