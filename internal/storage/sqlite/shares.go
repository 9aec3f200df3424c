package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/cardsplit/internal/errs"
	"github.com/mmynk/cardsplit/internal/models"
)

const shareColumns = `
	SELECT s.id, s.item_id, s.user_id, s.contact_id, s.position, s.percentage, s.amount,
	       s.responsible, s.paid, s.payment_method, s.paid_at, s.created_at
	FROM shares s
`

// GetShare retrieves a share by ID.
func (s *queries) GetShare(ctx context.Context, shareID string) (*models.Share, error) {
	share, err := scanShare(s.q.QueryRowContext(ctx, shareColumns+"WHERE s.id = ?", shareID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("share", shareID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get share: %w", err)
	}
	return share, nil
}

// ListSharesByItem retrieves the shares of an item in position order.
func (s *queries) ListSharesByItem(ctx context.Context, itemID string) ([]models.Share, error) {
	return s.listShares(ctx, "WHERE s.item_id = ? ORDER BY s.position", itemID)
}

// ListSharesByUser retrieves every share held by a user.
func (s *queries) ListSharesByUser(ctx context.Context, userID string) ([]models.Share, error) {
	return s.listShares(ctx, "WHERE s.user_id = ? ORDER BY s.created_at, s.item_id, s.position", userID)
}

// InsertShares persists new shares.
func (s *queries) InsertShares(ctx context.Context, shares []models.Share) error {
	for i := range shares {
		sh := &shares[i]

		var userID, contactID any
		switch sh.Participant.Kind() {
		case models.ParticipantUser:
			userID = sh.Participant.ID()
		case models.ParticipantContact:
			contactID = sh.Participant.ID()
		default:
			return errs.Invalid(sh.ItemID, "participant", sh.Participant.Key(), "must reference a user or a contact")
		}

		_, err := s.q.ExecContext(ctx, `
			INSERT INTO shares (id, item_id, user_id, contact_id, position, percentage, amount,
			                    responsible, paid, payment_method, paid_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sh.ID, sh.ItemID, userID, contactID, sh.Position,
			sh.Percentage.String(), sh.Amount.StringFixed(2),
			sh.Responsible, sh.Paid, nullString(sh.PaymentMethod), nullTime(sh.PaidAt),
			sh.CreatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}
	return nil
}

// DeleteSharesByItem removes all shares of an item.
func (s *queries) DeleteSharesByItem(ctx context.Context, itemID string) (int, error) {
	result, err := s.q.ExecContext(ctx, "DELETE FROM shares WHERE item_id = ?", itemID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete shares: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted shares: %w", err)
	}
	return int(n), nil
}

// UpdateSharePayment writes the payment status of a share.
func (s *queries) UpdateSharePayment(ctx context.Context, share *models.Share) error {
	result, err := s.q.ExecContext(ctx,
		"UPDATE shares SET paid = ?, payment_method = ?, paid_at = ? WHERE id = ?",
		share.Paid, nullString(share.PaymentMethod), nullTime(share.PaidAt), share.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update share payment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.NotFound("share", share.ID)
	}
	return nil
}

// UpdateShareAmount writes the amount of a share.
func (s *queries) UpdateShareAmount(ctx context.Context, share *models.Share) error {
	result, err := s.q.ExecContext(ctx,
		"UPDATE shares SET amount = ? WHERE id = ?",
		share.Amount.StringFixed(2), share.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update share amount: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.NotFound("share", share.ID)
	}
	return nil
}

func (s *queries) listShares(ctx context.Context, clause string, args ...any) ([]models.Share, error) {
	rows, err := s.q.QueryContext(ctx, shareColumns+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	defer rows.Close()

	var shares []models.Share
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		shares = append(shares, *share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}
	return shares, nil
}

func scanShare(row rowScanner) (*models.Share, error) {
	share := &models.Share{}
	var (
		userID, contactID, method sql.NullString
		paidAt                    sql.NullInt64
		createdAt                 int64
	)

	err := row.Scan(
		&share.ID, &share.ItemID, &userID, &contactID, &share.Position,
		&share.Percentage, &share.Amount, &share.Responsible, &share.Paid,
		&method, &paidAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	switch {
	case userID.Valid:
		share.Participant = models.UserParticipant(userID.String)
	case contactID.Valid:
		share.Participant = models.ContactParticipant(contactID.String)
	default:
		return nil, fmt.Errorf("share %s has no participant", share.ID)
	}

	share.PaymentMethod = method.String
	if paidAt.Valid {
		t := time.Unix(0, paidAt.Int64).UTC()
		share.PaidAt = &t
	}
	share.CreatedAt = time.Unix(0, createdAt).UTC()

	return share, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}
