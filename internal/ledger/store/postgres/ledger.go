package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"almoner/internal/ledger/models"
	"almoner/pkg/platform/sentinel"
)

func (s *Store) ApplyDonation(ctx context.Context, entry models.Entry) error {
	q := s.q(ctx)

	res, err := q.ExecContext(ctx, `
		UPDATE recipients
		SET lifetime_received = lifetime_received + $2, escrow = escrow + $2
		WHERE id = $1
	`, entry.RecipientID, entry.Amount)
	if err != nil {
		return err
	}
	if err := oneRow(res, fmt.Sprintf("recipient %d", entry.RecipientID)); err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx,
		`UPDATE ledger_meta SET total_donated = total_donated + $1 WHERE id = 1`,
		entry.Amount); err != nil {
		return err
	}

	var seq int64
	if err := q.QueryRowContext(ctx, `
		INSERT INTO entries (contributor, recipient_id, amount, ts)
		VALUES ($1, $2, $3, $4)
		RETURNING seq
	`, entry.Contributor, entry.RecipientID, entry.Amount, entry.Timestamp).Scan(&seq); err != nil {
		return err
	}

	// first_seq fixes the contributor's position in the index; it never
	// changes on later donations, giving the leaderboard its tiebreak order.
	_, err = q.ExecContext(ctx, `
		INSERT INTO contributors (address, total, first_seq)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE SET total = contributors.total + EXCLUDED.total
	`, entry.Contributor, entry.Amount, seq)
	return err
}

func (s *Store) EscrowBalance(ctx context.Context, recipientID int64) (int64, error) {
	var amount int64
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT escrow FROM recipients WHERE id = $1`, recipientID).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return amount, err
}

func (s *Store) DebitEscrow(ctx context.Context, recipientID int64) (int64, error) {
	var prior int64
	err := s.q(ctx).QueryRowContext(ctx, `
		UPDATE recipients r
		SET escrow = 0
		FROM (SELECT id, escrow FROM recipients WHERE id = $1 FOR UPDATE) old
		WHERE r.id = old.id
		RETURNING old.escrow
	`, recipientID).Scan(&prior)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("recipient %d: %w", recipientID, sentinel.ErrNotFound)
	}
	return prior, err
}

func (s *Store) CreditEscrow(ctx context.Context, recipientID int64, amount int64) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE recipients SET escrow = escrow + $2 WHERE id = $1`, recipientID, amount)
	if err != nil {
		return err
	}
	return oneRow(res, fmt.Sprintf("recipient %d", recipientID))
}

func (s *Store) RecordWithdrawal(ctx context.Context, _ int64, amount int64) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE ledger_meta SET total_withdrawn = total_withdrawn + $1 WHERE id = 1`, amount)
	return err
}

func (s *Store) ContributorTotal(ctx context.Context, addr string) (int64, error) {
	var total int64
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT total FROM contributors WHERE address = $1`, addr).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return total, err
}

func (s *Store) Contributors(ctx context.Context) ([]models.ContributorTotal, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT address, total FROM contributors ORDER BY first_seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ContributorTotal
	for rows.Next() {
		var c models.ContributorTotal
		if err := rows.Scan(&c.Address, &c.Total); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) RecentEntries(ctx context.Context, limit int) ([]models.Entry, error) {
	if limit < 0 {
		limit = 0
	}
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT seq, contributor, recipient_id, amount, ts
		FROM entries ORDER BY seq DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.Seq, &e.Contributor, &e.RecipientID, &e.Amount, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM recipients),
			(SELECT count(*) FROM proposals),
			m.total_donated,
			m.total_withdrawn,
			(SELECT COALESCE(sum(escrow), 0) FROM recipients)
		FROM ledger_meta m WHERE m.id = 1
	`).Scan(&st.RecipientCount, &st.ProposalCount, &st.TotalDonated, &st.TotalWithdrawn, &st.LedgerBalance)
	return st, err
}

func (s *Store) VersionMarker(ctx context.Context) (string, error) {
	var v string
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT version_marker FROM ledger_meta WHERE id = 1`).Scan(&v)
	return v, err
}

func (s *Store) SetVersionMarker(ctx context.Context, v string) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE ledger_meta SET version_marker = $1 WHERE id = 1`, v)
	return err
}
