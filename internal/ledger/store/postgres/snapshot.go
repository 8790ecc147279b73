package postgres

import (
	"context"
	"fmt"

	"almoner/internal/ledger/models"
)

func (s *Store) Snapshot(ctx context.Context) (models.Snapshot, error) {
	q := s.q(ctx)
	snap := models.Snapshot{
		SchemaVersion: models.SchemaVersion,
		Escrow:        make(map[int64]int64),
		Roles:         make(map[models.Role][]string),
	}

	err := q.QueryRowContext(ctx, `
		SELECT initialized, version_marker, total_donated, total_withdrawn
		FROM ledger_meta WHERE id = 1
	`).Scan(&snap.Initialized, &snap.VersionMarker, &snap.TotalDonated, &snap.TotalWithdrawn)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("snapshot meta: %w", err)
	}

	recipients, err := s.ListRecipients(ctx, false)
	if err != nil {
		return models.Snapshot{}, err
	}
	snap.Recipients = recipients
	for _, r := range recipients {
		balance, err := s.EscrowBalance(ctx, r.ID)
		if err != nil {
			return models.Snapshot{}, err
		}
		snap.Escrow[r.ID] = balance
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, name, description, payout_address, proposer, processed, approved, submitted_at
		FROM proposals ORDER BY id
	`)
	if err != nil {
		return models.Snapshot{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var p models.Proposal
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PayoutAddress, &p.Proposer,
			&p.Processed, &p.Approved, &p.SubmittedAt); err != nil {
			return models.Snapshot{}, err
		}
		snap.Proposals = append(snap.Proposals, p)
	}
	if err := rows.Err(); err != nil {
		return models.Snapshot{}, err
	}

	entryRows, err := q.QueryContext(ctx, `
		SELECT seq, contributor, recipient_id, amount, ts FROM entries ORDER BY seq
	`)
	if err != nil {
		return models.Snapshot{}, err
	}
	defer entryRows.Close()
	for entryRows.Next() {
		var e models.Entry
		if err := entryRows.Scan(&e.Seq, &e.Contributor, &e.RecipientID, &e.Amount, &e.Timestamp); err != nil {
			return models.Snapshot{}, err
		}
		snap.Entries = append(snap.Entries, e)
	}
	if err := entryRows.Err(); err != nil {
		return models.Snapshot{}, err
	}

	contributors, err := s.Contributors(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}
	snap.Contributors = contributors

	roleRows, err := q.QueryContext(ctx, `SELECT role, address FROM roles ORDER BY role, address`)
	if err != nil {
		return models.Snapshot{}, err
	}
	defer roleRows.Close()
	for roleRows.Next() {
		var role models.Role
		var addr string
		if err := roleRows.Scan(&role, &addr); err != nil {
			return models.Snapshot{}, err
		}
		snap.Roles[role] = append(snap.Roles[role], addr)
	}
	return snap, roleRows.Err()
}

// Restore writes a snapshot into empty tables, preserving ids and the
// append order of entries. The caller wraps it in a transaction.
func (s *Store) Restore(ctx context.Context, snap models.Snapshot) error {
	q := s.q(ctx)

	if _, err := q.ExecContext(ctx, `
		UPDATE ledger_meta
		SET initialized = $1, version_marker = $2, total_donated = $3, total_withdrawn = $4
		WHERE id = 1
	`, snap.Initialized, snap.VersionMarker, snap.TotalDonated, snap.TotalWithdrawn); err != nil {
		return fmt.Errorf("restore meta: %w", err)
	}

	for role, members := range snap.Roles {
		for _, addr := range members {
			if err := s.GrantRole(ctx, role, addr); err != nil {
				return err
			}
		}
	}

	for _, p := range snap.Proposals {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO proposals (id, name, description, payout_address, proposer, processed, approved, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, p.ID, p.Name, p.Description, p.PayoutAddress, p.Proposer, p.Processed, p.Approved, p.SubmittedAt); err != nil {
			return fmt.Errorf("restore proposal %d: %w", p.ID, err)
		}
	}

	for _, r := range snap.Recipients {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO recipients (id, name, description, payout_address, lifetime_received, escrow, active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, r.ID, r.Name, r.Description, r.PayoutAddress, r.LifetimeReceived,
			snap.Escrow[r.ID], r.Active, r.CreatedAt); err != nil {
			return fmt.Errorf("restore recipient %d: %w", r.ID, err)
		}
	}

	firstSeq := make(map[string]int64)
	for _, e := range snap.Entries {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO entries (seq, contributor, recipient_id, amount, ts)
			VALUES ($1, $2, $3, $4, $5)
		`, e.Seq, e.Contributor, e.RecipientID, e.Amount, e.Timestamp); err != nil {
			return fmt.Errorf("restore entry %d: %w", e.Seq, err)
		}
		if _, seen := firstSeq[e.Contributor]; !seen {
			firstSeq[e.Contributor] = e.Seq
		}
	}

	for i, c := range snap.Contributors {
		seq, ok := firstSeq[c.Address]
		if !ok {
			// Contributor with no surviving entries keeps index order.
			seq = int64(i) + 1
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO contributors (address, total, first_seq) VALUES ($1, $2, $3)
		`, c.Address, c.Total, seq); err != nil {
			return fmt.Errorf("restore contributor %s: %w", c.Address, err)
		}
	}

	// Move the serials past the restored ids.
	for _, fix := range []string{
		`SELECT setval(pg_get_serial_sequence('proposals', 'id'), COALESCE((SELECT max(id) FROM proposals), 0) + 1, false)`,
		`SELECT setval(pg_get_serial_sequence('recipients', 'id'), COALESCE((SELECT max(id) FROM recipients), 0) + 1, false)`,
		`SELECT setval(pg_get_serial_sequence('entries', 'seq'), COALESCE((SELECT max(seq) FROM entries), 0) + 1, false)`,
	} {
		if _, err := q.ExecContext(ctx, fix); err != nil {
			return fmt.Errorf("reset sequence: %w", err)
		}
	}
	return nil
}
