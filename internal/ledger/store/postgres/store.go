// Package postgres is the durable ledger store. Multi-statement mutations
// run inside a database transaction carried through context by the service's
// TxRunner (see runner.go), so a store method is oblivious to whether it is
// one step of a larger unit.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"almoner/internal/ledger/models"
	"almoner/pkg/platform/sentinel"
	txcontext "almoner/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

// Open ensures the schema exists and checks the stored schema version
// against what this build understands.
func Open(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO ledger_meta (id, schema_version) VALUES (1, $1)
		ON CONFLICT (id) DO NOTHING
	`, models.SchemaVersion); err != nil {
		return nil, fmt.Errorf("seed meta row: %w", err)
	}

	var stored int
	if err := db.QueryRowContext(ctx,
		`SELECT schema_version FROM ledger_meta WHERE id = 1`).Scan(&stored); err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	if stored != models.SchemaVersion {
		return nil, fmt.Errorf("stored schema %d, logic expects %d: %w",
			stored, models.SchemaVersion, sentinel.ErrSchemaVersion)
	}
	return &Store{db: db}, nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Initialized(ctx context.Context) (bool, error) {
	var done bool
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT initialized FROM ledger_meta WHERE id = 1`).Scan(&done)
	return done, err
}

func (s *Store) MarkInitialized(ctx context.Context) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE ledger_meta SET initialized = true WHERE id = 1`)
	return err
}

func (s *Store) HasRole(ctx context.Context, role models.Role, addr string) (bool, error) {
	var one int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT 1 FROM roles WHERE role = $1 AND address = $2`, role, addr).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) GrantRole(ctx context.Context, role models.Role, addr string) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO roles (role, address) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, role, addr)
	return err
}

func (s *Store) RevokeRole(ctx context.Context, role models.Role, addr string) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM roles WHERE role = $1 AND address = $2`, role, addr)
	return err
}

func (s *Store) InsertProposal(ctx context.Context, p models.Proposal) (int64, error) {
	var id int64
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO proposals (name, description, payout_address, proposer, processed, approved, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, p.Name, p.Description, p.PayoutAddress, p.Proposer, p.Processed, p.Approved, p.SubmittedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert proposal: %w", err)
	}
	return id, nil
}

func (s *Store) GetProposal(ctx context.Context, id int64) (models.Proposal, error) {
	var p models.Proposal
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, name, description, payout_address, proposer, processed, approved, submitted_at
		FROM proposals WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.PayoutAddress, &p.Proposer,
		&p.Processed, &p.Approved, &p.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Proposal{}, fmt.Errorf("proposal %d: %w", id, sentinel.ErrNotFound)
	}
	return p, err
}

func (s *Store) MarkProcessed(ctx context.Context, id int64, approved bool) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE proposals SET processed = true, approved = $2 WHERE id = $1`, id, approved)
	if err != nil {
		return err
	}
	return oneRow(res, fmt.Sprintf("proposal %d", id))
}

func (s *Store) ProposalCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.q(ctx).QueryRowContext(ctx, `SELECT count(*) FROM proposals`).Scan(&n)
	return n, err
}

func (s *Store) ListPendingProposals(ctx context.Context) ([]models.Proposal, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, name, description, payout_address, proposer, processed, approved, submitted_at
		FROM proposals WHERE NOT processed ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []models.Proposal
	for rows.Next() {
		var p models.Proposal
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PayoutAddress, &p.Proposer,
			&p.Processed, &p.Approved, &p.SubmittedAt); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (s *Store) InsertRecipient(ctx context.Context, r models.Recipient) (int64, error) {
	var id int64
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO recipients (name, description, payout_address, lifetime_received, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, r.Name, r.Description, r.PayoutAddress, r.LifetimeReceived, r.Active, r.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert recipient: %w", err)
	}
	return id, nil
}

func (s *Store) GetRecipient(ctx context.Context, id int64) (models.Recipient, error) {
	var r models.Recipient
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, name, description, payout_address, lifetime_received, active, created_at
		FROM recipients WHERE id = $1
	`, id).Scan(&r.ID, &r.Name, &r.Description, &r.PayoutAddress,
		&r.LifetimeReceived, &r.Active, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Recipient{}, fmt.Errorf("recipient %d: %w", id, sentinel.ErrNotFound)
	}
	return r, err
}

func (s *Store) SetRecipientActive(ctx context.Context, id int64, active bool) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE recipients SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	return oneRow(res, fmt.Sprintf("recipient %d", id))
}

func (s *Store) RecipientCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.q(ctx).QueryRowContext(ctx, `SELECT count(*) FROM recipients`).Scan(&n)
	return n, err
}

func (s *Store) ListRecipients(ctx context.Context, activeOnly bool) ([]models.Recipient, error) {
	query := `
		SELECT id, name, description, payout_address, lifetime_received, active, created_at
		FROM recipients ORDER BY id
	`
	if activeOnly {
		query = `
			SELECT id, name, description, payout_address, lifetime_received, active, created_at
			FROM recipients WHERE active ORDER BY id
		`
	}
	rows, err := s.q(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Recipient{}
	for rows.Next() {
		var r models.Recipient
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.PayoutAddress,
			&r.LifetimeReceived, &r.Active, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func oneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, sentinel.ErrNotFound)
	}
	return nil
}
