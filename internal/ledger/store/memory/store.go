// Package memory holds the in-process ledger store. It is the default store
// and the reference semantics for the postgres implementation.
package memory

import (
	"context"
	"fmt"
	"sync"

	"almoner/internal/ledger/models"
	"almoner/pkg/platform/sentinel"
)

// Store keeps every table as an owned, key-indexed structure behind one
// RWMutex. Accessors return copies; internal slices and maps never escape.
type Store struct {
	mu sync.RWMutex

	initialized   bool
	versionMarker string

	roles map[models.Role]map[string]bool

	proposals  []models.Proposal
	recipients []models.Recipient

	entries          []models.Entry
	escrow           map[int64]int64
	contributorTotal map[string]int64
	contributorOrder []string
	totalDonated     int64
	totalWithdrawn   int64
}

func New() *Store {
	return &Store{
		roles: map[models.Role]map[string]bool{
			models.RoleAdministrator:      {},
			models.RoleSuperAdministrator: {},
		},
		escrow:           make(map[int64]int64),
		contributorTotal: make(map[string]int64),
	}
}

func (s *Store) Initialized(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized, nil
}

func (s *Store) MarkInitialized(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}

func (s *Store) HasRole(_ context.Context, role models.Role, addr string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles[role][addr], nil
}

func (s *Store) GrantRole(_ context.Context, role models.Role, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roles[role] == nil {
		s.roles[role] = make(map[string]bool)
	}
	s.roles[role][addr] = true
	return nil
}

func (s *Store) RevokeRole(_ context.Context, role models.Role, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles[role], addr)
	return nil
}

func (s *Store) InsertProposal(_ context.Context, p models.Proposal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = int64(len(s.proposals)) + 1
	s.proposals = append(s.proposals, p)
	return p.ID, nil
}

func (s *Store) GetProposal(_ context.Context, id int64) (models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 1 || id > int64(len(s.proposals)) {
		return models.Proposal{}, fmt.Errorf("proposal %d: %w", id, sentinel.ErrNotFound)
	}
	return s.proposals[id-1], nil
}

func (s *Store) MarkProcessed(_ context.Context, id int64, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > int64(len(s.proposals)) {
		return fmt.Errorf("proposal %d: %w", id, sentinel.ErrNotFound)
	}
	s.proposals[id-1].Processed = true
	s.proposals[id-1].Approved = approved
	return nil
}

func (s *Store) ProposalCount(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.proposals)), nil
}

func (s *Store) ListPendingProposals(_ context.Context) ([]models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []models.Proposal
	for _, p := range s.proposals {
		if p.Pending() {
			pending = append(pending, p)
		}
	}
	return pending, nil
}

func (s *Store) InsertRecipient(_ context.Context, r models.Recipient) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = int64(len(s.recipients)) + 1
	s.recipients = append(s.recipients, r)
	s.escrow[r.ID] = 0
	return r.ID, nil
}

func (s *Store) GetRecipient(_ context.Context, id int64) (models.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 1 || id > int64(len(s.recipients)) {
		return models.Recipient{}, fmt.Errorf("recipient %d: %w", id, sentinel.ErrNotFound)
	}
	return s.recipients[id-1], nil
}

func (s *Store) SetRecipientActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > int64(len(s.recipients)) {
		return fmt.Errorf("recipient %d: %w", id, sentinel.ErrNotFound)
	}
	s.recipients[id-1].Active = active
	return nil
}

func (s *Store) RecipientCount(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.recipients)), nil
}

func (s *Store) ListRecipients(_ context.Context, activeOnly bool) ([]models.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Recipient, 0, len(s.recipients))
	for _, r := range s.recipients {
		if activeOnly && !r.Active {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) ApplyDonation(_ context.Context, entry models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := entry.RecipientID
	if id < 1 || id > int64(len(s.recipients)) {
		return fmt.Errorf("recipient %d: %w", id, sentinel.ErrNotFound)
	}

	s.recipients[id-1].LifetimeReceived += entry.Amount
	s.escrow[id] += entry.Amount
	s.totalDonated += entry.Amount
	if _, seen := s.contributorTotal[entry.Contributor]; !seen {
		s.contributorOrder = append(s.contributorOrder, entry.Contributor)
	}
	s.contributorTotal[entry.Contributor] += entry.Amount

	entry.Seq = int64(len(s.entries)) + 1
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Store) EscrowBalance(_ context.Context, recipientID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.escrow[recipientID], nil
}

func (s *Store) DebitEscrow(_ context.Context, recipientID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if recipientID < 1 || recipientID > int64(len(s.recipients)) {
		return 0, fmt.Errorf("recipient %d: %w", recipientID, sentinel.ErrNotFound)
	}
	amount := s.escrow[recipientID]
	s.escrow[recipientID] = 0
	return amount, nil
}

func (s *Store) CreditEscrow(_ context.Context, recipientID int64, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if recipientID < 1 || recipientID > int64(len(s.recipients)) {
		return fmt.Errorf("recipient %d: %w", recipientID, sentinel.ErrNotFound)
	}
	s.escrow[recipientID] += amount
	return nil
}

func (s *Store) RecordWithdrawal(_ context.Context, _ int64, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalWithdrawn += amount
	return nil
}

func (s *Store) ContributorTotal(_ context.Context, addr string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contributorTotal[addr], nil
}

func (s *Store) Contributors(_ context.Context) ([]models.ContributorTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ContributorTotal, 0, len(s.contributorOrder))
	for _, addr := range s.contributorOrder {
		out = append(out, models.ContributorTotal{Address: addr, Total: s.contributorTotal[addr]})
	}
	return out, nil
}

func (s *Store) RecentEntries(_ context.Context, limit int) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit < 0 {
		limit = 0
	}
	if limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]models.Entry, 0, limit)
	for i := len(s.entries) - 1; i >= len(s.entries)-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *Store) Stats(_ context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var balance int64
	for _, amount := range s.escrow {
		balance += amount
	}
	return models.Stats{
		RecipientCount: int64(len(s.recipients)),
		ProposalCount:  int64(len(s.proposals)),
		TotalDonated:   s.totalDonated,
		TotalWithdrawn: s.totalWithdrawn,
		LedgerBalance:  balance,
	}, nil
}

func (s *Store) VersionMarker(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versionMarker, nil
}

func (s *Store) SetVersionMarker(_ context.Context, v string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versionMarker = v
	return nil
}
