package service

import (
	"context"
	"sort"

	"almoner/internal/ledger/models"
)

// Leaderboard ranks contributors by running total, descending, ties broken by
// first-donation order (earlier contributor ranks higher), truncated to
// limit. A full sort per call is O(n log n) in the contributor count, which
// is fine while that set is small; the store snapshot keeps the ranking
// consistent, never mixing pre- and post-mutation totals.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]models.ContributorTotal, error) {
	contributors, err := s.store.Contributors(ctx)
	if err != nil {
		return nil, err
	}
	// Contributors is in first-donation order; a stable sort on totals alone
	// therefore yields exactly the documented tiebreak.
	sort.SliceStable(contributors, func(i, j int) bool {
		return contributors[i].Total > contributors[j].Total
	})
	if limit < 0 {
		limit = 0
	}
	if limit < len(contributors) {
		contributors = contributors[:limit]
	}
	return contributors, nil
}

// RecentActivity returns the last limit ledger entries, most recent first.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]models.Entry, error) {
	return s.store.RecentEntries(ctx, limit)
}

// ContributorTotal returns the running donation sum for one address; zero for
// an address that never donated.
func (s *Service) ContributorTotal(ctx context.Context, addr string) (int64, error) {
	return s.store.ContributorTotal(ctx, addr)
}

// EscrowBalance returns the amount currently held for a recipient.
func (s *Service) EscrowBalance(ctx context.Context, recipientID int64) (int64, error) {
	if _, err := s.store.GetRecipient(ctx, recipientID); err != nil {
		return 0, err
	}
	return s.store.EscrowBalance(ctx, recipientID)
}

// Stats returns the top-level accounting view: counts, total donated, total
// withdrawn, and the ledger balance (the sum of all escrow holdings).
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	return s.store.Stats(ctx)
}
