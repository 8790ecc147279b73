package memory

import (
	"context"

	"almoner/internal/ledger/models"
)

// Snapshot copies the entire store state into the versioned migration
// structure.
func (s *Store) Snapshot(_ context.Context) (models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.Snapshot{
		SchemaVersion:  models.SchemaVersion,
		Initialized:    s.initialized,
		VersionMarker:  s.versionMarker,
		TotalDonated:   s.totalDonated,
		TotalWithdrawn: s.totalWithdrawn,
		Recipients:     append([]models.Recipient(nil), s.recipients...),
		Proposals:      append([]models.Proposal(nil), s.proposals...),
		Entries:        append([]models.Entry(nil), s.entries...),
		Escrow:         make(map[int64]int64, len(s.escrow)),
		Roles:          make(map[models.Role][]string, len(s.roles)),
	}
	for id, amount := range s.escrow {
		snap.Escrow[id] = amount
	}
	for _, addr := range s.contributorOrder {
		snap.Contributors = append(snap.Contributors, models.ContributorTotal{
			Address: addr,
			Total:   s.contributorTotal[addr],
		})
	}
	for role, members := range s.roles {
		for addr := range members {
			snap.Roles[role] = append(snap.Roles[role], addr)
		}
	}
	return snap, nil
}

// Restore replaces the store state with the snapshot's. The service has
// already verified the schema version and that the store is uninitialized.
func (s *Store) Restore(_ context.Context, snap models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = snap.Initialized
	s.versionMarker = snap.VersionMarker
	s.totalDonated = snap.TotalDonated
	s.totalWithdrawn = snap.TotalWithdrawn
	s.recipients = append([]models.Recipient(nil), snap.Recipients...)
	s.proposals = append([]models.Proposal(nil), snap.Proposals...)
	s.entries = append([]models.Entry(nil), snap.Entries...)

	s.escrow = make(map[int64]int64, len(snap.Escrow))
	for id, amount := range snap.Escrow {
		s.escrow[id] = amount
	}

	s.contributorTotal = make(map[string]int64, len(snap.Contributors))
	s.contributorOrder = s.contributorOrder[:0]
	for _, c := range snap.Contributors {
		s.contributorTotal[c.Address] = c.Total
		s.contributorOrder = append(s.contributorOrder, c.Address)
	}

	s.roles = map[models.Role]map[string]bool{
		models.RoleAdministrator:      {},
		models.RoleSuperAdministrator: {},
	}
	for role, members := range snap.Roles {
		if s.roles[role] == nil {
			s.roles[role] = make(map[string]bool)
		}
		for _, addr := range members {
			s.roles[role][addr] = true
		}
	}
	return nil
}
