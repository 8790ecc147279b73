//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"almoner/internal/ledger/models"
	"almoner/pkg/platform/sentinel"
	"almoner/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	store  *Store
	runner *Runner
	ctx    context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())

	var err error
	s.store, err = Open(s.ctx, s.pg.DB)
	s.Require().NoError(err)
	s.runner = NewRunner(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

func (s *PostgresStoreSuite) addRecipient(name, payout string) int64 {
	id, err := s.store.InsertRecipient(s.ctx, models.Recipient{
		Name:          name,
		PayoutAddress: payout,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	})
	s.Require().NoError(err)
	return id
}

func (s *PostgresStoreSuite) apply(contributor string, recipientID, amount int64) {
	s.Require().NoError(s.store.ApplyDonation(s.ctx, models.Entry{
		Contributor: contributor,
		RecipientID: recipientID,
		Amount:      amount,
		Timestamp:   time.Now().UTC(),
	}))
}

func (s *PostgresStoreSuite) TestOpenIsIdempotent() {
	again, err := Open(s.ctx, s.pg.DB)
	s.NoError(err)
	s.NotNil(again)
}

func (s *PostgresStoreSuite) TestRolesRoundTrip() {
	ok, err := s.store.HasRole(s.ctx, models.RoleAdministrator, "addr:alice")
	s.NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.GrantRole(s.ctx, models.RoleAdministrator, "addr:alice"))
	s.Require().NoError(s.store.GrantRole(s.ctx, models.RoleAdministrator, "addr:alice"), "regrant is idempotent")

	ok, err = s.store.HasRole(s.ctx, models.RoleAdministrator, "addr:alice")
	s.NoError(err)
	s.True(ok)

	s.Require().NoError(s.store.RevokeRole(s.ctx, models.RoleAdministrator, "addr:alice"))
	ok, err = s.store.HasRole(s.ctx, models.RoleAdministrator, "addr:alice")
	s.NoError(err)
	s.False(ok)
}

func (s *PostgresStoreSuite) TestProposalLifecycle() {
	id, err := s.store.InsertProposal(s.ctx, models.Proposal{
		Name:          "Food Bank",
		PayoutAddress: "addr:foodbank",
		Proposer:      "addr:alice",
		SubmittedAt:   time.Now().UTC(),
	})
	s.Require().NoError(err)

	pending, err := s.store.ListPendingProposals(s.ctx)
	s.Require().NoError(err)
	s.Len(pending, 1)

	s.Require().NoError(s.store.MarkProcessed(s.ctx, id, true))
	got, err := s.store.GetProposal(s.ctx, id)
	s.Require().NoError(err)
	s.True(got.Processed)
	s.True(got.Approved)

	pending, err = s.store.ListPendingProposals(s.ctx)
	s.Require().NoError(err)
	s.Empty(pending)

	s.ErrorIs(s.store.MarkProcessed(s.ctx, 999, true), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDonationBookkeeping() {
	id := s.addRecipient("Shelter", "addr:shelter")
	s.apply("addr:alice", id, 100)
	s.apply("addr:bob", id, 50)
	s.apply("addr:alice", id, 25)

	balance, err := s.store.EscrowBalance(s.ctx, id)
	s.NoError(err)
	s.Equal(int64(175), balance)

	recipient, err := s.store.GetRecipient(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(int64(175), recipient.LifetimeReceived)

	contributors, err := s.store.Contributors(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(contributors, 2)
	s.Equal("addr:alice", contributors[0].Address, "first donor keeps index position")
	s.Equal(int64(125), contributors[0].Total)
	s.Equal("addr:bob", contributors[1].Address)

	recent, err := s.store.RecentEntries(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(int64(3), recent[0].Seq)

	stats, err := s.store.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(175), stats.TotalDonated)
	s.Equal(int64(175), stats.LedgerBalance)
}

func (s *PostgresStoreSuite) TestEscrowDebitCredit() {
	id := s.addRecipient("Shelter", "addr:shelter")
	s.apply("addr:alice", id, 300)

	amount, err := s.store.DebitEscrow(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(int64(300), amount)

	balance, err := s.store.EscrowBalance(s.ctx, id)
	s.NoError(err)
	s.Zero(balance)

	s.Require().NoError(s.store.CreditEscrow(s.ctx, id, 300))
	balance, err = s.store.EscrowBalance(s.ctx, id)
	s.NoError(err)
	s.Equal(int64(300), balance)

	_, err = s.store.DebitEscrow(s.ctx, 999)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRunnerRollsBack() {
	id := s.addRecipient("Shelter", "addr:shelter")

	boom := s.runner.RunInTx(s.ctx, func(ctx context.Context) error {
		s.Require().NoError(s.store.ApplyDonation(ctx, models.Entry{
			Contributor: "addr:alice",
			RecipientID: id,
			Amount:      100,
			Timestamp:   time.Now().UTC(),
		}))
		// Fail after the first statement; nothing may stick.
		return context.Canceled
	})
	s.Error(boom)

	stats, err := s.store.Stats(s.ctx)
	s.Require().NoError(err)
	s.Zero(stats.TotalDonated)
	s.Zero(stats.LedgerBalance)
}

func (s *PostgresStoreSuite) TestSnapshotRoundTrip() {
	s.Require().NoError(s.store.GrantRole(s.ctx, models.RoleSuperAdministrator, "addr:deployer"))
	id := s.addRecipient("Shelter", "addr:shelter")
	s.apply("addr:alice", id, 100)
	s.Require().NoError(s.store.SetVersionMarker(s.ctx, "v-test"))
	s.Require().NoError(s.store.MarkInitialized(s.ctx))

	snap, err := s.store.Snapshot(s.ctx)
	s.Require().NoError(err)
	s.True(snap.Initialized)
	s.Equal("v-test", snap.VersionMarker)
	s.Equal(int64(100), snap.Escrow[id])

	s.Require().NoError(s.pg.TruncateAll(s.ctx))
	s.Require().NoError(s.store.Restore(s.ctx, snap))

	stats, err := s.store.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(100), stats.TotalDonated)

	// Sequences continue past the restored rows.
	s.apply("addr:bob", id, 10)
	recent, err := s.store.RecentEntries(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(recent, 1)
	s.Equal(int64(2), recent[0].Seq)

	next := s.addRecipient("Library", "addr:library")
	s.Equal(id+1, next)

	marker, err := s.store.VersionMarker(s.ctx)
	s.NoError(err)
	s.Equal("v-test", marker)

	ok, err := s.store.HasRole(s.ctx, models.RoleSuperAdministrator, "addr:deployer")
	s.NoError(err)
	s.True(ok)
}

func (s *PostgresStoreSuite) TestVersionMarker() {
	s.Require().NoError(s.store.SetVersionMarker(s.ctx, "2026.08"))
	marker, err := s.store.VersionMarker(s.ctx)
	s.NoError(err)
	s.Equal("2026.08", marker)
}
