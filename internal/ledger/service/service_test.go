package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"almoner/internal/events"
	"almoner/internal/ledger/models"
	"almoner/internal/ledger/store/memory"
	"almoner/pkg/platform/sentinel"
	"almoner/pkg/requestcontext"
)

const (
	deployer = "addr:deployer"
	alice    = "addr:alice"
	bob      = "addr:bob"
	carol    = "addr:carol"
	shelter  = "addr:shelter-payout"
	library  = "addr:library-payout"
)

// fakeSink records transfers and can be told to reject them.
type fakeSink struct {
	transfers []transfer
	fail      bool
}

type transfer struct {
	to     string
	amount int64
}

func (f *fakeSink) Transfer(_ context.Context, to string, amount int64) error {
	if f.fail {
		return errors.New("payout processor unavailable")
	}
	f.transfers = append(f.transfers, transfer{to: to, amount: amount})
	return nil
}

// reentrantSink calls back into the service mid-transfer, the way a hostile
// payout target would.
type reentrantSink struct {
	svc         *Service
	recipientID int64
	donateErr   error
	withdrawErr error
}

func (f *reentrantSink) Transfer(ctx context.Context, _ string, _ int64) error {
	_, f.donateErr = f.svc.Donate(ctx, f.recipientID, 1)
	_, f.withdrawErr = f.svc.Withdraw(ctx, f.recipientID)
	return nil
}

type ServiceSuite struct {
	suite.Suite
	store     *memory.Store
	sink      *fakeSink
	publisher *events.Publisher
	svc       *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = memory.New()
	s.sink = &fakeSink{}
	s.publisher = events.NewPublisher(events.NewMemoryLog(), 16, logger)
	s.svc = New(s.store, PassthroughTx{}, s.sink, s.publisher, nil, logger)
}

func (s *ServiceSuite) asCaller(addr string) context.Context {
	return requestcontext.WithCaller(context.Background(), addr)
}

// initialize runs genesis with two seed recipients: id 1 pays out to shelter,
// id 2 to library.
func (s *ServiceSuite) initialize() {
	err := s.svc.Initialize(s.asCaller(deployer), []models.GenesisRecipient{
		{Name: "Shelter", Description: "animal shelter", PayoutAddress: shelter},
		{Name: "Library", PayoutAddress: library},
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) donate(caller string, recipientID, amount int64) {
	_, err := s.svc.Donate(s.asCaller(caller), recipientID, amount)
	s.Require().NoError(err)
}

func (s *ServiceSuite) stats() models.Stats {
	stats, err := s.svc.Stats(context.Background())
	s.Require().NoError(err)
	return stats
}

// =============================================================================
// Initialization
// =============================================================================

func (s *ServiceSuite) TestInitialize() {
	s.Run("deployer receives both governance roles", func() {
		s.SetupTest()
		s.initialize()

		for _, role := range []models.Role{models.RoleAdministrator, models.RoleSuperAdministrator} {
			ok, err := s.svc.HasRole(context.Background(), role, deployer)
			s.NoError(err)
			s.True(ok, "deployer should hold %s", role)
		}
	})

	s.Run("seeds become active recipients with processed proposals", func() {
		s.SetupTest()
		s.initialize()

		recipients, err := s.svc.ListRecipients(context.Background(), false)
		s.Require().NoError(err)
		s.Require().Len(recipients, 2)
		s.Equal(int64(1), recipients[0].ID)
		s.Equal("Shelter", recipients[0].Name)
		s.True(recipients[0].Active)
		s.Equal(int64(2), recipients[1].ID)

		pending, err := s.svc.PendingProposals(context.Background())
		s.Require().NoError(err)
		s.Empty(pending, "seed proposals arrive pre-processed")

		st := s.stats()
		s.Equal(int64(2), st.RecipientCount)
		s.Equal(int64(2), st.ProposalCount)
	})

	s.Run("second initialization is refused", func() {
		s.SetupTest()
		s.initialize()

		err := s.svc.Initialize(s.asCaller(alice), nil)
		s.ErrorIs(err, sentinel.ErrAlreadyInitialized)

		ok, err := s.svc.HasRole(context.Background(), models.RoleSuperAdministrator, alice)
		s.NoError(err)
		s.False(ok, "failed initialize must grant nothing")
	})

	s.Run("anonymous caller is refused", func() {
		s.SetupTest()
		err := s.svc.Initialize(context.Background(), nil)
		s.ErrorIs(err, sentinel.ErrUnauthorized)
	})

	s.Run("seed without payout address is refused", func() {
		s.SetupTest()
		err := s.svc.Initialize(s.asCaller(deployer), []models.GenesisRecipient{{Name: "Broken"}})
		s.ErrorIs(err, sentinel.ErrInvalidInput)

		done, err := s.store.Initialized(context.Background())
		s.NoError(err)
		s.False(done)
	})
}

// =============================================================================
// Donations
// =============================================================================

func (s *ServiceSuite) TestDonate() {
	s.Run("credits escrow and all running totals", func() {
		s.SetupTest()
		s.initialize()

		entry, err := s.svc.Donate(s.asCaller(alice), 1, 250)
		s.Require().NoError(err)
		s.Equal(int64(1), entry.Seq)
		s.Equal(alice, entry.Contributor)
		s.Equal(int64(250), entry.Amount)

		balance, err := s.svc.EscrowBalance(context.Background(), 1)
		s.NoError(err)
		s.Equal(int64(250), balance)

		total, err := s.svc.ContributorTotal(context.Background(), alice)
		s.NoError(err)
		s.Equal(int64(250), total)

		recipient, err := s.svc.GetRecipient(context.Background(), 1)
		s.NoError(err)
		s.Equal(int64(250), recipient.LifetimeReceived)

		st := s.stats()
		s.Equal(int64(250), st.TotalDonated)
		s.Equal(int64(250), st.LedgerBalance)
	})

	s.Run("entries get strictly increasing sequence numbers", func() {
		s.SetupTest()
		s.initialize()

		first, err := s.svc.Donate(s.asCaller(alice), 1, 10)
		s.Require().NoError(err)
		second, err := s.svc.Donate(s.asCaller(bob), 2, 20)
		s.Require().NoError(err)
		s.Equal(first.Seq+1, second.Seq)
	})

	s.Run("zero and negative amounts are refused", func() {
		s.SetupTest()
		s.initialize()

		_, err := s.svc.Donate(s.asCaller(alice), 1, 0)
		s.ErrorIs(err, sentinel.ErrInvalidAmount)
		_, err = s.svc.Donate(s.asCaller(alice), 1, -5)
		s.ErrorIs(err, sentinel.ErrInvalidAmount)

		s.Equal(int64(0), s.stats().TotalDonated)
	})

	s.Run("unknown recipient is refused", func() {
		s.SetupTest()
		s.initialize()

		_, err := s.svc.Donate(s.asCaller(alice), 99, 10)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("inactive recipient is refused", func() {
		s.SetupTest()
		s.initialize()
		_, err := s.svc.ToggleActive(s.asCaller(deployer), 1)
		s.Require().NoError(err)

		_, err = s.svc.Donate(s.asCaller(alice), 1, 10)
		s.ErrorIs(err, sentinel.ErrInactive)
	})

	s.Run("anonymous caller is refused", func() {
		s.SetupTest()
		s.initialize()

		_, err := s.svc.Donate(context.Background(), 1, 10)
		s.ErrorIs(err, sentinel.ErrUnauthorized)
	})

	s.Run("emits a donation event", func() {
		s.SetupTest()
		s.initialize()
		s.donate(alice, 1, 42)

		recent, err := s.publisher.Recent(context.Background(), 1)
		s.Require().NoError(err)
		s.Require().Len(recent, 1)
		s.Equal(events.KindDonationReceived, recent[0].Kind)
		s.Equal(alice, recent[0].Contributor)
		s.Equal(int64(42), recent[0].Amount)
	})
}

// =============================================================================
// Proposal workflow
// =============================================================================

func (s *ServiceSuite) TestProposalWorkflow() {
	s.Run("anyone may propose", func() {
		s.SetupTest()
		s.initialize()

		proposal, err := s.svc.ProposeRecipient(s.asCaller(alice), "Food Bank", "meals", "addr:foodbank")
		s.Require().NoError(err)
		s.Equal(int64(3), proposal.ID, "ids continue after the genesis proposals")
		s.Equal(alice, proposal.Proposer)
		s.False(proposal.Processed)

		pending, err := s.svc.PendingProposals(context.Background())
		s.Require().NoError(err)
		s.Len(pending, 1)
	})

	s.Run("name and payout address are required", func() {
		s.SetupTest()
		s.initialize()

		_, err := s.svc.ProposeRecipient(s.asCaller(alice), "", "", "addr:x")
		s.ErrorIs(err, sentinel.ErrInvalidInput)
		_, err = s.svc.ProposeRecipient(s.asCaller(alice), "X", "", "")
		s.ErrorIs(err, sentinel.ErrInvalidInput)
	})

	s.Run("approval requires an administrator", func() {
		s.SetupTest()
		s.initialize()
		proposal, err := s.svc.ProposeRecipient(s.asCaller(alice), "Food Bank", "", "addr:foodbank")
		s.Require().NoError(err)

		_, err = s.svc.ApproveProposal(s.asCaller(alice), proposal.ID)
		s.ErrorIs(err, sentinel.ErrUnauthorized)

		pending, err := s.svc.PendingProposals(context.Background())
		s.Require().NoError(err)
		s.Len(pending, 1, "denied approval must leave the proposal pending")
	})

	s.Run("approval creates exactly one recipient, exactly once", func() {
		s.SetupTest()
		s.initialize()
		proposal, err := s.svc.ProposeRecipient(s.asCaller(alice), "Food Bank", "meals", "addr:foodbank")
		s.Require().NoError(err)

		recipient, err := s.svc.ApproveProposal(s.asCaller(deployer), proposal.ID)
		s.Require().NoError(err)
		s.Equal(int64(3), recipient.ID)
		s.Equal("Food Bank", recipient.Name)
		s.True(recipient.Active)

		_, err = s.svc.ApproveProposal(s.asCaller(deployer), proposal.ID)
		s.ErrorIs(err, sentinel.ErrAlreadyProcessed)
		s.Equal(int64(3), s.stats().RecipientCount)
	})

	s.Run("rejection processes the proposal without a recipient", func() {
		s.SetupTest()
		s.initialize()
		proposal, err := s.svc.ProposeRecipient(s.asCaller(alice), "Food Bank", "", "addr:foodbank")
		s.Require().NoError(err)

		s.Require().NoError(s.svc.RejectProposal(s.asCaller(deployer), proposal.ID))
		s.Equal(int64(2), s.stats().RecipientCount)

		err = s.svc.RejectProposal(s.asCaller(deployer), proposal.ID)
		s.ErrorIs(err, sentinel.ErrAlreadyProcessed)
		_, err = s.svc.ApproveProposal(s.asCaller(deployer), proposal.ID)
		s.ErrorIs(err, sentinel.ErrAlreadyProcessed)
	})

	s.Run("unknown proposal", func() {
		s.SetupTest()
		s.initialize()
		_, err := s.svc.ApproveProposal(s.asCaller(deployer), 404)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// =============================================================================
// Recipient status
// =============================================================================

func (s *ServiceSuite) TestToggleActive() {
	s.Run("requires an administrator", func() {
		s.SetupTest()
		s.initialize()
		_, err := s.svc.ToggleActive(s.asCaller(alice), 1)
		s.ErrorIs(err, sentinel.ErrUnauthorized)
	})

	s.Run("deactivation preserves escrow and allows withdrawal", func() {
		s.SetupTest()
		s.initialize()
		s.donate(alice, 1, 100)

		recipient, err := s.svc.ToggleActive(s.asCaller(deployer), 1)
		s.Require().NoError(err)
		s.False(recipient.Active)

		balance, err := s.svc.EscrowBalance(context.Background(), 1)
		s.NoError(err)
		s.Equal(int64(100), balance)

		amount, err := s.svc.Withdraw(s.asCaller(shelter), 1)
		s.NoError(err)
		s.Equal(int64(100), amount)
	})

	s.Run("toggle round-trips", func() {
		s.SetupTest()
		s.initialize()
		_, err := s.svc.ToggleActive(s.asCaller(deployer), 1)
		s.Require().NoError(err)
		recipient, err := s.svc.ToggleActive(s.asCaller(deployer), 1)
		s.Require().NoError(err)
		s.True(recipient.Active)

		_, err = s.svc.Donate(s.asCaller(alice), 1, 10)
		s.NoError(err, "reactivated recipient accepts donations again")
	})
}

// =============================================================================
// Withdrawal protocol
// =============================================================================

func (s *ServiceSuite) TestWithdraw() {
	s.Run("pays the full escrow to the payout address", func() {
		s.SetupTest()
		s.initialize()
		s.donate(alice, 1, 300)
		s.donate(bob, 1, 200)

		amount, err := s.svc.Withdraw(s.asCaller(shelter), 1)
		s.Require().NoError(err)
		s.Equal(int64(500), amount)
		s.Equal([]transfer{{to: shelter, amount: 500}}, s.sink.transfers)

		balance, err := s.svc.EscrowBalance(context.Background(), 1)
		s.NoError(err)
		s.Equal(int64(0), balance)

		st := s.stats()
		s.Equal(int64(500), st.TotalDonated)
		s.Equal(int64(500), st.TotalWithdrawn)
		s.Equal(st.TotalDonated, st.TotalWithdrawn+st.LedgerBalance)
	})

	s.Run("withdrawal never lowers lifetime or contributor totals", func() {
		s.SetupTest()
		s.initialize()
		s.donate(alice, 1, 300)
		_, err := s.svc.Withdraw(s.asCaller(shelter), 1)
		s.Require().NoError(err)

		recipient, err := s.svc.GetRecipient(context.Background(), 1)
		s.NoError(err)
		s.Equal(int64(300), recipient.LifetimeReceived)

		total, err := s.svc.ContributorTotal(context.Background(), alice)
		s.NoError(err)
		s.Equal(int64(300), total)
	})

	s.Run("only the payout address may withdraw", func() {
		s.SetupTest()
		s.initialize()
		s.donate(alice, 1, 100)

		_, err := s.svc.Withdraw(s.asCaller(alice), 1)
		s.ErrorIs(err, sentinel.ErrUnauthorized)
		_, err = s.svc.Withdraw(s.asCaller(deployer), 1)
		s.ErrorIs(err, sentinel.ErrUnauthorized)
		_, err = s.svc.Withdraw(context.Background(), 1)
		s.ErrorIs(err, sentinel.ErrUnauthorized)

		balance, err := s.svc.EscrowBalance(context.Background(), 1)
		s.NoError(err)
		s.Equal(int64(100), balance, "denied withdrawal must not touch escrow")
	})

	s.Run("empty escrow", func() {
		s.SetupTest()
		s.initialize()
		_, err := s.svc.Withdraw(s.asCaller(shelter), 1)
		s.ErrorIs(err, sentinel.ErrNothingToWithdraw)
	})

	s.Run("failed transfer restores escrow", func() {
		s.SetupTest()
		s.initialize()
		s.donate(alice, 1, 100)
		s.sink.fail = true

		_, err := s.svc.Withdraw(s.asCaller(shelter), 1)
		s.ErrorIs(err, sentinel.ErrTransferFailed)

		balance, err := s.svc.EscrowBalance(context.Background(), 1)
		s.NoError(err)
		s.Equal(int64(100), balance)
		s.Equal(int64(0), s.stats().TotalWithdrawn)

		s.sink.fail = false
		amount, err := s.svc.Withdraw(s.asCaller(shelter), 1)
		s.NoError(err)
		s.Equal(int64(100), amount, "withdrawal succeeds once the processor recovers")
	})

	s.Run("reentrant calls from the payout target are rejected", func() {
		s.SetupTest()
		s.initialize()
		s.donate(alice, 1, 100)

		hostile := &reentrantSink{svc: s.svc, recipientID: 1}
		s.svc.payout = hostile

		amount, err := s.svc.Withdraw(s.asCaller(shelter), 1)
		s.Require().NoError(err, "outer withdrawal completes despite the callback")
		s.Equal(int64(100), amount)

		s.ErrorIs(hostile.donateErr, sentinel.ErrReentrantCall)
		s.ErrorIs(hostile.withdrawErr, sentinel.ErrReentrantCall)

		st := s.stats()
		s.Equal(int64(100), st.TotalDonated, "nested donate must not land")
		s.Equal(int64(100), st.TotalWithdrawn)
		s.Equal(int64(0), st.LedgerBalance)
	})
}

// =============================================================================
// Roles
// =============================================================================

func (s *ServiceSuite) TestRoles() {
	s.Run("super-administrator grants and revokes", func() {
		s.SetupTest()
		s.initialize()

		s.Require().NoError(s.svc.GrantRole(s.asCaller(deployer), models.RoleAdministrator, alice))
		ok, err := s.svc.HasRole(context.Background(), models.RoleAdministrator, alice)
		s.NoError(err)
		s.True(ok)

		// The new administrator can process proposals.
		proposal, err := s.svc.ProposeRecipient(s.asCaller(bob), "Food Bank", "", "addr:foodbank")
		s.Require().NoError(err)
		_, err = s.svc.ApproveProposal(s.asCaller(alice), proposal.ID)
		s.NoError(err)

		s.Require().NoError(s.svc.RevokeRole(s.asCaller(deployer), models.RoleAdministrator, alice))
		ok, err = s.svc.HasRole(context.Background(), models.RoleAdministrator, alice)
		s.NoError(err)
		s.False(ok)
	})

	s.Run("plain administrator may not grant", func() {
		s.SetupTest()
		s.initialize()
		s.Require().NoError(s.svc.GrantRole(s.asCaller(deployer), models.RoleAdministrator, alice))

		err := s.svc.GrantRole(s.asCaller(alice), models.RoleAdministrator, bob)
		s.ErrorIs(err, sentinel.ErrUnauthorized)
	})

	s.Run("unknown role name", func() {
		s.SetupTest()
		s.initialize()
		err := s.svc.GrantRole(s.asCaller(deployer), models.Role("janitor"), alice)
		s.ErrorIs(err, sentinel.ErrInvalidInput)
		_, err = s.svc.HasRole(context.Background(), models.Role("janitor"), alice)
		s.ErrorIs(err, sentinel.ErrInvalidInput)
	})

	s.Run("revoking an unheld role is a no-op", func() {
		s.SetupTest()
		s.initialize()
		s.NoError(s.svc.RevokeRole(s.asCaller(deployer), models.RoleAdministrator, alice))
	})
}

// =============================================================================
// Read aggregates
// =============================================================================

func (s *ServiceSuite) TestLeaderboard() {
	s.Run("ranks by total, ties broken by first donation", func() {
		s.SetupTest()
		s.initialize()
		s.donate(alice, 1, 100)
		s.donate(bob, 1, 50)
		s.donate(carol, 2, 100)
		s.donate(bob, 2, 250)

		ranking, err := s.svc.Leaderboard(context.Background(), 10)
		s.Require().NoError(err)
		s.Require().Len(ranking, 3)
		s.Equal(models.ContributorTotal{Address: bob, Total: 300}, ranking[0])
		// alice and carol both total 100; alice donated first.
		s.Equal(models.ContributorTotal{Address: alice, Total: 100}, ranking[1])
		s.Equal(models.ContributorTotal{Address: carol, Total: 100}, ranking[2])
	})

	s.Run("limit truncates", func() {
		s.SetupTest()
		s.initialize()
		s.donate(alice, 1, 100)
		s.donate(bob, 1, 50)

		ranking, err := s.svc.Leaderboard(context.Background(), 1)
		s.Require().NoError(err)
		s.Require().Len(ranking, 1)
		s.Equal(alice, ranking[0].Address)
	})

	s.Run("empty ledger", func() {
		s.SetupTest()
		s.initialize()
		ranking, err := s.svc.Leaderboard(context.Background(), 10)
		s.NoError(err)
		s.Empty(ranking)
	})
}

func (s *ServiceSuite) TestRecentActivity() {
	s.SetupTest()
	s.initialize()
	s.donate(alice, 1, 10)
	s.donate(bob, 1, 20)
	s.donate(carol, 2, 30)

	entries, err := s.svc.RecentActivity(context.Background(), 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(int64(3), entries[0].Seq, "newest first")
	s.Equal(int64(2), entries[1].Seq)
}

// =============================================================================
// Upgrade gate and snapshots
// =============================================================================

func (s *ServiceSuite) TestUpgrade() {
	s.Run("authorization requires a governance role", func() {
		s.SetupTest()
		s.initialize()
		s.NoError(s.svc.AuthorizeUpgrade(s.asCaller(deployer)))
		s.ErrorIs(s.svc.AuthorizeUpgrade(s.asCaller(alice)), sentinel.ErrUnauthorized)
		s.ErrorIs(s.svc.AuthorizeUpgrade(context.Background()), sentinel.ErrUnauthorized)
	})

	s.Run("snapshot round-trips the full ledger state", func() {
		s.SetupTest()
		s.initialize()
		s.donate(alice, 1, 300)
		s.donate(bob, 2, 200)
		_, err := s.svc.Withdraw(s.asCaller(library), 2)
		s.Require().NoError(err)

		snap, err := s.svc.ExportSnapshot(s.asCaller(deployer))
		s.Require().NoError(err)
		s.Equal(models.SchemaVersion, snap.SchemaVersion)

		// Bring up a fresh build against the exported state.
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		freshStore := memory.New()
		fresh := New(freshStore, PassthroughTx{}, &fakeSink{}, s.publisher, nil, logger)
		s.Require().NoError(fresh.RestoreSnapshot(s.asCaller(deployer), snap))

		st, err := fresh.Stats(context.Background())
		s.Require().NoError(err)
		s.Equal(int64(500), st.TotalDonated)
		s.Equal(int64(200), st.TotalWithdrawn)
		s.Equal(int64(300), st.LedgerBalance)

		balance, err := fresh.EscrowBalance(context.Background(), 1)
		s.NoError(err)
		s.Equal(int64(300), balance)

		ok, err := fresh.HasRole(context.Background(), models.RoleSuperAdministrator, deployer)
		s.NoError(err)
		s.True(ok, "roles survive migration")

		ranking, err := fresh.Leaderboard(context.Background(), 10)
		s.Require().NoError(err)
		s.Require().Len(ranking, 2)
		s.Equal(alice, ranking[0].Address)

		_, err = fresh.Donate(s.asCaller(carol), 1, 1)
		s.NoError(err, "restored ledger keeps operating")
	})

	s.Run("snapshot export requires authorization", func() {
		s.SetupTest()
		s.initialize()
		_, err := s.svc.ExportSnapshot(s.asCaller(alice))
		s.ErrorIs(err, sentinel.ErrUnauthorized)
	})

	s.Run("unknown schema version is refused", func() {
		s.SetupTest()
		s.initialize()
		snap, err := s.svc.ExportSnapshot(s.asCaller(deployer))
		s.Require().NoError(err)
		snap.SchemaVersion = models.SchemaVersion + 1

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		fresh := New(memory.New(), PassthroughTx{}, &fakeSink{}, s.publisher, nil, logger)
		err = fresh.RestoreSnapshot(s.asCaller(deployer), snap)
		s.ErrorIs(err, sentinel.ErrSchemaVersion)
	})

	s.Run("restore refuses an initialized ledger", func() {
		s.SetupTest()
		s.initialize()
		snap, err := s.svc.ExportSnapshot(s.asCaller(deployer))
		s.Require().NoError(err)

		err = s.svc.RestoreSnapshot(s.asCaller(deployer), snap)
		s.ErrorIs(err, sentinel.ErrAlreadyInitialized)
	})
}

func (s *ServiceSuite) TestVersionMarker() {
	s.Run("administrator sets the marker", func() {
		s.SetupTest()
		s.initialize()

		marker, err := s.svc.VersionMarker(context.Background())
		s.NoError(err)
		s.Empty(marker)

		s.Require().NoError(s.svc.SetVersionMarker(s.asCaller(deployer), "2026.08"))
		marker, err = s.svc.VersionMarker(context.Background())
		s.NoError(err)
		s.Equal("2026.08", marker)
	})

	s.Run("non-administrator is refused", func() {
		s.SetupTest()
		s.initialize()
		err := s.svc.SetVersionMarker(s.asCaller(alice), "2026.08")
		s.ErrorIs(err, sentinel.ErrUnauthorized)
	})

	s.Run("empty marker is refused", func() {
		s.SetupTest()
		s.initialize()
		err := s.svc.SetVersionMarker(s.asCaller(deployer), "")
		s.ErrorIs(err, sentinel.ErrInvalidInput)
	})
}

// =============================================================================
// End-to-end walk
// =============================================================================

// TestLifecycle walks the full path a real deployment takes: genesis,
// community proposal, approval, donations from several contributors, partial
// withdrawals, and a final conservation check.
func (s *ServiceSuite) TestLifecycle() {
	s.initialize()

	proposal, err := s.svc.ProposeRecipient(s.asCaller(alice), "Food Bank", "weekend meals", "addr:foodbank")
	s.Require().NoError(err)
	foodbank, err := s.svc.ApproveProposal(s.asCaller(deployer), proposal.ID)
	s.Require().NoError(err)

	s.donate(alice, 1, 500)
	s.donate(bob, foodbank.ID, 900)
	s.donate(alice, foodbank.ID, 100)
	s.donate(carol, 2, 250)

	amount, err := s.svc.Withdraw(s.asCaller("addr:foodbank"), foodbank.ID)
	s.Require().NoError(err)
	s.Equal(int64(1000), amount)

	s.donate(bob, foodbank.ID, 50)

	st := s.stats()
	s.Equal(int64(1750), st.TotalDonated)
	s.Equal(int64(1000), st.TotalWithdrawn)
	s.Equal(st.TotalDonated, st.TotalWithdrawn+st.LedgerBalance)

	ranking, err := s.svc.Leaderboard(context.Background(), 3)
	s.Require().NoError(err)
	s.Require().Len(ranking, 3)
	s.Equal(bob, ranking[0].Address)
	s.Equal(int64(950), ranking[0].Total)
	s.Equal(alice, ranking[1].Address)
	s.Equal(carol, ranking[2].Address)

	recent, err := s.publisher.Recent(context.Background(), 100)
	s.Require().NoError(err)
	s.NotEmpty(recent)
	for _, event := range recent {
		s.NotEmpty(event.ID)
		s.False(event.Timestamp.IsZero())
	}
}

// =============================================================================
// Timestamps
// =============================================================================

func (s *ServiceSuite) TestRequestScopedTime() {
	s.initialize()

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.asCaller(alice), fixed)

	entry, err := s.svc.Donate(ctx, 1, 10)
	s.Require().NoError(err)
	s.True(entry.Timestamp.Equal(fixed))
}
