// Package service implements the donation-ledger state machine: balance
// accounting, the recipient propose/approve/reject workflow, the escrow
// withdrawal protocol, role-gated governance, and the read aggregates. All
// mutating operations are serialized; donate and withdraw additionally share
// a reentrancy guard (see guard.go).
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"almoner/internal/events"
	"almoner/internal/ledger/models"
	"almoner/internal/platform/metrics"
	"almoner/pkg/platform/sentinel"
	"almoner/pkg/requestcontext"
)

// Revision is the compiled-in logic revision tag. It identifies the code, not
// the deployment: the admin-settable version marker is independent state and
// the two must not be conflated.
const Revision = "almoner/2"

// Store is the persisted ledger state. Implementations return value copies,
// never internal references, and keep contributor slices in first-donation
// order. Mutating methods are only ever called under the service's operation
// lock, so cross-method atomicity is the service's concern (via TxRunner),
// not the store's.
type Store interface {
	Initialized(ctx context.Context) (bool, error)
	MarkInitialized(ctx context.Context) error

	HasRole(ctx context.Context, role models.Role, addr string) (bool, error)
	GrantRole(ctx context.Context, role models.Role, addr string) error
	RevokeRole(ctx context.Context, role models.Role, addr string) error

	InsertProposal(ctx context.Context, p models.Proposal) (int64, error)
	GetProposal(ctx context.Context, id int64) (models.Proposal, error)
	MarkProcessed(ctx context.Context, id int64, approved bool) error
	ProposalCount(ctx context.Context) (int64, error)
	ListPendingProposals(ctx context.Context) ([]models.Proposal, error)

	InsertRecipient(ctx context.Context, r models.Recipient) (int64, error)
	GetRecipient(ctx context.Context, id int64) (models.Recipient, error)
	SetRecipientActive(ctx context.Context, id int64, active bool) error
	RecipientCount(ctx context.Context) (int64, error)
	ListRecipients(ctx context.Context, activeOnly bool) ([]models.Recipient, error)

	// ApplyDonation performs the full donation mutation: credit escrow and
	// lifetime total, bump the global total, update the contributor total
	// (inserting into the contributor index on first sight), and append the
	// entry to the log.
	ApplyDonation(ctx context.Context, entry models.Entry) error
	EscrowBalance(ctx context.Context, recipientID int64) (int64, error)
	// DebitEscrow zeroes the escrow balance and returns the prior amount.
	DebitEscrow(ctx context.Context, recipientID int64) (int64, error)
	// CreditEscrow restores escrow after a failed external transfer.
	CreditEscrow(ctx context.Context, recipientID int64, amount int64) error
	RecordWithdrawal(ctx context.Context, recipientID int64, amount int64) error
	ContributorTotal(ctx context.Context, addr string) (int64, error)
	Contributors(ctx context.Context) ([]models.ContributorTotal, error)
	RecentEntries(ctx context.Context, limit int) ([]models.Entry, error)
	Stats(ctx context.Context) (models.Stats, error)

	VersionMarker(ctx context.Context) (string, error)
	SetVersionMarker(ctx context.Context, v string) error

	Snapshot(ctx context.Context) (models.Snapshot, error)
	Restore(ctx context.Context, snap models.Snapshot) error
}

// TxRunner provides the transactional boundary for multi-statement store
// mutations. The memory runner simply calls fn; the postgres runner wraps it
// in a database transaction carried through ctx.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PassthroughTx is the TxRunner for stores whose mutations cannot partially
// fail, such as the memory store.
type PassthroughTx struct{}

func (PassthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// PayoutSink performs the external transfer for withdrawals. This is the one
// place value leaves the ledger's custody; a returned error means no value
// moved and the caller will restore escrow.
type PayoutSink interface {
	Transfer(ctx context.Context, to string, amount int64) error
}

// Service owns the ledger state machine. Construct exactly one per store;
// pass it into every handler and worker rather than holding global state.
type Service struct {
	store   Store
	txr     TxRunner
	payout  PayoutSink
	events  *events.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger

	// mu imposes a total order over mutating operations. locked is the
	// reentrancy guard: set for the whole of donate/withdraw, held across
	// withdraw's external transfer while mu itself is released.
	mu     sync.Mutex
	locked bool
}

func New(store Store, txr TxRunner, payout PayoutSink, publisher *events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		txr:     txr,
		payout:  payout,
		events:  publisher,
		metrics: m,
		logger:  logger,
	}
}

// Initialize runs genesis exactly once: the caller becomes both
// Administrator and Super-Administrator, and each seed becomes a recipient by
// way of a synthetic, pre-approved proposal so that ids and audit history
// stay uniform with later approvals. Fails with ErrAlreadyInitialized on any
// second attempt.
func (s *Service) Initialize(ctx context.Context, seeds []models.GenesisRecipient) error {
	caller := requestcontext.Caller(ctx)
	if caller == "" {
		return fmt.Errorf("initialize: %w", sentinel.ErrUnauthorized)
	}
	for _, seed := range seeds {
		if seed.Name == "" || seed.PayoutAddress == "" {
			return fmt.Errorf("genesis seed %q: %w", seed.Name, sentinel.ErrInvalidInput)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	done, err := s.store.Initialized(ctx)
	if err != nil {
		return err
	}
	if done {
		return sentinel.ErrAlreadyInitialized
	}

	now := requestcontext.Now(ctx)
	err = s.txr.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.GrantRole(ctx, models.RoleSuperAdministrator, caller); err != nil {
			return err
		}
		if err := s.store.GrantRole(ctx, models.RoleAdministrator, caller); err != nil {
			return err
		}
		for _, seed := range seeds {
			proposal := models.Proposal{
				Name:          seed.Name,
				Description:   seed.Description,
				PayoutAddress: seed.PayoutAddress,
				Proposer:      caller,
				Processed:     true,
				Approved:      true,
				SubmittedAt:   now,
			}
			if _, err := s.store.InsertProposal(ctx, proposal); err != nil {
				return err
			}
			recipient := models.Recipient{
				Name:          seed.Name,
				Description:   seed.Description,
				PayoutAddress: seed.PayoutAddress,
				Active:        true,
				CreatedAt:     now,
			}
			if _, err := s.store.InsertRecipient(ctx, recipient); err != nil {
				return err
			}
		}
		return s.store.MarkInitialized(ctx)
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	s.emit(ctx, events.Event{
		Kind:  events.KindLedgerInitialized,
		Actor: caller,
	})
	s.logger.Info("ledger initialized", "deployer", caller, "seeds", len(seeds))
	return nil
}

// emit records an event; event-log failures are logged, never surfaced, so a
// completed state transition is not un-reported to the caller.
func (s *Service) emit(ctx context.Context, event events.Event) {
	if err := s.events.Emit(ctx, event); err != nil {
		s.logger.Error("emit event", "kind", event.Kind, "error", err)
	}
}
