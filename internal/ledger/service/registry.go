package service

import (
	"context"
	"fmt"

	"almoner/internal/events"
	"almoner/internal/ledger/models"
	"almoner/pkg/platform/sentinel"
	"almoner/pkg/requestcontext"
)

// ProposeRecipient stores a pending proposal. Deliberately open: any caller
// may propose, disposition is what requires a role.
func (s *Service) ProposeRecipient(ctx context.Context, name, description, payoutAddress string) (models.Proposal, error) {
	caller := requestcontext.Caller(ctx)
	if name == "" {
		return models.Proposal{}, fmt.Errorf("proposal name: %w", sentinel.ErrInvalidInput)
	}
	if payoutAddress == "" {
		return models.Proposal{}, fmt.Errorf("payout address: %w", sentinel.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	proposal := models.Proposal{
		Name:          name,
		Description:   description,
		PayoutAddress: payoutAddress,
		Proposer:      caller,
		SubmittedAt:   requestcontext.Now(ctx),
	}
	id, err := s.store.InsertProposal(ctx, proposal)
	if err != nil {
		return models.Proposal{}, err
	}
	proposal.ID = id

	if s.metrics != nil {
		s.metrics.ProposalsSubmitted.Inc()
	}
	s.emit(ctx, events.Event{
		Kind:          events.KindRecipientProposed,
		Actor:         caller,
		ProposalID:    id,
		Name:          name,
		PayoutAddress: payoutAddress,
	})
	return proposal, nil
}

// ApproveProposal converts a pending proposal into exactly one new recipient.
// Administrator only. The processed/approved flags and the recipient insert
// commit as one unit.
func (s *Service) ApproveProposal(ctx context.Context, id int64) (models.Recipient, error) {
	caller := requestcontext.Caller(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(ctx, caller); err != nil {
		return models.Recipient{}, err
	}
	proposal, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return models.Recipient{}, err
	}
	if proposal.Processed {
		return models.Recipient{}, fmt.Errorf("proposal %d: %w", id, sentinel.ErrAlreadyProcessed)
	}

	recipient := models.Recipient{
		Name:          proposal.Name,
		Description:   proposal.Description,
		PayoutAddress: proposal.PayoutAddress,
		Active:        true,
		CreatedAt:     requestcontext.Now(ctx),
	}
	err = s.txr.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.MarkProcessed(ctx, id, true); err != nil {
			return err
		}
		recipientID, err := s.store.InsertRecipient(ctx, recipient)
		if err != nil {
			return err
		}
		recipient.ID = recipientID
		return nil
	})
	if err != nil {
		return models.Recipient{}, fmt.Errorf("approve proposal %d: %w", id, err)
	}

	if s.metrics != nil {
		s.metrics.ProposalsApproved.Inc()
	}
	s.emit(ctx, events.Event{
		Kind:          events.KindRecipientApproved,
		Actor:         caller,
		ProposalID:    id,
		RecipientID:   recipient.ID,
		Name:          recipient.Name,
		PayoutAddress: recipient.PayoutAddress,
	})
	s.logger.Info("proposal approved", "proposal_id", id, "recipient_id", recipient.ID, "admin", caller)
	return recipient, nil
}

// RejectProposal marks a pending proposal processed without creating a
// recipient. Administrator only.
func (s *Service) RejectProposal(ctx context.Context, id int64) error {
	caller := requestcontext.Caller(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	proposal, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return err
	}
	if proposal.Processed {
		return fmt.Errorf("proposal %d: %w", id, sentinel.ErrAlreadyProcessed)
	}
	if err := s.store.MarkProcessed(ctx, id, false); err != nil {
		return fmt.Errorf("reject proposal %d: %w", id, err)
	}

	if s.metrics != nil {
		s.metrics.ProposalsRejected.Inc()
	}
	s.emit(ctx, events.Event{
		Kind:       events.KindRecipientRejected,
		Actor:      caller,
		ProposalID: id,
		Name:       proposal.Name,
	})
	s.logger.Info("proposal rejected", "proposal_id", id, "admin", caller)
	return nil
}

// ToggleActive flips a recipient's active flag. Administrator only. Escrow
// and lifetime totals are untouched; deactivation only blocks new donations.
func (s *Service) ToggleActive(ctx context.Context, recipientID int64) (models.Recipient, error) {
	caller := requestcontext.Caller(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(ctx, caller); err != nil {
		return models.Recipient{}, err
	}
	recipient, err := s.store.GetRecipient(ctx, recipientID)
	if err != nil {
		return models.Recipient{}, err
	}
	recipient.Active = !recipient.Active
	if err := s.store.SetRecipientActive(ctx, recipientID, recipient.Active); err != nil {
		return models.Recipient{}, fmt.Errorf("toggle recipient %d: %w", recipientID, err)
	}

	s.emit(ctx, events.Event{
		Kind:        events.KindRecipientStatusChanged,
		Actor:       caller,
		RecipientID: recipientID,
		Active:      recipient.Active,
	})
	return recipient, nil
}

// GetRecipient returns one recipient by id.
func (s *Service) GetRecipient(ctx context.Context, id int64) (models.Recipient, error) {
	return s.store.GetRecipient(ctx, id)
}

// ListRecipients returns all recipients, or only active ones.
func (s *Service) ListRecipients(ctx context.Context, activeOnly bool) ([]models.Recipient, error) {
	return s.store.ListRecipients(ctx, activeOnly)
}

// PendingProposals returns proposals still awaiting disposition.
func (s *Service) PendingProposals(ctx context.Context) ([]models.Proposal, error) {
	return s.store.ListPendingProposals(ctx)
}
