package service

import (
	"context"
	"fmt"

	"almoner/internal/events"
	"almoner/internal/ledger/models"
	"almoner/pkg/platform/sentinel"
	"almoner/pkg/requestcontext"
)

// Donate credits amount to a recipient's escrow on behalf of the caller. All
// checks run before any mutation; the mutation itself (escrow, lifetime
// total, global total, contributor total and index, log append) commits as
// one unit. Donate performs no external effect, but it shares the
// donate/withdraw guard so it can never run nested inside a withdrawal's
// transfer window.
func (s *Service) Donate(ctx context.Context, recipientID int64, amount int64) (models.Entry, error) {
	caller := requestcontext.Caller(ctx)
	if caller == "" {
		return models.Entry{}, fmt.Errorf("donate: %w", sentinel.ErrUnauthorized)
	}

	if err := s.acquire(); err != nil {
		return models.Entry{}, err
	}
	defer s.release()

	if amount <= 0 {
		return models.Entry{}, fmt.Errorf("donate %d: %w", amount, sentinel.ErrInvalidAmount)
	}
	recipient, err := s.store.GetRecipient(ctx, recipientID)
	if err != nil {
		return models.Entry{}, err
	}
	if !recipient.Active {
		return models.Entry{}, fmt.Errorf("recipient %d: %w", recipientID, sentinel.ErrInactive)
	}

	entry := models.Entry{
		Contributor: caller,
		RecipientID: recipientID,
		Amount:      amount,
		Timestamp:   requestcontext.Now(ctx),
	}
	err = s.txr.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.ApplyDonation(ctx, entry)
	})
	if err != nil {
		return models.Entry{}, fmt.Errorf("donate to %d: %w", recipientID, err)
	}

	if s.metrics != nil {
		s.metrics.DonationsTotal.Inc()
		s.metrics.DonatedAmount.Add(float64(amount))
		s.metrics.LedgerBalance.Add(float64(amount))
	}
	s.emit(ctx, events.Event{
		Kind:        events.KindDonationReceived,
		Contributor: caller,
		RecipientID: recipientID,
		Amount:      amount,
		Timestamp:   entry.Timestamp,
	})
	s.logger.Info("donation received",
		"contributor", caller, "recipient_id", recipientID, "amount", amount)
	return entry, nil
}
