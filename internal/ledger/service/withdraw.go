package service

import (
	"context"
	"errors"
	"fmt"

	"almoner/internal/events"
	"almoner/pkg/platform/sentinel"
	"almoner/pkg/requestcontext"
)

// Withdraw pays a recipient's escrow balance out to its registered payout
// address. Only that exact address may call it. The ordering is mandatory:
// escrow is zeroed before the external transfer, so a payout target calling
// back into the ledger mid-transfer finds no balance left to double-spend and
// trips the reentrancy guard besides. A failed transfer restores escrow and
// surfaces ErrTransferFailed.
func (s *Service) Withdraw(ctx context.Context, recipientID int64) (int64, error) {
	caller := requestcontext.Caller(ctx)

	if err := s.acquire(); err != nil {
		return 0, err
	}

	recipient, err := s.store.GetRecipient(ctx, recipientID)
	if err != nil {
		s.release()
		return 0, err
	}
	if caller == "" || caller != recipient.PayoutAddress {
		s.release()
		return 0, fmt.Errorf("withdraw from %d: %w", recipientID, sentinel.ErrUnauthorized)
	}

	amount, err := s.store.DebitEscrow(ctx, recipientID)
	if err != nil {
		s.release()
		return 0, err
	}
	if amount == 0 {
		s.release()
		return 0, fmt.Errorf("recipient %d: %w", recipientID, sentinel.ErrNothingToWithdraw)
	}

	// The transfer must not hold up unrelated operations, so mu is released
	// for its duration. The locked flag stays set: donate/withdraw arriving
	// from the payout path get ErrReentrantCall until this call unwinds.
	s.mu.Unlock()
	transferErr := s.payout.Transfer(ctx, recipient.PayoutAddress, amount)
	s.mu.Lock()
	defer s.release()

	if transferErr != nil {
		if restoreErr := s.store.CreditEscrow(ctx, recipientID, amount); restoreErr != nil {
			// Both the payout and the rollback failed; state is recoverable
			// from the entry log, but this needs an operator.
			s.logger.Error("escrow restore failed after rejected transfer",
				"recipient_id", recipientID, "amount", amount, "error", restoreErr)
			return 0, errors.Join(sentinel.ErrTransferFailed, restoreErr)
		}
		s.logger.Warn("payout rejected, escrow restored",
			"recipient_id", recipientID, "amount", amount, "error", transferErr)
		return 0, fmt.Errorf("payout to %s: %w", recipient.PayoutAddress, sentinel.ErrTransferFailed)
	}

	if err := s.store.RecordWithdrawal(ctx, recipientID, amount); err != nil {
		return 0, fmt.Errorf("record withdrawal: %w", err)
	}

	if s.metrics != nil {
		s.metrics.WithdrawalsTotal.Inc()
		s.metrics.WithdrawnAmount.Add(float64(amount))
		s.metrics.LedgerBalance.Sub(float64(amount))
	}
	s.emit(ctx, events.Event{
		Kind:          events.KindFundsWithdrawn,
		RecipientID:   recipientID,
		PayoutAddress: recipient.PayoutAddress,
		Amount:        amount,
		Timestamp:     requestcontext.Now(ctx),
	})
	s.logger.Info("funds withdrawn",
		"recipient_id", recipientID, "payout_address", recipient.PayoutAddress, "amount", amount)
	return amount, nil
}
