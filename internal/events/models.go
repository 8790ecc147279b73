package events

import "time"

// Kind classifies ledger events. The set mirrors the ledger's externally
// observable state transitions; consumers key retention and routing off it.
type Kind string

const (
	KindLedgerInitialized      Kind = "ledger_initialized"
	KindDonationReceived       Kind = "donation_received"
	KindRecipientProposed      Kind = "recipient_proposed"
	KindRecipientApproved      Kind = "recipient_approved"
	KindRecipientRejected      Kind = "recipient_rejected"
	KindFundsWithdrawn         Kind = "funds_withdrawn"
	KindRecipientStatusChanged Kind = "recipient_status_changed"
	KindVersionUpdated         Kind = "version_updated"
	KindRoleGranted            Kind = "role_granted"
	KindRoleRevoked            Kind = "role_revoked"
)

// Event is one append-only, externally observable ledger event. Payload
// fields are flattened; unused fields stay at their zero value and are
// omitted on the wire. Emission order is the ledger's mutation order.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	Actor         string `json:"actor,omitempty"`
	Contributor   string `json:"contributor,omitempty"`
	RecipientID   int64  `json:"recipient_id,omitempty"`
	ProposalID    int64  `json:"proposal_id,omitempty"`
	Name          string `json:"name,omitempty"`
	PayoutAddress string `json:"payout_address,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	Active        bool   `json:"active,omitempty"`
	Role          string `json:"role,omitempty"`
	OldVersion    string `json:"old_version,omitempty"`
	NewVersion    string `json:"new_version,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}
