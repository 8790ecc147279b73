package models

import "time"

// Role is a governance tier. An address may hold zero, one, or both roles.
type Role string

const (
	// RoleAdministrator can process proposals, toggle recipients, set the
	// version marker, and authorize upgrades.
	RoleAdministrator Role = "administrator"

	// RoleSuperAdministrator can additionally grant and revoke roles.
	RoleSuperAdministrator Role = "super-administrator"
)

// Valid reports whether r names a known role.
func (r Role) Valid() bool {
	return r == RoleAdministrator || r == RoleSuperAdministrator
}

// Recipient is an approved entity eligible to receive donations. Recipients
// are created only by approving a proposal (genesis seeds included), are never
// deleted, and keep their sequential 1-based id forever.
type Recipient struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	PayoutAddress    string    `json:"payout_address"`
	LifetimeReceived int64     `json:"lifetime_received"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
}

// Proposal is a pending request to add a recipient. Once Processed is set the
// record is immutable; Approved without Processed must never occur.
type Proposal struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	PayoutAddress string    `json:"payout_address"`
	Proposer      string    `json:"proposer"`
	Processed     bool      `json:"processed"`
	Approved      bool      `json:"approved"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Pending reports whether the proposal still awaits disposition.
func (p Proposal) Pending() bool { return !p.Processed }

// Entry is one immutable donation record in the append-only log. Seq is the
// append position, 1-based.
type Entry struct {
	Seq         int64     `json:"seq"`
	Contributor string    `json:"contributor"`
	RecipientID int64     `json:"recipient_id"`
	Amount      int64     `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// ContributorTotal is the running donation sum for one address. Totals never
// decrease. Slices of ContributorTotal returned by stores preserve
// first-donation order, which is the leaderboard tiebreak.
type ContributorTotal struct {
	Address string `json:"address"`
	Total   int64  `json:"total"`
}

// Stats is the top-level accounting view.
type Stats struct {
	RecipientCount int64 `json:"recipient_count"`
	ProposalCount  int64 `json:"proposal_count"`
	TotalDonated   int64 `json:"total_donated"`
	TotalWithdrawn int64 `json:"total_withdrawn"`
	LedgerBalance  int64 `json:"ledger_balance"`
}

// GenesisRecipient is a deployment-time seed entry. Seeds become ordinary
// recipients (via synthetic approved proposals) during initialization.
type GenesisRecipient struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	PayoutAddress string `json:"payout_address"`
}
