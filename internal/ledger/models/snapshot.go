package models

// SchemaVersion tags the shape of persisted ledger state. Replacement logic
// may only read and write this exact structure; evolution is additive-only:
// new fields go at the end of Snapshot and bump this constant, existing fields
// are never reordered, retyped, or removed.
const SchemaVersion = 1

// Snapshot is the complete persisted state of the ledger, exported for
// migration to a new logic version and imported to seed a fresh store. The
// accounting invariants (conservation, contributor uniqueness, proposal
// immutability) are properties of the data, so they survive any logic
// replacement that round-trips this structure.
type Snapshot struct {
	SchemaVersion  int                `json:"schema_version"`
	Initialized    bool               `json:"initialized"`
	VersionMarker  string             `json:"version_marker"`
	TotalDonated   int64              `json:"total_donated"`
	TotalWithdrawn int64              `json:"total_withdrawn"`
	Recipients     []Recipient        `json:"recipients"`
	Proposals      []Proposal         `json:"proposals"`
	Entries        []Entry            `json:"entries"`
	Escrow         map[int64]int64    `json:"escrow"`
	Contributors   []ContributorTotal `json:"contributors"`
	Roles          map[Role][]string  `json:"roles"`
}
