package handler

import "almoner/internal/ledger/models"

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type recipientResponse struct {
	models.Recipient
	EscrowBalance int64 `json:"escrow_balance"`
}

type withdrawResponse struct {
	RecipientID int64 `json:"recipient_id"`
	Amount      int64 `json:"amount"`
}

type contributorResponse struct {
	Address string `json:"address"`
	Total   int64  `json:"total"`
}

type hasRoleResponse struct {
	Role    models.Role `json:"role"`
	Address string      `json:"address"`
	HasRole bool        `json:"has_role"`
}

type versionResponse struct {
	// Marker is the admin-settable label; Revision identifies the compiled
	// logic. Two different things, reported side by side.
	Marker   string `json:"marker"`
	Revision string `json:"revision"`
}
