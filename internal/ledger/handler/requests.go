package handler

import "almoner/internal/ledger/models"

type initializeRequest struct {
	Seeds []models.GenesisRecipient `json:"seeds"`
}

type donateRequest struct {
	RecipientID int64 `json:"recipient_id"`
	Amount      int64 `json:"amount"`
}

type proposeRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	PayoutAddress string `json:"payout_address"`
}

type roleRequest struct {
	Role    models.Role `json:"role"`
	Address string      `json:"address"`
}

type versionRequest struct {
	Version string `json:"version"`
}
