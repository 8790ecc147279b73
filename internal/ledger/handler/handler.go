// Package handler is the thin HTTP layer over the ledger service. It decodes
// requests, delegates, and translates sentinel errors into JSON responses;
// business logic stays in the service.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"almoner/internal/events"
	"almoner/internal/ledger/cache"
	"almoner/internal/ledger/service"
	"almoner/pkg/platform/sentinel"
)

type Handler struct {
	svc         *service.Service
	events      *events.Publisher
	leaderboard *cache.Leaderboard
	logger      *slog.Logger
}

func New(svc *service.Service, publisher *events.Publisher, leaderboard *cache.Leaderboard, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, events: publisher, leaderboard: leaderboard, logger: logger}
}

// Register wires the ledger routes onto a router already running the auth
// middleware. ratelimit guards the one open mutating endpoint.
func (h *Handler) Register(r chi.Router, ratelimit func(http.Handler) http.Handler) {
	r.Post("/v1/initialize", h.handleInitialize)
	r.Post("/v1/donations", h.handleDonate)
	r.With(ratelimit).Post("/v1/proposals", h.handlePropose)
	r.Post("/v1/proposals/{id}/approve", h.handleApprove)
	r.Post("/v1/proposals/{id}/reject", h.handleReject)
	r.Post("/v1/recipients/{id}/toggle", h.handleToggle)
	r.Post("/v1/recipients/{id}/withdraw", h.handleWithdraw)
	r.Post("/v1/roles/grant", h.handleGrantRole)
	r.Post("/v1/roles/revoke", h.handleRevokeRole)
	r.Put("/v1/version", h.handleSetVersion)

	r.Get("/v1/ledger", h.handleStats)
	r.Get("/v1/recipients", h.handleListRecipients)
	r.Get("/v1/recipients/{id}", h.handleGetRecipient)
	r.Get("/v1/proposals/pending", h.handlePendingProposals)
	r.Get("/v1/leaderboard", h.handleLeaderboard)
	r.Get("/v1/activity", h.handleActivity)
	r.Get("/v1/contributors/{address}", h.handleContributor)
	r.Get("/v1/roles/{role}/{address}", h.handleHasRole)
	r.Get("/v1/version", h.handleVersion)
	r.Get("/v1/events", h.handleEvents)
	r.Get("/v1/admin/snapshot", h.handleSnapshot)
	r.Post("/v1/admin/snapshot", h.handleRestore)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

// writeError centralizes sentinel translation so every endpoint reports the
// same JSON envelope for the same failure condition.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	switch {
	case errors.Is(err, sentinel.ErrUnauthorized):
		status, code = http.StatusForbidden, "unauthorized"
	case errors.Is(err, sentinel.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, sentinel.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, sentinel.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, sentinel.ErrInactive):
		status, code = http.StatusConflict, "recipient_inactive"
	case errors.Is(err, sentinel.ErrAlreadyProcessed):
		status, code = http.StatusConflict, "already_processed"
	case errors.Is(err, sentinel.ErrNothingToWithdraw):
		status, code = http.StatusConflict, "nothing_to_withdraw"
	case errors.Is(err, sentinel.ErrAlreadyInitialized):
		status, code = http.StatusConflict, "already_initialized"
	case errors.Is(err, sentinel.ErrReentrantCall):
		status, code = http.StatusLocked, "reentrant_call"
	case errors.Is(err, sentinel.ErrTransferFailed):
		status, code = http.StatusBadGateway, "transfer_failed"
	case errors.Is(err, sentinel.ErrSchemaVersion):
		status, code = http.StatusBadRequest, "unsupported_schema_version"
	default:
		h.logger.Error("unhandled error", "error", err)
	}
	h.writeJSON(w, status, errorResponse{Error: code, Detail: safeDetail(err, status)})
}

// safeDetail exposes error text for caller mistakes but not for internal
// failures.
func safeDetail(err error, status int) string {
	if status == http.StatusInternalServerError {
		return ""
	}
	return err.Error()
}
