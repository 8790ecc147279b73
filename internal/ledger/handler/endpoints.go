package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"almoner/internal/ledger/models"
	"almoner/internal/ledger/service"
)

func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Detail: "malformed JSON"})
			return
		}
	}
	if err := h.svc.Initialize(r.Context(), req.Seeds); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]int{"seeded": len(req.Seeds)})
}

func (h *Handler) handleDonate(w http.ResponseWriter, r *http.Request) {
	var req donateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Detail: "malformed JSON"})
		return
	}
	entry, err := h.svc.Donate(r.Context(), req.RecipientID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) handlePropose(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Detail: "malformed JSON"})
		return
	}
	proposal, err := h.svc.ProposeRecipient(r.Context(), req.Name, req.Description, req.PayoutAddress)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, proposal)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	recipient, err := h.svc.ApproveProposal(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, recipient)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.RejectProposal(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"proposal_id": id})
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	recipient, err := h.svc.ToggleActive(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, recipient)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	amount, err := h.svc.Withdraw(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, withdrawResponse{RecipientID: id, Amount: amount})
}

func (h *Handler) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Detail: "malformed JSON"})
		return
	}
	if err := h.svc.GrantRole(r.Context(), req.Role, req.Address); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

func (h *Handler) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Detail: "malformed JSON"})
		return
	}
	if err := h.svc.RevokeRole(r.Context(), req.Role, req.Address); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

func (h *Handler) handleSetVersion(w http.ResponseWriter, r *http.Request) {
	var req versionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Detail: "malformed JSON"})
		return
	}
	if err := h.svc.SetVersionMarker(r.Context(), req.Version); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleListRecipients(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	recipients, err := h.svc.ListRecipients(r.Context(), activeOnly)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, recipients)
}

func (h *Handler) handleGetRecipient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	recipient, err := h.svc.GetRecipient(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	balance, err := h.svc.EscrowBalance(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, recipientResponse{Recipient: recipient, EscrowBalance: balance})
}

func (h *Handler) handlePendingProposals(w http.ResponseWriter, r *http.Request) {
	pending, err := h.svc.PendingProposals(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if pending == nil {
		pending = []models.Proposal{}
	}
	h.writeJSON(w, http.StatusOK, pending)
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := h.queryLimit(r, 10)
	if ranking, ok := h.leaderboard.Get(r.Context(), limit); ok {
		h.writeJSON(w, http.StatusOK, ranking)
		return
	}
	ranking, err := h.svc.Leaderboard(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if ranking == nil {
		ranking = []models.ContributorTotal{}
	}
	h.leaderboard.Set(r.Context(), limit, ranking)
	h.writeJSON(w, http.StatusOK, ranking)
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := h.queryLimit(r, 20)
	entries, err := h.svc.RecentActivity(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleContributor(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")
	total, err := h.svc.ContributorTotal(r.Context(), addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, contributorResponse{Address: addr, Total: total})
}

func (h *Handler) handleHasRole(w http.ResponseWriter, r *http.Request) {
	role := models.Role(chi.URLParam(r, "role"))
	addr := chi.URLParam(r, "address")
	ok, err := h.svc.HasRole(r.Context(), role, addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, hasRoleResponse{Role: role, Address: addr, HasRole: ok})
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	marker, err := h.svc.VersionMarker(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, versionResponse{Marker: marker, Revision: service.Revision})
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := h.queryLimit(r, 50)
	recent, err := h.events.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, recent)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.ExportSnapshot(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	var snap models.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Detail: "malformed JSON"})
		return
	}
	if err := h.svc.RestoreSnapshot(r.Context(), snap); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "restored"})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Detail: "id must be an integer"})
		return 0, false
	}
	return id, true
}

func (h *Handler) queryLimit(r *http.Request, fallback int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return fallback
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit < 0 {
		return fallback
	}
	return limit
}
