package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/resolvhq/resolv/internal/domain/ticket"
)

type AdminHandler struct{ service *ticket.Service }

func NewAdminHandler(service *ticket.Service) *AdminHandler {
	return &AdminHandler{service: service}
}

// ListTickets returns tickets newest first, optionally filtered by ?status=.
func (h *AdminHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != ticket.StatusPending && status != ticket.StatusResolved {
		writeError(w, http.StatusBadRequest, "status must be pending or resolved")
		return
	}

	tickets, err := h.service.List(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list tickets: %v", err))
		return
	}
	if tickets == nil {
		tickets = []*ticket.Ticket{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tickets": tickets,
		"total":   len(tickets),
	})
}

type ResolveRequest struct {
	TicketID   string `json:"ticket_id"`
	Solution   string `json:"solution"`
	ResolvedBy string `json:"resolved_by,omitempty"`
}

// Resolve records an admin solution and flips the ticket to resolved.
func (h *AdminHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TicketID == "" || req.Solution == "" {
		writeError(w, http.StatusBadRequest, "ticket_id and solution are required")
		return
	}

	t, err := h.service.Resolve(r.Context(), ticket.ResolveInput{
		TicketID:   req.TicketID,
		Solution:   req.Solution,
		ResolvedBy: req.ResolvedBy,
	})
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "ticket not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to resolve ticket: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Stats returns the admin analytics snapshot.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute stats: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
