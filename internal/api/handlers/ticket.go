package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/resolvhq/resolv/internal/domain/ticket"
	"github.com/resolvhq/resolv/internal/infra/llm"
)

type TicketHandler struct{ service *ticket.Service }

func NewTicketHandler(service *ticket.Service) *TicketHandler {
	return &TicketHandler{service: service}
}

type EscalateRequest struct {
	UserQuery           string        `json:"user_query"`
	AIAnswer            string        `json:"ai_answer"`
	UserFeedback        string        `json:"user_feedback"`
	ConversationHistory []llm.Message `json:"conversation_history,omitempty"`
}

// Escalate files a new ticket for a query the pipeline could not resolve.
func (h *TicketHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	var req EscalateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserQuery == "" || req.AIAnswer == "" || req.UserFeedback == "" {
		writeError(w, http.StatusBadRequest, "user_query, ai_answer and user_feedback are required")
		return
	}

	t, err := h.service.Create(r.Context(), ticket.CreateInput{
		UserQuery:           req.UserQuery,
		AIAnswer:            req.AIAnswer,
		UserFeedback:        req.UserFeedback,
		ConversationHistory: req.ConversationHistory,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to escalate: %v", err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":   "Your query has been escalated to our support team.",
		"ticket_id": t.ID,
		"status":    t.Status,
	})
}

// GetTicket returns one ticket with its comments.
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := h.service.Get(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "ticket not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get ticket: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type AddCommentRequest struct {
	TicketID     string `json:"ticket_id"`
	Author       string `json:"author"`
	AuthorName   string `json:"author_name"`
	Content      string `json:"content"`
	IsResolution bool   `json:"is_resolution,omitempty"`
}

// AddComment appends a comment; is_resolution also resolves the ticket.
func (h *TicketHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TicketID == "" || req.Author == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "ticket_id, author and content are required")
		return
	}
	if req.AuthorName == "" {
		req.AuthorName = req.Author
	}

	c, err := h.service.AddComment(r.Context(), ticket.AddCommentInput{
		TicketID:     req.TicketID,
		Author:       req.Author,
		AuthorName:   req.AuthorName,
		Content:      req.Content,
		IsResolution: req.IsResolution,
	})
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "ticket not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to add comment: %v", err))
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
