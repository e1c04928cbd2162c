package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/resolvhq/resolv/internal/domain/rag"
	"github.com/resolvhq/resolv/internal/infra/llm"
	"github.com/resolvhq/resolv/pkg/uuid"
)

// Resolver is the pipeline surface the search handler needs.
type Resolver interface {
	Run(ctx context.Context, query string, history []llm.Message) rag.Result
}

type SearchHandler struct{ pipeline Resolver }

func NewSearchHandler(pipeline Resolver) *SearchHandler {
	return &SearchHandler{pipeline: pipeline}
}

type SearchRequest struct {
	Query               string        `json:"query"`
	ConversationHistory []llm.Message `json:"conversation_history,omitempty"`
	ConversationID      string        `json:"conversation_id,omitempty"`
}

type SearchResponse struct {
	Answer         string       `json:"answer"`
	Sources        []rag.Source `json:"sources"`
	Query          string       `json:"query"`
	RewrittenQuery string       `json:"rewritten_query,omitempty"`
	TotalSources   int          `json:"total_sources"`
	ConversationID string       `json:"conversation_id"`
}

// Search runs the retrieval pipeline. A conversation ID is minted when the
// client does not carry one, so follow-up turns can be correlated.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = uuid.NewV7().String()
	}

	result := h.pipeline.Run(r.Context(), req.Query, req.ConversationHistory)

	sources := result.Sources
	if sources == nil {
		sources = []rag.Source{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Answer:         result.Answer,
		Sources:        sources,
		Query:          req.Query,
		RewrittenQuery: result.RewrittenQuery,
		TotalSources:   len(sources),
		ConversationID: conversationID,
	})
}
