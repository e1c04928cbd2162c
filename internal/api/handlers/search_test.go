package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/resolvhq/resolv/internal/domain/rag"
	"github.com/resolvhq/resolv/internal/infra/llm"
)

// recordingResolver returns a fixed pipeline result and records its inputs.
type recordingResolver struct {
	result  rag.Result
	query   string
	history []llm.Message
}

func (r *recordingResolver) Run(_ context.Context, query string, history []llm.Message) rag.Result {
	r.query = query
	r.history = history
	return r.result
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestSearchHandler_Success(t *testing.T) {
	t.Parallel()

	resolver := &recordingResolver{result: rag.Result{
		Answer:  "Restart the gateway.",
		Sources: []rag.Source{{Number: 1, TicketID: "ESC-001001", Score: 0.92}},
	}}
	handler := NewSearchHandler(resolver)

	rr := postJSON(t, handler.Search, "/search", SearchRequest{
		Query: "payment gateway keeps timing out",
		ConversationHistory: []llm.Message{
			{Role: "user", Content: "earlier question"},
		},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp SearchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "Restart the gateway." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.TotalSources != 1 || len(resp.Sources) != 1 {
		t.Errorf("sources = %+v", resp.Sources)
	}
	if resp.Query != "payment gateway keeps timing out" {
		t.Errorf("query echo = %q", resp.Query)
	}
	if resp.ConversationID == "" {
		t.Error("conversation_id not minted")
	}
	if resolver.query != "payment gateway keeps timing out" || len(resolver.history) != 1 {
		t.Errorf("pipeline called with query %q, %d history turns", resolver.query, len(resolver.history))
	}
}

func TestSearchHandler_KeepsConversationID(t *testing.T) {
	t.Parallel()

	handler := NewSearchHandler(&recordingResolver{result: rag.Result{Answer: "ok"}})

	rr := postJSON(t, handler.Search, "/search", SearchRequest{
		Query:          "payment gateway keeps timing out",
		ConversationID: "conv-123",
	})

	var resp SearchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ConversationID != "conv-123" {
		t.Errorf("conversation_id = %q, want conv-123", resp.ConversationID)
	}
}

func TestSearchHandler_EmptySourcesSerializeAsArray(t *testing.T) {
	t.Parallel()

	handler := NewSearchHandler(&recordingResolver{result: rag.Result{
		Answer: "I don't have any relevant solutions for this query. Please try a different query or raise a new ticket.",
	}})

	rr := postJSON(t, handler.Search, "/search", SearchRequest{Query: "some unanswerable question"})

	if !bytes.Contains(rr.Body.Bytes(), []byte(`"sources":[]`)) {
		t.Errorf("expected empty sources array, body = %s", rr.Body.String())
	}
}

func TestSearchHandler_InvalidBody(t *testing.T) {
	t.Parallel()

	handler := NewSearchHandler(&recordingResolver{})
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	handler.Search(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
