// Ticket handler tests against a real in-memory SQLite DB with migrations
// applied, in line with the service tests.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/resolvhq/resolv/internal/domain/ticket"
	"github.com/resolvhq/resolv/internal/infra/sqlite"
)

func newTicketService(t *testing.T) *ticket.Service {
	t.Helper()
	db, err := sqlite.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp error = %v", err)
	}
	return ticket.NewService(db)
}

func escalate(t *testing.T, svc *ticket.Service) *ticket.Ticket {
	t.Helper()
	tk, err := svc.Create(context.Background(), ticket.CreateInput{
		UserQuery:    "VPN disconnects every hour",
		AIAnswer:     "Try reinstalling the client.",
		UserFeedback: "Did not help.",
	})
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}
	return tk
}

func TestEscalate_CreatesTicket(t *testing.T) {
	t.Parallel()

	svc := newTicketService(t)
	handler := NewTicketHandler(svc)

	rr := postJSON(t, handler.Escalate, "/escalate", EscalateRequest{
		UserQuery:    "VPN disconnects every hour",
		AIAnswer:     "Try reinstalling the client.",
		UserFeedback: "Did not help.",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["ticket_id"] != "ESC-001001" {
		t.Errorf("ticket_id = %q", resp["ticket_id"])
	}
	if resp["status"] != ticket.StatusPending {
		t.Errorf("status = %q, want pending", resp["status"])
	}
	if resp["message"] == "" {
		t.Error("message missing")
	}
}

func TestEscalate_MissingFields(t *testing.T) {
	t.Parallel()

	handler := NewTicketHandler(newTicketService(t))
	rr := postJSON(t, handler.Escalate, "/escalate", EscalateRequest{UserQuery: "only a query"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGetTicket(t *testing.T) {
	t.Parallel()

	svc := newTicketService(t)
	tk := escalate(t, svc)
	handler := NewTicketHandler(svc)

	router := chi.NewRouter()
	router.Get("/tickets/{id}", handler.GetTicket)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tickets/"+tk.ID, nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var got ticket.Ticket
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != tk.ID || got.UserQuery != tk.UserQuery {
		t.Errorf("got %+v", got)
	}
}

func TestGetTicket_NotFound(t *testing.T) {
	t.Parallel()

	handler := NewTicketHandler(newTicketService(t))
	router := chi.NewRouter()
	router.Get("/tickets/{id}", handler.GetTicket)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tickets/ESC-999999", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestAddComment(t *testing.T) {
	t.Parallel()

	svc := newTicketService(t)
	tk := escalate(t, svc)
	handler := NewTicketHandler(svc)

	rr := postJSON(t, handler.AddComment, "/tickets/comment", AddCommentRequest{
		TicketID: tk.ID,
		Author:   "user",
		Content:  "Any update?",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var c ticket.Comment
	if err := json.Unmarshal(rr.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if c.ID != "COMMENT-001001" || c.Type != ticket.CommentTypeComment {
		t.Errorf("comment = %+v", c)
	}
	// author_name defaults to the author when omitted
	if c.AuthorName != "user" {
		t.Errorf("author_name = %q, want user", c.AuthorName)
	}
}

func TestAddComment_ResolutionResolvesTicket(t *testing.T) {
	t.Parallel()

	svc := newTicketService(t)
	tk := escalate(t, svc)
	handler := NewTicketHandler(svc)

	rr := postJSON(t, handler.AddComment, "/tickets/comment", AddCommentRequest{
		TicketID:     tk.ID,
		Author:       "admin",
		Content:      "Update the client to 5.2.",
		IsResolution: true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	got, err := svc.Get(context.Background(), tk.ID)
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if got.Status != ticket.StatusResolved {
		t.Errorf("status = %q, want resolved", got.Status)
	}
}

func TestAddComment_UnknownTicket(t *testing.T) {
	t.Parallel()

	handler := NewTicketHandler(newTicketService(t))
	rr := postJSON(t, handler.AddComment, "/tickets/comment", AddCommentRequest{
		TicketID: "ESC-999999",
		Author:   "user",
		Content:  "hello",
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
