package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/resolvhq/resolv/internal/domain/ticket"
)

func TestAdminListTickets(t *testing.T) {
	t.Parallel()

	svc := newTicketService(t)
	escalate(t, svc)
	tk := escalate(t, svc)
	if _, err := svc.Resolve(context.Background(), ticket.ResolveInput{
		TicketID: tk.ID,
		Solution: "Resolved by updating the client.",
	}); err != nil {
		t.Fatalf("Resolve error = %v", err)
	}

	handler := NewAdminHandler(svc)

	rr := httptest.NewRecorder()
	handler.ListTickets(rr, httptest.NewRequest(http.MethodGet, "/admin/tickets?status=pending", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Tickets []*ticket.Ticket `json:"tickets"`
		Total   int              `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Tickets) != 1 {
		t.Fatalf("expected 1 pending ticket, got %d", resp.Total)
	}
	if resp.Tickets[0].Status != ticket.StatusPending {
		t.Errorf("status = %q", resp.Tickets[0].Status)
	}
}

func TestAdminListTickets_BadStatus(t *testing.T) {
	t.Parallel()

	handler := NewAdminHandler(newTicketService(t))
	rr := httptest.NewRecorder()
	handler.ListTickets(rr, httptest.NewRequest(http.MethodGet, "/admin/tickets?status=bogus", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestAdminListTickets_EmptyStoreSerializesAsArray(t *testing.T) {
	t.Parallel()

	handler := NewAdminHandler(newTicketService(t))
	rr := httptest.NewRecorder()
	handler.ListTickets(rr, httptest.NewRequest(http.MethodGet, "/admin/tickets", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if body == "" || body[0] == 'n' {
		t.Errorf("body = %q", body)
	}
}

func TestAdminResolve(t *testing.T) {
	t.Parallel()

	svc := newTicketService(t)
	tk := escalate(t, svc)
	handler := NewAdminHandler(svc)

	rr := postJSON(t, handler.Resolve, "/admin/resolve", ResolveRequest{
		TicketID: tk.ID,
		Solution: "Update the VPN client to 5.2.",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var got ticket.Ticket
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != ticket.StatusResolved {
		t.Errorf("status = %q, want resolved", got.Status)
	}
	if got.AdminSolution == nil {
		t.Error("admin solution not recorded")
	}
}

func TestAdminResolve_MissingFields(t *testing.T) {
	t.Parallel()

	handler := NewAdminHandler(newTicketService(t))
	rr := postJSON(t, handler.Resolve, "/admin/resolve", ResolveRequest{TicketID: "ESC-001001"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestAdminResolve_UnknownTicket(t *testing.T) {
	t.Parallel()

	handler := NewAdminHandler(newTicketService(t))
	rr := postJSON(t, handler.Resolve, "/admin/resolve", ResolveRequest{
		TicketID: "ESC-999999",
		Solution: "s",
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestAdminStats(t *testing.T) {
	t.Parallel()

	svc := newTicketService(t)
	escalate(t, svc)
	handler := NewAdminHandler(svc)

	rr := httptest.NewRecorder()
	handler.Stats(rr, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var stats ticket.Stats
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stats.TotalTickets != 1 || stats.PendingTickets != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(stats.DailyCounts) != 30 {
		t.Errorf("daily series length = %d", len(stats.DailyCounts))
	}
}
