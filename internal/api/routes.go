// Route registration and go-chi router setup.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/resolvhq/resolv/internal/api/handlers"
	"github.com/resolvhq/resolv/internal/domain/ticket"
	"github.com/resolvhq/resolv/internal/version"
)

// HealthChecker reports whether one backing service is reachable.
type HealthChecker func(ctx context.Context) error

// Deps carries the wired services the router exposes.
type Deps struct {
	Pipeline handlers.Resolver
	Tickets  *ticket.Service

	// Connectivity probes for /health, keyed by service name.
	Checks map[string]HealthChecker

	AllowedOrigins []string
}

// NewRouter creates and configures a chi router with all routes.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/", bannerHandler)
	r.Get("/health", healthHandler(deps.Checks))

	searchHandler := handlers.NewSearchHandler(deps.Pipeline)
	ticketHandler := handlers.NewTicketHandler(deps.Tickets)
	adminHandler := handlers.NewAdminHandler(deps.Tickets)

	r.Post("/search", searchHandler.Search)
	r.Post("/escalate", ticketHandler.Escalate)
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/{id}", ticketHandler.GetTicket)     // GET /tickets/{id}
		r.Post("/comment", ticketHandler.AddComment) // POST /tickets/comment
	})
	r.Route("/admin", func(r chi.Router) {
		r.Get("/tickets", adminHandler.ListTickets) // GET /admin/tickets?status=
		r.Post("/resolve", adminHandler.Resolve)    // POST /admin/resolve
		r.Get("/stats", adminHandler.Stats)         // GET /admin/stats
	})

	return r
}

func bannerHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	w.Write([]byte(`{"message":"Intelligent ticket resolution API","version":"` +
		version.Version + `","status":"running"}`))
}

// healthHandler probes each backing service with a short timeout. Degraded
// services flip the overall status but the endpoint itself stays 200: load
// balancers read the body, not the code.
func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ok"
		services := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				services[name] = "unreachable: " + err.Error()
				status = "degraded"
				continue
			}
			services[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck
		json.NewEncoder(w).Encode(map[string]any{
			"status":   status,
			"services": services,
		})
	}
}
