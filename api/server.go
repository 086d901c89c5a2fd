/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend clients

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID", "X-Actor-Role"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/loans", func(r chi.Router) {
			r.Post("/", h.BorrowBook)
			r.Get("/overdue", h.OverdueLoans)
			r.Get("/{id}", h.GetLoan)
			r.Post("/{id}/return", h.ReturnBook)
			r.Post("/{id}/renew", h.RenewBook)
			r.Post("/{id}/lost", h.MarkBookAsLost)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/{id}/loans", h.UserOpenLoans)
			r.Get("/{id}/history", h.UserHistory)
			r.Get("/{id}/can-borrow/{bookID}", h.CanBorrow)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/", h.Statistics)
			r.Get("/overdue", h.OverdueStatistics)
			r.Get("/fines", h.UsersWithFines)
			r.Get("/top-books", h.MostBorrowedBooks)
			r.Get("/trends", h.BorrowingTrends)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/sweep", h.RunSweep)
			r.Post("/books/{id}/inventory", h.AdjustInventory)
		})
	})

	return r
}
