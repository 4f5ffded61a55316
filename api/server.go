/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the back-office frontend

ROUTE GROUPS:
  /api/customers/*      Customer profiles
  /api/bookings/*       Party room scheduling
  /api/orders/*         Order ledger, payments, refunds
  /api/products, /api/tickets, /api/packages, /api/policies,
  /api/locations        Catalog reads
  /api/reset            Database reset (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Customer routes
		r.Route("/customers", func(r chi.Router) {
			r.Post("/", h.CreateCustomer)
			r.Get("/{id}", h.GetCustomer)
			r.Get("/{id}/orders", h.ListCustomerOrders)
		})

		// Booking routes
		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.CreateBooking)
			r.Patch("/{id}", h.UpdateBooking)
		})
		r.Get("/availability", h.GetAvailability)

		// Order routes
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.SearchOrders)
			r.Post("/", h.CreateOrder)
			r.Get("/{id}", h.GetOrderDetails)
			r.Post("/{id}/items", h.AddOrderItem)
			r.Post("/{id}/status", h.UpdateOrderStatus)
			r.Post("/{id}/payments", h.RecordPayment)
			r.Post("/{id}/refunds", h.CreateRefund)
		})

		// Catalog routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.SearchProducts)
			r.Get("/{id}", h.GetProduct)
		})
		r.Get("/tickets", h.GetTicketPricing)
		r.Get("/packages", h.ListPartyPackages)
		r.Get("/policies", h.GetPolicies)
		r.Get("/locations", h.ListLocations)

		// Dev only
		r.Post("/reset", h.ResetDatabase)
	})

	return r
}
