/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind the back-office proxy
  3. Logger:     zap request logging (see logging.go)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the back-office frontend

ROUTE GROUPS:
  /api/products/*   Catalog
  /api/partners/*   Partner directory
  /api/orders/*     Stock handed to partners
  /api/samples/*    Promotional samples
  /api/resales/*    Partner resale reports (FIFO)
  /api/history      Combined order / resale feed
  /api/reports/*    Dashboard, stock audit, partner summaries, xlsx export
  /api/demo/seed    Demo data (only when RouterOptions.EnableDemo is set)

SECURITY NOTE:
  No authentication middleware. The service is meant to sit behind the
  back office's own access control.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultAllowedOrigins are the dev frontend origins.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

type RouterOptions struct {
	AllowedOrigins []string
	EnableDemo     bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(zapFormatter{log: h.log}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Catalog routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{id}", h.GetProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
			r.Post("/{id}/restock", h.RestockProduct)
			r.Post("/{id}/active", h.SetProductActive)
		})

		// Partner routes
		r.Route("/partners", func(r chi.Router) {
			r.Get("/", h.ListPartners)
			r.Post("/", h.CreatePartner)
			r.Get("/{id}", h.GetPartner)
			r.Put("/{id}", h.UpdatePartner)
			r.Delete("/{id}", h.DeletePartner)
		})

		// Order routes
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.PlaceOrder)
			r.Get("/{id}", h.GetOrder)
			r.Delete("/{id}", h.ReverseOrder)
		})

		// Sample routes
		r.Route("/samples", func(r chi.Router) {
			r.Get("/", h.ListSamples)
			r.Post("/", h.PlaceSample)
			r.Put("/{id}", h.UpdateSample)
			r.Delete("/{id}", h.ReverseSample)
		})

		// Resale routes
		r.Route("/resales", func(r chi.Router) {
			r.Post("/", h.ReportResale)
			r.Get("/{id}", h.GetResale)
			r.Delete("/{id}", h.ReverseResale)
			r.Post("/{id}/commission-paid", h.MarkCommissionPaid)
		})

		r.Get("/history", h.History)

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/dashboard", h.Dashboard)
			r.Get("/stock", h.StockAudit)
			r.Get("/partners", h.PartnerSummaries)
			r.Get("/export", h.ExportMasterReport)
		})

		if opts.EnableDemo {
			r.Post("/demo/seed", h.SeedDemo)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found", nil)
	})

	return r
}
