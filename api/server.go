/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. Logger:     Request-scoped zerolog logger injected into context
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/analysis/*   Financial analysis operations
  /api/industries/* Industry benchmark reference data
  /api/files/*      CSV uploads
  /api/profile      Declared industry and currency

SECURITY NOTE:
  Tenancy comes from the X-User-ID header; there is no authentication layer
  here. Run behind a gateway that verifies identity and sets the header.

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
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger *zerolog.Logger, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Analysis routes
		r.Route("/analysis", func(r chi.Router) {
			r.Get("/pnl", h.GetPnLAnalysis)
			r.Get("/cash", h.GetCashAnalysis)
			r.Get("/invoices", h.GetInvoicesAnalysis)
			r.Get("/expenses", h.GetExpenseBreakdown)
			r.Get("/revenue", h.GetRevenueAnalysis)
		})

		// Benchmark routes
		r.Route("/industries", func(r chi.Router) {
			r.Get("/", h.ListIndustries)
			r.Get("/{name}", h.GetIndustry)
		})

		// File routes
		r.Route("/files", func(r chi.Router) {
			r.Get("/", h.ListFiles)
			r.Post("/{template}", h.UploadFile)
		})

		// Profile routes
		r.Route("/profile", func(r chi.Router) {
			r.Get("/", h.GetProfile)
			r.Put("/", h.SetProfile)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// requestLogger injects a request-scoped logger into the context so handlers
// and the engine can log with request fields attached via zerolog.Ctx.
func requestLogger(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			reqLogger := logger.With().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("request_id", middleware.GetReqID(req.Context())).
				Logger()

			ctx := reqLogger.WithContext(req.Context())
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}
