package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/iho/hoaledger/internal/adapter/http/handler"
	"github.com/iho/hoaledger/internal/adapter/http/middleware"
	"github.com/iho/hoaledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	ReconstructionHandler *handler.ReconstructionHandler
	ComplianceHandler     *handler.ComplianceHandler
	IntegrityHandler      *handler.IntegrityHandler
	AuditHandler          *handler.AuditHandler
	HealthHandler         *handler.HealthHandler

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          middleware.HTTPObserver
	MetricsHandler   http.Handler
	Logger           zerolog.Logger
	AllowedOrigins   []string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.IdempotencyKeyHeader, middleware.UserIDHeader},
		ExposedHeaders: []string{middleware.IdempotencyReplayHeader},
		MaxAge:         300,
	}))

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1/tenants/{tenantID}", func(r chi.Router) {
		r.Use(middleware.Tenant)
		r.Use(middleware.Actor)

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		// Point-in-time reconstruction
		r.Get("/members/{memberID}/balance", cfg.ReconstructionHandler.MemberBalance)
		r.Get("/members/{memberID}/transactions", cfg.ReconstructionHandler.MemberTransactions)
		r.Get("/funds/{fundID}/balance", cfg.ReconstructionHandler.FundBalance)
		r.Get("/funds/{fundID}/history", cfg.ReconstructionHandler.FundHistory)
		r.Get("/properties/{propertyID}/snapshot", cfg.ReconstructionHandler.PropertySnapshot)
		r.Get("/summary", cfg.ReconstructionHandler.Summary)

		// Compliance
		r.Route("/compliance", func(r chi.Router) {
			r.Get("/accuracy", cfg.ComplianceHandler.Accuracy)
			r.Post("/immutability", cfg.ComplianceHandler.Immutability)
			r.Post("/entries/{entryID}/verify", cfg.ComplianceHandler.VerifyEntry)
		})

		// Double-entry integrity
		r.Get("/integrity", cfg.IntegrityHandler.CheckLedger)
		r.Post("/transactions", cfg.IntegrityHandler.PostTransaction)
		r.Get("/transactions/{transactionID}/integrity", cfg.IntegrityHandler.CheckTransaction)

		r.Get("/audit", cfg.AuditHandler.Trail)
	})

	return r
}
