package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/hoaledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/hoaledger/internal/adapter/http/middleware"
	"github.com/iho/hoaledger/internal/compliance"
	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/reconstruction"
	"github.com/iho/hoaledger/internal/usecase"
)

const routerTenant = "6f1c2c1e-2d4b-4c1a-9d55-0b8f5c8f3a10"

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"property_id":"p1","transaction_type":"dues_payment","description":"dues","transaction_date":"2024-01-01","amount":"100.00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/"+routerTenant+"/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if store.checkedKey != routerTenant+":POST /api/v1/tenants/"+routerTenant+"/transactions:key-123" {
		t.Fatalf("expected idempotency store to be used with tenant-scoped key, got %q", store.checkedKey)
	}
}

func TestNewRouter_RejectsMalformedTenant(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tenants/acme/summary?start=2024-01-01&end=2024-12-31", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-uuid tenant, got %d", rec.Code)
	}
}

func TestNewRouter_ServesMemberBalance(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tenants/"+routerTenant+"/members/m1/balance?as_of=2024-03-31", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"member_id":"m1"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		})
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "# metrics" {
		t.Fatalf("unexpected /metrics response %d %q", rec.Code, rec.Body.String())
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	prefix := "/api/v1/tenants/{tenantID}"
	expected := []string{
		"GET /health",
		"GET /ready",
		"GET " + prefix + "/members/{memberID}/balance",
		"GET " + prefix + "/members/{memberID}/transactions",
		"GET " + prefix + "/funds/{fundID}/balance",
		"GET " + prefix + "/funds/{fundID}/history",
		"GET " + prefix + "/properties/{propertyID}/snapshot",
		"GET " + prefix + "/summary",
		"GET " + prefix + "/compliance/accuracy",
		"POST " + prefix + "/compliance/immutability",
		"POST " + prefix + "/compliance/entries/{entryID}/verify",
		"GET " + prefix + "/integrity",
		"POST " + prefix + "/transactions",
		"GET " + prefix + "/transactions/{transactionID}/integrity",
		"GET " + prefix + "/audit",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	clock := usecase.ClockFunc(func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) })

	cfg := RouterConfig{
		ReconstructionHandler: handler.NewReconstructionHandler(stubReconstruction{}, clock),
		ComplianceHandler:     handler.NewComplianceHandler(stubCompliance{}, stubCompliance{}, clock),
		IntegrityHandler:      handler.NewIntegrityHandler(stubIntegrity{}),
		AuditHandler:          handler.NewAuditHandler(stubAudit{}),
		HealthHandler:         handler.NewHealthHandler(nil),
		Logger:                zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubReconstruction struct{}

func (stubReconstruction) MemberBalance(_ context.Context, tenantID, memberID string, asOf domain.Date) (reconstruction.MemberBalanceSnapshot, error) {
	return reconstruction.MemberBalanceSnapshot{TenantID: tenantID, MemberID: memberID, AsOfDate: asOf}, nil
}

func (stubReconstruction) MemberHistory(context.Context, string, string, domain.Date, domain.Date) ([]*domain.Transaction, error) {
	return nil, nil
}

func (stubReconstruction) FundBalance(_ context.Context, tenantID, fundID string, asOf domain.Date) (reconstruction.FundBalanceSnapshot, error) {
	return reconstruction.FundBalanceSnapshot{}, nil
}

func (stubReconstruction) FundHistory(context.Context, string, string, domain.Date, domain.Date) (reconstruction.BalanceHistory, error) {
	return reconstruction.BalanceHistory{}, nil
}

func (stubReconstruction) PropertySnapshot(context.Context, string, string, domain.Date) (reconstruction.PropertyFinancialSnapshot, error) {
	return reconstruction.PropertyFinancialSnapshot{}, nil
}

func (stubReconstruction) Summary(context.Context, string, domain.Date, domain.Date) (reconstruction.TransactionSummary, error) {
	return reconstruction.TransactionSummary{}, nil
}

type stubCompliance struct{}

func (stubCompliance) ValidateTenant(context.Context, string, domain.Date) (compliance.AccuracyReport, error) {
	return compliance.AccuracyReport{}, nil
}

func (stubCompliance) VerifyTenant(context.Context, string, []string) (compliance.ImmutabilityReport, error) {
	return compliance.ImmutabilityReport{}, nil
}

func (stubCompliance) VerifyEntry(context.Context, string, *domain.LedgerEntry) error {
	return nil
}

type stubIntegrity struct{}

func (stubIntegrity) CheckTransaction(context.Context, string, string) error {
	return nil
}

func (stubIntegrity) CheckLedger(_ context.Context, tenantID string) (usecase.IntegrityReport, error) {
	return usecase.IntegrityReport{TenantID: tenantID, Consistent: true}, nil
}

func (stubIntegrity) PostTransaction(_ context.Context, tenantID string, _ usecase.PostTransactionInput) (*domain.Transaction, error) {
	return &domain.Transaction{ID: "tx", TenantID: tenantID}, nil
}

type stubAudit struct{}

func (stubAudit) Trail(context.Context, string, domain.EntityKind, string) ([]*domain.AuditEntry, error) {
	return nil, nil
}

func (stubAudit) TenantTrail(context.Context, string, domain.AuditFilter) ([]*domain.AuditEntry, error) {
	return nil, nil
}

type stubIdempotencyStore struct {
	checkedKey string
}

func (s *stubIdempotencyStore) CheckAndSet(_ context.Context, key string, _ []byte, _ time.Duration) (bool, []byte, error) {
	s.checkedKey = key
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (s *stubIdempotencyStore) Release(context.Context, string) error {
	return nil
}
