package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/hoaledger/internal/domain"
)

func TestActor_AttachesCallerIdentity(t *testing.T) {
	var got domain.Actor
	h := Actor(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = domain.ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4000"
	req.Header.Set(UserIDHeader, "treasurer@example.org")
	req.Header.Set("User-Agent", "audit-cli/1.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, domain.Actor{
		UserID:    "treasurer@example.org",
		IPAddress: "192.0.2.7",
		UserAgent: "audit-cli/1.0",
	}, got)
}

func TestActor_AnonymousFallsBackToSystem(t *testing.T) {
	var got domain.Actor
	h := Actor(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = domain.ActorFromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, domain.SystemActor, got.UserID)
}

func TestTenant(t *testing.T) {
	tests := []struct {
		name   string
		tenant string
		want   int
	}{
		{"uuid", "6f1c2c1e-2d4b-4c1a-9d55-0b8f5c8f3a10", http.StatusOK},
		{"not a uuid", "acme", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.With(Tenant).Get("/tenants/{tenantID}", func(w http.ResponseWriter, _ *http.Request) {})

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tenants/"+tt.tenant, nil))

			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestRecovery_Returns500AndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "panic recovered", line["message"])
	assert.Equal(t, "boom", line["error"])
}

func TestLoggingMiddleware_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(NewLoggingMiddleware(logger).Wrap)
	r.Get("/tenants/{tenantID}/summary", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tenants/t1/summary", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "request completed", line["message"])
	assert.Equal(t, "/tenants/t1/summary", line["path"])
	assert.Equal(t, "/tenants/{tenantID}/summary", line["route"])
	assert.EqualValues(t, http.StatusAccepted, line["status"])
	assert.NotEmpty(t, line["request_id"])
}

func TestLoggingMiddleware_ServerErrorsLogAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	h := NewLoggingMiddleware(zerolog.New(&buf)).Wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "unmatched", line["route"])
}

func TestLoggingMiddleware_Levels(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		want   string
	}{
		{"client error", "/api/v1/x", http.StatusNotFound, "warn"},
		{"probe", "/health", http.StatusOK, "debug"},
		{"failing probe", "/ready", http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := NewLoggingMiddleware(zerolog.New(&buf)).Wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, tt.want, line["level"])
			assert.Equal(t, "http", line["component"])
		})
	}
}
