package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/hoaledger/internal/usecase"
)

type fakeIdempotencyStore struct {
	checkAndSetFn func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	updateFn      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	released      []string
}

func (f *fakeIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if f.checkAndSetFn != nil {
		return f.checkAndSetFn(ctx, key, response, ttl)
	}
	return false, nil, nil
}

func (f *fakeIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, key, response, ttl)
	}
	return nil
}

func (f *fakeIdempotencyStore) Release(_ context.Context, key string) error {
	f.released = append(f.released, key)
	return nil
}

func postWithKey(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/t/transactions", bytes.NewBufferString(`{}`))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req
}

func TestIdempotencyMiddleware_StoreErrorIs500(t *testing.T) {
	var called bool
	store := &fakeIdempotencyStore{
		checkAndSetFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
			return false, nil, context.DeadlineExceeded
		},
	}
	mw := NewIdempotencyMiddleware(store, 0)

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rr, postWithKey("key-err"))

	if called {
		t.Fatalf("handler should not be called when store errors")
	}
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
}

func TestIdempotencyMiddleware_FailedResponseReleasesKey(t *testing.T) {
	var updated bool
	store := &fakeIdempotencyStore{
		updateFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) error {
			updated = true
			return nil
		},
	}
	mw := NewIdempotencyMiddleware(store, time.Minute)

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})).ServeHTTP(rr, postWithKey("key-fail"))

	if updated {
		t.Fatalf("expected error responses not to be cached")
	}
	if len(store.released) != 1 || store.released[0] != "POST /api/v1/tenants/t/transactions:key-fail" {
		t.Fatalf("expected key-fail to be released, got %v", store.released)
	}
}

func TestIdempotencyMiddleware_StoresSuccessAndReplays(t *testing.T) {
	var stored []byte
	var ttlSeen time.Duration
	store := &fakeIdempotencyStore{
		updateFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) error {
			stored = response
			ttlSeen = ttl
			return nil
		},
	}
	mw := NewIdempotencyMiddleware(store, 0)

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"tx-1"}`))
	})).ServeHTTP(rr, postWithKey("key-ok"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if ttlSeen != usecase.IdempotencyKeyTTL {
		t.Fatalf("expected default ttl, got %v", ttlSeen)
	}
	var sr storedResponse
	if err := json.Unmarshal(stored, &sr); err != nil {
		t.Fatalf("stored payload is not JSON: %v", err)
	}
	if sr.Status != http.StatusCreated || string(sr.Body) != `{"id":"tx-1"}` {
		t.Fatalf("unexpected stored response %+v", sr)
	}

	replayStore := &fakeIdempotencyStore{
		checkAndSetFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
			return true, stored, nil
		},
	}
	var called bool
	rr = httptest.NewRecorder()
	NewIdempotencyMiddleware(replayStore, 0).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rr, postWithKey("key-ok"))

	if called {
		t.Fatalf("handler should not run on replay")
	}
	if rr.Code != http.StatusCreated || rr.Body.String() != `{"id":"tx-1"}` {
		t.Fatalf("unexpected replay %d %q", rr.Code, rr.Body.String())
	}
	if rr.Header().Get(IdempotencyReplayHeader) != "true" {
		t.Fatalf("expected replay header")
	}
}

func TestIdempotencyMiddleware_InFlightIsConflict(t *testing.T) {
	store := &fakeIdempotencyStore{
		checkAndSetFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
			return true, usecase.IdempotencyInFlight, nil
		},
	}

	rr := httptest.NewRecorder()
	NewIdempotencyMiddleware(store, 0).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not run while the key is in flight")
	})).ServeHTTP(rr, postWithKey("key-busy"))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestIdempotencyMiddleware_PassThrough(t *testing.T) {
	tests := []struct {
		name string
		req  *http.Request
	}{
		{"no key", postWithKey("")},
		{"safe method", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/t/summary", nil)
			r.Header.Set(IdempotencyKeyHeader, "k")
			return r
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeIdempotencyStore{
				checkAndSetFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
					t.Fatalf("store should not be consulted")
					return false, nil, nil
				},
			}
			var called bool
			rr := httptest.NewRecorder()
			NewIdempotencyMiddleware(store, 0).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})).ServeHTTP(rr, tt.req)

			if !called {
				t.Fatalf("handler not called")
			}
		})
	}
}

func TestIdempotencyMiddleware_ScopesKeyByTenant(t *testing.T) {
	var seen string
	store := &fakeIdempotencyStore{
		checkAndSetFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
			seen = key
			return false, nil, nil
		},
	}

	r := chi.NewRouter()
	r.With(NewIdempotencyMiddleware(store, 0).Wrap).Post("/tenants/{tenantID}/transactions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/tenants/abc/transactions", nil)
	req.Header.Set(IdempotencyKeyHeader, "k1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if want := "abc:POST /tenants/abc/transactions:k1"; seen != want {
		t.Fatalf("expected key %q, got %q", want, seen)
	}
}

func TestIdempotencyMiddleware_SameKeyOnAnotherRouteIsNotReplayed(t *testing.T) {
	seen := map[string][]byte{}
	store := &fakeIdempotencyStore{
		checkAndSetFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
			if cached, ok := seen[key]; ok {
				return true, cached, nil
			}
			seen[key] = response
			return false, nil, nil
		},
		updateFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) error {
			seen[key] = response
			return nil
		},
	}

	calls := map[string]int{}
	r := chi.NewRouter()
	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		r.Use(NewIdempotencyMiddleware(store, 0).Wrap)
		r.Post("/transactions", func(w http.ResponseWriter, r *http.Request) {
			calls["transactions"]++
			w.WriteHeader(http.StatusCreated)
		})
		r.Post("/compliance/immutability", func(w http.ResponseWriter, r *http.Request) {
			calls["immutability"]++
			w.WriteHeader(http.StatusOK)
		})
	})

	send := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set(IdempotencyKeyHeader, "shared")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	if rec := send("/tenants/abc/transactions"); rec.Code != http.StatusCreated {
		t.Fatalf("first post: expected 201, got %d", rec.Code)
	}
	rec := send("/tenants/abc/compliance/immutability")
	if rec.Code != http.StatusOK || rec.Header().Get(IdempotencyReplayHeader) != "" {
		t.Fatalf("expected a fresh 200 on the second route, got %d replay=%q", rec.Code, rec.Header().Get(IdempotencyReplayHeader))
	}
	if rec := send("/tenants/abc/transactions"); rec.Header().Get(IdempotencyReplayHeader) != "true" {
		t.Fatal("expected the retry on the first route to replay")
	}
	if calls["transactions"] != 1 || calls["immutability"] != 1 {
		t.Fatalf("expected each handler to run once, got %v", calls)
	}
}
