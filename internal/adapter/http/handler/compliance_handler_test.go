package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/hoaledger/internal/adapter/http/dto"
	"github.com/iho/hoaledger/internal/compliance"
	"github.com/iho/hoaledger/internal/domain"
)

type accuracyServiceStub struct {
	gotAsOf domain.Date
	report  compliance.AccuracyReport
	err     error
}

func (s *accuracyServiceStub) ValidateTenant(_ context.Context, tenantID string, asOf domain.Date) (compliance.AccuracyReport, error) {
	s.gotAsOf = asOf
	s.report.TenantID = tenantID
	s.report.AsOfDate = asOf
	return s.report, s.err
}

type immutabilityServiceStub struct {
	gotExpected []string
	gotOriginal *domain.LedgerEntry
	verifyErr   error
}

func (s *immutabilityServiceStub) VerifyTenant(_ context.Context, tenantID string, expectedIDs []string) (compliance.ImmutabilityReport, error) {
	s.gotExpected = expectedIDs
	return compliance.ImmutabilityReport{TenantID: tenantID, IsImmutable: true, Violations: []string{}}, nil
}

func (s *immutabilityServiceStub) VerifyEntry(_ context.Context, _ string, original *domain.LedgerEntry) error {
	s.gotOriginal = original
	return s.verifyErr
}

func TestComplianceHandler_Accuracy(t *testing.T) {
	acc := &accuracyServiceStub{report: compliance.AccuracyReport{CriticalVariances: 1}}
	h := NewComplianceHandler(acc, &immutabilityServiceStub{}, fixedClock)

	req := withParams(httptest.NewRequest(http.MethodGet, "/compliance/accuracy?as_of=2024-06-30", nil))
	rec := httptest.NewRecorder()
	h.Accuracy(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 even for a failing report, got %d", rec.Code)
	}

	var resp compliance.AccuracyReport
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TenantID != testTenant || resp.CriticalVariances != 1 || resp.AsOfDate.String() != "2024-06-30" {
		t.Fatalf("unexpected report %+v", resp)
	}
}

func TestComplianceHandler_AccuracyError(t *testing.T) {
	acc := &accuracyServiceStub{err: &domain.TenantIsolationError{Tenant: testTenant, RecordOwner: "other"}}
	h := NewComplianceHandler(acc, &immutabilityServiceStub{}, fixedClock)

	rec := httptest.NewRecorder()
	h.Accuracy(rec, withParams(httptest.NewRequest(http.MethodGet, "/compliance/accuracy", nil)))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestComplianceHandler_Immutability(t *testing.T) {
	imm := &immutabilityServiceStub{}
	h := NewComplianceHandler(&accuracyServiceStub{}, imm, fixedClock)

	body := bytes.NewBufferString(`{"expected_entry_ids":["e1","e2"]}`)
	rec := httptest.NewRecorder()
	h.Immutability(rec, withParams(httptest.NewRequest(http.MethodPost, "/compliance/immutability", body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(imm.gotExpected) != 2 || imm.gotExpected[1] != "e2" {
		t.Fatalf("unexpected expected ids %v", imm.gotExpected)
	}
}

func TestComplianceHandler_ImmutabilityWithoutBody(t *testing.T) {
	imm := &immutabilityServiceStub{}
	h := NewComplianceHandler(&accuracyServiceStub{}, imm, fixedClock)

	rec := httptest.NewRecorder()
	h.Immutability(rec, withParams(httptest.NewRequest(http.MethodPost, "/compliance/immutability", nil)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if imm.gotExpected != nil {
		t.Fatalf("expected no ids, got %v", imm.gotExpected)
	}
}

func TestComplianceHandler_VerifyEntry(t *testing.T) {
	tests := []struct {
		name       string
		verifyErr  error
		body       string
		wantStatus int
		want       dto.VerifyEntryResponse
	}{
		{
			name:       "unchanged",
			body:       `{"original":{"amount":"10.00","is_debit":true}}`,
			wantStatus: http.StatusOK,
			want:       dto.VerifyEntryResponse{EntryID: "e1", Unchanged: true},
		},
		{
			name:       "tampered",
			verifyErr:  &compliance.TamperError{EntryID: "e1", Field: "amount", Original: "10.00", Current: "1000.00"},
			body:       `{"original":{"id":"e1","amount":"10.00"}}`,
			wantStatus: http.StatusOK,
			want:       dto.VerifyEntryResponse{EntryID: "e1", Field: "amount", Original: "10.00", Current: "1000.00"},
		},
		{
			name:       "deleted",
			verifyErr:  domain.ErrEntryNotFound,
			body:       `{"original":{"id":"e1"}}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "id mismatch",
			body:       `{"original":{"id":"e2"}}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed",
			body:       `{"original":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imm := &immutabilityServiceStub{verifyErr: tt.verifyErr}
			h := NewComplianceHandler(&accuracyServiceStub{}, imm, fixedClock)

			req := withParams(httptest.NewRequest(http.MethodPost, "/compliance/entries/e1/verify", bytes.NewBufferString(tt.body)), "entryID", "e1")
			rec := httptest.NewRecorder()
			h.VerifyEntry(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if imm.gotOriginal == nil || imm.gotOriginal.ID != "e1" {
				t.Fatalf("expected original with path id, got %+v", imm.gotOriginal)
			}

			var resp dto.VerifyEntryResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp != tt.want {
				t.Fatalf("got %+v, want %+v", resp, tt.want)
			}
		})
	}
}

func TestComplianceHandler_VerifyEntryWrappedTamper(t *testing.T) {
	tamper := &compliance.TamperError{EntryID: "e1", Field: "fund_id", Original: "f1", Current: "f2"}
	imm := &immutabilityServiceStub{verifyErr: errors.Join(errors.New("audit"), tamper)}
	h := NewComplianceHandler(&accuracyServiceStub{}, imm, fixedClock)

	req := withParams(httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString(`{"original":{}}`)), "entryID", "e1")
	rec := httptest.NewRecorder()
	h.VerifyEntry(rec, req)

	var resp dto.VerifyEntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Unchanged || resp.Field != "fund_id" {
		t.Fatalf("unexpected response %+v", resp)
	}
}
