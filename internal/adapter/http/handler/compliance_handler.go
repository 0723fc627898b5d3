package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/hoaledger/internal/adapter/http/dto"
	"github.com/iho/hoaledger/internal/compliance"
	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/usecase"
)

// AccuracyService validates stored balances against the ledger.
type AccuracyService interface {
	ValidateTenant(ctx context.Context, tenantID string, asOf domain.Date) (compliance.AccuracyReport, error)
}

// ImmutabilityService checks that recorded entries were not altered.
type ImmutabilityService interface {
	VerifyTenant(ctx context.Context, tenantID string, expectedIDs []string) (compliance.ImmutabilityReport, error)
	VerifyEntry(ctx context.Context, tenantID string, original *domain.LedgerEntry) error
}

// ComplianceHandler serves the accuracy and immutability checks.
type ComplianceHandler struct {
	accuracy     AccuracyService
	immutability ImmutabilityService
	clock        usecase.Clock
}

// NewComplianceHandler creates a new ComplianceHandler.
func NewComplianceHandler(accuracy AccuracyService, immutability ImmutabilityService, clock usecase.Clock) *ComplianceHandler {
	if clock == nil {
		clock = usecase.SystemClock
	}
	return &ComplianceHandler{accuracy: accuracy, immutability: immutability, clock: clock}
}

// Accuracy compares every stored member and fund balance with the ledger.
// A failing report is still a successful request.
func (h *ComplianceHandler) Accuracy(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseAsOf(r, h.clock)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of", err.Error())
		return
	}

	report, err := h.accuracy.ValidateTenant(r.Context(), tenantID(r), asOf)
	if err != nil {
		writeDomainError(w, "failed to validate accuracy", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Immutability checks the tenant's ledger for altered or missing entries.
func (h *ComplianceHandler) Immutability(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyImmutabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	report, err := h.immutability.VerifyTenant(r.Context(), tenantID(r), req.ExpectedEntryIDs)
	if err != nil {
		writeDomainError(w, "failed to verify immutability", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// VerifyEntry compares the stored entry with the original the caller sends.
func (h *ComplianceHandler) VerifyEntry(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entryID := chi.URLParam(r, "entryID")
	if req.Original.ID == "" {
		req.Original.ID = entryID
	}
	if req.Original.ID != entryID {
		writeError(w, http.StatusBadRequest, "entry id mismatch", "original.id does not match the path")
		return
	}

	err := h.immutability.VerifyEntry(r.Context(), tenantID(r), &req.Original)

	var tamper *compliance.TamperError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, dto.VerifyEntryResponse{EntryID: entryID, Unchanged: true})
	case errors.As(err, &tamper):
		writeJSON(w, http.StatusOK, dto.VerifyEntryResponse{
			EntryID:  entryID,
			Field:    tamper.Field,
			Original: tamper.Original,
			Current:  tamper.Current,
		})
	default:
		writeDomainError(w, "failed to verify entry", err)
	}
}
