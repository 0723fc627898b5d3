package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/hoaledger/internal/adapter/http/dto"
	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/usecase"
)

// IntegrityService checks and extends the double-entry ledger.
type IntegrityService interface {
	CheckTransaction(ctx context.Context, tenantID, transactionID string) error
	CheckLedger(ctx context.Context, tenantID string) (usecase.IntegrityReport, error)
	PostTransaction(ctx context.Context, tenantID string, input usecase.PostTransactionInput) (*domain.Transaction, error)
}

// IntegrityHandler serves ledger integrity checks and transaction posting.
type IntegrityHandler struct {
	svc IntegrityService
}

// NewIntegrityHandler creates a new IntegrityHandler.
func NewIntegrityHandler(svc IntegrityService) *IntegrityHandler {
	return &IntegrityHandler{svc: svc}
}

// CheckLedger reports every invariant failure in the tenant's ledger.
func (h *IntegrityHandler) CheckLedger(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.CheckLedger(r.Context(), tenantID(r))
	if err != nil {
		writeDomainError(w, "failed to check ledger", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// CheckTransaction verifies one stored transaction against its entries.
func (h *IntegrityHandler) CheckTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transactionID")
	if err := h.svc.CheckTransaction(r.Context(), tenantID(r), id); err != nil {
		writeDomainError(w, "transaction failed integrity check", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"transaction_id": id, "balanced": true})
}

// PostTransaction appends a balanced transaction and its entries.
func (h *IntegrityHandler) PostTransaction(w http.ResponseWriter, r *http.Request) {
	var req dto.PostTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(tenantID(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction", err.Error())
		return
	}

	txn, err := h.svc.PostTransaction(r.Context(), tenantID(r), input)
	if err != nil {
		writeDomainError(w, "failed to post transaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}
