package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/hoaledger/internal/adapter/http/dto"
	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/reconstruction"
	"github.com/iho/hoaledger/internal/usecase"
)

// ReconstructionService is the part of usecase.ReconstructionUseCase the
// handler needs.
type ReconstructionService interface {
	MemberBalance(ctx context.Context, tenantID, memberID string, asOf domain.Date) (reconstruction.MemberBalanceSnapshot, error)
	MemberHistory(ctx context.Context, tenantID, memberID string, start, end domain.Date) ([]*domain.Transaction, error)
	FundBalance(ctx context.Context, tenantID, fundID string, asOf domain.Date) (reconstruction.FundBalanceSnapshot, error)
	FundHistory(ctx context.Context, tenantID, fundID string, start, end domain.Date) (reconstruction.BalanceHistory, error)
	PropertySnapshot(ctx context.Context, tenantID, propertyID string, asOf domain.Date) (reconstruction.PropertyFinancialSnapshot, error)
	Summary(ctx context.Context, tenantID string, start, end domain.Date) (reconstruction.TransactionSummary, error)
}

// ReconstructionHandler serves point-in-time balances.
type ReconstructionHandler struct {
	svc   ReconstructionService
	clock usecase.Clock
}

// NewReconstructionHandler creates a new ReconstructionHandler. A missing
// as_of defaults to clock's current date.
func NewReconstructionHandler(svc ReconstructionService, clock usecase.Clock) *ReconstructionHandler {
	if clock == nil {
		clock = usecase.SystemClock
	}
	return &ReconstructionHandler{svc: svc, clock: clock}
}

// MemberBalance returns a member's balance as of a date.
func (h *ReconstructionHandler) MemberBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseAsOf(r, h.clock)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of", err.Error())
		return
	}

	snap, err := h.svc.MemberBalance(r.Context(), tenantID(r), chi.URLParam(r, "memberID"), asOf)
	if err != nil {
		writeDomainError(w, "failed to reconstruct member balance", err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// MemberTransactions returns a member's transactions within a date range.
func (h *ReconstructionHandler) MemberTransactions(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}

	memberID := chi.URLParam(r, "memberID")
	txns, err := h.svc.MemberHistory(r.Context(), tenantID(r), memberID, start, end)
	if err != nil {
		writeDomainError(w, "failed to load member transactions", err)
		return
	}
	if txns == nil {
		txns = []*domain.Transaction{}
	}

	writeJSON(w, http.StatusOK, dto.TransactionHistoryResponse{
		TenantID:     tenantID(r),
		MemberID:     memberID,
		StartDate:    start,
		EndDate:      end,
		Transactions: txns,
	})
}

// FundBalance returns a fund's balance as of a date.
func (h *ReconstructionHandler) FundBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseAsOf(r, h.clock)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of", err.Error())
		return
	}

	snap, err := h.svc.FundBalance(r.Context(), tenantID(r), chi.URLParam(r, "fundID"), asOf)
	if err != nil {
		writeDomainError(w, "failed to reconstruct fund balance", err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// FundHistory returns a fund's daily balances within a date range.
func (h *ReconstructionHandler) FundHistory(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}

	history, err := h.svc.FundHistory(r.Context(), tenantID(r), chi.URLParam(r, "fundID"), start, end)
	if err != nil {
		writeDomainError(w, "failed to reconstruct fund history", err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

// PropertySnapshot returns a property's financial position as of a date.
func (h *ReconstructionHandler) PropertySnapshot(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseAsOf(r, h.clock)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of", err.Error())
		return
	}

	snap, err := h.svc.PropertySnapshot(r.Context(), tenantID(r), chi.URLParam(r, "propertyID"), asOf)
	if err != nil {
		writeDomainError(w, "failed to reconstruct property snapshot", err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Summary totals the tenant's activity within a date range.
func (h *ReconstructionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}

	summary, err := h.svc.Summary(r.Context(), tenantID(r), start, end)
	if err != nil {
		writeDomainError(w, "failed to summarize transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
