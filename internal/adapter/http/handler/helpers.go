package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iho/hoaledger/internal/adapter/http/dto"
	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/usecase"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError writes err with the status mapDomainError picks for it.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, mapDomainError(err), message, err.Error())
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrEntryNotFound),
		errors.Is(err, domain.ErrMemberNotFound),
		errors.Is(err, domain.ErrFundNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTenantIsolation):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDuplicateRecord),
		errors.Is(err, domain.ErrAppendOnly):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoEntries),
		errors.Is(err, domain.ErrUnbalancedEntries),
		errors.Is(err, domain.ErrMissingDebit),
		errors.Is(err, domain.ErrMissingCredit),
		errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, domain.ErrCrossTransaction),
		errors.Is(err, domain.ErrCrossTenant),
		errors.Is(err, domain.ErrFundBelowMinimum):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidTenantID),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidPrecision),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrAmountTooSmall),
		errors.Is(err, domain.ErrInvalidTransactionType),
		errors.Is(err, domain.ErrMissingPostedDate),
		errors.Is(err, domain.ErrVoidAndPosted),
		errors.Is(err, domain.ErrFutureTransactionDate),
		errors.Is(err, domain.ErrMissingTransaction),
		errors.Is(err, domain.ErrMissingFundID),
		errors.Is(err, domain.ErrInvalidLedgerEntry),
		errors.Is(err, domain.ErrInvalidAccountCode),
		errors.Is(err, domain.ErrInvalidDescription),
		errors.Is(err, domain.ErrReversalWithoutLink),
		errors.Is(err, domain.ErrWrongEntrySide),
		errors.Is(err, domain.ErrEntryMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// tenantID returns the {tenantID} route parameter. The router validates it
// before any handler runs.
func tenantID(r *http.Request) string {
	return chi.URLParam(r, "tenantID")
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// parseAsOf reads the as_of query parameter, defaulting to today.
func parseAsOf(r *http.Request, clock usecase.Clock) (domain.Date, error) {
	val := r.URL.Query().Get("as_of")
	if val == "" {
		return domain.DateOf(clock.Now()), nil
	}
	d, err := domain.ParseDate(val)
	if err != nil {
		return domain.Date{}, fmt.Errorf("as_of: %w", err)
	}
	return d, nil
}

// parseRange reads the required start and end query parameters.
func parseRange(r *http.Request) (domain.Date, domain.Date, error) {
	q := r.URL.Query()

	start, err := domain.ParseDate(q.Get("start"))
	if err != nil {
		return domain.Date{}, domain.Date{}, fmt.Errorf("start: %w", err)
	}
	end, err := domain.ParseDate(q.Get("end"))
	if err != nil {
		return domain.Date{}, domain.Date{}, fmt.Errorf("end: %w", err)
	}
	if err := domain.ValidateRange(start, end); err != nil {
		return domain.Date{}, domain.Date{}, err
	}
	return start, end, nil
}
