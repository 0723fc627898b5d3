package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/hoaledger/internal/adapter/http/dto"
	"github.com/iho/hoaledger/internal/domain"
)

// AuditService reads the audit trail.
type AuditService interface {
	Trail(ctx context.Context, tenantID string, kind domain.EntityKind, entityID string) ([]*domain.AuditEntry, error)
	TenantTrail(ctx context.Context, tenantID string, filter domain.AuditFilter) ([]*domain.AuditEntry, error)
}

// AuditHandler serves the audit trail.
type AuditHandler struct {
	svc AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(svc AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// Trail returns the trail of one entity when entity_id is given, otherwise a
// filtered page of the tenant's trail, newest first.
func (h *AuditHandler) Trail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := domain.EntityKind(q.Get("entity_kind"))

	if entityID := q.Get("entity_id"); entityID != "" {
		if kind == "" {
			kind = domain.EntityKindTransaction
		}
		entries, err := h.svc.Trail(r.Context(), tenantID(r), kind, entityID)
		if err != nil {
			writeDomainError(w, "failed to load audit trail", err)
			return
		}
		writeJSON(w, http.StatusOK, dto.AuditTrailResponse{Entries: nonNilEntries(entries)})
		return
	}

	filter := domain.AuditFilter{
		EventType:  domain.AuditEventType(q.Get("event_type")),
		EntityKind: kind,
		Limit:      parseIntQuery(r, "limit", 0),
		Offset:     parseIntQuery(r, "offset", 0),
	}
	for key, dst := range map[string]**time.Time{"since": &filter.StartTime, "until": &filter.EndTime} {
		val := q.Get(key)
		if val == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, val)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+key, err.Error())
			return
		}
		*dst = &t
	}

	entries, err := h.svc.TenantTrail(r.Context(), tenantID(r), filter)
	if err != nil {
		writeDomainError(w, "failed to load audit trail", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditTrailResponse{
		Entries: nonNilEntries(entries),
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
}

func nonNilEntries(entries []*domain.AuditEntry) []*domain.AuditEntry {
	if entries == nil {
		return []*domain.AuditEntry{}
	}
	return entries
}
