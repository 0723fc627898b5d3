package usecase

import (
	"context"

	"github.com/iho/hoaledger/internal/domain"
)

// AuditUseCase reads the audit trail.
type AuditUseCase struct {
	auditStore AuditStore
}

// NewAuditUseCase creates a new AuditUseCase.
func NewAuditUseCase(auditStore AuditStore) *AuditUseCase {
	return &AuditUseCase{auditStore: auditStore}
}

// Trail returns every audit entry recorded against one entity, oldest first.
func (uc *AuditUseCase) Trail(ctx context.Context, tenantID string, kind domain.EntityKind, entityID string) ([]*domain.AuditEntry, error) {
	return uc.auditStore.QueryByEntity(ctx, tenantID, kind, entityID)
}

// TenantTrail returns a page of the tenant's audit entries matching filter.
func (uc *AuditUseCase) TenantTrail(ctx context.Context, tenantID string, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	limit, offset, err := domain.ValidatePagination(filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = limit, offset

	return uc.auditStore.QueryByTenant(ctx, tenantID, filter)
}
