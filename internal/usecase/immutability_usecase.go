package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/hoaledger/internal/compliance"
	"github.com/iho/hoaledger/internal/domain"
)

// ImmutabilityUseCase checks the stored ledger for updates, deletions and
// tampering.
type ImmutabilityUseCase struct {
	txManager  TransactionManager
	entryRepo  EntryRepository
	auditStore AuditStore
	outboxRepo OutboxRepository
	idGen      IDGenerator
	clock      Clock
	metrics    Recorder
	logger     zerolog.Logger
}

// NewImmutabilityUseCase creates a new ImmutabilityUseCase.
func NewImmutabilityUseCase(
	txManager TransactionManager,
	entryRepo EntryRepository,
	auditStore AuditStore,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	clock Clock,
	metrics Recorder,
	logger zerolog.Logger,
) *ImmutabilityUseCase {
	return &ImmutabilityUseCase{
		txManager:  txManager,
		entryRepo:  entryRepo,
		auditStore: auditStore,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		clock:      clock,
		metrics:    recorderOrNop(metrics),
		logger:     logger,
	}
}

// VerifyTenant builds an immutability report over the tenant's whole ledger.
// expectedIDs lists entries known to exist; nil skips the deletion check.
func (uc *ImmutabilityUseCase) VerifyTenant(ctx context.Context, tenantID string, expectedIDs []string) (compliance.ImmutabilityReport, error) {
	entries, err := uc.entryRepo.ListByTenant(ctx, tenantID, domain.Date{})
	if err != nil {
		return compliance.ImmutabilityReport{}, err
	}

	report, err := compliance.GenerateImmutabilityReport(tenantID, entries, expectedIDs)
	if err != nil {
		return compliance.ImmutabilityReport{}, err
	}
	report.GeneratedAt = uc.clock.Now().UTC()

	f := finding{
		audit: domain.NewAuditEntry(
			uc.idGen.Generate(),
			domain.AuditReportGenerated,
			complianceReport{id: uc.idGen.Generate(), tenantID: tenantID, body: report},
			report.GeneratedAt,
			domain.ActorFromContext(ctx).AuditOptions()...,
		),
	}

	if !report.IsImmutable {
		uc.metrics.RecordImmutabilityViolations(len(report.Violations))
		f.event = newOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeTenant, tenantID, domain.EventTypeImmutabilityViolation,
			domain.ImmutabilityViolationEvent{
				TenantID:          tenantID,
				EntriesWithUpdate: report.EntriesWithUpdates,
				EntriesDeleted:    report.EntriesDeleted,
				Violations:        report.Violations,
			}, report.GeneratedAt)
	}

	if err := recordFinding(ctx, uc.txManager, uc.auditStore, uc.outboxRepo, f); err != nil {
		return compliance.ImmutabilityReport{}, fmt.Errorf("record immutability report: %w", err)
	}
	uc.metrics.RecordAudit(string(domain.AuditReportGenerated))

	uc.logger.Info().
		Str("tenant_id", tenantID).
		Int("entries", report.TotalEntries).
		Int("violations", len(report.Violations)).
		Bool("immutable", report.IsImmutable).
		Msg("immutability report generated")

	return report, nil
}

// VerifyEntry compares a previously captured entry with its stored form. A
// changed entry is recorded as tampering and returned as *compliance.TamperError.
func (uc *ImmutabilityUseCase) VerifyEntry(ctx context.Context, tenantID string, original *domain.LedgerEntry) error {
	if err := domain.RequireTenant(tenantID, original); err != nil {
		return err
	}

	current, err := uc.entryRepo.GetByID(ctx, tenantID, original.ID)
	if err != nil {
		return err
	}

	checkErr := compliance.ValidateLedgerImmutability(original, current)

	var tamper *compliance.TamperError
	if !errors.As(checkErr, &tamper) {
		return checkErr
	}

	now := uc.clock.Now().UTC()
	opts := append(domain.ActorFromContext(ctx).AuditOptions(),
		domain.WithBefore(original),
		domain.WithReason(tamper.Error()),
	)

	f := finding{
		audit: domain.NewAuditEntry(uc.idGen.Generate(), domain.AuditTamperingDetected, current, now, opts...),
		event: newOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeLedgerEntry, current.ID, domain.EventTypeLedgerTampered,
			domain.LedgerTamperedEvent{
				TenantID: tenantID,
				EntryID:  current.ID,
				Field:    tamper.Field,
				Original: tamper.Original,
				Current:  tamper.Current,
			}, now),
	}

	if err := recordFinding(ctx, uc.txManager, uc.auditStore, uc.outboxRepo, f); err != nil {
		return fmt.Errorf("record tampering: %w", err)
	}
	uc.metrics.RecordImmutabilityViolations(1)
	uc.metrics.RecordAudit(string(domain.AuditTamperingDetected))

	uc.logger.Warn().
		Str("tenant_id", tenantID).
		Str("entry_id", current.ID).
		Str("field", tamper.Field).
		Msg("ledger tampering detected")

	return checkErr
}
