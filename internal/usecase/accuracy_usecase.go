package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/hoaledger/internal/compliance"
	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/reconstruction"
)

// AccuracyUseCase compares reconstructed balances with the stored ones.
type AccuracyUseCase struct {
	txManager  TransactionManager
	txnRepo    TransactionRepository
	entryRepo  EntryRepository
	fundRepo   FundRepository
	memberRepo MemberRepository
	auditStore AuditStore
	outboxRepo OutboxRepository
	idGen      IDGenerator
	clock      Clock
	metrics    Recorder
	logger     zerolog.Logger
}

// NewAccuracyUseCase creates a new AccuracyUseCase.
func NewAccuracyUseCase(
	txManager TransactionManager,
	txnRepo TransactionRepository,
	entryRepo EntryRepository,
	fundRepo FundRepository,
	memberRepo MemberRepository,
	auditStore AuditStore,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	clock Clock,
	metrics Recorder,
	logger zerolog.Logger,
) *AccuracyUseCase {
	return &AccuracyUseCase{
		txManager:  txManager,
		txnRepo:    txnRepo,
		entryRepo:  entryRepo,
		fundRepo:   fundRepo,
		memberRepo: memberRepo,
		auditStore: auditStore,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		clock:      clock,
		metrics:    recorderOrNop(metrics),
		logger:     logger,
	}
}

// ValidateMembers grades every member's stored balance against the balance
// reconstructed from transactions up to asOf.
func (uc *AccuracyUseCase) ValidateMembers(ctx context.Context, tenantID string, asOf domain.Date) ([]compliance.BalanceVariance, error) {
	members, err := uc.memberRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := domain.MembersInTenant(tenantID, members); err != nil {
		return nil, err
	}

	txns, err := uc.txnRepo.ListByTenant(ctx, tenantID, asOf)
	if err != nil {
		return nil, err
	}

	variances := make([]compliance.BalanceVariance, 0, len(members))
	for _, m := range members {
		snap, err := reconstruction.ReconstructMemberBalance(tenantID, m.ID, asOf, txns)
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", m.ID, err)
		}

		opts := []compliance.VarianceOption{compliance.WithEntityName(m.FullName())}
		if !m.ComputedBalance().Equal(domain.Money(m.CurrentBalance)) {
			opts = append(opts, compliance.WithNotes(fmt.Sprintf(
				"stored totals give %s, stored balance is %s",
				m.ComputedBalance().StringFixed(domain.MoneyPlaces), domain.Money(m.CurrentBalance).StringFixed(domain.MoneyPlaces))))
		}

		variances = append(variances, compliance.NewBalanceVariance(
			compliance.EntityMember, m.ID, asOf, snap.CurrentBalance, m.CurrentBalance, opts...))
	}

	return variances, nil
}

// ValidateFunds grades every fund's stored balance against the balance
// reconstructed from ledger entries up to asOf.
func (uc *AccuracyUseCase) ValidateFunds(ctx context.Context, tenantID string, asOf domain.Date) ([]compliance.BalanceVariance, error) {
	funds, err := uc.fundRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := domain.FundsInTenant(tenantID, funds); err != nil {
		return nil, err
	}

	entries, err := uc.entryRepo.ListByTenant(ctx, tenantID, asOf)
	if err != nil {
		return nil, err
	}

	variances := make([]compliance.BalanceVariance, 0, len(funds))
	for _, f := range funds {
		snap, err := reconstruction.ReconstructFundBalance(tenantID, f.ID, asOf, entries)
		if err != nil {
			return nil, fmt.Errorf("fund %s: %w", f.ID, err)
		}

		variances = append(variances, compliance.NewBalanceVariance(
			compliance.EntityFund, f.ID, asOf, snap.CurrentBalance, f.CurrentBalance, compliance.WithEntityName(f.Name)))
	}

	return variances, nil
}

// ValidateTenant grades every member and fund, records the report in the
// audit trail and emits compliance.accuracy_failed when it does not pass.
func (uc *AccuracyUseCase) ValidateTenant(ctx context.Context, tenantID string, asOf domain.Date) (compliance.AccuracyReport, error) {
	members, err := uc.ValidateMembers(ctx, tenantID, asOf)
	if err != nil {
		return compliance.AccuracyReport{}, err
	}

	funds, err := uc.ValidateFunds(ctx, tenantID, asOf)
	if err != nil {
		return compliance.AccuracyReport{}, err
	}

	report := compliance.GenerateAccuracyReport(tenantID, asOf, append(members, funds...))
	report.GeneratedAt = uc.clock.Now().UTC()

	for _, v := range report.Variances {
		uc.metrics.RecordVariance(string(v.Severity))
	}

	f := finding{
		audit: domain.NewAuditEntry(
			uc.idGen.Generate(),
			domain.AuditReportGenerated,
			complianceReport{id: uc.idGen.Generate(), tenantID: tenantID, body: report},
			report.GeneratedAt,
			domain.ActorFromContext(ctx).AuditOptions()...,
		),
	}

	passed := report.IsAccurate && report.AccuracyThresholdMet
	if !passed {
		f.event = newOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeTenant, tenantID, domain.EventTypeAccuracyFailed,
			domain.AccuracyFailedEvent{
				TenantID:        tenantID,
				AsOfDate:        asOf.String(),
				TotalEntities:   report.TotalEntitiesChecked,
				CriticalCount:   report.CriticalVariances,
				MajorCount:      report.MajorVariances,
				AverageAccuracy: report.AverageAccuracy.StringFixed(compliance.PercentPlaces),
			}, report.GeneratedAt)
	}

	if err := recordFinding(ctx, uc.txManager, uc.auditStore, uc.outboxRepo, f); err != nil {
		return compliance.AccuracyReport{}, fmt.Errorf("record accuracy report: %w", err)
	}
	uc.metrics.RecordAudit(string(domain.AuditReportGenerated))

	uc.logger.Info().
		Str("tenant_id", tenantID).
		Str("as_of", asOf.String()).
		Int("entities", report.TotalEntitiesChecked).
		Int("critical", report.CriticalVariances).
		Str("average_accuracy", report.AverageAccuracy.StringFixed(compliance.PercentPlaces)).
		Bool("passed", passed).
		Msg("accuracy report generated")

	return report, nil
}
