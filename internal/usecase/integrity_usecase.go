package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/hoaledger/internal/domain"
)

// IntegrityUseCase enforces and checks double-entry invariants over stored data.
type IntegrityUseCase struct {
	txManager  TransactionManager
	txnRepo    TransactionRepository
	entryRepo  EntryRepository
	fundRepo   FundRepository
	auditStore AuditStore
	outboxRepo OutboxRepository
	retrier    Retrier
	snapshots  SnapshotInvalidator
	idGen      IDGenerator
	clock      Clock
	metrics    Recorder
	logger     zerolog.Logger
}

// NewIntegrityUseCase creates a new IntegrityUseCase. retrier and snapshots
// may be nil.
func NewIntegrityUseCase(
	txManager TransactionManager,
	txnRepo TransactionRepository,
	entryRepo EntryRepository,
	fundRepo FundRepository,
	auditStore AuditStore,
	outboxRepo OutboxRepository,
	retrier Retrier,
	snapshots SnapshotInvalidator,
	idGen IDGenerator,
	clock Clock,
	metrics Recorder,
	logger zerolog.Logger,
) *IntegrityUseCase {
	return &IntegrityUseCase{
		txManager:  txManager,
		txnRepo:    txnRepo,
		entryRepo:  entryRepo,
		fundRepo:   fundRepo,
		auditStore: auditStore,
		outboxRepo: outboxRepo,
		retrier:    retrier,
		snapshots:  snapshots,
		idGen:      idGen,
		clock:      clock,
		metrics:    recorderOrNop(metrics),
		logger:     logger,
	}
}

// Integrity check names.
const (
	CheckTransactionEntries = "transaction_entries"
	CheckLedgerBalanced     = "ledger_balanced"
	CheckFundMinimum        = "fund_minimum"
	CheckTransactionValid   = "transaction_valid"
)

// IntegrityFailure is one failed invariant.
type IntegrityFailure struct {
	Check   string `json:"check"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// IntegrityReport lists every invariant failure found in a tenant's ledger.
type IntegrityReport struct {
	TenantID            string             `json:"tenant_id"`
	CheckedAt           time.Time          `json:"checked_at"`
	TransactionsChecked int                `json:"transactions_checked"`
	EntriesChecked      int                `json:"entries_checked"`
	FundsChecked        int                `json:"funds_checked"`
	Failures            []IntegrityFailure `json:"failures"`
	Consistent          bool               `json:"consistent"`
}

// CheckTransaction verifies one stored transaction against its entries.
func (uc *IntegrityUseCase) CheckTransaction(ctx context.Context, tenantID, transactionID string) error {
	txn, err := uc.txnRepo.GetByID(ctx, tenantID, transactionID)
	if err != nil {
		return err
	}

	entries, err := uc.entryRepo.ListByTransaction(ctx, tenantID, transactionID)
	if err != nil {
		return err
	}

	if err := domain.RequireTenant(tenantID, txn); err != nil {
		return err
	}
	if err := domain.EntriesInTenant(tenantID, entries); err != nil {
		return err
	}

	if err := domain.ValidateTransactionEntries(txn, entries); err != nil {
		uc.metrics.RecordInvariantFailure(CheckTransactionEntries)
		return err
	}
	return nil
}

// CheckLedger checks every posted transaction, the ledger as a whole and
// every fund's minimum balance. Failures are collected, not returned.
func (uc *IntegrityUseCase) CheckLedger(ctx context.Context, tenantID string) (IntegrityReport, error) {
	txns, err := uc.txnRepo.ListByTenant(ctx, tenantID, domain.Date{})
	if err != nil {
		return IntegrityReport{}, err
	}
	entries, err := uc.entryRepo.ListByTenant(ctx, tenantID, domain.Date{})
	if err != nil {
		return IntegrityReport{}, err
	}
	funds, err := uc.fundRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return IntegrityReport{}, err
	}

	if err := domain.TransactionsInTenant(tenantID, txns); err != nil {
		return IntegrityReport{}, err
	}
	if err := domain.EntriesInTenant(tenantID, entries); err != nil {
		return IntegrityReport{}, err
	}
	if err := domain.FundsInTenant(tenantID, funds); err != nil {
		return IntegrityReport{}, err
	}

	report := IntegrityReport{
		TenantID:            tenantID,
		CheckedAt:           uc.clock.Now().UTC(),
		TransactionsChecked: len(txns),
		EntriesChecked:      len(entries),
		FundsChecked:        len(funds),
		Failures:            make([]IntegrityFailure, 0),
	}

	fail := func(check, subject string, err error) {
		uc.metrics.RecordInvariantFailure(check)
		report.Failures = append(report.Failures, IntegrityFailure{Check: check, Subject: subject, Message: err.Error()})
	}

	byTxn := make(map[string][]*domain.LedgerEntry)
	for _, e := range entries {
		byTxn[e.TransactionID] = append(byTxn[e.TransactionID], e)
	}

	ordered := make([]*domain.Transaction, len(txns))
	copy(ordered, txns)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, txn := range ordered {
		own := byTxn[txn.ID]
		if !txn.IsPosted && len(own) == 0 {
			continue
		}
		if err := domain.ValidateTransactionEntries(txn, own); err != nil {
			fail(CheckTransactionEntries, "transaction "+txn.ID, err)
		}
	}

	if len(entries) > 0 {
		if err := domain.ValidateBalancedEntries(entries); err != nil {
			fail(CheckLedgerBalanced, "tenant "+tenantID, err)
		}
	}

	for _, f := range funds {
		if err := domain.ValidateFundBalance(f, nil); err != nil {
			fail(CheckFundMinimum, "fund "+f.ID, err)
		}
	}

	report.Consistent = len(report.Failures) == 0

	uc.logger.Info().
		Str("tenant_id", tenantID).
		Int("transactions", report.TransactionsChecked).
		Int("failures", len(report.Failures)).
		Msg("ledger integrity checked")

	return report, nil
}

// PostTransactionInput is a transaction with the entries that realize it.
type PostTransactionInput struct {
	Transaction *domain.Transaction
	Entries     []*domain.LedgerEntry
}

// PostTransaction validates a transaction and its entries and appends them
// atomically, together with an audit entry and a transaction.posted event.
// Missing ids are generated; entries inherit the transaction's tenant and id.
func (uc *IntegrityUseCase) PostTransaction(ctx context.Context, tenantID string, input PostTransactionInput) (*domain.Transaction, error) {
	if input.Transaction == nil {
		return nil, domain.ErrMissingTransaction
	}

	now := uc.clock.Now().UTC()
	txn := *input.Transaction
	if txn.ID == "" {
		txn.ID = uc.idGen.Generate()
	}
	if txn.TenantID == "" {
		txn.TenantID = tenantID
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}

	entries := make([]*domain.LedgerEntry, 0, len(input.Entries))
	for _, in := range input.Entries {
		e := *in
		if e.ID == "" {
			e.ID = uc.idGen.Generate()
		}
		if e.TenantID == "" {
			e.TenantID = txn.TenantID
		}
		if e.TransactionID == "" {
			e.TransactionID = txn.ID
		}
		if e.EntryDate.IsZero() {
			e.EntryDate = txn.TransactionDate
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
			e.UpdatedAt = now
		}
		entries = append(entries, &e)
	}

	if err := domain.RequireTenant(tenantID, &txn); err != nil {
		return nil, err
	}
	if err := domain.EntriesInTenant(tenantID, entries); err != nil {
		return nil, err
	}
	if err := txn.Validate(domain.DateOf(now)); err != nil {
		uc.metrics.RecordInvariantFailure(CheckTransactionValid)
		return nil, err
	}
	var entryErrs []error
	for _, e := range entries {
		if err := domain.ValidateLedgerEntry(e); err != nil {
			entryErrs = append(entryErrs, err)
		}
	}
	if err := errors.Join(entryErrs...); err != nil {
		uc.metrics.RecordInvariantFailure(CheckTransactionValid)
		return nil, err
	}
	if err := domain.ValidateTransactionEntries(&txn, entries); err != nil {
		uc.metrics.RecordInvariantFailure(CheckTransactionEntries)
		return nil, err
	}

	auditEntry := domain.NewAuditEntry(uc.idGen.Generate(), domain.AuditTransactionCreated, &txn, now,
		domain.ActorFromContext(ctx).AuditOptions()...)
	if txn.IsPosted {
		auditEntry.EventType = domain.AuditTransactionPosted
	}

	event := newOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeTransaction, txn.ID, domain.EventTypeTransactionPosted,
		domain.TransactionPostedEvent{
			TenantID:      txn.TenantID,
			TransactionID: txn.ID,
			Type:          string(txn.Type),
			Amount:        txn.Amount.StringFixed(domain.MoneyPlaces),
			EntryCount:    len(entries),
			PostedAt:      now.Format(time.RFC3339),
		}, now)

	write := func() error { return uc.persist(ctx, &txn, entries, auditEntry, event) }

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, write)
	} else {
		err = write()
	}
	if err != nil {
		return nil, err
	}
	uc.metrics.RecordAudit(string(auditEntry.EventType))

	// The transaction may be backdated, so any cached snapshot of the tenant
	// can be affected. The write is committed either way.
	if uc.snapshots != nil {
		if err := uc.snapshots.Invalidate(ctx, txn.TenantID); err != nil {
			uc.logger.Error().Err(err).Str("tenant_id", txn.TenantID).Msg("snapshot invalidation failed")
		}
	}

	uc.logger.Info().
		Str("tenant_id", txn.TenantID).
		Str("transaction_id", txn.ID).
		Str("type", string(txn.Type)).
		Int("entries", len(entries)).
		Msg("transaction appended")

	return &txn, nil
}

func (uc *IntegrityUseCase) persist(
	ctx context.Context,
	txn *domain.Transaction,
	entries []*domain.LedgerEntry,
	auditEntry *domain.AuditEntry,
	event *domain.OutboxEvent,
) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.txnRepo.Create(txCtx, tx, txn); err != nil {
		return err
	}

	for _, e := range entries {
		if err := uc.entryRepo.Append(txCtx, tx, e); err != nil {
			return err
		}
	}

	if err := uc.auditStore.AppendTx(txCtx, tx, auditEntry); err != nil {
		return err
	}

	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return err
	}

	return tx.Commit(txCtx)
}
