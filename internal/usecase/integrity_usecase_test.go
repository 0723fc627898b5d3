package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/testutil"
	"github.com/iho/hoaledger/internal/usecase"
)

func newIntegrityUseCase(d complianceDeps, withRetrier bool) *usecase.IntegrityUseCase {
	var retrier usecase.Retrier
	if withRetrier {
		retrier = d.retrier
	}
	return usecase.NewIntegrityUseCase(d.txManager, d.txns, d.entries, d.funds, d.audit, d.outbox, retrier, d.snapshots,
		&testutil.SeqIDs{Prefix: "id"}, testutil.FixedClock{}, nil, zerolog.Nop())
}

func TestIntegrityUseCase_CheckTransaction(t *testing.T) {
	tests := []struct {
		name    string
		entries []*domain.LedgerEntry
		wantErr error
	}{
		{
			name:    "balanced",
			entries: testutil.Pair("t1", "f0", "f1", "2024-01-10", "100.00"),
		},
		{
			name: "unbalanced",
			entries: []*domain.LedgerEntry{
				testutil.Entry("t1-d", "t1", "f0", "2024-01-10", "100.00", true),
				testutil.Entry("t1-c", "t1", "f1", "2024-01-10", "90.00", false),
			},
			wantErr: domain.ErrUnbalancedEntries,
		},
		{
			name:    "credit side missing",
			entries: []*domain.LedgerEntry{testutil.Entry("t1-d", "t1", "f0", "2024-01-10", "100.00", true)},
			wantErr: domain.ErrMissingCredit,
		},
		{
			name:    "no entries",
			wantErr: domain.ErrNoEntries,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newComplianceDeps(t)
			txn := testutil.Txn("t1", domain.TransactionTypeDuesPayment, "2024-01-10", "100.00")

			d.txns.EXPECT().GetByID(gomock.Any(), testutil.TenantA, "t1").Return(txn, nil)
			d.entries.EXPECT().ListByTransaction(gomock.Any(), testutil.TenantA, "t1").Return(tt.entries, nil)

			err := newIntegrityUseCase(d, false).CheckTransaction(context.Background(), testutil.TenantA, "t1")
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestIntegrityUseCase_CheckTransaction_ForeignEntries(t *testing.T) {
	d := newComplianceDeps(t)
	txn := testutil.Txn("t1", domain.TransactionTypeDuesPayment, "2024-01-10", "100.00")
	foreign := testutil.Entry("t1-d", "t1", "f0", "2024-01-10", "100.00", true, testutil.EntryInTenant(testutil.TenantB))

	d.txns.EXPECT().GetByID(gomock.Any(), testutil.TenantA, "t1").Return(txn, nil)
	d.entries.EXPECT().ListByTransaction(gomock.Any(), testutil.TenantA, "t1").Return([]*domain.LedgerEntry{foreign}, nil)

	err := newIntegrityUseCase(d, false).CheckTransaction(context.Background(), testutil.TenantA, "t1")
	if !errors.Is(err, domain.ErrTenantIsolation) {
		t.Fatalf("expected ErrTenantIsolation, got %v", err)
	}
}

func TestIntegrityUseCase_CheckLedger(t *testing.T) {
	d := newComplianceDeps(t)

	txns := []*domain.Transaction{
		testutil.Txn("t1", domain.TransactionTypeDuesPayment, "2024-01-10", "100.00"),
		testutil.Txn("t2", domain.TransactionTypeUtility, "2024-01-11", "40.00"),
		testutil.Txn("t3", domain.TransactionTypeDuesPayment, "2024-01-12", "5.00", testutil.Unposted()),
	}
	entries := append(testutil.Pair("t1", "f0", "f1", "2024-01-10", "100.00"),
		testutil.Entry("t2-d", "t2", "f1", "2024-01-11", "40.00", true))

	low := testutil.Fund("f1", "10.00")
	low.MinimumBalance = testutil.Money("25.00")

	d.txns.EXPECT().ListByTenant(gomock.Any(), testutil.TenantA, domain.Date{}).Return(txns, nil)
	d.entries.EXPECT().ListByTenant(gomock.Any(), testutil.TenantA, domain.Date{}).Return(entries, nil)
	d.funds.EXPECT().ListByTenant(gomock.Any(), testutil.TenantA).Return([]*domain.Fund{testutil.Fund("f0", "0.00"), low}, nil)

	report, err := newIntegrityUseCase(d, false).CheckLedger(context.Background(), testutil.TenantA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Consistent {
		t.Fatal("expected inconsistencies")
	}
	if report.TransactionsChecked != 3 || report.EntriesChecked != 3 || report.FundsChecked != 2 {
		t.Errorf("unexpected counts %+v", report)
	}

	want := []struct{ check, subject string }{
		{usecase.CheckTransactionEntries, "transaction t2"},
		{usecase.CheckLedgerBalanced, "tenant " + testutil.TenantA},
		{usecase.CheckFundMinimum, "fund f1"},
	}
	if len(report.Failures) != len(want) {
		t.Fatalf("expected %d failures, got %+v", len(want), report.Failures)
	}
	for i, w := range want {
		if report.Failures[i].Check != w.check || report.Failures[i].Subject != w.subject {
			t.Errorf("failure %d: expected %s on %s, got %+v", i, w.check, w.subject, report.Failures[i])
		}
	}
}

func TestIntegrityUseCase_CheckLedger_Empty(t *testing.T) {
	d := newComplianceDeps(t)

	d.txns.EXPECT().ListByTenant(gomock.Any(), testutil.TenantA, domain.Date{}).Return(nil, nil)
	d.entries.EXPECT().ListByTenant(gomock.Any(), testutil.TenantA, domain.Date{}).Return(nil, nil)
	d.funds.EXPECT().ListByTenant(gomock.Any(), testutil.TenantA).Return(nil, nil)

	report, err := newIntegrityUseCase(d, false).CheckLedger(context.Background(), testutil.TenantA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Consistent || len(report.Failures) != 0 {
		t.Fatalf("expected an empty ledger to be consistent, got %+v", report)
	}
}

func postInput() usecase.PostTransactionInput {
	d := testutil.Date("2024-06-15")
	return usecase.PostTransactionInput{
		Transaction: &domain.Transaction{
			PropertyID:      "prop-1",
			Type:            domain.TransactionTypeDuesPayment,
			Description:     "June dues",
			TransactionDate: d,
			PostedDate:      &d,
			Amount:          testutil.Money("250.00"),
			IsPosted:        true,
		},
		Entries: []*domain.LedgerEntry{
			{FundID: "f0", Amount: testutil.Money("250.00"), IsDebit: true, AccountCode: "1000", AccountName: "Operating Cash"},
			{FundID: "f1", Amount: testutil.Money("250.00"), AccountCode: "4000", AccountName: "Assessment Revenue"},
		},
	}
}

func TestIntegrityUseCase_PostTransaction(t *testing.T) {
	d := newComplianceDeps(t)

	d.retrier.EXPECT().Retry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, op func() error) error { return op() })
	d.expectCommit()

	d.txns.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ usecase.Tx, txn *domain.Transaction) error {
			if txn.ID != "id-1" || txn.TenantID != testutil.TenantA {
				t.Errorf("expected generated id and tenant, got %s in %s", txn.ID, txn.TenantID)
			}
			return nil
		})
	var appended []*domain.LedgerEntry
	d.entries.EXPECT().Append(gomock.Any(), d.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ usecase.Tx, e *domain.LedgerEntry) error {
			appended = append(appended, e)
			return nil
		}).Times(2)
	d.audit.EXPECT().AppendTx(gomock.Any(), d.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ usecase.Tx, e *domain.AuditEntry) error {
			if e.EventType != domain.AuditTransactionPosted || e.EntityID != "id-1" {
				t.Errorf("unexpected audit entry %+v", e)
			}
			return nil
		})
	d.outbox.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ usecase.Tx, ev *domain.OutboxEvent) error {
			if ev.EventType != domain.EventTypeTransactionPosted || ev.Payload["amount"] != "250.00" {
				t.Errorf("unexpected event %+v", ev)
			}
			return nil
		})
	d.snapshots.EXPECT().Invalidate(gomock.Any(), testutil.TenantA).Return(nil)

	input := postInput()
	txn, err := newIntegrityUseCase(d, true).PostTransaction(context.Background(), testutil.TenantA, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if txn.ID != "id-1" {
		t.Errorf("expected id-1, got %s", txn.ID)
	}
	if len(appended) != 2 {
		t.Fatalf("expected 2 appended entries, got %d", len(appended))
	}
	for _, e := range appended {
		if e.TransactionID != "id-1" || e.TenantID != testutil.TenantA || !e.EntryDate.Equal(testutil.Date("2024-06-15")) {
			t.Errorf("entry %s did not inherit from its transaction: %+v", e.ID, e)
		}
	}
	if input.Transaction.ID != "" || input.Entries[0].ID != "" {
		t.Error("input was modified")
	}
}

func TestIntegrityUseCase_PostTransaction_Rejected(t *testing.T) {
	future := postInput()
	tomorrow := testutil.Date("2024-07-02")
	future.Transaction.TransactionDate = tomorrow

	unbalanced := postInput()
	unbalanced.Entries[1].Amount = testutil.Money("200.00")

	oneSided := postInput()
	oneSided.Entries = oneSided.Entries[:1]

	badEntry := postInput()
	badEntry.Entries[0].FundID = ""

	foreign := postInput()
	foreign.Transaction.TenantID = testutil.TenantB

	tests := []struct {
		name    string
		input   usecase.PostTransactionInput
		wantErr error
	}{
		{"missing transaction", usecase.PostTransactionInput{}, domain.ErrMissingTransaction},
		{"future date", future, domain.ErrFutureTransactionDate},
		{"unbalanced", unbalanced, domain.ErrUnbalancedEntries},
		{"one sided", oneSided, domain.ErrMissingCredit},
		{"invalid entry", badEntry, domain.ErrMissingFundID},
		{"foreign tenant", foreign, domain.ErrTenantIsolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newComplianceDeps(t)

			_, err := newIntegrityUseCase(d, true).PostTransaction(context.Background(), testutil.TenantA, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestIntegrityUseCase_PostTransaction_WriteFailureRollsBack(t *testing.T) {
	d := newComplianceDeps(t)
	writeErr := errors.New("unique violation")

	d.txManager.EXPECT().Begin(gomock.Any()).Return(d.tx, nil)
	d.tx.EXPECT().Rollback(gomock.Any()).Return(nil)
	d.txns.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).Return(writeErr)

	_, err := newIntegrityUseCase(d, false).PostTransaction(context.Background(), testutil.TenantA, postInput())
	if !errors.Is(err, writeErr) {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestIntegrityUseCase_PostTransaction_InvalidationFailureKeepsWrite(t *testing.T) {
	d := newComplianceDeps(t)

	d.expectCommit()
	d.txns.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).Return(nil)
	d.entries.EXPECT().Append(gomock.Any(), d.tx, gomock.Any()).Return(nil).Times(2)
	d.audit.EXPECT().AppendTx(gomock.Any(), d.tx, gomock.Any()).Return(nil)
	d.outbox.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).Return(nil)
	d.snapshots.EXPECT().Invalidate(gomock.Any(), testutil.TenantA).Return(errors.New("connection refused"))

	txn, err := newIntegrityUseCase(d, false).PostTransaction(context.Background(), testutil.TenantA, postInput())
	if err != nil {
		t.Fatalf("expected committed post to succeed, got %v", err)
	}
	if txn.ID != "id-1" {
		t.Errorf("expected id-1, got %s", txn.ID)
	}
}
