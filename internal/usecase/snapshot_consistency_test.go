package usecase_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/hoaledger/internal/adapter/repository/memory"
	redisRepo "github.com/iho/hoaledger/internal/adapter/repository/redis"
	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/testutil"
	"github.com/iho/hoaledger/internal/usecase"
)

type ledgerService struct {
	store          *memory.Store
	redis          *miniredis.Miniredis
	reconstruction *usecase.ReconstructionUseCase
	integrity      *usecase.IntegrityUseCase
}

// newLedgerService wires the use cases the way the server does, over the
// memory store and an in-process Redis snapshot cache.
func newLedgerService(t *testing.T) ledgerService {
	t.Helper()

	store := memory.NewStore()
	if err := store.Load(memory.Dataset{
		Members: []*domain.Member{testutil.Member("m1", "0.00")},
		Funds:   []*domain.Fund{testutil.Fund("f0", "0.00"), testutil.Fund("f1", "0.00")},
	}); err != nil {
		t.Fatalf("load: %v", err)
	}

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	recon := usecase.NewReconstructionUseCase(store.Transactions(), store.Entries(), store.Funds(), store.Members(),
		redisRepo.NewCache(client), time.Hour, nil, zerolog.Nop())
	integrity := usecase.NewIntegrityUseCase(store, store.Transactions(), store.Entries(), store.Funds(),
		store.Audit(), store.Outbox(), nil, recon, &testutil.SeqIDs{Prefix: "id"}, testutil.FixedClock{}, nil, zerolog.Nop())

	return ledgerService{store: store, redis: mr, reconstruction: recon, integrity: integrity}
}

func backdatedDuesPayment() usecase.PostTransactionInput {
	return usecase.PostTransactionInput{
		Transaction: testutil.Txn("", domain.TransactionTypeDuesPayment, "2024-01-01", "300.00", testutil.ForMember("m1")),
		Entries: []*domain.LedgerEntry{
			testutil.Entry("", "", "f0", "2024-01-01", "300.00", true),
			testutil.Entry("", "", "f1", "2024-01-01", "300.00", false),
		},
	}
}

func TestPostedTransactionIsVisibleToCachedReconstruction(t *testing.T) {
	svc := newLedgerService(t)
	ctx := context.Background()
	asOf := testutil.Date("2024-03-31")
	start, end := testutil.Date("2024-01-01"), testutil.Date("2024-03-31")

	before, err := svc.reconstruction.MemberBalance(ctx, testutil.TenantA, "m1", asOf)
	if err != nil {
		t.Fatalf("member balance: %v", err)
	}
	if !before.TotalPaid.IsZero() || before.NumTransactions != 0 {
		t.Fatalf("expected an empty member history, got paid=%s n=%d", before.TotalPaid, before.NumTransactions)
	}
	if _, err := svc.reconstruction.FundBalance(ctx, testutil.TenantA, "f1", asOf); err != nil {
		t.Fatalf("fund balance: %v", err)
	}
	if _, err := svc.reconstruction.Summary(ctx, testutil.TenantA, start, end); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(svc.redis.Keys()) == 0 {
		t.Fatal("expected snapshots to be cached")
	}

	if _, err := svc.integrity.PostTransaction(ctx, testutil.TenantA, backdatedDuesPayment()); err != nil {
		t.Fatalf("post: %v", err)
	}

	member, err := svc.reconstruction.MemberBalance(ctx, testutil.TenantA, "m1", asOf)
	if err != nil {
		t.Fatalf("member balance: %v", err)
	}
	if got := member.TotalPaid.StringFixed(2); got != "300.00" || member.NumTransactions != 1 {
		t.Errorf("expected paid 300.00 over 1 transaction, got paid=%s n=%d", got, member.NumTransactions)
	}

	fund, err := svc.reconstruction.FundBalance(ctx, testutil.TenantA, "f1", asOf)
	if err != nil {
		t.Fatalf("fund balance: %v", err)
	}
	if got := fund.CurrentBalance.StringFixed(2); got != "300.00" {
		t.Errorf("expected fund balance 300.00, got %s", got)
	}

	summary, err := svc.reconstruction.Summary(ctx, testutil.TenantA, start, end)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got := summary.TotalIncome.StringFixed(2); got != "300.00" {
		t.Errorf("expected income 300.00, got %s", got)
	}
}

func TestPostedTransactionLeavesOtherTenantsCached(t *testing.T) {
	svc := newLedgerService(t)
	ctx := context.Background()

	if err := svc.store.Load(memory.Dataset{
		Members: []*domain.Member{func() *domain.Member {
			m := testutil.Member("m1", "0.00")
			m.TenantID = testutil.TenantB
			return m
		}()},
	}); err != nil {
		t.Fatalf("load: %v", err)
	}

	asOf := testutil.Date("2024-03-31")
	if _, err := svc.reconstruction.MemberBalance(ctx, testutil.TenantB, "m1", asOf); err != nil {
		t.Fatalf("member balance: %v", err)
	}

	if _, err := svc.integrity.PostTransaction(ctx, testutil.TenantA, backdatedDuesPayment()); err != nil {
		t.Fatalf("post: %v", err)
	}

	if svc.redis.Exists("snapshot:generation:" + testutil.TenantB) {
		t.Error("posting for one tenant must not rotate another tenant's generation")
	}
	if !svc.redis.Exists("snapshot:generation:" + testutil.TenantA) {
		t.Error("expected the posting tenant's generation to be rotated")
	}
}
