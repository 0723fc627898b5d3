package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/reconstruction"
)

// Snapshot kinds, used as cache key prefixes and metric labels.
const (
	KindMember   = "member"
	KindFund     = "fund"
	KindHistory  = "fund_history"
	KindProperty = "property"
	KindSummary  = "summary"
)

var _ SnapshotInvalidator = (*ReconstructionUseCase)(nil)

// ReconstructionUseCase loads a tenant's records and rebuilds balances as of a date.
type ReconstructionUseCase struct {
	txnRepo    TransactionRepository
	entryRepo  EntryRepository
	fundRepo   FundRepository
	memberRepo MemberRepository
	cache      Cache
	cacheTTL   time.Duration
	metrics    Recorder
	logger     zerolog.Logger
}

// NewReconstructionUseCase creates a new ReconstructionUseCase. cache may be
// nil to disable snapshot caching.
func NewReconstructionUseCase(
	txnRepo TransactionRepository,
	entryRepo EntryRepository,
	fundRepo FundRepository,
	memberRepo MemberRepository,
	cache Cache,
	cacheTTL time.Duration,
	metrics Recorder,
	logger zerolog.Logger,
) *ReconstructionUseCase {
	if cacheTTL <= 0 {
		cacheTTL = DefaultSnapshotTTL
	}
	return &ReconstructionUseCase{
		txnRepo:    txnRepo,
		entryRepo:  entryRepo,
		fundRepo:   fundRepo,
		memberRepo: memberRepo,
		cache:      cache,
		cacheTTL:   cacheTTL,
		metrics:    recorderOrNop(metrics),
		logger:     logger,
	}
}

// MemberBalance reconstructs a member's balance as of asOf.
func (uc *ReconstructionUseCase) MemberBalance(ctx context.Context, tenantID, memberID string, asOf domain.Date) (reconstruction.MemberBalanceSnapshot, error) {
	if _, err := uc.memberRepo.GetByID(ctx, tenantID, memberID); err != nil {
		return reconstruction.MemberBalanceSnapshot{}, err
	}

	return cached(ctx, uc, KindMember, tenantID, []string{memberID, asOf.String()}, func() (reconstruction.MemberBalanceSnapshot, error) {
		txns, err := uc.txnRepo.ListByMember(ctx, tenantID, memberID, asOf)
		if err != nil {
			return reconstruction.MemberBalanceSnapshot{}, err
		}
		return reconstruction.ReconstructMemberBalance(tenantID, memberID, asOf, txns)
	})
}

// MemberHistory returns a member's non-void transactions dated within [start, end].
func (uc *ReconstructionUseCase) MemberHistory(ctx context.Context, tenantID, memberID string, start, end domain.Date) ([]*domain.Transaction, error) {
	if err := domain.ValidateRange(start, end); err != nil {
		return nil, err
	}
	if _, err := uc.memberRepo.GetByID(ctx, tenantID, memberID); err != nil {
		return nil, err
	}

	txns, err := uc.txnRepo.ListByMember(ctx, tenantID, memberID, end)
	if err != nil {
		return nil, err
	}
	return reconstruction.TransactionHistory(tenantID, memberID, start, end, txns)
}

// FundBalance reconstructs a fund's balance as of asOf.
func (uc *ReconstructionUseCase) FundBalance(ctx context.Context, tenantID, fundID string, asOf domain.Date) (reconstruction.FundBalanceSnapshot, error) {
	if _, err := uc.fundRepo.GetByID(ctx, tenantID, fundID); err != nil {
		return reconstruction.FundBalanceSnapshot{}, err
	}

	return cached(ctx, uc, KindFund, tenantID, []string{fundID, asOf.String()}, func() (reconstruction.FundBalanceSnapshot, error) {
		entries, err := uc.entryRepo.ListByFund(ctx, tenantID, fundID, asOf)
		if err != nil {
			return reconstruction.FundBalanceSnapshot{}, err
		}
		return reconstruction.ReconstructFundBalance(tenantID, fundID, asOf, entries)
	})
}

// FundHistory returns a fund's end-of-day balances over [start, end].
func (uc *ReconstructionUseCase) FundHistory(ctx context.Context, tenantID, fundID string, start, end domain.Date) (reconstruction.BalanceHistory, error) {
	if err := domain.ValidateRange(start, end); err != nil {
		return reconstruction.BalanceHistory{}, err
	}
	if _, err := uc.fundRepo.GetByID(ctx, tenantID, fundID); err != nil {
		return reconstruction.BalanceHistory{}, err
	}

	return cached(ctx, uc, KindHistory, tenantID, []string{fundID, start.String(), end.String()}, func() (reconstruction.BalanceHistory, error) {
		entries, err := uc.entryRepo.ListByFund(ctx, tenantID, fundID, end)
		if err != nil {
			return reconstruction.BalanceHistory{}, err
		}
		return reconstruction.FundBalanceHistory(tenantID, fundID, start, end, entries)
	})
}

// PropertySnapshot reconstructs every fund and active member of a property.
func (uc *ReconstructionUseCase) PropertySnapshot(ctx context.Context, tenantID, propertyID string, asOf domain.Date) (reconstruction.PropertyFinancialSnapshot, error) {
	return cached(ctx, uc, KindProperty, tenantID, []string{propertyID, asOf.String()}, func() (reconstruction.PropertyFinancialSnapshot, error) {
		members, err := uc.memberRepo.ListByProperty(ctx, tenantID, propertyID)
		if err != nil {
			return reconstruction.PropertyFinancialSnapshot{}, err
		}
		funds, err := uc.fundRepo.ListByProperty(ctx, tenantID, propertyID)
		if err != nil {
			return reconstruction.PropertyFinancialSnapshot{}, err
		}
		txns, err := uc.txnRepo.ListByTenant(ctx, tenantID, asOf)
		if err != nil {
			return reconstruction.PropertyFinancialSnapshot{}, err
		}
		entries, err := uc.entryRepo.ListByTenant(ctx, tenantID, asOf)
		if err != nil {
			return reconstruction.PropertyFinancialSnapshot{}, err
		}

		memberIDs := make([]string, 0, len(members))
		for _, m := range members {
			if m.IsActive {
				memberIDs = append(memberIDs, m.ID)
			}
		}
		fundIDs := make([]string, 0, len(funds))
		for _, f := range funds {
			fundIDs = append(fundIDs, f.ID)
		}

		return reconstruction.ReconstructPropertySnapshot(tenantID, propertyID, asOf, txns, entries, memberIDs, fundIDs)
	})
}

// Summary totals income and expense activity within [start, end].
func (uc *ReconstructionUseCase) Summary(ctx context.Context, tenantID string, start, end domain.Date) (reconstruction.TransactionSummary, error) {
	if err := domain.ValidateRange(start, end); err != nil {
		return reconstruction.TransactionSummary{}, err
	}

	return cached(ctx, uc, KindSummary, tenantID, []string{start.String(), end.String()}, func() (reconstruction.TransactionSummary, error) {
		txns, err := uc.txnRepo.ListByTenant(ctx, tenantID, end)
		if err != nil {
			return reconstruction.TransactionSummary{}, err
		}
		return reconstruction.Summarize(tenantID, start, end, txns)
	})
}

func snapshotKey(kind string, parts ...string) string {
	key := kind
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// generationKey holds a tenant's snapshot generation. Every snapshot key
// embeds the generation it was built under, so replacing the generation
// orphans all of the tenant's cached snapshots at once.
func generationKey(tenantID string) string {
	return snapshotKey("generation", tenantID)
}

func (uc *ReconstructionUseCase) generation(ctx context.Context, tenantID string) (string, error) {
	data, err := uc.cache.Get(ctx, generationKey(tenantID))
	switch {
	case err == nil:
		return string(data), nil
	case errors.Is(err, ErrCacheMiss):
		return "0", nil
	default:
		return "", err
	}
}

// Invalidate implements SnapshotInvalidator. Snapshots cached under the
// previous generation are never read again and expire with their TTL.
func (uc *ReconstructionUseCase) Invalidate(ctx context.Context, tenantID string) error {
	if uc.cache == nil {
		return nil
	}
	if err := uc.cache.Set(ctx, generationKey(tenantID), []byte(uuid.NewString()), 0); err != nil {
		return fmt.Errorf("invalidate snapshots of tenant %s: %w", tenantID, err)
	}
	uc.logger.Debug().Str("tenant_id", tenantID).Msg("snapshot cache invalidated")
	return nil
}

type normalizer[T any] interface {
	*T
	Normalize()
}

// cached serves a snapshot from the cache or builds and stores it under the
// tenant's current generation. Cache failures are logged and never fail the
// request; when the generation cannot be read the snapshot is neither read
// from nor written to the cache.
func cached[T any, PT normalizer[T]](ctx context.Context, uc *ReconstructionUseCase, kind, tenantID string, parts []string, build func() (T, error)) (T, error) {
	var key string
	if uc.cache != nil {
		gen, err := uc.generation(ctx, tenantID)
		if err != nil {
			uc.logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("snapshot generation read failed, bypassing cache")
		} else {
			key = snapshotKey(kind, append([]string{tenantID, gen}, parts...)...)
		}
	}

	if key != "" {
		data, err := uc.cache.Get(ctx, key)
		switch {
		case err == nil:
			var snap T
			if err := json.Unmarshal(data, &snap); err == nil {
				PT(&snap).Normalize()
				uc.metrics.RecordCache(kind, true)
				return snap, nil
			}
			uc.logger.Warn().Str("key", key).Msg("discarding undecodable cached snapshot")
		case errors.Is(err, ErrCacheMiss):
		default:
			uc.logger.Warn().Err(err).Str("key", key).Msg("snapshot cache read failed")
		}
	}
	if uc.cache != nil {
		uc.metrics.RecordCache(kind, false)
	}

	start := time.Now()
	snap, err := build()
	if err != nil {
		return snap, fmt.Errorf("reconstruct %s: %w", kind, err)
	}
	uc.metrics.ObserveReconstruction(kind, time.Since(start))

	if key != "" {
		data, err := json.Marshal(snap)
		if err == nil {
			err = uc.cache.Set(ctx, key, data, uc.cacheTTL)
		}
		if err != nil {
			uc.logger.Warn().Err(err).Str("key", key).Msg("snapshot cache write failed")
		}
	}

	uc.logger.Debug().Str("kind", kind).Str("tenant_id", tenantID).Msg("snapshot reconstructed")
	return snap, nil
}
