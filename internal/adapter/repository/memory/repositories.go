package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	s *Store
}

// Create stages txn on tx.
func (r *TransactionRepository) Create(_ context.Context, tx usecase.Tx, txn *domain.Transaction) error {
	t, err := r.s.txFrom(tx)
	if err != nil {
		return err
	}
	staged := cloneTransaction(txn)
	return t.stage(func() error { return r.s.appendTransaction(staged) })
}

func (r *TransactionRepository) GetByID(_ context.Context, tenantID, id string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	i, ok := r.s.txnIndex[key(tenantID, id)]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return cloneTransaction(r.s.txns[i]), nil
}

func (r *TransactionRepository) ListByTenant(_ context.Context, tenantID string, until domain.Date) ([]*domain.Transaction, error) {
	return r.list(func(t *domain.Transaction) bool {
		return t.TenantID == tenantID && onOrBefore(t.TransactionDate, until)
	}), nil
}

func (r *TransactionRepository) ListByMember(_ context.Context, tenantID, memberID string, until domain.Date) ([]*domain.Transaction, error) {
	return r.list(func(t *domain.Transaction) bool {
		return t.TenantID == tenantID && t.BelongsToMember(memberID) && onOrBefore(t.TransactionDate, until)
	}), nil
}

func (r *TransactionRepository) list(match func(*domain.Transaction) bool) []*domain.Transaction {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Transaction, 0)
	for _, t := range r.s.txns {
		if match(t) {
			out = append(out, cloneTransaction(t))
		}
	}
	return out
}

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	s *Store
}

// Append stages entry on tx. Entries can never be replaced or removed.
func (r *EntryRepository) Append(_ context.Context, tx usecase.Tx, entry *domain.LedgerEntry) error {
	t, err := r.s.txFrom(tx)
	if err != nil {
		return err
	}
	staged := cloneEntry(entry)
	return t.stage(func() error { return r.s.appendEntry(staged) })
}

func (r *EntryRepository) GetByID(_ context.Context, tenantID, id string) (*domain.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	i, ok := r.s.entryIndex[key(tenantID, id)]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return cloneEntry(r.s.entries[i]), nil
}

func (r *EntryRepository) ListByTenant(_ context.Context, tenantID string, until domain.Date) ([]*domain.LedgerEntry, error) {
	return r.list(func(e *domain.LedgerEntry) bool {
		return e.TenantID == tenantID && onOrBefore(e.EntryDate, until)
	}), nil
}

func (r *EntryRepository) ListByFund(_ context.Context, tenantID, fundID string, until domain.Date) ([]*domain.LedgerEntry, error) {
	return r.list(func(e *domain.LedgerEntry) bool {
		return e.TenantID == tenantID && e.FundID == fundID && onOrBefore(e.EntryDate, until)
	}), nil
}

func (r *EntryRepository) ListByTransaction(_ context.Context, tenantID, transactionID string) ([]*domain.LedgerEntry, error) {
	return r.list(func(e *domain.LedgerEntry) bool {
		return e.TenantID == tenantID && e.TransactionID == transactionID
	}), nil
}

func (r *EntryRepository) list(match func(*domain.LedgerEntry) bool) []*domain.LedgerEntry {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.LedgerEntry, 0)
	for _, e := range r.s.entries {
		if match(e) {
			out = append(out, cloneEntry(e))
		}
	}
	return out
}

// FundRepository implements usecase.FundRepository.
type FundRepository struct {
	s *Store
}

func (r *FundRepository) GetByID(_ context.Context, tenantID, id string) (*domain.Fund, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	f, ok := r.s.funds[key(tenantID, id)]
	if !ok {
		return nil, domain.ErrFundNotFound
	}
	return cloneFund(f), nil
}

func (r *FundRepository) ListByTenant(_ context.Context, tenantID string) ([]*domain.Fund, error) {
	return r.list(func(f *domain.Fund) bool { return f.TenantID == tenantID }), nil
}

func (r *FundRepository) ListByProperty(_ context.Context, tenantID, propertyID string) ([]*domain.Fund, error) {
	return r.list(func(f *domain.Fund) bool { return f.TenantID == tenantID && f.PropertyID == propertyID }), nil
}

func (r *FundRepository) list(match func(*domain.Fund) bool) []*domain.Fund {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Fund, 0)
	for _, f := range r.s.funds {
		if match(f) {
			out = append(out, cloneFund(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MemberRepository implements usecase.MemberRepository.
type MemberRepository struct {
	s *Store
}

func (r *MemberRepository) GetByID(_ context.Context, tenantID, id string) (*domain.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.members[key(tenantID, id)]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	return cloneMember(m), nil
}

func (r *MemberRepository) ListByTenant(_ context.Context, tenantID string) ([]*domain.Member, error) {
	return r.list(func(m *domain.Member) bool { return m.TenantID == tenantID }), nil
}

func (r *MemberRepository) ListByProperty(_ context.Context, tenantID, propertyID string) ([]*domain.Member, error) {
	return r.list(func(m *domain.Member) bool { return m.TenantID == tenantID && m.PropertyID == propertyID }), nil
}

func (r *MemberRepository) list(match func(*domain.Member) bool) []*domain.Member {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Member, 0)
	for _, m := range r.s.members {
		if match(m) {
			out = append(out, cloneMember(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AuditStore implements usecase.AuditStore. Entries are kept in append order.
type AuditStore struct {
	s *Store
}

// Append records entry immediately.
func (a *AuditStore) Append(_ context.Context, entry *domain.AuditEntry) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	a.s.audit = append(a.s.audit, cloneAudit(entry))
	return nil
}

// AppendTx stages entry on tx.
func (a *AuditStore) AppendTx(_ context.Context, tx usecase.Tx, entry *domain.AuditEntry) error {
	t, err := a.s.txFrom(tx)
	if err != nil {
		return err
	}
	staged := cloneAudit(entry)
	return t.stage(func() error {
		a.s.audit = append(a.s.audit, staged)
		return nil
	})
}

func (a *AuditStore) QueryByEntity(_ context.Context, tenantID string, kind domain.EntityKind, entityID string) ([]*domain.AuditEntry, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	out := make([]*domain.AuditEntry, 0)
	for _, e := range a.s.audit {
		if e.TenantID == tenantID && e.EntityKind == kind && e.EntityID == entityID {
			out = append(out, cloneAudit(e))
		}
	}
	return out, nil
}

// QueryByTenant returns matching entries newest first, paged by filter.
func (a *AuditStore) QueryByTenant(_ context.Context, tenantID string, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	matched := make([]*domain.AuditEntry, 0)
	for i := len(a.s.audit) - 1; i >= 0; i-- {
		e := a.s.audit[i]
		if e.TenantID == tenantID && filter.Matches(e) {
			matched = append(matched, e)
		}
	}

	if filter.Offset >= len(matched) {
		return []*domain.AuditEntry{}, nil
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}

	out := make([]*domain.AuditEntry, 0, end-filter.Offset)
	for _, e := range matched[filter.Offset:end] {
		out = append(out, cloneAudit(e))
	}
	return out, nil
}

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	s *Store
}

func (o *OutboxRepository) Create(_ context.Context, tx usecase.Tx, event *domain.OutboxEvent) error {
	t, err := o.s.txFrom(tx)
	if err != nil {
		return err
	}
	staged := cloneEvent(event)
	return t.stage(func() error {
		o.s.outbox = append(o.s.outbox, staged)
		return nil
	})
}

// GetUnpublished returns up to limit unpublished events, oldest first.
func (o *OutboxRepository) GetUnpublished(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	out := make([]*domain.OutboxEvent, 0)
	for _, e := range o.s.outbox {
		if limit > 0 && len(out) == limit {
			break
		}
		if !e.Published {
			out = append(out, cloneEvent(e))
		}
	}
	return out, nil
}

func (o *OutboxRepository) MarkPublished(_ context.Context, id string, publishedAt time.Time) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	for _, e := range o.s.outbox {
		if e.ID == id {
			at := publishedAt
			e.Published = true
			e.PublishedAt = &at
			return nil
		}
	}
	return nil
}

// DeletePublished drops events published before the cutoff.
func (o *OutboxRepository) DeletePublished(_ context.Context, before time.Time) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	kept := o.s.outbox[:0]
	for _, e := range o.s.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	o.s.outbox = kept
	return nil
}
