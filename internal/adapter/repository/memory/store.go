// Package memory is an in-process append-only store implementing every
// repository port. The CLI loads fixtures into it and tests use it as a fake
// database.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/usecase"
)

// ErrTxDone is returned when a finished transaction is used again.
var ErrTxDone = errors.New("memory: transaction already committed or rolled back")

// ErrForeignTx is returned when a write is given a transaction from another store.
var ErrForeignTx = errors.New("memory: transaction does not belong to this store")

// Dataset is everything a store can be seeded with.
type Dataset struct {
	Transactions []*domain.Transaction `json:"transactions"`
	Entries      []*domain.LedgerEntry `json:"ledger_entries"`
	Funds        []*domain.Fund        `json:"funds"`
	Members      []*domain.Member      `json:"members"`
}

// Store holds all records behind one lock. Reads return copies so callers
// can never reach stored state.
type Store struct {
	mu sync.RWMutex

	txns     []*domain.Transaction
	txnIndex map[string]int

	entries    []*domain.LedgerEntry
	entryIndex map[string]int

	funds   map[string]*domain.Fund
	members map[string]*domain.Member

	audit  []*domain.AuditEntry
	outbox []*domain.OutboxEvent
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		txnIndex:   make(map[string]int),
		entryIndex: make(map[string]int),
		funds:      make(map[string]*domain.Fund),
		members:    make(map[string]*domain.Member),
	}
}

// Load seeds the store. Transactions and entries are appended and must not
// already exist; funds and members are upserted.
func (s *Store) Load(ds Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range ds.Funds {
		s.funds[key(f.TenantID, f.ID)] = cloneFund(f)
	}
	for _, m := range ds.Members {
		s.members[key(m.TenantID, m.ID)] = cloneMember(m)
	}
	for _, t := range ds.Transactions {
		if err := s.appendTransaction(t); err != nil {
			return err
		}
	}
	for _, e := range ds.Entries {
		if err := s.appendEntry(e); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns a copy of the stored ledger, members and funds.
func (s *Store) Snapshot() Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds := Dataset{
		Transactions: make([]*domain.Transaction, 0, len(s.txns)),
		Entries:      make([]*domain.LedgerEntry, 0, len(s.entries)),
		Funds:        make([]*domain.Fund, 0, len(s.funds)),
		Members:      make([]*domain.Member, 0, len(s.members)),
	}
	for _, t := range s.txns {
		ds.Transactions = append(ds.Transactions, cloneTransaction(t))
	}
	for _, e := range s.entries {
		ds.Entries = append(ds.Entries, cloneEntry(e))
	}
	for _, f := range s.funds {
		ds.Funds = append(ds.Funds, cloneFund(f))
	}
	for _, m := range s.members {
		ds.Members = append(ds.Members, cloneMember(m))
	}
	sort.Slice(ds.Funds, func(i, j int) bool { return ds.Funds[i].ID < ds.Funds[j].ID })
	sort.Slice(ds.Members, func(i, j int) bool { return ds.Members[i].ID < ds.Members[j].ID })
	return ds
}

// Begin implements usecase.TransactionManager. Writes made through the
// returned Tx become visible together on Commit.
func (s *Store) Begin(_ context.Context) (usecase.Tx, error) {
	return &Tx{store: s}, nil
}

// Transactions returns the store's usecase.TransactionRepository.
func (s *Store) Transactions() *TransactionRepository { return &TransactionRepository{s: s} }

// Entries returns the store's usecase.EntryRepository.
func (s *Store) Entries() *EntryRepository { return &EntryRepository{s: s} }

// Funds returns the store's usecase.FundRepository.
func (s *Store) Funds() *FundRepository { return &FundRepository{s: s} }

// Members returns the store's usecase.MemberRepository.
func (s *Store) Members() *MemberRepository { return &MemberRepository{s: s} }

// Audit returns the store's usecase.AuditStore.
func (s *Store) Audit() *AuditStore { return &AuditStore{s: s} }

// Outbox returns the store's usecase.OutboxRepository.
func (s *Store) Outbox() *OutboxRepository { return &OutboxRepository{s: s} }

func key(tenantID, id string) string {
	return tenantID + "/" + id
}

// callers hold s.mu.
func (s *Store) appendTransaction(t *domain.Transaction) error {
	k := key(t.TenantID, t.ID)
	if _, ok := s.txnIndex[k]; ok {
		return domain.ErrDuplicateRecord
	}
	s.txnIndex[k] = len(s.txns)
	s.txns = append(s.txns, cloneTransaction(t))
	return nil
}

// callers hold s.mu.
func (s *Store) appendEntry(e *domain.LedgerEntry) error {
	k := key(e.TenantID, e.ID)
	if _, ok := s.entryIndex[k]; ok {
		return domain.ErrDuplicateRecord
	}
	s.entryIndex[k] = len(s.entries)
	s.entries = append(s.entries, cloneEntry(e))
	return nil
}

// Tx stages writes until Commit.
type Tx struct {
	store *Store
	ops   []func() error
	done  bool
}

func (t *Tx) stage(op func() error) error {
	if t.done {
		return ErrTxDone
	}
	t.ops = append(t.ops, op)
	return nil
}

// Commit applies every staged write or none of them.
func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	txnLen, entryLen, auditLen, outboxLen := len(s.txns), len(s.entries), len(s.audit), len(s.outbox)
	for _, op := range t.ops {
		if err := op(); err != nil {
			s.truncate(txnLen, entryLen, auditLen, outboxLen)
			return err
		}
	}
	return nil
}

// Rollback discards staged writes. Rolling back a finished Tx is a no-op.
func (t *Tx) Rollback(_ context.Context) error {
	t.done = true
	t.ops = nil
	return nil
}

// truncate undoes appends past the given lengths. Callers hold s.mu.
func (s *Store) truncate(txnLen, entryLen, auditLen, outboxLen int) {
	for _, t := range s.txns[txnLen:] {
		delete(s.txnIndex, key(t.TenantID, t.ID))
	}
	for _, e := range s.entries[entryLen:] {
		delete(s.entryIndex, key(e.TenantID, e.ID))
	}
	s.txns = s.txns[:txnLen]
	s.entries = s.entries[:entryLen]
	s.audit = s.audit[:auditLen]
	s.outbox = s.outbox[:outboxLen]
}

func (s *Store) txFrom(tx usecase.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, ErrForeignTx
	}
	return t, nil
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	if t.PostedDate != nil {
		d := *t.PostedDate
		c.PostedDate = &d
	}
	c.MemberID = cloneString(t.MemberID)
	c.UnitID = cloneString(t.UnitID)
	c.FundID = cloneString(t.FundID)
	return &c
}

func cloneEntry(e *domain.LedgerEntry) *domain.LedgerEntry {
	c := *e
	c.ReversesEntryID = cloneString(e.ReversesEntryID)
	return &c
}

func cloneFund(f *domain.Fund) *domain.Fund {
	c := *f
	if f.TargetBalance != nil {
		t := *f.TargetBalance
		c.TargetBalance = &t
	}
	return &c
}

func cloneMember(m *domain.Member) *domain.Member {
	c := *m
	return &c
}

func cloneAudit(a *domain.AuditEntry) *domain.AuditEntry {
	c := *a
	c.BeforeState = cloneJSON(a.BeforeState)
	c.AfterState = cloneJSON(a.AfterState)
	return &c
}

func cloneEvent(e *domain.OutboxEvent) *domain.OutboxEvent {
	c := *e
	c.Payload = cloneJSON(e.Payload)
	if e.PublishedAt != nil {
		t := *e.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}

// cloneJSON copies the top level only; nested values come from
// domain.MarshalState and are never mutated in place.
func cloneJSON(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// onOrBefore reports whether d passes an optional upper bound.
func onOrBefore(d, until domain.Date) bool {
	return until.IsZero() || !d.After(until)
}
