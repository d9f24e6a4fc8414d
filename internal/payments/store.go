package payments

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned by Store.Get for an unknown reference.
var ErrNotFound = errors.New("transaction not found")

// History limits.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
)

// Store persists transactions keyed by reference id.
type Store interface {
	// Upsert merges patch onto the record for referenceID, creating a
	// PENDING record first if none exists, and returns the merged record.
	Upsert(ctx context.Context, referenceID string, patch Patch) (*Transaction, error)
	// Get returns ErrNotFound when referenceID is unknown.
	Get(ctx context.Context, referenceID string) (*Transaction, error)
	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]Transaction, error)
}

// MemoryStore is a process-local Store. Nothing is evicted. Records go in and
// come out as deep copies, so callers never share RawWebhook with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	txs     map[string]*Transaction
	nowFunc func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		txs:     map[string]*Transaction{},
		nowFunc: time.Now,
	}
}

func (s *MemoryStore) Upsert(_ context.Context, referenceID string, patch Patch) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[referenceID]
	if !ok {
		fresh := newTransaction(referenceID, s.nowFunc())
		tx = &fresh
		s.txs[referenceID] = tx
	}
	patch.apply(tx)

	out := tx.clone()
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, referenceID string) (*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.txs[referenceID]
	if !ok {
		return nil, ErrNotFound
	}
	out := tx.clone()
	return &out, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Transaction, error) {
	s.mu.RLock()
	all := make([]Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		all = append(all, tx.clone())
	}
	s.mu.RUnlock()

	return newestFirst(all, limit), nil
}

// newestFirst sorts txs by CreatedAt descending and keeps at most limit.
func newestFirst(txs []Transaction, limit int) []Transaction {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	if limit < 0 {
		limit = 0
	}
	if limit < len(txs) {
		txs = txs[:limit]
	}
	return txs
}

// ClampLimit turns a requested history size into one in [0, MaxHistoryLimit].
// Zero means "unspecified" and yields DefaultHistoryLimit.
func ClampLimit(n int) int {
	switch {
	case n == 0:
		return DefaultHistoryLimit
	case n < 0:
		return 0
	case n > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return n
}
