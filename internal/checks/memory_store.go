package checks

import (
	"context"
	"sync"

	"github.com/mbd888/walletguard/internal/pagination"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu     sync.RWMutex
	checks []*WalletCheck // insertion order, oldest first
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory wallet check store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(ctx context.Context, check *WalletCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checks = append(s.checks, copyCheck(check))
	return nil
}

func (s *MemoryStore) ListByAddress(ctx context.Context, address string, limit int) ([]*WalletCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*WalletCheck
	for i := len(s.checks) - 1; i >= 0 && len(result) < limit; i-- {
		if s.checks[i].Address != address {
			continue
		}
		result = append(result, copyCheck(s.checks[i]))
	}
	return result, nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int, before *pagination.Cursor) ([]*WalletCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*WalletCheck
	for i := len(s.checks) - 1; i >= 0 && len(result) < limit; i-- {
		c := s.checks[i]
		if before != nil && !olderThan(c, before) {
			continue
		}
		result = append(result, copyCheck(c))
	}
	return result, nil
}

// olderThan reports whether c sits strictly after the cursor position
// in newest-first order.
func olderThan(c *WalletCheck, cur *pagination.Cursor) bool {
	if c.CheckedAt.Before(cur.CheckedAt) {
		return true
	}
	return c.CheckedAt.Equal(cur.CheckedAt) && c.ID < cur.ID
}

func copyCheck(check *WalletCheck) *WalletCheck {
	c := *check
	if check.Flags != nil {
		c.Flags = append([]string(nil), check.Flags...)
	}
	return &c
}
