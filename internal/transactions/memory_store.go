package transactions

import (
	"context"
	"sync"

	"github.com/mbd888/walletguard/internal/idgen"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu       sync.RWMutex
	byWallet map[string][]Record // wallet_id → records in insertion order
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory transaction store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byWallet: make(map[string][]Record),
	}
}

func (s *MemoryStore) Insert(ctx context.Context, rec Record) (string, error) {
	wallet := WalletID(rec)
	if wallet == "" {
		return "", ErrMissingWallet
	}

	stored := clone(rec)
	id := ID(stored)
	if id == "" {
		id = idgen.WithPrefix("tx_")
		stored[KeyID] = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byWallet[wallet] = append(s.byWallet[wallet], stored)
	return id, nil
}

func (s *MemoryStore) InsertBatch(ctx context.Context, recs []Record) ([]string, error) {
	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		id, err := s.Insert(ctx, rec)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) FetchByWallet(ctx context.Context, walletID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.byWallet[walletID]
	if len(stored) == 0 {
		return nil, nil
	}

	result := make([]Record, 0, len(stored))
	for _, rec := range stored {
		result = append(result, clone(rec))
	}
	return result, nil
}
