//go:build integration

package transactions

import (
	"context"
	"errors"
	"testing"

	"github.com/mbd888/walletguard/internal/testutil"
)

func setupTestDB(t *testing.T) (*PostgresStore, func()) {
	t.Helper()

	db, cleanup := testutil.PGTest(t)

	store := NewPostgresStore(db)
	if err := store.Migrate(context.Background()); err != nil {
		cleanup()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, cleanup
}

func TestPostgres_InsertAndFetch(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	wallet := "0xaaaa000000000000000000000000000000000001"

	id, err := store.Insert(ctx, Record{
		KeyWalletID: wallet,
		KeyMethod:   "transfer",
		KeyAmount:   125.5,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id == "" {
		t.Fatal("Expected a generated id")
	}

	recs, err := store.FetchByWallet(ctx, wallet)
	if err != nil {
		t.Fatalf("FetchByWallet failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(recs))
	}
	if recs[0][KeyMethod] != "transfer" {
		t.Errorf("Expected method transfer, got %v", recs[0][KeyMethod])
	}
	if recs[0][KeyAmount] != 125.5 {
		t.Errorf("Expected amount 125.5, got %v", recs[0][KeyAmount])
	}
	if recs[0][KeyID] != id {
		t.Errorf("Expected id %s, got %v", id, recs[0][KeyID])
	}
}

func TestPostgres_InsertRequiresWallet(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := store.Insert(context.Background(), Record{KeyMethod: "swap"})
	if !errors.Is(err, ErrMissingWallet) {
		t.Errorf("Expected ErrMissingWallet, got %v", err)
	}
}

func TestPostgres_KeepsProvidedID(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	wallet := "0xaaaa000000000000000000000000000000000002"

	id, err := store.Insert(ctx, Record{
		KeyID:       "tx_custom",
		KeyWalletID: wallet,
		KeyMethod:   "stake",
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id != "tx_custom" {
		t.Errorf("Expected tx_custom, got %s", id)
	}
}

func TestPostgres_BatchPreservesInsertionOrder(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	wallet := "0xaaaa000000000000000000000000000000000003"

	methods := []string{"transfer", "swap", "mint", "bridge", "vote"}
	batch := make([]Record, 0, len(methods))
	for _, m := range methods {
		batch = append(batch, Record{KeyWalletID: wallet, KeyMethod: m})
	}

	ids, err := store.InsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if len(ids) != len(methods) {
		t.Fatalf("Expected %d ids, got %d", len(methods), len(ids))
	}

	recs, err := store.FetchByWallet(ctx, wallet)
	if err != nil {
		t.Fatalf("FetchByWallet failed: %v", err)
	}
	if len(recs) != len(methods) {
		t.Fatalf("Expected %d records, got %d", len(methods), len(recs))
	}
	for i, m := range methods {
		if recs[i][KeyMethod] != m {
			t.Errorf("Record %d: expected method %s, got %v", i, m, recs[i][KeyMethod])
		}
		if recs[i][KeyID] != ids[i] {
			t.Errorf("Record %d: expected id %s, got %v", i, ids[i], recs[i][KeyID])
		}
	}
}

func TestPostgres_UnknownWalletIsEmpty(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	recs, err := store.FetchByWallet(context.Background(), "0xdddd000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("FetchByWallet failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("Expected no records, got %d", len(recs))
	}
}

func TestPostgres_WalletsAreIsolated(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	a := "0xaaaa000000000000000000000000000000000004"
	b := "0xbbbb000000000000000000000000000000000004"

	if _, err := store.Insert(ctx, Record{KeyWalletID: a, KeyMethod: "transfer"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := store.Insert(ctx, Record{KeyWalletID: b, KeyMethod: "swap"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	recs, err := store.FetchByWallet(ctx, a)
	if err != nil {
		t.Fatalf("FetchByWallet failed: %v", err)
	}
	if len(recs) != 1 || recs[0][KeyMethod] != "transfer" {
		t.Errorf("Wallet a should only see its own transfer, got %v", recs)
	}
}
