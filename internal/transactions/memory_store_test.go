package transactions

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore_InsertRequiresWallet(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Insert(context.Background(), Record{"amount": 10.0})
	if !errors.Is(err, ErrMissingWallet) {
		t.Errorf("expected ErrMissingWallet, got %v", err)
	}
}

func TestMemoryStore_AssignsID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.Insert(ctx, Record{"wallet_id": "0xabc", "amount": 10.0})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected assigned id")
	}

	recs, err := store.FetchByWallet(ctx, "0xabc")
	if err != nil {
		t.Fatalf("FetchByWallet failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if ID(recs[0]) != id {
		t.Errorf("stored id = %q, want %q", ID(recs[0]), id)
	}
}

func TestMemoryStore_KeepsProvidedID(t *testing.T) {
	store := NewMemoryStore()

	id, err := store.Insert(context.Background(), Record{"_id": "tx_custom", "wallet_id": "0xabc"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id != "tx_custom" {
		t.Errorf("id = %q, want tx_custom", id)
	}
}

func TestMemoryStore_FetchPreservesInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i, method := range []string{"transfer", "swap", "mint"} {
		if _, err := store.Insert(ctx, Record{"wallet_id": "0xabc", "method": method, "seq": i}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	recs, err := store.FetchByWallet(ctx, "0xabc")
	if err != nil {
		t.Fatalf("FetchByWallet failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i, want := range []string{"transfer", "swap", "mint"} {
		if recs[i]["method"] != want {
			t.Errorf("record %d method = %v, want %q", i, recs[i]["method"], want)
		}
	}
}

func TestMemoryStore_UnknownWallet(t *testing.T) {
	store := NewMemoryStore()

	recs, err := store.FetchByWallet(context.Background(), "0xnobody")
	if err != nil {
		t.Fatalf("FetchByWallet failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no records, got %d", len(recs))
	}
}

func TestMemoryStore_DoesNotShareState(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	input := Record{"wallet_id": "0xabc", "amount": 10.0}
	if _, err := store.Insert(ctx, input); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, hasID := input["_id"]; hasID {
		t.Error("Insert mutated the caller's record")
	}

	recs, _ := store.FetchByWallet(ctx, "0xabc")
	recs[0]["amount"] = 9999.0

	again, _ := store.FetchByWallet(ctx, "0xabc")
	if again[0]["amount"] != 10.0 {
		t.Errorf("fetched record aliases store state: amount = %v", again[0]["amount"])
	}
}

func TestMemoryStore_InsertBatch(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ids, err := store.InsertBatch(ctx, []Record{
		{"wallet_id": "0xabc", "method": "transfer"},
		{"wallet_id": "0xabc", "method": "swap"},
		{"wallet_id": "0xdef", "method": "mint"},
	})
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}

	abc, _ := store.FetchByWallet(ctx, "0xabc")
	def, _ := store.FetchByWallet(ctx, "0xdef")
	if len(abc) != 2 || len(def) != 1 {
		t.Errorf("records per wallet = %d/%d, want 2/1", len(abc), len(def))
	}
}

func TestRecordHelpers(t *testing.T) {
	if got := WalletID(Record{"wallet_id": "0xabc"}); got != "0xabc" {
		t.Errorf("WalletID = %q, want 0xabc", got)
	}
	if got := WalletID(Record{"wallet_id": 42}); got != "" {
		t.Errorf("WalletID on non-string = %q, want empty", got)
	}
	if got := ID(Record{"_id": "tx_1"}); got != "tx_1" {
		t.Errorf("ID = %q, want tx_1", got)
	}
	if got := ID(Record{"_id": 42}); got != "42" {
		t.Errorf("ID on int = %q, want \"42\"", got)
	}
	if got := ID(Record{}); got != "" {
		t.Errorf("ID on missing = %q, want empty", got)
	}
}
