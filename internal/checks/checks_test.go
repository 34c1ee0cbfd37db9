package checks

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mbd888/walletguard/internal/pagination"
	"github.com/mbd888/walletguard/internal/risk"
)

func TestSummarize_EmptyRun(t *testing.T) {
	check := Summarize("0xabc", nil)

	if check.ID == "" || !strings.HasPrefix(check.ID, "chk_") {
		t.Errorf("check id = %q, want chk_ prefix", check.ID)
	}
	if check.Address != "0xabc" {
		t.Errorf("address = %q", check.Address)
	}
	if check.RiskLevel != risk.LevelUnknown {
		t.Errorf("level = %q, want unknown for empty run", check.RiskLevel)
	}
	if check.Transactions != 0 || check.TopScore != 0 {
		t.Errorf("counts = %d/%v, want 0/0", check.Transactions, check.TopScore)
	}
	if check.Reason != "no transactions analyzed" {
		t.Errorf("reason = %q", check.Reason)
	}
	if check.CheckedAt.IsZero() {
		t.Error("checked_at not set")
	}
}

func TestSummarize_TakesTopResult(t *testing.T) {
	results := []*risk.AnalysisResult{
		{TransactionID: "tx_1", Method: "mint", RiskScore: 0.91, RiskLevel: risk.LevelHigh},
		{TransactionID: "tx_2", Method: "bridge", RiskScore: 0.74, RiskLevel: risk.LevelHigh},
		{TransactionID: "tx_3", Method: "mint", RiskScore: 0.72, RiskLevel: risk.LevelHigh},
		{TransactionID: "tx_4", Method: "transfer", RiskScore: 0.1, RiskLevel: risk.LevelLow},
	}

	check := Summarize("0xabc", results)

	if check.RiskLevel != risk.LevelHigh {
		t.Errorf("level = %q, want high", check.RiskLevel)
	}
	if check.TopScore != 0.91 {
		t.Errorf("top score = %v, want 0.91", check.TopScore)
	}
	if check.Transactions != 4 {
		t.Errorf("transactions = %d, want 4", check.Transactions)
	}
	if check.Reason != "3 of 4 transactions scored high risk" {
		t.Errorf("reason = %q", check.Reason)
	}
	// distinct methods only
	if len(check.Flags) != 2 {
		t.Fatalf("flags = %v, want 2 distinct", check.Flags)
	}
	if check.Flags[0] != "high_risk:mint" || check.Flags[1] != "high_risk:bridge" {
		t.Errorf("flags = %v", check.Flags)
	}
}

func TestSummarize_QuietWallet(t *testing.T) {
	results := []*risk.AnalysisResult{
		{TransactionID: "tx_1", Method: "transfer", RiskScore: 0.1234, RiskLevel: risk.LevelLow},
	}

	check := Summarize("0xabc", results)

	if check.RiskLevel != risk.LevelLow {
		t.Errorf("level = %q, want low", check.RiskLevel)
	}
	if len(check.Flags) != 0 {
		t.Errorf("flags = %v, want none", check.Flags)
	}
	if check.Reason != "top score 0.1234 across 1 transactions" {
		t.Errorf("reason = %q", check.Reason)
	}
}

func seedChecks(t *testing.T, store Store, n int) []*WalletCheck {
	t.Helper()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	var seeded []*WalletCheck
	for i := 0; i < n; i++ {
		check := &WalletCheck{
			ID:        fmt.Sprintf("chk_%03d", i),
			Address:   fmt.Sprintf("0x%d", i%2),
			RiskLevel: risk.LevelLow,
			CheckedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Insert(context.Background(), check); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		seeded = append(seeded, check)
	}
	return seeded
}

func TestMemoryStore_ListByAddress(t *testing.T) {
	store := NewMemoryStore()
	seedChecks(t, store, 6) // addresses alternate 0x0 / 0x1

	got, err := store.ListByAddress(context.Background(), "0x0", 2)
	if err != nil {
		t.Fatalf("ListByAddress failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(got))
	}
	// newest first: chk_004 then chk_002
	if got[0].ID != "chk_004" || got[1].ID != "chk_002" {
		t.Errorf("order = %s, %s", got[0].ID, got[1].ID)
	}
}

func TestMemoryStore_ListRecentPagination(t *testing.T) {
	store := NewMemoryStore()
	seedChecks(t, store, 5)
	ctx := context.Background()

	first, err := store.ListRecent(ctx, 2, nil)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(first) != 2 || first[0].ID != "chk_004" || first[1].ID != "chk_003" {
		t.Fatalf("first page = %v", ids(first))
	}

	cursor := &pagination.Cursor{CheckedAt: first[1].CheckedAt, ID: first[1].ID}
	second, err := store.ListRecent(ctx, 2, cursor)
	if err != nil {
		t.Fatalf("ListRecent with cursor failed: %v", err)
	}
	if len(second) != 2 || second[0].ID != "chk_002" || second[1].ID != "chk_001" {
		t.Fatalf("second page = %v", ids(second))
	}

	cursor = &pagination.Cursor{CheckedAt: second[1].CheckedAt, ID: second[1].ID}
	last, err := store.ListRecent(ctx, 2, cursor)
	if err != nil {
		t.Fatalf("ListRecent last page failed: %v", err)
	}
	if len(last) != 1 || last[0].ID != "chk_000" {
		t.Fatalf("last page = %v", ids(last))
	}
}

func TestMemoryStore_CursorTieBreak(t *testing.T) {
	store := NewMemoryStore()
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	// same timestamp, paging falls back to id order
	for _, id := range []string{"chk_a", "chk_b", "chk_c"} {
		err := store.Insert(ctx, &WalletCheck{ID: id, Address: "0xabc", CheckedAt: at})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	page, err := store.ListRecent(ctx, 10, &pagination.Cursor{CheckedAt: at, ID: "chk_c"})
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page = %v, want chk_b and chk_a", ids(page))
	}
}

func TestMemoryStore_CopiesOnRead(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	check := &WalletCheck{ID: "chk_1", Address: "0xabc", Flags: []string{"high_risk:mint"}, CheckedAt: time.Now()}
	if err := store.Insert(ctx, check); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, _ := store.ListRecent(ctx, 1, nil)
	got[0].Flags[0] = "tampered"

	again, _ := store.ListRecent(ctx, 1, nil)
	if again[0].Flags[0] != "high_risk:mint" {
		t.Errorf("stored check aliases returned slice: %v", again[0].Flags)
	}
}

func ids(checks []*WalletCheck) []string {
	out := make([]string, len(checks))
	for i, c := range checks {
		out[i] = c.ID
	}
	return out
}
