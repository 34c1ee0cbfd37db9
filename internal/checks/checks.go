// Package checks keeps the audit trail of wallet analyses. Every
// completed analysis leaves one check behind, summarizing the verdict
// for the per-wallet history and the recent-activity feed.
package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/mbd888/walletguard/internal/idgen"
	"github.com/mbd888/walletguard/internal/pagination"
	"github.com/mbd888/walletguard/internal/risk"
)

// WalletCheck records the outcome of one wallet analysis.
type WalletCheck struct {
	ID           string     `json:"id"`
	Address      string     `json:"address"`
	RiskLevel    risk.Level `json:"risk_level"`
	TopScore     float64    `json:"top_score"`
	Transactions int        `json:"transactions"`
	Flags        []string   `json:"flags,omitempty"`
	Reason       string     `json:"reason"`
	CheckedAt    time.Time  `json:"checked_at"`
}

// Store persists wallet checks. ListRecent pages newest-first with a
// keyset cursor; passing a nil cursor starts from the newest check.
type Store interface {
	Insert(ctx context.Context, check *WalletCheck) error
	ListByAddress(ctx context.Context, address string, limit int) ([]*WalletCheck, error)
	ListRecent(ctx context.Context, limit int, before *pagination.Cursor) ([]*WalletCheck, error)
}

// Summarize builds the check a completed analysis run leaves behind.
// Results are expected in the order Analyze returns them, most
// suspicious first.
func Summarize(address string, results []*risk.AnalysisResult) *WalletCheck {
	check := &WalletCheck{
		ID:           idgen.WithPrefix("chk_"),
		Address:      address,
		Transactions: len(results),
		CheckedAt:    time.Now().UTC(),
	}

	if len(results) == 0 {
		check.RiskLevel = risk.LevelUnknown
		check.Reason = "no transactions analyzed"
		return check
	}

	top := results[0]
	check.TopScore = top.RiskScore
	check.RiskLevel = top.RiskLevel

	var high int
	seen := make(map[string]bool)
	for _, res := range results {
		if res.RiskLevel != risk.LevelHigh {
			continue
		}
		high++
		method := res.Method
		if method == "" {
			method = "unknown"
		}
		if !seen[method] {
			seen[method] = true
			check.Flags = append(check.Flags, "high_risk:"+method)
		}
	}

	if high > 0 {
		check.Reason = fmt.Sprintf("%d of %d transactions scored high risk", high, len(results))
	} else {
		check.Reason = fmt.Sprintf("top score %.4f across %d transactions", top.RiskScore, len(results))
	}
	return check
}
