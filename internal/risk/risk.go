// Package risk implements fraud scoring for wallet transactions.
//
// The engine pulls a wallet's raw transactions from storage, extracts
// a feature vector from each, asks a scoring oracle for the fraud
// probability, and buckets the probability into coarse levels. The
// pipeline is best-effort end to end: an unusable transaction is
// skipped, a faulting oracle scores zero, and the only hard outcome of
// an analysis run is an empty result set.
package risk

import (
	"math"

	"github.com/mbd888/walletguard/internal/features"
)

// Level buckets a fraud probability for human consumption.
type Level string

const (
	LevelLow     Level = "low"
	LevelMedium  Level = "medium"
	LevelHigh    Level = "high"
	LevelUnknown Level = "unknown"
)

// Thresholds separating the risk levels.
const (
	HighThreshold   = 0.7
	MediumThreshold = 0.3
)

// Categorize maps a fraud probability to its level. NaN falls into
// LevelUnknown; every other value, including scores above 1,
// categorizes by the thresholds alone.
func Categorize(score float64) Level {
	switch {
	case math.IsNaN(score):
		return LevelUnknown
	case score >= HighThreshold:
		return LevelHigh
	case score >= MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// AnalysisResult is one scored transaction. Amount and Timestamp carry
// whatever the stored record held, so malformed upstream values
// survive into the report instead of being silently rewritten.
type AnalysisResult struct {
	TransactionID string          `json:"transaction_id"`
	WalletID      string          `json:"wallet_id"`
	Method        string          `json:"method"`
	Amount        any             `json:"amount"`
	Timestamp     any             `json:"timestamp"`
	RiskScore     float64         `json:"risk_score"`
	RiskLevel     Level           `json:"risk_level"`
	Features      features.Vector `json:"features"`
}
