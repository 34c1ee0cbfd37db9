package oracle

import (
	"context"
	"fmt"

	"github.com/mbd888/walletguard/internal/features"
)

// Base fraud rates per method, matching the distribution the forest
// model was trained against. Methods missing from the table score at
// defaultRate.
var baseRates = map[string]float64{
	"transfer": 0.02,
	"swap":     0.05,
	"stake":    0.01,
	"deposit":  0.03,
	"withdraw": 0.08,
	"mint":     0.15,
	"burn":     0.02,
	"approve":  0.04,
	"trade":    0.06,
	"lend":     0.03,
	"borrow":   0.07,
	"farm":     0.04,
	"bridge":   0.12,
	"auction":  0.09,
	"vote":     0.01,
}

const (
	defaultRate = 0.05
	maxRuleRisk = 0.8
)

var rateByCode = func() map[int]float64 {
	m := make(map[int]float64, len(baseRates))
	for method, rate := range baseRates {
		m[features.MethodCode(method)] = rate
	}
	return m
}()

// RuleOracle scores vectors with a fixed heuristic instead of a
// trained model. It keeps the service usable when no model artifact is
// available and doubles as a sanity baseline for the forest.
type RuleOracle struct{}

var _ Oracle = (*RuleOracle)(nil)

// NewRuleOracle returns a heuristic oracle.
func NewRuleOracle() *RuleOracle {
	return &RuleOracle{}
}

// Predict implements Oracle. Each vector starts from its method's base
// rate and is scaled by risk amplifiers (large transfers, dust-level
// gas, rapid-fire activity) and dampeners (mid-range amounts, a calm
// cadence), capped at maxRuleRisk.
func (o *RuleOracle) Predict(ctx context.Context, vectors [][]float64) ([][]float64, error) {
	out := make([][]float64, 0, len(vectors))
	for _, vec := range vectors {
		if len(vec) != VectorLen {
			return nil, fmt.Errorf("%w: got %d features, want %d", ErrBadVector, len(vec), VectorLen)
		}

		amount := vec[0]
		gasFee := vec[1]
		timeSince := vec[2]
		frequency := vec[3]
		methodCode := int(vec[4])

		risk, ok := rateByCode[methodCode]
		if !ok {
			risk = defaultRate
		}

		if amount > 1000 {
			risk *= 2.0
		}
		if gasFee < 0.0001 {
			risk *= 1.5
		}
		if timeSince < 0.1 {
			risk *= 1.8
		}
		if frequency > 20 {
			risk *= 1.6
		}

		if amount >= 10 && amount <= 100 {
			risk *= 0.5
		}
		if timeSince >= 1 && timeSince <= 12 {
			risk *= 0.7
		}

		if risk > maxRuleRisk {
			risk = maxRuleRisk
		}

		out = append(out, []float64{1 - risk, risk})
	}
	return out, nil
}
