// Package oracle provides the scoring backends that turn feature
// vectors into fraud probabilities. Three implementations are
// available: a decision-forest model loaded from a JSON artifact, a
// heuristic rule oracle that needs no artifact, and a remote oracle
// that defers to an external scoring service over HTTP.
package oracle

import (
	"context"
	"errors"
)

// VectorLen is the number of features in a scoring vector. Vectors are
// ordered [amount, gas_fee, time_since_last_transaction,
// transaction_frequency, method_code].
const VectorLen = 5

// ErrBadVector is returned when a vector does not match the feature
// count the oracle was built for.
var ErrBadVector = errors.New("oracle: vector length mismatch")

// Oracle scores batches of feature vectors. Each returned row holds
// one probability per class, with the positive (fraud) class last.
type Oracle interface {
	Predict(ctx context.Context, vectors [][]float64) ([][]float64, error)
}

// Provider yields an Oracle for a single analysis run. Implementations
// may load artifacts lazily so that a missing or corrupt model is
// reported on every run rather than once at startup.
type Provider interface {
	Oracle(ctx context.Context) (Oracle, error)
}

// StaticProvider wraps an already-constructed Oracle. Acquisition
// never fails.
type StaticProvider struct {
	oracle Oracle
}

// NewStaticProvider returns a Provider that always yields o.
func NewStaticProvider(o Oracle) *StaticProvider {
	return &StaticProvider{oracle: o}
}

// Oracle implements Provider.
func (p *StaticProvider) Oracle(ctx context.Context) (Oracle, error) {
	return p.oracle, nil
}
