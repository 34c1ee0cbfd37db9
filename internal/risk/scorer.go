package risk

import (
	"context"
	"log/slog"
	"math"

	"github.com/mbd888/walletguard/internal/features"
	"github.com/mbd888/walletguard/internal/metrics"
	"github.com/mbd888/walletguard/internal/oracle"
)

// Vector flattens extracted features into oracle order:
// [amount, gas_fee, time_since_last_transaction, transaction_frequency,
// method_code].
func Vector(v features.Vector) []float64 {
	return []float64{
		v.Amount,
		v.GasFee,
		v.TimeSinceLast,
		float64(v.Frequency),
		float64(v.MethodNumeric),
	}
}

// Scorer turns feature vectors into fraud probabilities via an Oracle.
// It absorbs every oracle fault so a broken model degrades scores to
// zero instead of sinking the caller's run.
type Scorer struct {
	logger *slog.Logger
}

// NewScorer creates a scorer logging faults to logger.
func NewScorer(logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{logger: logger}
}

// Score asks the oracle for the fraud probability of a single vector.
// Faults (prediction errors, empty batches, rows without a positive
// class, non-finite values) score 0.0 and are logged and counted.
// Finite probabilities outside [0, 1] are clamped, not treated as
// faults. Requests are never retried.
func (s *Scorer) Score(ctx context.Context, o oracle.Oracle, vec []float64) float64 {
	rows, err := o.Predict(ctx, [][]float64{vec})
	if err != nil {
		s.logger.Warn("oracle prediction failed, scoring zero", "error", err)
		metrics.OracleFaultsTotal.WithLabelValues("predict_error").Inc()
		return 0.0
	}
	if len(rows) == 0 {
		s.logger.Warn("oracle returned no probability rows, scoring zero")
		metrics.OracleFaultsTotal.WithLabelValues("empty_batch").Inc()
		return 0.0
	}

	row := rows[0]
	if len(row) < 2 {
		s.logger.Warn("oracle probability row has no positive class, scoring zero", "columns", len(row))
		metrics.OracleFaultsTotal.WithLabelValues("short_row").Inc()
		return 0.0
	}

	p := row[1]
	if math.IsNaN(p) || math.IsInf(p, 0) {
		s.logger.Warn("oracle returned non-finite probability, scoring zero", "value", p)
		metrics.OracleFaultsTotal.WithLabelValues("non_finite").Inc()
		return 0.0
	}

	if p < 0 {
		return 0.0
	}
	if p > 1 {
		return 1.0
	}
	return p
}
