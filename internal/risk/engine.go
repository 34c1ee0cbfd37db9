package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mbd888/walletguard/internal/features"
	"github.com/mbd888/walletguard/internal/metrics"
	"github.com/mbd888/walletguard/internal/oracle"
	"github.com/mbd888/walletguard/internal/traces"
	"github.com/mbd888/walletguard/internal/transactions"
)

// Engine runs the wallet analysis pipeline.
type Engine struct {
	provider  oracle.Provider
	store     transactions.Store
	extractor *features.Extractor
	scorer    *Scorer
	logger    *slog.Logger
}

// NewEngine creates an analysis engine over the given oracle provider
// and transaction store.
func NewEngine(provider oracle.Provider, store transactions.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		provider:  provider,
		store:     store,
		extractor: features.NewExtractor(logger),
		scorer:    NewScorer(logger),
		logger:    logger,
	}
}

// WithExtractor overrides the feature extractor. Tests use this to pin
// the extractor's clock.
func (e *Engine) WithExtractor(x *features.Extractor) *Engine {
	e.extractor = x
	return e
}

// Analyze scores every stored transaction for a wallet and returns
// them most suspicious first, with fetch order breaking score ties.
// Analyze never returns an error: an unavailable oracle or a failing
// fetch yields an empty slice, and individual transactions that cannot
// be processed are skipped. Failures are logged and counted.
func (e *Engine) Analyze(ctx context.Context, walletID string) []*AnalysisResult {
	ctx, span := traces.StartSpan(ctx, "risk.analyze", traces.WalletID(walletID))
	defer span.End()

	start := time.Now()
	log := e.logger.With("wallet_id", walletID)

	o, err := e.provider.Oracle(ctx)
	if err != nil {
		log.Error("scoring oracle unavailable", "error", err)
		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeOracleUnavailable).Inc()
		return []*AnalysisResult{}
	}

	recs, err := e.store.FetchByWallet(ctx, walletID)
	if err != nil {
		log.Error("failed to fetch wallet transactions", "error", err)
		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeFetchFailed).Inc()
		metrics.StoreFetchFailuresTotal.Inc()
		return []*AnalysisResult{}
	}
	if len(recs) == 0 {
		log.Info("no transactions found for wallet")
		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return []*AnalysisResult{}
	}

	results := make([]*AnalysisResult, 0, len(recs))
	for _, rec := range recs {
		res, err := e.analyzeOne(ctx, o, walletID, rec)
		if err != nil {
			log.Warn("skipping unusable transaction",
				"transaction_id", transactions.ID(rec),
				"error", err)
			continue
		}
		results = append(results, res)
	}

	// Stable sort on a fetch-ordered slice keeps fetch order as the
	// tie-break for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RiskScore > results[j].RiskScore
	})
	if len(results) > 0 {
		span.SetAttributes(
			traces.RiskScore(results[0].RiskScore),
			traces.RiskLevel(string(results[0].RiskLevel)),
		)
	}

	log.Info("wallet analysis complete",
		"transactions", len(recs),
		"scored", len(results),
		"duration_ms", time.Since(start).Milliseconds())
	metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	return results
}

// analyzeOne scores a single record. The only error path is a record
// features cannot be extracted from; oracle trouble degrades to a zero
// score inside the scorer instead.
func (e *Engine) analyzeOne(ctx context.Context, o oracle.Oracle, walletID string, rec transactions.Record) (*AnalysisResult, error) {
	vec, err := e.extractor.Extract(rec)
	if err != nil {
		return nil, err
	}

	method := methodName(rec)
	vec.MethodNumeric = features.MethodCode(method)

	score := e.scorer.Score(ctx, o, Vector(vec))
	score = math.Round(score*10000) / 10000
	level := Categorize(score)
	metrics.TransactionsScoredTotal.WithLabelValues(string(level)).Inc()

	amount, ok := rec[transactions.KeyAmount]
	if !ok {
		amount = 0.0
	}
	timestamp, ok := rec[transactions.KeyTimestamp]
	if !ok {
		timestamp = ""
	}

	return &AnalysisResult{
		TransactionID: transactions.ID(rec),
		WalletID:      walletID,
		Method:        method,
		Amount:        amount,
		Timestamp:     timestamp,
		RiskScore:     score,
		RiskLevel:     level,
		Features:      vec,
	}, nil
}

// ScoreRecord scores one transaction record outside any wallet run.
// Unlike Analyze it surfaces errors, so ad-hoc callers learn why a
// record was rejected.
func (e *Engine) ScoreRecord(ctx context.Context, rec transactions.Record) (*AnalysisResult, error) {
	ctx, span := traces.StartSpan(ctx, "risk.score_record",
		traces.TransactionID(transactions.ID(rec)),
		traces.Method(methodName(rec)))
	defer span.End()

	o, err := e.provider.Oracle(ctx)
	if err != nil {
		return nil, fmt.Errorf("scoring oracle unavailable: %w", err)
	}
	res, err := e.analyzeOne(ctx, o, transactions.WalletID(rec), rec)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(traces.RiskScore(res.RiskScore), traces.RiskLevel(string(res.RiskLevel)))
	return res, nil
}

// ScoreVectors scores raw feature vectors through the current oracle.
// This backs the scoring endpoint remote oracles chain to.
func (e *Engine) ScoreVectors(ctx context.Context, vectors [][]float64) ([][]float64, error) {
	o, err := e.provider.Oracle(ctx)
	if err != nil {
		return nil, fmt.Errorf("scoring oracle unavailable: %w", err)
	}
	return o.Predict(ctx, vectors)
}

// methodName reads the record's method in lower case, with "" for
// absent values and stringified forms for non-string ones.
func methodName(rec transactions.Record) string {
	v, ok := rec[transactions.KeyMethod]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	return strings.ToLower(s)
}
