// Package features derives the fixed-shape feature vector used for
// fraud scoring from raw transaction records.
//
// Raw records come from external systems and are read defensively: every
// field conversion is attempted independently, and a failure in one field
// falls back to that field's documented default without aborting the rest.
// Only a record that is not record-shaped at all (or is empty) fails
// extraction outright.
package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Extraction failure causes. Both are input errors; callers distinguish
// them with errors.Is.
var (
	ErrNotRecord   = errors.New("features: transaction is not a record")
	ErrEmptyRecord = errors.New("features: transaction record is empty")
)

// UnknownMethod is the code assigned to transaction methods outside the
// fixed method table.
const UnknownMethod = -1

// methodCodes maps known transaction method names to their numeric codes.
// The table is fixed at build time and never mutated.
var methodCodes = map[string]int{
	"transfer": 0,
	"swap":     1,
	"stake":    2,
	"deposit":  3,
	"withdraw": 4,
	"mint":     5,
	"burn":     6,
	"approve":  7,
	"trade":    8,
	"lend":     9,
	"borrow":   10,
	"farm":     11,
	"bridge":   12,
	"auction":  13,
	"vote":     14,
}

// MethodCode resolves a method name (case-insensitive) to its numeric code.
// Unrecognized methods resolve to UnknownMethod, never an error.
func MethodCode(method string) int {
	if code, ok := methodCodes[strings.ToLower(method)]; ok {
		return code
	}
	return UnknownMethod
}

// Methods returns the known method names ordered by code.
func Methods() []string {
	out := make([]string, len(methodCodes))
	for name, code := range methodCodes {
		out[code] = name
	}
	return out
}

// Vector is the feature set derived from one raw transaction. Field
// defaults apply whenever the source value is missing or unparsable.
type Vector struct {
	Amount        float64 `json:"amount"`                      // default 0.0
	GasFee        float64 `json:"gas_fee"`                     // default 0.0
	TimeSinceLast float64 `json:"time_since_last_transaction"` // hours, >= 0, default 0.0
	Frequency     int     `json:"transaction_frequency"`       // default 1
	ToAddress     string  `json:"to_address"`                  // default ""
	FromAddress   string  `json:"from_address"`                // default ""
	BlockNumber   int     `json:"block_number"`                // default 0
	TxIndex       int     `json:"transaction_index"`           // default 0
	MethodNumeric int     `json:"method_numeric"`              // default UnknownMethod
}

// fieldCount is the number of independently extracted fields, used for the
// all-defaults data-quality warning. MethodNumeric is resolved by the
// caller and not counted.
const fieldCount = 8

// Extractor converts raw transaction records into Vectors.
type Extractor struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewExtractor creates an extractor that logs field fallbacks through logger.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger, now: time.Now}
}

// WithClock overrides the wall clock used for elapsed-time features.
func (x *Extractor) WithClock(now func() time.Time) *Extractor {
	x.now = now
	return x
}

// Extract derives a Vector from a raw transaction record.
//
// raw must be a string-keyed record with at least one field; anything else
// fails with ErrNotRecord or ErrEmptyRecord. Individual field conversion
// failures are logged and replaced with the field's default. The input is
// never mutated.
func (x *Extractor) Extract(raw any) (Vector, error) {
	rec, ok := raw.(map[string]any)
	if !ok {
		return Vector{}, fmt.Errorf("%w: got %T", ErrNotRecord, raw)
	}
	if len(rec) == 0 {
		return Vector{}, ErrEmptyRecord
	}

	v := Vector{Frequency: 1, MethodNumeric: UnknownMethod}
	defaulted := 0

	v.Amount = x.floatField(rec, "amount", 0.0, &defaulted)
	v.GasFee = x.floatField(rec, "gas_fee", 0.0, &defaulted)
	v.TimeSinceLast = x.elapsedHours(rec, &defaulted)
	v.Frequency = x.intField(rec, "frequency", 1, &defaulted)
	v.ToAddress = x.stringField(rec, "to_address", &defaulted)
	v.FromAddress = x.stringField(rec, "from_address", &defaulted)
	v.BlockNumber = x.intField(rec, "block_number", 0, &defaulted)
	v.TxIndex = x.intField(rec, "transaction_index", 0, &defaulted)

	if defaulted == fieldCount {
		x.logger.Warn("all features fell back to defaults, record may be missing critical data")
	}

	return v, nil
}

// floatField reads a numeric field, falling back to def on failure.
func (x *Extractor) floatField(rec map[string]any, key string, def float64, defaulted *int) float64 {
	raw, present := rec[key]
	if !present || raw == nil {
		*defaulted++
		return def
	}
	f, err := toFloat(raw)
	if err != nil {
		x.logger.Warn("unparsable numeric field, using default", "field", key, "value", raw, "error", err)
		*defaulted++
		return def
	}
	return f
}

// intField reads an integer field, falling back to def on failure.
func (x *Extractor) intField(rec map[string]any, key string, def int, defaulted *int) int {
	raw, present := rec[key]
	if !present || raw == nil {
		*defaulted++
		return def
	}
	n, err := toInt(raw)
	if err != nil {
		x.logger.Warn("unparsable integer field, using default", "field", key, "value", raw, "error", err)
		*defaulted++
		return def
	}
	return n
}

// stringField reads a string field, falling back to "" when absent.
func (x *Extractor) stringField(rec map[string]any, key string, defaulted *int) string {
	raw, present := rec[key]
	if !present || raw == nil {
		*defaulted++
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}

// elapsedHours computes hours between now and the record timestamp,
// clamped to non-negative. A missing, malformed, or unrecognized timestamp
// means "now", which yields 0.
func (x *Extractor) elapsedHours(rec map[string]any, defaulted *int) float64 {
	now := x.now()
	ts := now

	switch raw := rec["timestamp"].(type) {
	case nil:
		*defaulted++
	case time.Time:
		ts = raw
	case string:
		parsed, err := parseTimestamp(raw)
		if err != nil {
			x.logger.Warn("unparsable timestamp, using current time", "value", raw, "error", err)
			*defaulted++
		} else {
			ts = parsed
		}
	default:
		x.logger.Warn("unrecognized timestamp type, using current time", "type", fmt.Sprintf("%T", raw))
		*defaulted++
	}

	hours := now.Sub(ts).Hours()
	if hours < 0 {
		return 0.0
	}
	return hours
}

// timestampLayouts are tried in order. Layouts without a zone are parsed
// in local time, matching how naive timestamps are compared against the
// local clock.
var timestampLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{time.RFC3339, true},
	{"2006-01-02T15:04:05.999999999", false},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02", false},
}

// parseTimestamp parses an ISO-8601 timestamp. A trailing "Z" means UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range timestampLayouts {
		var ts time.Time
		var err error
		if l.zoned {
			ts, err = time.Parse(l.layout, s)
		} else {
			ts, err = time.ParseInLocation(l.layout, s, time.Local)
		}
		if err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format %q", s)
}

// toFloat coerces the numeric representations that loose records carry.
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
}

// toInt coerces integer representations. Floats truncate toward zero;
// fractional strings are rejected.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		return int(n), nil
	case float32:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, err
		}
		return int(i), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, err
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}
