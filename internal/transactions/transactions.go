// Package transactions stores the raw wallet activity the analyzer
// works from. Records are schemaless maps, matching the document shape
// ingest pipelines produce, so upstream fields survive verbatim and
// extraction stays defensive downstream.
package transactions

import (
	"context"
	"errors"
	"fmt"
)

// Record is one observed transaction. Consumers read well-known keys
// defensively and must tolerate missing or oddly-typed values.
type Record = map[string]any

// Well-known record keys.
const (
	KeyID          = "_id"
	KeyWalletID    = "wallet_id"
	KeyMethod      = "method"
	KeyAmount      = "amount"
	KeyGasFee      = "gas_fee"
	KeyTimestamp   = "timestamp"
	KeyFrequency   = "frequency"
	KeyToAddress   = "to_address"
	KeyFromAddress = "from_address"
	KeyBlockNumber = "block_number"
	KeyTxIndex     = "transaction_index"
)

// ErrMissingWallet is returned when a record carries no wallet_id to
// index it under.
var ErrMissingWallet = errors.New("transactions: record has no wallet_id")

// Store persists transaction records and retrieves them per wallet.
// FetchByWallet returns records in insertion order; callers that rank
// results rely on that order as the tie-break.
type Store interface {
	Insert(ctx context.Context, rec Record) (string, error)
	InsertBatch(ctx context.Context, recs []Record) ([]string, error)
	FetchByWallet(ctx context.Context, walletID string) ([]Record, error)
}

// WalletID returns the record's wallet identifier, or "" when the key
// is absent or not a string.
func WalletID(rec Record) string {
	v, _ := rec[KeyWalletID].(string)
	return v
}

// ID returns the record identifier in string form, or "" when absent.
func ID(rec Record) string {
	switch v := rec[KeyID].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// clone copies the top level of a record so callers and the store
// never share map storage.
func clone(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
