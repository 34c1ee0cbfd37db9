package transactions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mbd888/walletguard/internal/idgen"
)

// PostgresStore persists transaction records in PostgreSQL. Records
// are schemaless, so the full document lives in a JSONB column and
// only the wallet index is lifted into a native column.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a PostgreSQL-backed transaction store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the transactions table if it doesn't exist.
// The seq column carries insertion order; inserted_at alone cannot,
// because NOW() is fixed for every row of a batch transaction.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			seq          BIGSERIAL,
			id           VARCHAR(64) PRIMARY KEY,
			wallet_id    VARCHAR(128) NOT NULL,
			record       JSONB NOT NULL DEFAULT '{}',
			inserted_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_wallet
			ON transactions (wallet_id, seq);
	`)
	return err
}

func (s *PostgresStore) Insert(ctx context.Context, rec Record) (string, error) {
	id, payload, wallet, err := encodeRecord(rec)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, wallet_id, record)
		VALUES ($1, $2, $3)
	`, id, wallet, payload)
	if err != nil {
		return "", fmt.Errorf("failed to insert transaction: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) InsertBatch(ctx context.Context, recs []Record) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		id, payload, wallet, err := encodeRecord(rec)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, wallet_id, record)
			VALUES ($1, $2, $3)
		`, id, wallet, payload); err != nil {
			return nil, fmt.Errorf("failed to insert transaction: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction batch: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) FetchByWallet(ctx context.Context, walletID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record
		FROM transactions
		WHERE wallet_id = $1
		ORDER BY seq
	`, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []Record
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			continue
		}

		rec := make(Record)
		if err := json.Unmarshal(payload, &rec); err != nil {
			continue
		}
		rec[KeyID] = id
		result = append(result, rec)
	}
	return result, rows.Err()
}

// encodeRecord splits a record into its row parts: the id (assigned
// when absent), the JSONB payload without the id, and the wallet key.
func encodeRecord(rec Record) (id string, payload []byte, wallet string, err error) {
	wallet = WalletID(rec)
	if wallet == "" {
		return "", nil, "", ErrMissingWallet
	}

	id = ID(rec)
	if id == "" {
		id = idgen.WithPrefix("tx_")
	}

	doc := clone(rec)
	delete(doc, KeyID)
	payload, err = json.Marshal(doc)
	if err != nil {
		return "", nil, "", fmt.Errorf("failed to encode transaction record: %w", err)
	}
	return id, payload, wallet, nil
}
