package checks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mbd888/walletguard/internal/pagination"
	"github.com/mbd888/walletguard/internal/risk"
)

// PostgresStore persists wallet checks in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a PostgreSQL-backed wallet check store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the wallet_checks table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS wallet_checks (
			id            VARCHAR(64) PRIMARY KEY,
			address       VARCHAR(128) NOT NULL,
			risk_level    VARCHAR(10) NOT NULL CHECK (risk_level IN ('low', 'medium', 'high', 'unknown')),
			top_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
			transactions  INTEGER NOT NULL DEFAULT 0,
			flags         JSONB NOT NULL DEFAULT '[]',
			reason        TEXT NOT NULL DEFAULT '',
			checked_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_wallet_checks_address
			ON wallet_checks (address, checked_at DESC);

		CREATE INDEX IF NOT EXISTS idx_wallet_checks_recent
			ON wallet_checks (checked_at DESC, id DESC);
	`)
	return err
}

func (s *PostgresStore) Insert(ctx context.Context, check *WalletCheck) error {
	flagsJSON, err := json.Marshal(check.Flags)
	if err != nil {
		return fmt.Errorf("failed to marshal check flags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wallet_checks (id, address, risk_level, top_score, transactions, flags, reason, checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		check.ID,
		check.Address,
		string(check.RiskLevel),
		check.TopScore,
		check.Transactions,
		flagsJSON,
		check.Reason,
		check.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert wallet check: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByAddress(ctx context.Context, address string, limit int) ([]*WalletCheck, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, address, risk_level, top_score, transactions, flags, reason, checked_at
		FROM wallet_checks
		WHERE address = $1
		ORDER BY checked_at DESC, id DESC
		LIMIT $2
	`, address, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet checks: %w", err)
	}
	return scanChecks(rows)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int, before *pagination.Cursor) ([]*WalletCheck, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if before == nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, address, risk_level, top_score, transactions, flags, reason, checked_at
			FROM wallet_checks
			ORDER BY checked_at DESC, id DESC
			LIMIT $1
		`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, address, risk_level, top_score, transactions, flags, reason, checked_at
			FROM wallet_checks
			WHERE (checked_at, id) < ($2, $3)
			ORDER BY checked_at DESC, id DESC
			LIMIT $1
		`, limit, before.CheckedAt, before.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list recent wallet checks: %w", err)
	}
	return scanChecks(rows)
}

func scanChecks(rows *sql.Rows) ([]*WalletCheck, error) {
	defer func() { _ = rows.Close() }()

	var result []*WalletCheck
	for rows.Next() {
		var c WalletCheck
		var level string
		var flagsJSON []byte
		var checkedAt time.Time

		if err := rows.Scan(&c.ID, &c.Address, &level, &c.TopScore, &c.Transactions, &flagsJSON, &c.Reason, &checkedAt); err != nil {
			continue
		}
		c.RiskLevel = risk.Level(level)
		c.CheckedAt = checkedAt
		_ = json.Unmarshal(flagsJSON, &c.Flags)
		result = append(result, &c)
	}
	return result, rows.Err()
}
