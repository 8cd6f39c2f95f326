// Package postgres persists finished report rows for downstream
// querying. The table is append-only; a report run never updates rows.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS report_rows (
	id                BIGSERIAL PRIMARY KEY,
	run_id            UUID        NOT NULL,
	chain             TEXT        NOT NULL,
	ts                TIMESTAMPTZ,
	tx_type           TEXT        NOT NULL,
	received_amount   NUMERIC,
	received_currency TEXT        NOT NULL DEFAULT '',
	sent_amount       NUMERIC,
	sent_currency     TEXT        NOT NULL DEFAULT '',
	fee               NUMERIC,
	fee_currency      TEXT        NOT NULL DEFAULT '',
	exchange          TEXT        NOT NULL,
	wallet_address    TEXT        NOT NULL,
	txid              TEXT        NOT NULL,
	url               TEXT        NOT NULL DEFAULT '',
	comment           TEXT        NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS report_rows_run_idx ON report_rows (run_id);
CREATE INDEX IF NOT EXISTS report_rows_wallet_idx ON report_rows (wallet_address, chain);
`

// RowStore writes report rows into Postgres.
type RowStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Options tune the connection pool. Zero values keep driver defaults.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func Open(dsn string, opts Options, logger *slog.Logger) (*RowStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &RowStore{db: db, logger: logger.With("component", "rowstore")}, nil
}

func (s *RowStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertBatch bulk-inserts one run's rows inside a single transaction.
func (s *RowStore) InsertBatch(ctx context.Context, runID, chain string, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("report_rows",
		"run_id", "chain", "ts", "tx_type",
		"received_amount", "received_currency",
		"sent_amount", "sent_currency",
		"fee", "fee_currency",
		"exchange", "wallet_address", "txid", "url", "comment",
	))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}

	for i := range rows {
		r := &rows[i]
		var ts any
		if r.Timestamp != nil {
			ts = *r.Timestamp
		}
		_, err := stmt.ExecContext(ctx,
			runID, chain, ts, r.TxType.String(),
			nullAmount(r.ReceivedAmount.String(), r.ReceivedCurrency), r.ReceivedCurrency,
			nullAmount(r.SentAmount.String(), r.SentCurrency), r.SentCurrency,
			nullAmount(r.Fee.String(), r.FeeCurrency), r.FeeCurrency,
			r.Exchange, r.WalletAddress, r.TxID, r.URL, r.Comment,
		)
		if err != nil {
			return fmt.Errorf("copy row %d: %w", i, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}

	s.logger.Info("rows persisted", "run_id", runID, "chain", chain, "rows", len(rows))
	return nil
}

func (s *RowStore) Close() error {
	return s.db.Close()
}

// nullAmount maps an unset amount side to SQL NULL instead of 0.
func nullAmount(amount, currency string) any {
	if currency == "" {
		return nil
	}
	return amount
}
