package tradelog

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"krw-trader/pkg/models"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS trade_log (
	id         BIGSERIAL PRIMARY KEY,
	ts_iso_utc TIMESTAMPTZ NOT NULL,
	side       TEXT NOT NULL,
	symbol     TEXT NOT NULL,
	price      NUMERIC NOT NULL,
	volume     NUMERIC NOT NULL,
	order_id   TEXT NOT NULL
)`

const insertSQL = `
INSERT INTO trade_log (ts_iso_utc, side, symbol, price, volume, order_id)
VALUES ($1, $2, $3, $4, $5, $6)`

// PostgresSink is the durable TradeLogSink, one row per confirmed fill.
type PostgresSink struct {
	db *sqlx.DB
}

// OpenPostgresSink connects to dsn and ensures the trade_log table exists.
func OpenPostgresSink(dsn string) (*PostgresSink, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("tradelog: connect: %w", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("tradelog: create table: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

// Record inserts one fill row.
func (s *PostgresSink) Record(ctx context.Context, fill models.OrderFill) error {
	_, err := s.db.ExecContext(ctx, insertSQL,
		fill.TS.UTC(), fill.Side.String(), fill.Symbol,
		fill.Price.String(), fill.Volume.String(), fill.OrderID)
	if err != nil {
		return fmt.Errorf("tradelog: insert: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}
