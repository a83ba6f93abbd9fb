package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS spread_opportunities (
    id               TEXT PRIMARY KEY,
    fingerprint      TEXT    NOT NULL,
    title            TEXT,
    venue_yes        TEXT    NOT NULL,
    venue_no         TEXT    NOT NULL,
    yes_price        TEXT    NOT NULL,
    no_price         TEXT    NOT NULL,
    total_cost       TEXT    NOT NULL,
    gross_spread_bps INTEGER NOT NULL DEFAULT 0,
    net_spread_bps   INTEGER NOT NULL DEFAULT 0,
    fees_deducted    TEXT    NOT NULL,
    shares           TEXT    NOT NULL,
    est_profit       TEXT    NOT NULL,
    liquidity_yes    TEXT    NOT NULL,
    liquidity_no     TEXT    NOT NULL,
    polarity_flip    INTEGER NOT NULL DEFAULT 0,
    quoted_at        INTEGER NOT NULL,
    detected_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
    id              TEXT PRIMARY KEY,
    fingerprint     TEXT    NOT NULL,
    venue_a         TEXT    NOT NULL,
    venue_b         TEXT    NOT NULL,
    bought_yes_on_a INTEGER NOT NULL DEFAULT 0,
    shares_a        TEXT    NOT NULL,
    shares_b        TEXT    NOT NULL,
    cost_a          TEXT    NOT NULL,
    cost_b          TEXT    NOT NULL,
    opened_at       INTEGER NOT NULL,
    closed          INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_opp_fingerprint ON spread_opportunities(fingerprint);
CREATE INDEX IF NOT EXISTS idx_opp_detected    ON spread_opportunities(detected_at DESC);
CREATE INDEX IF NOT EXISTS idx_pos_fingerprint ON positions(fingerprint);
`

// SQLiteStorage implements Storage using a local SQLite file (pure Go
// driver, no CGo). Prices and USDT amounts are stored as raw-unit
// decimal strings, same convention as the postgres archive.
type SQLiteStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStorage opens (or creates) the database at the given path and
// applies the schema.
func NewSQLiteStorage(path string, logger *zap.Logger) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("sqlite-storage-opened", zap.String("path", path))

	return &SQLiteStorage{
		db:     db,
		logger: logger,
	}, nil
}

// StoreOpportunity stores a spread opportunity in SQLite.
func (s *SQLiteStorage) StoreOpportunity(ctx context.Context, opp *types.ArbitOpportunity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spread_opportunities (
			id, fingerprint, title, venue_yes, venue_no,
			yes_price, no_price, total_cost, gross_spread_bps, net_spread_bps,
			fees_deducted, shares, est_profit, liquidity_yes, liquidity_no,
			polarity_flip, quoted_at, detected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		opp.ID,
		opp.MarketID,
		opp.Title,
		string(opp.ProtocolA),
		string(opp.ProtocolB),
		opp.YesPriceA.String(),
		opp.NoPriceB.String(),
		opp.TotalCost.String(),
		opp.GrossSpreadBps,
		opp.SpreadBps,
		opp.FeesDeducted.String(),
		opp.Shares.String(),
		opp.EstProfit.String(),
		opp.LiquidityA.String(),
		opp.LiquidityB.String(),
		boolInt(opp.PolarityFlip),
		opp.QuotedAt,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	s.logger.Debug("opportunity-stored",
		zap.String("opportunity-id", opp.ID),
		zap.String("fingerprint", opp.MarketID))

	return nil
}

// StorePosition stores an executed position in SQLite.
func (s *SQLiteStorage) StorePosition(ctx context.Context, pos *types.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (
			id, fingerprint, venue_a, venue_b, bought_yes_on_a,
			shares_a, shares_b, cost_a, cost_b, opened_at, closed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.ID,
		pos.MarketID,
		string(pos.ProtocolA),
		string(pos.ProtocolB),
		boolInt(pos.BoughtYesOnA),
		pos.SharesA.String(),
		pos.SharesB.String(),
		pos.CostA.String(),
		pos.CostB.String(),
		pos.OpenedAt,
		boolInt(pos.Closed),
	)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}

	s.logger.Debug("position-stored",
		zap.String("position-id", pos.ID),
		zap.String("fingerprint", pos.MarketID))

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	s.logger.Info("closing-sqlite-storage")
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
