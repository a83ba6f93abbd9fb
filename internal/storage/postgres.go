package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Test connection
	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreOpportunity stores a spread opportunity in PostgreSQL. Bigint
// fields go in as raw-unit decimal strings (18-dp prices, 6-dp USDT
// amounts) so the archive never rounds.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp *types.ArbitOpportunity) error {
	query := `
		INSERT INTO spread_opportunities (
			id, fingerprint, title, venue_yes, venue_no,
			yes_price, no_price, total_cost, gross_spread_bps, net_spread_bps,
			fees_deducted, shares, est_profit, liquidity_yes, liquidity_no,
			polarity_flip, quoted_at, detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
	`

	_, err := p.db.ExecContext(ctx, query,
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
		opp.PolarityFlip,
		opp.QuotedAt,
		time.Now().UTC(),
	)

	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored",
		zap.String("opportunity-id", opp.ID),
		zap.String("fingerprint", opp.MarketID),
		zap.Int64("net-spread-bps", opp.SpreadBps))

	return nil
}

// StorePosition stores an executed position in PostgreSQL.
func (p *PostgresStorage) StorePosition(ctx context.Context, pos *types.Position) error {
	query := `
		INSERT INTO positions (
			id, fingerprint, venue_a, venue_b, bought_yes_on_a,
			shares_a, shares_b, cost_a, cost_b, opened_at, closed
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		pos.ID,
		pos.MarketID,
		string(pos.ProtocolA),
		string(pos.ProtocolB),
		pos.BoughtYesOnA,
		pos.SharesA.String(),
		pos.SharesB.String(),
		pos.CostA.String(),
		pos.CostB.String(),
		pos.OpenedAt,
		pos.Closed,
	)

	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}

	p.logger.Debug("position-stored",
		zap.String("position-id", pos.ID),
		zap.String("fingerprint", pos.MarketID),
		zap.Bool("stranded", pos.Stranded()))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
