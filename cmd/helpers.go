package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/internal/discovery"
	"github.com/vaibhav0806/prophit-sub001/internal/matching"
	"github.com/vaibhav0806/prophit-sub001/internal/venues/opinion"
	"github.com/vaibhav0806/prophit-sub001/internal/venues/predict"
	"github.com/vaibhav0806/prophit-sub001/internal/venues/probable"
	"github.com/vaibhav0806/prophit-sub001/pkg/config"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
	"github.com/vaibhav0806/prophit-sub001/pkg/wallet"
)

// venueClient is the slice of a venue client the operator commands
// drive directly.
type venueClient interface {
	Protocol() types.Protocol
	Authenticate(ctx context.Context) error
	ListMarkets(ctx context.Context) ([]types.DiscoveredMarket, error)
	EnsureApprovals(ctx context.Context) error
	CancelOrder(ctx context.Context, orderID string) error
	GetOpenOrders(ctx context.Context) ([]types.OpenOrder, error)
}

// venueTriple holds the concrete clients for commands that need more
// than the shared surface.
type venueTriple struct {
	predict  *predict.Client
	probable *probable.Client
	opinion  *opinion.Client
}

func (v *venueTriple) all() []venueClient {
	return []venueClient{v.predict, v.probable, v.opinion}
}

// byName resolves one client from a --venue flag value. An empty name
// selects every venue.
func (v *venueTriple) byName(venue string) ([]venueClient, error) {
	if venue == "" {
		return v.all(), nil
	}

	for _, c := range v.all() {
		if string(c.Protocol()) == venue {
			return []venueClient{c}, nil
		}
	}

	return nil, fmt.Errorf("unknown venue %q (want predict, probable or opinion)", venue)
}

// bootstrap loads .env when present, parses the environment and builds
// the logger. Every operator command starts here.
func bootstrap() (*config.Config, *zap.Logger, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	return cfg, logger, nil
}

func buildSigner(cfg *config.Config, logger *zap.Logger) (*wallet.Signer, error) {
	return wallet.NewSigner(&wallet.SignerConfig{
		RPCEndpoint: cfg.RPCURL,
		PrivateKey:  cfg.PrivateKey,
		ChainID:     cfg.ChainID,
		Logger:      logger,
	})
}

// buildVenues constructs the three venue clients with the transaction
// signer wired in as approver.
func buildVenues(cfg *config.Config, logger *zap.Logger) (*venueTriple, error) {
	signer, err := buildSigner(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	predictClient, err := predict.New(&predict.Config{
		BaseURL:           cfg.PredictBaseURL,
		APIKey:            cfg.APIKey,
		PrivateKey:        cfg.PrivateKey,
		ChainID:           cfg.ChainID,
		ExchangeAddress:   cfg.PredictExchangeAddress,
		CollateralAddress: cfg.USDTAddress,
		CTFAddress:        cfg.CTFAddress,
		OrderTTL:          cfg.OrderExpiration,
		DryRun:            cfg.DryRun,
		Approver:          signer,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create predict client: %w", err)
	}

	probableClient, err := probable.New(&probable.Config{
		BaseURL:           cfg.ProbableBaseURL,
		PrivateKey:        cfg.PrivateKey,
		ChainID:           cfg.ChainID,
		ProxyAddress:      cfg.ProbableProxyAddress,
		ExchangeAddress:   cfg.ProbableExchangeAddress,
		CollateralAddress: cfg.USDTAddress,
		CTFAddress:        cfg.CTFAddress,
		OrderTTL:          cfg.OrderExpiration,
		DryRun:            cfg.DryRun,
		Approver:          signer,
		Preparer:          signer,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create probable client: %w", err)
	}

	opinionClient, err := opinion.New(&opinion.Config{
		BaseURL:           cfg.OpinionBaseURL,
		APIKey:            cfg.APIKey,
		PrivateKey:        cfg.PrivateKey,
		ChainID:           cfg.ChainID,
		ExchangeAddress:   cfg.OpinionExchangeAddress,
		CollateralAddress: cfg.USDTAddress,
		CTFAddress:        cfg.CTFAddress,
		OrderTTL:          cfg.OrderExpiration,
		DryRun:            cfg.DryRun,
		Approver:          signer,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create opinion client: %w", err)
	}

	return &venueTriple{predict: predictClient, probable: probableClient, opinion: opinionClient}, nil
}

// buildDiscovery wires the catalog pipeline, or the operator's static
// maps when auto-discovery is off.
func buildDiscovery(cfg *config.Config, logger *zap.Logger, vt *venueTriple) (*discovery.Service, error) {
	var matcher *matching.Engine
	if cfg.AutoDiscover {
		m, err := matching.New(&matching.Config{
			SimilarityThreshold: cfg.SimilarityThreshold,
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			Logger:              logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create matching engine: %w", err)
		}
		matcher = m
	}

	var static *discovery.StaticMaps
	if len(cfg.PredictMarketMap) > 0 || len(cfg.ProbableMarketMap) > 0 || len(cfg.OpinionTokenMap) > 0 {
		static = &discovery.StaticMaps{
			Predict:  cfg.PredictMarketMap,
			Probable: cfg.ProbableMarketMap,
			Opinion:  cfg.OpinionTokenMap,
		}
	}

	return discovery.New(&discovery.Config{
		Catalogs:        []discovery.Catalog{vt.predict, vt.probable, vt.opinion},
		Matcher:         matcher,
		RefreshInterval: cfg.DiscoveryRefreshInterval,
		AutoDiscover:    cfg.AutoDiscover,
		Static:          static,
		Logger:          logger,
	})
}

// truncate shortens long market titles for table cells.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}

	return s[:n-3] + "..."
}
