package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/internal/agent"
	"github.com/vaibhav0806/prophit-sub001/internal/circuitbreaker"
	"github.com/vaibhav0806/prophit-sub001/internal/discovery"
	"github.com/vaibhav0806/prophit-sub001/internal/execution"
	"github.com/vaibhav0806/prophit-sub001/internal/markets"
	"github.com/vaibhav0806/prophit-sub001/internal/matching"
	"github.com/vaibhav0806/prophit-sub001/internal/quotes"
	"github.com/vaibhav0806/prophit-sub001/internal/scanner"
	"github.com/vaibhav0806/prophit-sub001/internal/state"
	"github.com/vaibhav0806/prophit-sub001/internal/storage"
	"github.com/vaibhav0806/prophit-sub001/internal/venues/opinion"
	"github.com/vaibhav0806/prophit-sub001/internal/venues/predict"
	"github.com/vaibhav0806/prophit-sub001/internal/venues/probable"
	"github.com/vaibhav0806/prophit-sub001/pkg/cache"
	"github.com/vaibhav0806/prophit-sub001/pkg/config"
	"github.com/vaibhav0806/prophit-sub001/pkg/healthprobe"
	"github.com/vaibhav0806/prophit-sub001/pkg/httpserver"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
	"github.com/vaibhav0806/prophit-sub001/pkg/wallet"
	"github.com/vaibhav0806/prophit-sub001/pkg/websocket"
)

// balancePollInterval paces wallet balance metric refreshes.
const balancePollInterval = time.Minute

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.DryRun {
		cfg.DryRun = true
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Initialize components
	healthChecker := setupHealthChecker()

	// Setup cache
	marketCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	// Setup transaction signer (approvals, proxy sweeps, vault calls)
	signer, err := setupSigner(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup signer: %w", err)
	}

	// Setup venue clients
	vs, err := setupVenues(cfg, logger, signer)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup venues: %w", err)
	}

	discoveryService, err := setupDiscovery(cfg, logger, marketCache, vs)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup discovery: %w", err)
	}

	// Setup quote pipeline
	store := quotes.NewStore(logger)

	providers, err := setupProviders(logger, marketCache, vs)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup providers: %w", err)
	}

	scan, err := setupScanner(cfg, logger, store)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup scanner: %w", err)
	}

	// Setup loss breaker
	breaker, err := setupBreaker(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup breaker: %w", err)
	}

	// Setup executor
	executor, err := setupExecutor(cfg, logger, vs, discoveryService, breaker, signer)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup executor: %w", err)
	}

	// Setup session state and archive storage
	stateFile, err := setupState(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup state: %w", err)
	}

	archive, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	// Setup dashboard stream
	hub, err := setupHub(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup stream hub: %w", err)
	}

	// Setup trading agent
	trader, err := setupAgent(cfg, logger, providers, store, scan, executor, discoveryService, archive, stateFile, breaker, hub, vs)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup agent: %w", err)
	}

	// Setup HTTP server (needs agent, quote store and stream hub)
	httpServer := setupHTTPServer(cfg, logger, healthChecker, trader, store, hub)

	// Setup wallet balance tracker
	tracker, err := setupTracker(cfg, logger, signer)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup tracker: %w", err)
	}

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		hub:           hub,
		discovery:     discoveryService,
		agent:         trader,
		tracker:       tracker,
		venues:        vs.bootstraps(),
		archive:       archive,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// venueSet bundles the three venue clients under their shared roles.
type venueSet struct {
	predict  *predict.Client
	probable *probable.Client
	opinion  *opinion.Client
}

func (v *venueSet) clients() []execution.Client {
	return []execution.Client{v.predict, v.probable, v.opinion}
}

func (v *venueSet) catalogs() []discovery.Catalog {
	return []discovery.Catalog{v.predict, v.probable, v.opinion}
}

func (v *venueSet) bootstraps() []venueBootstrap {
	return []venueBootstrap{v.predict, v.probable, v.opinion}
}

func (v *venueSet) fetchers() map[types.Protocol]markets.Fetcher {
	return map[types.Protocol]markets.Fetcher{
		types.ProtocolPredict:  v.predict,
		types.ProtocolProbable: v.probable,
		types.ProtocolOpinion:  v.opinion,
	}
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New("discovery", "agent")
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		MaxEntries: 1000, // matched pairs plus fee overrides, generously
		Logger:     logger,
	})
}

func setupSigner(cfg *config.Config, logger *zap.Logger) (*wallet.Signer, error) {
	return wallet.NewSigner(&wallet.SignerConfig{
		RPCEndpoint: cfg.RPCURL,
		PrivateKey:  cfg.PrivateKey,
		ChainID:     cfg.ChainID,
		Logger:      logger,
	})
}

func setupVenues(cfg *config.Config, logger *zap.Logger, signer *wallet.Signer) (*venueSet, error) {
	// The vault path settles through the pooled contract, so the venue
	// clients only quote; no CLOB order signing and no exchange address.
	quoteOnly := cfg.ExecutionMode == "vault"

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
		QuoteOnly:         quoteOnly,
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
		QuoteOnly:         quoteOnly,
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
		QuoteOnly:         quoteOnly,
		Approver:          signer,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create opinion client: %w", err)
	}

	return &venueSet{predict: predictClient, probable: probableClient, opinion: opinionClient}, nil
}

func setupDiscovery(cfg *config.Config, logger *zap.Logger, marketCache cache.Cache, vs *venueSet) (*discovery.Service, error) {
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

	return discovery.New(&discovery.Config{
		Catalogs:        vs.catalogs(),
		Matcher:         matcher,
		RefreshInterval: cfg.DiscoveryRefreshInterval,
		Cache:           marketCache,
		AutoDiscover:    cfg.AutoDiscover,
		Static:          staticMaps(cfg),
		Logger:          logger,
	})
}

// staticMaps collects the operator-supplied market maps. All three
// empty means none were configured.
func staticMaps(cfg *config.Config) *discovery.StaticMaps {
	if len(cfg.PredictMarketMap) == 0 && len(cfg.ProbableMarketMap) == 0 && len(cfg.OpinionTokenMap) == 0 {
		return nil
	}

	return &discovery.StaticMaps{
		Predict:  cfg.PredictMarketMap,
		Probable: cfg.ProbableMarketMap,
		Opinion:  cfg.OpinionTokenMap,
	}
}

func setupProviders(logger *zap.Logger, marketCache cache.Cache, vs *venueSet) ([]agent.QuoteProvider, error) {
	fees, err := markets.NewFeeService(&markets.Config{
		Fetchers: vs.fetchers(),
		Cache:    marketCache,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create fee service: %w", err)
	}

	quoteCfg := &quotes.Config{Fees: fees, Logger: logger}

	predictProvider, err := quotes.NewPredictProvider(vs.predict, quoteCfg)
	if err != nil {
		return nil, fmt.Errorf("create predict provider: %w", err)
	}

	probableProvider, err := quotes.NewProbableProvider(vs.probable, quoteCfg)
	if err != nil {
		return nil, fmt.Errorf("create probable provider: %w", err)
	}

	opinionProvider, err := quotes.NewOpinionProvider(vs.opinion, quoteCfg)
	if err != nil {
		return nil, fmt.Errorf("create opinion provider: %w", err)
	}

	return []agent.QuoteProvider{predictProvider, probableProvider, opinionProvider}, nil
}

func setupScanner(cfg *config.Config, logger *zap.Logger, store *quotes.Store) (*scanner.Scanner, error) {
	return scanner.New(&scanner.Config{
		MinSpreadBps:    cfg.MinSpreadBps,
		MaxSpreadBps:    cfg.MaxSpreadBps,
		MinFillUsdt:     cfg.MinFillUsdt,
		MaxPositionSize: cfg.MaxPositionSize,
		Freshness:       cfg.QuoteFreshnessMax,
		Logger:          logger,
	}, store)
}

func setupBreaker(cfg *config.Config, logger *zap.Logger) (*circuitbreaker.DailyLossBreaker, error) {
	return circuitbreaker.New(&circuitbreaker.Config{
		DailyLossLimit: cfg.DailyLossLimit,
		Logger:         logger,
	})
}

func setupExecutor(
	cfg *config.Config,
	logger *zap.Logger,
	vs *venueSet,
	feed *discovery.Service,
	breaker *circuitbreaker.DailyLossBreaker,
	signer *wallet.Signer,
) (agent.TradeExecutor, error) {
	if cfg.ExecutionMode == "vault" {
		vaultExecutor, err := execution.NewVault(&execution.VaultConfig{
			Writer:   signer,
			Vault:    common.HexToAddress(cfg.VaultAddress),
			AdapterA: common.HexToAddress(cfg.AdapterAAddress),
			AdapterB: common.HexToAddress(cfg.AdapterBAddress),
			MarketID: common.HexToHash(cfg.VaultMarketID),
			Breaker:  breaker,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create vault executor: %w", err)
		}

		return vaultExecutor, nil
	}

	clobExecutor, err := execution.New(&execution.Config{
		Clients:          vs.clients(),
		Markets:          feed,
		Breaker:          breaker,
		FillPollInterval: cfg.FillPollInterval,
		FillPollTimeout:  cfg.FillPollTimeout,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create executor: %w", err)
	}

	return clobExecutor, nil
}

func setupState(cfg *config.Config, logger *zap.Logger) (*state.File, error) {
	return state.New(&state.Config{
		Path:   cfg.StateFile,
		Logger: logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.StorageMode {
	case "postgres":
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}

		return pgStorage, nil
	case "sqlite":
		liteStorage, err := storage.NewSQLiteStorage(cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("create sqlite storage: %w", err)
		}

		return liteStorage, nil
	default:
		return storage.NewConsoleStorage(logger), nil
	}
}

func setupHub(logger *zap.Logger) (*websocket.Hub, error) {
	return websocket.NewHub(&websocket.Config{Logger: logger})
}

func setupAgent(
	cfg *config.Config,
	logger *zap.Logger,
	providers []agent.QuoteProvider,
	store *quotes.Store,
	scan *scanner.Scanner,
	executor agent.TradeExecutor,
	feed *discovery.Service,
	archive storage.Storage,
	stateFile *state.File,
	breaker *circuitbreaker.DailyLossBreaker,
	hub *websocket.Hub,
	vs *venueSet,
) (*agent.Agent, error) {
	// Rotation reprices per venue, which only means something when the
	// agent holds per-venue order clients.
	var rotation []execution.Client
	if cfg.YieldRotation && cfg.ExecutionMode == "clob" {
		rotation = vs.clients()
	}

	return agent.New(&agent.Config{
		Providers:       providers,
		Store:           store,
		Scanner:         scan,
		Executor:        executor,
		Markets:         feed,
		Archive:         archive,
		State:           stateFile,
		Breaker:         breaker,
		Stream:          httpserver.NewStreamPublisher(hub),
		Venues:          rotation,
		ScanInterval:    cfg.ScanInterval,
		MaxTrades:       cfg.MaxTradesPerSession,
		YieldRotation:   cfg.YieldRotation,
		OrderExpiration: cfg.OrderExpiration,
		Logger:          logger,
	})
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	trader *agent.Agent,
	store *quotes.Store,
	hub *websocket.Hub,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.Port,
		Logger:        logger,
		HealthChecker: healthChecker,
		Opportunities: trader,
		Quotes:        store,
		Positions:     trader,
		Stream:        hub,
	})
}

func setupTracker(cfg *config.Config, logger *zap.Logger, signer *wallet.Signer) (*wallet.Tracker, error) {
	spenders := make(map[string]common.Address)
	if cfg.PredictExchangeAddress != "" {
		spenders[string(types.ProtocolPredict)] = common.HexToAddress(cfg.PredictExchangeAddress)
	}
	if cfg.ProbableExchangeAddress != "" {
		spenders[string(types.ProtocolProbable)] = common.HexToAddress(cfg.ProbableExchangeAddress)
	}
	if cfg.OpinionExchangeAddress != "" {
		spenders[string(types.ProtocolOpinion)] = common.HexToAddress(cfg.OpinionExchangeAddress)
	}

	return wallet.New(&wallet.Config{
		RPCEndpoint:  cfg.RPCURL,
		Address:      signer.Address(),
		USDTAddress:  common.HexToAddress(cfg.USDTAddress),
		Spenders:     spenders,
		PollInterval: balancePollInterval,
		Logger:       logger,
	})
}
