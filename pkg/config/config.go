package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	Port     string

	// Chain and signer
	RPCURL     string
	PrivateKey string
	ChainID    int64
	APIKey     string

	// Execution pathway
	ExecutionMode   string // "clob" or "vault"
	DryRun          bool
	VaultAddress    string
	AdapterAAddress string
	AdapterBAddress string
	USDTAddress     string
	CTFAddress      string
	VaultMarketID   string

	// Venue endpoints
	PredictBaseURL          string
	PredictExchangeAddress  string
	ProbableBaseURL         string
	ProbableExchangeAddress string
	ProbableProxyAddress    string
	OpinionBaseURL          string
	OpinionExchangeAddress  string

	// Trading
	MinSpreadBps        int64
	MaxSpreadBps        int64
	MaxPositionSize     *big.Int // 6-dp USDT
	MinFillUsdt         *big.Int // 6-dp USDT
	DailyLossLimit      *big.Int // 6-dp USDT
	ScanInterval        time.Duration
	OrderExpiration     time.Duration
	FillPollInterval    time.Duration
	FillPollTimeout     time.Duration
	QuoteFreshnessMax   time.Duration
	MaxTradesPerSession int
	YieldRotation       bool

	// Matching and discovery
	AutoDiscover             bool
	SimilarityThreshold      float64
	ConfidenceThreshold      float64
	DiscoveryRefreshInterval time.Duration
	PredictMarketMap         map[string]types.VenueMarket
	ProbableMarketMap        map[string]types.VenueMarket
	OpinionTokenMap          map[string]types.VenueMarket

	// State persistence
	StateFile string

	// Storage
	StorageMode  string // "console", "postgres" or "sqlite"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
	SQLitePath   string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		Port:     getEnvOrDefault("PORT", "3001"),

		// Chain defaults
		RPCURL:     os.Getenv("RPC_URL"),
		PrivateKey: os.Getenv("PRIVATE_KEY"),
		ChainID:    getInt64OrDefault("CHAIN_ID", 31337),
		APIKey:     os.Getenv("API_KEY"),

		// Execution defaults
		ExecutionMode:   getEnvOrDefault("EXECUTION_MODE", "clob"),
		DryRun:          getBoolOrDefault("DRY_RUN", false),
		VaultAddress:    os.Getenv("VAULT_ADDRESS"),
		AdapterAAddress: os.Getenv("ADAPTER_A_ADDRESS"),
		AdapterBAddress: os.Getenv("ADAPTER_B_ADDRESS"),
		USDTAddress:     os.Getenv("USDT_ADDRESS"),
		CTFAddress:      os.Getenv("CTF_ADDRESS"),
		VaultMarketID:   os.Getenv("MARKET_ID"),

		// Venue defaults
		PredictBaseURL:          getEnvOrDefault("PREDICT_BASE_URL", "https://api.predict.fun"),
		PredictExchangeAddress:  os.Getenv("PREDICT_EXCHANGE_ADDRESS"),
		ProbableBaseURL:         getEnvOrDefault("PROBABLE_BASE_URL", "https://api.probable.com"),
		ProbableExchangeAddress: os.Getenv("PROBABLE_EXCHANGE_ADDRESS"),
		ProbableProxyAddress:    os.Getenv("PROBABLE_PROXY_ADDRESS"),
		OpinionBaseURL:          getEnvOrDefault("OPINION_BASE_URL", "https://openapi.opinionlabs.xyz"),
		OpinionExchangeAddress:  os.Getenv("OPINION_EXCHANGE_ADDRESS"),

		// Trading defaults
		MinSpreadBps:        getInt64OrDefault("MIN_SPREAD_BPS", 100),
		MaxSpreadBps:        getInt64OrDefault("MAX_SPREAD_BPS", 2000),
		MaxPositionSize:     getBigIntOrDefault("MAX_POSITION_SIZE", big.NewInt(500_000_000)),
		MinFillUsdt:         getBigIntOrDefault("MIN_FILL_USDT", big.NewInt(10_000_000)),
		DailyLossLimit:      getBigIntOrDefault("DAILY_LOSS_LIMIT", big.NewInt(50_000_000)),
		ScanInterval:        getMillisOrDefault("SCAN_INTERVAL_MS", 5000),
		OrderExpiration:     getSecondsOrDefault("ORDER_EXPIRATION_SEC", 300),
		FillPollInterval:    getMillisOrDefault("FILL_POLL_INTERVAL_MS", 5000),
		FillPollTimeout:     getMillisOrDefault("FILL_POLL_TIMEOUT_MS", 60000),
		QuoteFreshnessMax:   getDurationOrDefault("QUOTE_FRESHNESS_MAX", 30*time.Second),
		MaxTradesPerSession: getIntOrDefault("MAX_TRADES_PER_SESSION", 0),
		YieldRotation:       getBoolOrDefault("YIELD_ROTATION_ENABLED", false),

		// Matching and discovery defaults
		AutoDiscover:             getBoolOrDefault("AUTO_DISCOVER", true),
		SimilarityThreshold:      getFloat64OrDefault("MATCHING_SIMILARITY_THRESHOLD", 0.85),
		ConfidenceThreshold:      getFloat64OrDefault("MATCHING_CONFIDENCE_THRESHOLD", 0.90),
		DiscoveryRefreshInterval: getDurationOrDefault("DISCOVERY_REFRESH_INTERVAL", 5*time.Minute),

		// State defaults
		StateFile: getEnvOrDefault("STATE_FILE", "state.json"),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "prophit"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "prophit123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "prophit"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		SQLitePath:   getEnvOrDefault("SQLITE_PATH", "prophit.db"),
	}

	var err error
	cfg.PredictMarketMap, err = parseMarketMap(os.Getenv("PREDICT_MARKET_MAP"), types.ProtocolPredict)
	if err != nil {
		return nil, fmt.Errorf("parse PREDICT_MARKET_MAP: %w", err)
	}
	cfg.ProbableMarketMap, err = parseMarketMap(os.Getenv("PROBABLE_MARKET_MAP"), types.ProtocolProbable)
	if err != nil {
		return nil, fmt.Errorf("parse PROBABLE_MARKET_MAP: %w", err)
	}
	cfg.OpinionTokenMap, err = parseMarketMap(os.Getenv("OPINION_TOKEN_MAP"), types.ProtocolOpinion)
	if err != nil {
		return nil, fmt.Errorf("parse OPINION_TOKEN_MAP: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	if c.RPCURL == "" {
		return fmt.Errorf("RPC_URL cannot be empty")
	}

	if c.PrivateKey == "" {
		return fmt.Errorf("PRIVATE_KEY cannot be empty")
	}

	if c.APIKey == "" && !c.DevChain() {
		return fmt.Errorf("API_KEY is required on chain id %d", c.ChainID)
	}

	if c.ExecutionMode != "clob" && c.ExecutionMode != "vault" {
		return fmt.Errorf("EXECUTION_MODE must be 'clob' or 'vault', got %q", c.ExecutionMode)
	}

	if c.ExecutionMode == "vault" {
		if c.VaultAddress == "" {
			return fmt.Errorf("VAULT_ADDRESS is required in vault mode")
		}
		if c.AdapterAAddress == "" {
			return fmt.Errorf("ADAPTER_A_ADDRESS is required in vault mode")
		}
		if c.AdapterBAddress == "" {
			return fmt.Errorf("ADAPTER_B_ADDRESS is required in vault mode")
		}
		if c.USDTAddress == "" {
			return fmt.Errorf("USDT_ADDRESS is required in vault mode")
		}
		if c.VaultMarketID == "" {
			return fmt.Errorf("MARKET_ID is required in vault mode")
		}
	}

	if c.MinSpreadBps < 0 {
		return fmt.Errorf("MIN_SPREAD_BPS cannot be negative, got %d", c.MinSpreadBps)
	}

	if c.MaxSpreadBps > 0 && c.MaxSpreadBps < c.MinSpreadBps {
		return fmt.Errorf("MAX_SPREAD_BPS %d cannot be below MIN_SPREAD_BPS %d", c.MaxSpreadBps, c.MinSpreadBps)
	}

	if c.MaxPositionSize == nil || c.MaxPositionSize.Sign() <= 0 {
		return fmt.Errorf("MAX_POSITION_SIZE must be positive")
	}

	if c.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL_MS must be positive")
	}

	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1.0 {
		return fmt.Errorf("MATCHING_SIMILARITY_THRESHOLD must be between 0 and 1.0, got %f", c.SimilarityThreshold)
	}

	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("MATCHING_CONFIDENCE_THRESHOLD must be between 0 and 1.0, got %f", c.ConfidenceThreshold)
	}

	if c.StorageMode != "console" && c.StorageMode != "postgres" && c.StorageMode != "sqlite" {
		return fmt.Errorf("STORAGE_MODE must be 'console', 'postgres' or 'sqlite', got %q", c.StorageMode)
	}

	if !c.AutoDiscover &&
		len(c.PredictMarketMap) == 0 &&
		len(c.ProbableMarketMap) == 0 &&
		len(c.OpinionTokenMap) == 0 {
		return fmt.Errorf("AUTO_DISCOVER is off but no market maps are configured")
	}

	return nil
}

// DevChain reports whether the chain id identifies a local development
// network, where API keys are not enforced.
func (c *Config) DevChain() bool {
	return c.ChainID == 31337 || c.ChainID == 1337
}

// marketMapEntry is one operator-supplied market in the static map JSON.
type marketMapEntry struct {
	MarketID        string `json:"marketId"`
	Title           string `json:"title"`
	YesTokenID      string `json:"yesTokenId"`
	NoTokenID       string `json:"noTokenId"`
	PolarityFlipped bool   `json:"polarityFlipped"`
	FeeBps          int64  `json:"feeBps"`
}

// parseMarketMap decodes a fingerprint-keyed JSON map into venue market
// legs. An empty value yields a nil map; malformed JSON is a startup
// error, not a silent default, since these maps replace discovery.
func parseMarketMap(raw string, platform types.Protocol) (map[string]types.VenueMarket, error) {
	if raw == "" {
		return nil, nil
	}

	var entries map[string]marketMapEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}

	out := make(map[string]types.VenueMarket, len(entries))
	for fingerprint, e := range entries {
		if e.YesTokenID == "" || e.NoTokenID == "" {
			return nil, fmt.Errorf("entry %s is missing token ids", fingerprint)
		}

		marketID := e.MarketID
		if marketID == "" {
			marketID = fingerprint
		}

		out[fingerprint] = types.VenueMarket{
			MarketID:        marketID,
			Platform:        platform,
			Title:           e.Title,
			YesTokenID:      e.YesTokenID,
			NoTokenID:       e.NoTokenID,
			OutcomeLabels:   [2]string{"Yes", "No"},
			PolarityFlipped: e.PolarityFlipped,
			FeeBps:          e.FeeBps,
		}
	}

	return out, nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

// getMillisOrDefault reads an integer millisecond count, matching the
// *_MS naming of the knob.
func getMillisOrDefault(key string, defaultMillis int64) time.Duration {
	return time.Duration(getInt64OrDefault(key, defaultMillis)) * time.Millisecond
}

// getSecondsOrDefault reads an integer second count, matching the *_SEC
// naming of the knob.
func getSecondsOrDefault(key string, defaultSeconds int64) time.Duration {
	return time.Duration(getInt64OrDefault(key, defaultSeconds)) * time.Second
}

// getBigIntOrDefault reads a base-10 bigint. Raw 6-dp integer units,
// never decimal USDT.
func getBigIntOrDefault(key string, defaultValue *big.Int) *big.Int {
	value := os.Getenv(key)
	if value == "" {
		return new(big.Int).Set(defaultValue)
	}

	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return new(big.Int).Set(defaultValue)
	}

	return parsed
}
