package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/memerun/memerun/internal/domain"
)

// Config is the full engine configuration. Defaults are filled by Load so
// an empty file yields a runnable learning-mode engine with every provider
// that has an API key enabled.
type Config struct {
	ScanIntervalMS   int    `yaml:"scan_interval_ms"`
	LearningMode     bool   `yaml:"learning_mode"`
	ChainRPCDisabled bool   `yaml:"chain_rpc_disabled"`
	RedisAddr        string `yaml:"redis_addr"`
	MetricsListen    string `yaml:"metrics_listen"`
	PostgresDSN      string `yaml:"postgres_dsn"`

	APIKeys   APIKeys                 `yaml:"api_keys"`
	Providers Providers               `yaml:"providers"`
	Screening Screening               `yaml:"screening"`
	Sizing    Sizing                  `yaml:"sizing"`
	Tiers     map[string]TierOverride `yaml:"tiers"`
	Notifier  Notifier                `yaml:"notifier"`

	Thresholds domain.Thresholds `yaml:"thresholds"`
}

// APIKeys carries per-provider credentials. An absent key disables the
// provider; the facade degrades gracefully.
type APIKeys struct {
	ChainRPC   string `yaml:"chain_rpc"`
	HolderScan string `yaml:"holderscan"`
	Directory  string `yaml:"directory"`
}

// Providers tunes per-provider transport behaviour.
type Providers struct {
	ChainRPCURL          string  `yaml:"chain_rpc_url"`
	ChainRPCWSURL        string  `yaml:"chain_rpc_ws_url"`
	ChainRPCRPS          float64 `yaml:"chain_rpc_rps"`
	AggregatorURL        string  `yaml:"aggregator_url"`
	AggregatorIntervalMS int     `yaml:"aggregator_interval_ms"`
	HolderScanURL        string  `yaml:"holderscan_url"`
	DirectoryURL         string  `yaml:"directory_url"`
	ChainID              string  `yaml:"chain_id"`
}

// Screening holds the config-driven numeric bounds applied at pipeline
// step 6.
type Screening struct {
	MinMarketCap          float64 `yaml:"min_market_cap"`
	MaxMarketCap          float64 `yaml:"max_market_cap"`
	Min24hVolume          float64 `yaml:"min_24h_volume"`
	MinVolumeMCRatio      float64 `yaml:"min_volume_mc_ratio"`
	MinHolderCount        int     `yaml:"min_holder_count"`
	MaxTop10Concentration float64 `yaml:"max_top10_concentration"`
	MinLiquidityPool      float64 `yaml:"min_liquidity_pool"`
	MinTokenAgeMinutes    float64 `yaml:"min_token_age_minutes"`
}

// Sizing configures the advisory position sizer.
type Sizing struct {
	BasePositionSize float64 `yaml:"base_position_size"` // in base units (SOL)
}

// TierOverride overrides a single tier's gate row.
type TierOverride struct {
	Enabled            *bool    `yaml:"enabled,omitempty"`
	MinLiquidity       *float64 `yaml:"min_liquidity,omitempty"`
	MinSafetyScore     *float64 `yaml:"min_safety_score,omitempty"`
	PositionMultiplier *float64 `yaml:"position_multiplier,omitempty"`
}

// Notifier configures the outbound signal sink.
type Notifier struct {
	WebhookURL string `yaml:"webhook_url"`
}

// ScanInterval returns the scheduler pacing as a duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalMS) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ScanIntervalMS: 20000,
		LearningMode:   true,
		MetricsListen:  ":9464",
		Providers: Providers{
			ChainRPCURL:          "https://mainnet.helius-rpc.com",
			ChainRPCWSURL:        "wss://mainnet.helius-rpc.com",
			ChainRPCRPS:          5,
			AggregatorURL:        "https://api.dexscreener.com",
			AggregatorIntervalMS: 300,
			HolderScanURL:        "https://api.holderscan.com",
			DirectoryURL:         "https://tokens.jup.ag",
			ChainID:              "solana",
		},
		Screening: Screening{
			MinMarketCap:          50_000,
			MaxMarketCap:          150_000_000,
			Min24hVolume:          5_000,
			MinVolumeMCRatio:      0.002,
			MinHolderCount:        25,
			MaxTop10Concentration: 85,
			MinLiquidityPool:      2_000,
			MinTokenAgeMinutes:    2,
		},
		Sizing:     Sizing{BasePositionSize: 0.5},
		Thresholds: domain.DefaultThresholds(),
	}
}

// Load reads the YAML file at path, fills defaults, and applies environment
// overrides for API keys (MEMERUN_CHAIN_RPC_KEY, MEMERUN_HOLDERSCAN_KEY,
// MEMERUN_DIRECTORY_KEY) plus MEMERUN_POSTGRES_DSN and MEMERUN_REDIS_ADDR.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MEMERUN_CHAIN_RPC_KEY"); v != "" {
		cfg.APIKeys.ChainRPC = v
	}
	if v := os.Getenv("MEMERUN_HOLDERSCAN_KEY"); v != "" {
		cfg.APIKeys.HolderScan = v
	}
	if v := os.Getenv("MEMERUN_DIRECTORY_KEY"); v != "" {
		cfg.APIKeys.Directory = v
	}
	if v := os.Getenv("MEMERUN_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("MEMERUN_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
}

func (c *Config) validate() error {
	if c.ScanIntervalMS < 1000 {
		return fmt.Errorf("scan_interval_ms %d too aggressive, minimum 1000", c.ScanIntervalMS)
	}
	if c.Providers.ChainRPCRPS <= 0 {
		return fmt.Errorf("chain_rpc_rps must be positive, got %v", c.Providers.ChainRPCRPS)
	}
	if c.Screening.MinMarketCap >= c.Screening.MaxMarketCap {
		return fmt.Errorf("min_market_cap %v must be below max_market_cap %v",
			c.Screening.MinMarketCap, c.Screening.MaxMarketCap)
	}
	return nil
}
