// Package config loads zkfactor's configuration from defaults, an optional
// YAML file, an optional .env file and ZKFACTOR_* environment variables, in
// that order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/zkfactor/internal/ledger"
	"github.com/R3E-Network/zkfactor/pkg/logger"
)

// Supported networks.
const (
	NetworkMainnet = "mainnet"
	NetworkCanary  = "canary"
	NetworkTestnet = "testnet"
)

// Defaults.
const (
	DefaultProgramID    = "zk_factor.aleo"
	DefaultAPIEndpoint  = "https://api.explorer.provable.com/v1"
	DefaultWalletURL    = "http://127.0.0.1:8545"
	DefaultHTTPAddr     = ":8080"
	DefaultSyncSchedule = "@every 1m"
)

// Config is the full runtime configuration. It is built once at start-up and
// passed by value to constructors.
type Config struct {
	Network     string `yaml:"network" env:"ZKFACTOR_NETWORK"`
	ProgramID   string `yaml:"program_id" env:"ZKFACTOR_PROGRAM_ID"`
	APIEndpoint string `yaml:"api_endpoint" env:"ZKFACTOR_API_ENDPOINT"`
	ExplorerURL string `yaml:"explorer_url" env:"ZKFACTOR_EXPLORER_URL"`
	WalletURL   string `yaml:"wallet_url" env:"ZKFACTOR_WALLET_URL"`

	Poll     PollConfig     `yaml:"poll"`
	Explorer ExplorerConfig `yaml:"explorer"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	HTTP     HTTPConfig     `yaml:"http"`
	Sync     SyncConfig     `yaml:"sync"`
	Fee      FeeConfig      `yaml:"fee"`

	Logging logger.LoggingConfig `yaml:"logging"`
}

// PollConfig controls transaction status polling.
type PollConfig struct {
	Interval    time.Duration `yaml:"interval" env:"ZKFACTOR_POLL_INTERVAL"`
	MaxAttempts int           `yaml:"max_attempts" env:"ZKFACTOR_POLL_MAX_ATTEMPTS"`
	// SubmitTimeout bounds one submission; past it the outcome is unknown.
	SubmitTimeout time.Duration `yaml:"submit_timeout" env:"ZKFACTOR_SUBMIT_TIMEOUT"`
}

// ExplorerConfig controls the client-side explorer rate limit.
type ExplorerConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"ZKFACTOR_EXPLORER_RPS"`
	Burst             int           `yaml:"burst" env:"ZKFACTOR_EXPLORER_BURST"`
	Timeout           time.Duration `yaml:"timeout" env:"ZKFACTOR_EXPLORER_TIMEOUT"`
}

// DatabaseConfig enables the Postgres history store when DSN is set.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"ZKFACTOR_DATABASE_DSN"`
}

// RedisConfig enables the shared Redis cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ZKFACTOR_REDIS_ADDR"`
	Password string `yaml:"password" env:"ZKFACTOR_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"ZKFACTOR_REDIS_DB"`
}

// CacheConfig controls record listing caching.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" env:"ZKFACTOR_CACHE_TTL"`
}

// HTTPConfig controls the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr" env:"ZKFACTOR_HTTP_ADDR"`
	// AllowedOrigins lists CORS origins, separated by ";" in the environment.
	AllowedOrigins []string `yaml:"allowed_origins" env:"ZKFACTOR_HTTP_ALLOWED_ORIGINS"`
	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit float64 `yaml:"rate_limit" env:"ZKFACTOR_HTTP_RATE_LIMIT"`
	RateBurst int     `yaml:"rate_burst" env:"ZKFACTOR_HTTP_RATE_BURST"`
}

// SyncConfig controls the periodic wallet record refresh.
type SyncConfig struct {
	Schedule string `yaml:"schedule" env:"ZKFACTOR_SYNC_SCHEDULE"`
	Disabled bool   `yaml:"disabled" env:"ZKFACTOR_SYNC_DISABLED"`
}

// FeeConfig attaches an explicit fee to every transaction. Zero leaves the
// fee to the wallet.
type FeeConfig struct {
	Microcredits uint64 `yaml:"microcredits" env:"ZKFACTOR_FEE_MICROCREDITS"`
	Private      bool   `yaml:"private" env:"ZKFACTOR_FEE_PRIVATE"`
}

// TransactionFee returns the configured fee, or nil when none is set.
func (c Config) TransactionFee() *ledger.Fee {
	if c.Fee.Microcredits == 0 {
		return nil
	}
	return &ledger.Fee{Amount: c.Fee.Microcredits, Private: c.Fee.Private}
}

// Default returns the built-in configuration for testnet.
func Default() Config {
	return Config{
		Network:     NetworkTestnet,
		ProgramID:   DefaultProgramID,
		APIEndpoint: DefaultAPIEndpoint,
		WalletURL:   DefaultWalletURL,
		Poll: PollConfig{
			Interval:      3 * time.Second,
			MaxAttempts:   100,
			SubmitTimeout: 2 * time.Minute,
		},
		Explorer: ExplorerConfig{
			RequestsPerSecond: 5,
			Burst:             5,
			Timeout:           15 * time.Second,
		},
		Cache: CacheConfig{TTL: 5 * time.Minute},
		HTTP:  HTTPConfig{Addr: DefaultHTTPAddr, RateLimit: 20, RateBurst: 40},
		Sync:  SyncConfig{Schedule: DefaultSyncSchedule},
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load builds a Config. path and envFile are optional; a missing envFile is
// not an error, a missing path is.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	cfg.Network = strings.ToLower(strings.TrimSpace(cfg.Network))
	if cfg.ExplorerURL == "" {
		cfg.ExplorerURL = ExplorerURLFor(cfg.Network)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ExplorerURLFor returns the public block explorer for network.
func ExplorerURLFor(network string) string {
	if network == NetworkMainnet {
		return "https://explorer.provable.com"
	}
	return fmt.Sprintf("https://%s.explorer.provable.com", network)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Network {
	case NetworkMainnet, NetworkCanary, NetworkTestnet:
	default:
		return fmt.Errorf("network %q: must be mainnet, canary or testnet", c.Network)
	}
	if strings.TrimSpace(c.ProgramID) == "" {
		return errors.New("program_id is required")
	}
	if !strings.HasSuffix(c.ProgramID, ".aleo") {
		return fmt.Errorf("program_id %q: must end in .aleo", c.ProgramID)
	}
	for name, raw := range map[string]string{
		"api_endpoint": c.APIEndpoint,
		"wallet_url":   c.WalletURL,
		"explorer_url": c.ExplorerURL,
	} {
		if err := validateURL(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.MaxAttempts < 0 {
		return fmt.Errorf("poll.max_attempts must be >= 0, got %d", c.Poll.MaxAttempts)
	}
	if c.Explorer.RequestsPerSecond < 0 {
		return fmt.Errorf("explorer.requests_per_second must be >= 0")
	}
	return nil
}

// WhitelistedPrograms are the programs whose records the wallet may decrypt.
func (c Config) WhitelistedPrograms() []string {
	return []string{c.ProgramID, ledger.CreditsProgram}
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url %q: want http(s)://host", raw)
	}
	return nil
}
