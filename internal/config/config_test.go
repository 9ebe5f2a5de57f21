package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, NetworkTestnet, cfg.Network)
	assert.Equal(t, "zk_factor.aleo", cfg.ProgramID)
	assert.Equal(t, "https://testnet.explorer.provable.com", cfg.ExplorerURL)
	assert.Equal(t, 3*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 100, cfg.Poll.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Poll.SubmitTimeout)
	assert.Equal(t, []string{"zk_factor.aleo", "credits.aleo"}, cfg.WhitelistedPrograms())
	assert.Equal(t, 20.0, cfg.HTTP.RateLimit)
	assert.Empty(t, cfg.HTTP.AllowedOrigins)
}

func TestLoad_HTTPFromEnv(t *testing.T) {
	t.Setenv("ZKFACTOR_HTTP_ALLOWED_ORIGINS", "https://a.example;https://b.example")
	t.Setenv("ZKFACTOR_HTTP_RATE_LIMIT", "2.5")

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 2.5, cfg.HTTP.RateLimit)
	assert.Equal(t, 40, cfg.HTTP.RateBurst)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zkfactor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
network: mainnet
program_id: zk_factor_v2.aleo
poll:
  interval: 5s
  max_attempts: 10
logging:
  level: debug
`), 0o600))

	t.Setenv("ZKFACTOR_POLL_MAX_ATTEMPTS", "0")
	t.Setenv("ZKFACTOR_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, NetworkMainnet, cfg.Network)
	assert.Equal(t, "https://explorer.provable.com", cfg.ExplorerURL)
	assert.Equal(t, "zk_factor_v2.aleo", cfg.ProgramID)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 0, cfg.Poll.MaxAttempts, "environment overrides the file")
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ZKFACTOR_NETWORK=canary\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("ZKFACTOR_NETWORK") })

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, NetworkCanary, cfg.Network)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad network", func(c *Config) { c.Network = "devnet" }},
		{"empty program", func(c *Config) { c.ProgramID = "" }},
		{"program suffix", func(c *Config) { c.ProgramID = "zk_factor" }},
		{"bad wallet url", func(c *Config) { c.WalletURL = "not a url" }},
		{"zero interval", func(c *Config) { c.Poll.Interval = 0 }},
		{"negative attempts", func(c *Config) { c.Poll.MaxAttempts = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ExplorerURL = ExplorerURLFor(cfg.Network)
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.ExplorerURL = ExplorerURLFor(cfg.Network)
	assert.NoError(t, cfg.Validate())
}

func TestTransactionFee(t *testing.T) {
	cfg := Default()
	assert.Nil(t, cfg.TransactionFee())

	t.Setenv("ZKFACTOR_FEE_MICROCREDITS", "250000")
	t.Setenv("ZKFACTOR_FEE_PRIVATE", "true")
	cfg, err := Load("", "")
	require.NoError(t, err)
	fee := cfg.TransactionFee()
	require.NotNil(t, fee)
	assert.Equal(t, uint64(250000), fee.Amount)
	assert.True(t, fee.Private)
}
