package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidateWithWallet(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.KeypairPath = "/tmp/id.json"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresWalletSource(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet")
}

func TestValidateWalletSourcesMutuallyExclusive(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.KeypairPath = "/tmp/id.json"
	cfg.Wallet.KeypairBase58 = "abc"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestValidateEncryptedKeyNeedsPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.EncryptedKeyPath = "/tmp/key.json"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Cluster.Name = "testnet"
	cfg.Cluster.RPCURL = ""
	cfg.LogLevel = "verbose"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown cluster")
	assert.Contains(t, err.Error(), "rpc_url")
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[cluster]
name = "custom"
rpc_url = "http://localhost:8899"
program_id = "BNn1nkWfB99z9b515Bk6aC5sDexX1Hf5BpfTL1zr7gtG"

[wallet]
keypair_base58 = "notarealkey"

[submit]
simulate = false
confirm_timeout = "45s"

[settlement]
sweep_delay_seconds = 60
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "custom", cfg.Cluster.Name)
	assert.Equal(t, "http://localhost:8899", cfg.Cluster.RPCURL)
	assert.False(t, cfg.Submit.Simulate)
	assert.Equal(t, 45*time.Second, cfg.Submit.ConfirmTimeout.Duration)
	assert.Equal(t, int64(60), cfg.Settlement.SweepDelaySeconds)

	// Unset fields keep their defaults.
	assert.Equal(t, 2*time.Second, cfg.Submit.ConfirmPollInterval.Duration)
	// The oracle program id preset applies even for custom clusters.
	assert.NotEmpty(t, cfg.Cluster.OracleProgramID)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "devnet", cfg.Cluster.Name)
	assert.Equal(t, devnetProgramID, cfg.Cluster.ProgramID)
	assert.True(t, cfg.Submit.Simulate)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PREDICTSOL_CLUSTER_RPC_URL", "http://127.0.0.1:8899")
	t.Setenv("PREDICTSOL_SUBMIT_SIMULATE", "false")
	t.Setenv("PREDICTSOL_SETTLEMENT_DUST_TOLERANCE_LAMPORTS", "25")
	t.Setenv("PREDICTSOL_ORCHESTRATOR_CACHE_TTL", "1m")
	t.Setenv("PREDICTSOL_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8899", cfg.Cluster.RPCURL)
	assert.False(t, cfg.Submit.Simulate)
	assert.Equal(t, uint64(25), cfg.Settlement.DustToleranceLamports)
	assert.Equal(t, time.Minute, cfg.Orchestra.CacheTTL.Duration)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestMainnetPreset(t *testing.T) {
	cfg := Defaults()
	cfg.Cluster.Name = "mainnet"
	cfg.ApplyClusterPreset()

	assert.Equal(t, mainnetProgramID, cfg.Cluster.ProgramID)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.Cluster.RPCURL)
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.KeypairBase58 = "secret-keypair"
	cfg.Wallet.KeyPassword = "hunter2"
	cfg.Postgres.Password = "pgpass"
	cfg.Redis.Password = "redispass"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Wallet.KeypairBase58)
	assert.Equal(t, "***", red.Wallet.KeyPassword)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Redis.Password)

	// Empty secrets stay empty and non-secret fields pass through.
	assert.Empty(t, red.Postgres.DSN)
	assert.Equal(t, cfg.Cluster.RPCURL, red.Cluster.RPCURL)

	// The original is untouched.
	assert.Equal(t, "hunter2", cfg.Wallet.KeyPassword)
}
