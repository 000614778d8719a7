package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PREDICTSOL_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	cfg.ApplyClusterPreset()

	return &cfg, nil
}

// applyEnvOverrides reads well-known PREDICTSOL_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Cluster ──
	setStr(&cfg.Cluster.Name, "PREDICTSOL_CLUSTER_NAME")
	setStr(&cfg.Cluster.RPCURL, "PREDICTSOL_CLUSTER_RPC_URL")
	setStr(&cfg.Cluster.WSURL, "PREDICTSOL_CLUSTER_WS_URL")
	setStr(&cfg.Cluster.ProgramID, "PREDICTSOL_CLUSTER_PROGRAM_ID")
	setStr(&cfg.Cluster.OracleProgramID, "PREDICTSOL_CLUSTER_ORACLE_PROGRAM_ID")
	setStr(&cfg.Cluster.HouseTreasury, "PREDICTSOL_CLUSTER_HOUSE_TREASURY")

	// ── Wallet ──
	setStr(&cfg.Wallet.KeypairPath, "PREDICTSOL_WALLET_KEYPAIR_PATH")
	setStr(&cfg.Wallet.KeypairBase58, "PREDICTSOL_WALLET_KEYPAIR_BASE58")
	setStr(&cfg.Wallet.EncryptedKeyPath, "PREDICTSOL_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "PREDICTSOL_WALLET_KEY_PASSWORD")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "PREDICTSOL_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "PREDICTSOL_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PREDICTSOL_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PREDICTSOL_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PREDICTSOL_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PREDICTSOL_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PREDICTSOL_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PREDICTSOL_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PREDICTSOL_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PREDICTSOL_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PREDICTSOL_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "PREDICTSOL_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PREDICTSOL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PREDICTSOL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PREDICTSOL_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PREDICTSOL_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PREDICTSOL_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PREDICTSOL_REDIS_TLS_ENABLED")

	// ── Submit ──
	setBool(&cfg.Submit.Simulate, "PREDICTSOL_SUBMIT_SIMULATE")
	setDuration(&cfg.Submit.ConfirmPollInterval, "PREDICTSOL_SUBMIT_CONFIRM_POLL_INTERVAL")
	setDuration(&cfg.Submit.ConfirmTimeout, "PREDICTSOL_SUBMIT_CONFIRM_TIMEOUT")

	// ── Settlement ──
	setInt64(&cfg.Settlement.SweepDelaySeconds, "PREDICTSOL_SETTLEMENT_SWEEP_DELAY_SECONDS")
	setUint64(&cfg.Settlement.DustToleranceLamports, "PREDICTSOL_SETTLEMENT_DUST_TOLERANCE_LAMPORTS")
	setUint64(&cfg.Settlement.OracleRewardLamports, "PREDICTSOL_SETTLEMENT_ORACLE_REWARD_LAMPORTS")

	// ── Orchestrator ──
	setDuration(&cfg.Orchestra.AtaPollInterval, "PREDICTSOL_ORCHESTRATOR_ATA_POLL_INTERVAL")
	setDuration(&cfg.Orchestra.AtaPollTimeout, "PREDICTSOL_ORCHESTRATOR_ATA_POLL_TIMEOUT")
	setDuration(&cfg.Orchestra.CacheTTL, "PREDICTSOL_ORCHESTRATOR_CACHE_TTL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "PREDICTSOL_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
