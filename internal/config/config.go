// Package config defines the top-level configuration for the predictsol
// client and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by PREDICTSOL_* environment
// variables.
type Config struct {
	Cluster    ClusterConfig    `toml:"cluster"`
	Wallet     WalletConfig     `toml:"wallet"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	Submit     SubmitConfig     `toml:"submit"`
	Settlement SettlementConfig `toml:"settlement"`
	Orchestra  OrchestraConfig  `toml:"orchestrator"`
	LogLevel   string           `toml:"log_level"`
}

// ClusterConfig selects the Solana cluster and the deployed program
// addresses.
type ClusterConfig struct {
	Name            string `toml:"name"` // devnet, mainnet, custom
	RPCURL          string `toml:"rpc_url"`
	WSURL           string `toml:"ws_url"`
	ProgramID       string `toml:"program_id"`
	OracleProgramID string `toml:"oracle_program_id"`
	HouseTreasury   string `toml:"house_treasury"`
}

// WalletConfig selects the signing keypair source. Exactly one of
// KeypairPath, KeypairBase58, or EncryptedKeyPath should be set.
type WalletConfig struct {
	KeypairPath      string `toml:"keypair_path"`
	KeypairBase58    string `toml:"keypair_base58"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PostgresConfig holds the submission-journal database parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds the snapshot-cache connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// SubmitConfig tunes the transaction submitter.
type SubmitConfig struct {
	Simulate            bool     `toml:"simulate"`
	ConfirmPollInterval duration `toml:"confirm_poll_interval"`
	ConfirmTimeout      duration `toml:"confirm_timeout"`
}

// SettlementConfig holds the protocol's settlement constants.
type SettlementConfig struct {
	SweepDelaySeconds     int64  `toml:"sweep_delay_seconds"`
	DustToleranceLamports uint64 `toml:"dust_tolerance_lamports"`
	OracleRewardLamports  uint64 `toml:"oracle_reward_lamports"`
}

// OrchestraConfig tunes the action orchestrator's polling and caching.
type OrchestraConfig struct {
	AtaPollInterval duration `toml:"ata_poll_interval"`
	AtaPollTimeout  duration `toml:"ata_poll_timeout"`
	CacheTTL        duration `toml:"cache_ttl"`
}

// duration wraps time.Duration so TOML values can be written as "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Well-known deployments.
const (
	devnetProgramID  = "BNn1nkWfB99z9b515Bk6aC5sDexX1Hf5BpfTL1zr7gtG"
	mainnetProgramID = "Fhud5X7RHZT6159Mr964dhZA6SUDj5Dt8Zk54K4x6Twf"
	oracleProgramID  = "FFL71XjBkjq5gce7EtpB7Wa5p8qnRNueLKSzM4tkEMoc"
)

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Cluster: ClusterConfig{
			Name:            "devnet",
			RPCURL:          "https://api.devnet.solana.com",
			WSURL:           "wss://api.devnet.solana.com",
			ProgramID:       devnetProgramID,
			OracleProgramID: oracleProgramID,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "predictsol",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Submit: SubmitConfig{
			Simulate:            true,
			ConfirmPollInterval: duration{2 * time.Second},
			ConfirmTimeout:      duration{90 * time.Second},
		},
		Settlement: SettlementConfig{
			SweepDelaySeconds:     30 * 24 * 60 * 60,
			DustToleranceLamports: 10,
			OracleRewardLamports:  100_000_000,
		},
		Orchestra: OrchestraConfig{
			AtaPollInterval: duration{2 * time.Second},
			AtaPollTimeout:  duration{30 * time.Second},
			CacheTTL:        duration{15 * time.Second},
		},
		LogLevel: "info",
	}
}

// ApplyClusterPreset fills program ids for the named cluster when they are
// not set explicitly. "custom" leaves everything as configured.
func (c *Config) ApplyClusterPreset() {
	switch strings.ToLower(c.Cluster.Name) {
	case "mainnet":
		if c.Cluster.ProgramID == "" || c.Cluster.ProgramID == devnetProgramID {
			c.Cluster.ProgramID = mainnetProgramID
		}
		if c.Cluster.RPCURL == "" || strings.Contains(c.Cluster.RPCURL, "devnet") {
			c.Cluster.RPCURL = "https://api.mainnet-beta.solana.com"
			c.Cluster.WSURL = "wss://api.mainnet-beta.solana.com"
		}
	case "devnet":
		if c.Cluster.ProgramID == "" {
			c.Cluster.ProgramID = devnetProgramID
		}
	}
	if c.Cluster.OracleProgramID == "" {
		c.Cluster.OracleProgramID = oracleProgramID
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validClusters = map[string]bool{
	"devnet":  true,
	"mainnet": true,
	"custom":  true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validClusters[strings.ToLower(c.Cluster.Name)] {
		errs = append(errs, fmt.Sprintf("unknown cluster %q (valid: devnet, mainnet, custom)", c.Cluster.Name))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Cluster.RPCURL == "" {
		errs = append(errs, "cluster: rpc_url must not be empty")
	}
	if c.Cluster.ProgramID == "" {
		errs = append(errs, "cluster: program_id must not be empty")
	}
	if c.Cluster.OracleProgramID == "" {
		errs = append(errs, "cluster: oracle_program_id must not be empty")
	}

	// Wallet: exactly one keypair source.
	sources := 0
	if c.Wallet.KeypairPath != "" {
		sources++
	}
	if c.Wallet.KeypairBase58 != "" {
		sources++
	}
	if c.Wallet.EncryptedKeyPath != "" {
		sources++
	}
	if sources == 0 {
		errs = append(errs, "wallet: one of keypair_path, keypair_base58, or encrypted_key_path must be set")
	}
	if sources > 1 {
		errs = append(errs, "wallet: keypair_path, keypair_base58, and encrypted_key_path are mutually exclusive")
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	if c.Postgres.Enabled {
		if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "" || c.Postgres.User == "") {
			errs = append(errs, "postgres: dsn or host/database/user must be set when enabled")
		}
		if c.Postgres.PoolMaxConns < c.Postgres.PoolMinConns {
			errs = append(errs, "postgres: pool_max_conns must be >= pool_min_conns")
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when enabled")
	}

	if c.Submit.ConfirmPollInterval.Duration <= 0 {
		errs = append(errs, "submit: confirm_poll_interval must be positive")
	}
	if c.Submit.ConfirmTimeout.Duration <= 0 {
		errs = append(errs, "submit: confirm_timeout must be positive")
	}
	if c.Settlement.SweepDelaySeconds < 0 {
		errs = append(errs, "settlement: sweep_delay_seconds must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
