package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predictsol/predictsol-go/internal/cache/redis"
	"github.com/predictsol/predictsol-go/internal/config"
	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/keystore"
	"github.com/predictsol/predictsol-go/internal/orchestrator"
	"github.com/predictsol/predictsol-go/internal/pda"
	"github.com/predictsol/predictsol-go/internal/program"
	"github.com/predictsol/predictsol-go/internal/reader"
	"github.com/predictsol/predictsol-go/internal/settlement"
	"github.com/predictsol/predictsol-go/internal/solana"
	"github.com/predictsol/predictsol-go/internal/store/postgres"
	"github.com/predictsol/predictsol-go/internal/submit"
)

// Dependencies bundles everything the command layer needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Wallet       *solana.Wallet
	Deriver      *pda.Deriver
	Reader       *reader.Reader
	Orchestrator *orchestrator.Orchestrator
	Journal      domain.Journal       // nil when postgres is disabled
	Cache        domain.SnapshotCache // nil when redis is disabled
	WS           *solana.WSClient     // nil when no ws_url configured
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Wallet ---
	wallet, err := keystore.LoadWallet(cfg.Wallet)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: wallet: %w", err)
	}
	deps.Wallet = wallet

	// --- Address derivation ---
	programID, err := solana.PublicKeyFromBase58(cfg.Cluster.ProgramID)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: program id: %w", err)
	}
	oracleID, err := solana.PublicKeyFromBase58(cfg.Cluster.OracleProgramID)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: oracle program id: %w", err)
	}
	houseTreasury := wallet.PublicKey()
	if cfg.Cluster.HouseTreasury != "" {
		houseTreasury, err = solana.PublicKeyFromBase58(cfg.Cluster.HouseTreasury)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: house treasury: %w", err)
		}
	}
	deriver := pda.NewDeriver(programID, oracleID)
	deps.Deriver = deriver

	// --- RPC and pubsub ---
	rpc := solana.NewClient(cfg.Cluster.RPCURL)
	if cfg.Cluster.WSURL != "" {
		ws := solana.NewWSClient(cfg.Cluster.WSURL)
		if err := ws.Connect(ctx); err != nil {
			logger.Warn("websocket connect failed; push subscriptions disabled", "error", err)
		} else {
			deps.WS = ws
			closers = append(closers, ws.Close)
		}
	}
	deps.Reader = reader.New(rpc, deps.WS, deriver, logger)

	// --- PostgreSQL journal ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Journal = postgres.NewJournalStore(pgClient.Pool())
	}

	// --- Redis snapshot cache ---
	if cfg.Redis.Enabled {
		cache, err := redis.New(ctx, redis.Config{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = cache.Close() })
		deps.Cache = cache
	}

	// --- Submitter and orchestrator ---
	submitter := submit.New(rpc, wallet, submit.Options{
		Simulate:            cfg.Submit.Simulate,
		ConfirmPollInterval: cfg.Submit.ConfirmPollInterval.Duration,
		ConfirmTimeout:      cfg.Submit.ConfirmTimeout.Duration,
	}, logger)

	builder := program.NewBuilder(deriver, houseTreasury)

	deps.Orchestrator = orchestrator.New(
		deps.Reader,
		submitter,
		builder,
		deriver,
		deps.Journal,
		deps.Cache,
		orchestrator.Config{
			Settlement: settlement.Params{
				SweepDelaySeconds:     cfg.Settlement.SweepDelaySeconds,
				DustToleranceLamports: cfg.Settlement.DustToleranceLamports,
			},
			OracleRewardLamports: cfg.Settlement.OracleRewardLamports,
			AtaPollInterval:      cfg.Orchestra.AtaPollInterval.Duration,
			AtaPollTimeout:       cfg.Orchestra.AtaPollTimeout.Duration,
			CacheTTL:             cfg.Orchestra.CacheTTL.Duration,
		},
		logger,
	)

	return deps, cleanup, nil
}
