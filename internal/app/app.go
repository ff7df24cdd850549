// Package app wires configuration into the database pool and the import
// service shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/enrollment/internal/archive"
	"github.com/JonMunkholm/enrollment/internal/config"
	"github.com/JonMunkholm/enrollment/internal/core"
	"github.com/JonMunkholm/enrollment/internal/store/postgres"
)

// OpenPool connects to the database and verifies the connection. The
// schema is applied first when cfg.AutoMigrate is set.
func OpenPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	slog.Info("connected to database", "name", databaseName(cfg.URL))

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		slog.Info("database schema applied")
	}
	return pool, nil
}

func databaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// ServiceOptions maps configuration onto core.Options. The archiver is left
// unset; see NewService.
func ServiceOptions(cfg *config.Config) (core.Options, error) {
	amount, err := decimal.NewFromString(cfg.Fee.RegistrationAmount)
	if err != nil {
		return core.Options{}, fmt.Errorf("FEE_REGISTRATION_AMOUNT: %w", err)
	}
	return core.Options{
		MaxFileSize:          cfg.Import.MaxFileSize,
		MaxRows:              cfg.Import.MaxRows,
		MaxConcurrent:        cfg.Import.MaxConcurrent,
		MaxWaitTime:          cfg.Import.MaxWaitTime,
		CommitTimeout:        cfg.Import.CommitTimeout,
		SessionTTL:           cfg.Session.TTL,
		AllocatorMaxAttempts: cfg.Import.AllocatorMaxAttempts,
		IntraBatchDuplicates: cfg.Import.IntraBatchDuplicates,
		AcceptXLSX:           cfg.Import.AcceptXLSX,
		BcryptCost:           cfg.Import.BcryptCost,
		Fee: core.FeePolicy{
			Amount:  amount.Round(2),
			DueDays: cfg.Fee.RegistrationDueDays,
		},
	}, nil
}

// NewService builds the import service on store. When an archive endpoint
// is configured, committed files are copied to object storage.
func NewService(ctx context.Context, cfg *config.Config, store core.Store) (*core.Service, error) {
	opts, err := ServiceOptions(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Archive.Enabled() {
		archiver, err := archive.NewMinIOArchiver(ctx, cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		opts.Archiver = archiver
		slog.Info("import archive enabled", "endpoint", cfg.Archive.Endpoint, "bucket", cfg.Archive.Bucket)
	}
	return core.NewService(store, opts), nil
}
