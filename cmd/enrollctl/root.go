package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/enrollment/internal/app"
	"github.com/JonMunkholm/enrollment/internal/config"
	"github.com/JonMunkholm/enrollment/internal/core"
	"github.com/JonMunkholm/enrollment/internal/logging"
	"github.com/JonMunkholm/enrollment/internal/store/postgres"
)

// Exit codes.
const (
	exitFailure  = 1
	exitUsage    = 2
	exitRejected = 3 // some rows were invalid or failed to import
)

type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &codedError{code: code, err: err}
}

// env holds the collaborators commands reach outside the process for, so
// tests can replace them.
type env struct {
	loadConfig func() (*config.Config, error)
	openStore  func(ctx context.Context, cfg *config.Config) (core.Store, func(), error)
	migrate    func(ctx context.Context, cfg *config.Config) error
	newService func(ctx context.Context, cfg *config.Config, store core.Store, archive bool) (*core.Service, error)
}

func defaultEnv() *env {
	return &env{
		loadConfig: config.Load,
		openStore: func(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
			pool, err := app.OpenPool(ctx, cfg.Database)
			if err != nil {
				return nil, nil, err
			}
			return postgres.New(pool), pool.Close, nil
		},
		migrate: func(ctx context.Context, cfg *config.Config) error {
			pool, err := pgxpool.New(ctx, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()
			return postgres.Migrate(ctx, pool)
		},
		newService: func(ctx context.Context, cfg *config.Config, store core.Store, archive bool) (*core.Service, error) {
			if archive {
				return app.NewService(ctx, cfg, store)
			}
			opts, err := app.ServiceOptions(cfg)
			if err != nil {
				return nil, err
			}
			return core.NewService(store, opts), nil
		},
	}
}

type globalOptions struct {
	envFile  string
	logLevel string
}

func newRootCmd(e *env) *cobra.Command {
	var g globalOptions

	root := &cobra.Command{
		Use:           "enrollctl",
		Short:         "Validate and import student enrollment files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.envFile != "" {
				// A missing file is fine; the environment may be set already.
				_ = godotenv.Load(g.envFile)
			}
			logging.SetupWriter(cmd.ErrOrStderr(), g.logLevel, "text")
		},
	}
	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "Load environment variables from this file if it exists")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(
		newTemplateCmd(),
		newValidateCmd(e),
		newImportCmd(e),
		newHistoryCmd(e),
		newMigrateCmd(e),
	)
	return root
}

// config reads and validates configuration, marking failures as usage
// errors.
func (e *env) config() (*config.Config, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	return cfg, nil
}

func newTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template",
		Short: "Print the CSV import template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), core.DownloadTemplate())
			return err
		},
	}
}

func newMigrateCmd(e *env) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				_, err := io.WriteString(cmd.OutOrStdout(), postgres.Schema())
				return err
			}
			cfg, err := e.config()
			if err != nil {
				return err
			}
			if err := e.migrate(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the schema instead of applying it")
	return cmd
}
