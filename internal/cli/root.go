// Package cli implements stockctl, the operator tool for the stock
// database: migrations, admin config, sweeps, offline reconcile and export.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopstock/stock-backend/internal/stock/repository"
	"github.com/shopstock/stock-backend/pkg/config"
	"github.com/shopstock/stock-backend/pkg/database"
	"github.com/shopstock/stock-backend/pkg/logger"
	"github.com/spf13/cobra"
)

// ServiceName selects the stockctl config file and log field.
const ServiceName = "stockctl"

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "stockctl",
	Short: "Operate the stock database",
	Long: `stockctl runs maintenance tasks against the stock database.
It talks to PostgreSQL directly and acts with manager rights.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs RootCmd and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log := logger.New(ServiceName, config.EnvDevelopment)
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// env is what a database backed command needs.
type env struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	store *repository.Store
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		e.log.Warn().Err(err).Msg("failed to close database")
	}
}

func open() (*env, error) {
	cfg, err := config.Load(ServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(ServiceName, cfg.Server.Environment)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &env{cfg: cfg, log: log, db: db, store: repository.NewStore(db)}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withEnv opens the database for the duration of run.
func withEnv(run func(ctx context.Context, cmd *cobra.Command, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		e, err := open()
		if err != nil {
			return err
		}
		defer e.Close()
		return run(cmd.Context(), cmd, e)
	}
}
