package cli

import (
	"context"

	"github.com/shopstock/stock-backend/internal/stock/repository"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the stock schema",
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env) error {
		if err := repository.Migrate(ctx, e.db); err != nil {
			return err
		}
		e.log.Info().Int("migrations", len(repository.Migrations)).Msg("schema is up to date")
		return nil
	}),
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
