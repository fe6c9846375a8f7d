package cli

import (
	"context"

	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete shop holdings whose item no longer exists",
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env) error {
		res, err := service.NewSweeper(e.store, e.log).Sweep(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	}),
}

func init() {
	RootCmd.AddCommand(sweepCmd)
}
