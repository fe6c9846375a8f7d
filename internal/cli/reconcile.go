package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/shopstock/stock-backend/internal/stock/adapter"
	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/internal/stock/sheet"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/spf13/cobra"
)

var (
	// Flags for reconcile
	reconcileFile   string
	reconcileDryRun bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Merge a stock workbook into the database",
	Long: `Reconcile reads an .xlsx workbook and applies it exactly as an upload
through the API would, honouring the allow_uploads and
allow_upload_deletions flags. No stock events are published.

Examples:
  # Preview the changes
  stockctl reconcile --file stock.xlsx --dry-run

  # Apply them
  stockctl reconcile --file stock.xlsx`,
	RunE: withEnv(runReconcile),
}

func runReconcile(ctx context.Context, cmd *cobra.Command, e *env) error {
	f, err := os.Open(reconcileFile)
	if err != nil {
		return err
	}
	defer f.Close()

	wb, err := sheet.Read(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", reconcileFile, err)
	}

	log := e.log.WithComponent("reconcile")
	sweeper := service.NewSweeper(e.store, log)
	rec := service.NewReconciler(e.store, sweeper, adapter.FromConfig(e.cfg.Adapter), nil, log)

	res, err := rec.Upload(ctx, actor.SystemActor(), wb, service.ReconcileOptions{DryRun: reconcileDryRun})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func init() {
	reconcileCmd.Flags().StringVarP(&reconcileFile, "file", "f", "", "Workbook to reconcile")
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "Report the changes and roll back")
	_ = reconcileCmd.MarkFlagRequired("file")

	RootCmd.AddCommand(reconcileCmd)
}
