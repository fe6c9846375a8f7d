package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/internal/stock/snapshot"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/spf13/cobra"
)

var (
	// Flags for export
	exportDir      string
	exportSnapshot bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the current stock to an .xlsx workbook",
	RunE:  withEnv(runExport),
}

func runExport(ctx context.Context, cmd *cobra.Command, e *env) error {
	exporter := service.NewExporter(e.store, e.cfg.Upload.TimeZone, e.log)
	wb, name, err := exporter.Export(ctx, actor.SystemActor())
	if err != nil {
		return err
	}

	if exportSnapshot {
		if !e.cfg.Snapshot.Enabled() {
			return fmt.Errorf("snapshot storage is not configured")
		}
		client, err := snapshot.NewClient(e.cfg.Snapshot)
		if err != nil {
			return err
		}
		snapshots := snapshot.New(client, e.cfg.Snapshot, e.log)
		if err := snapshots.EnsureBucket(ctx); err != nil {
			return err
		}
		key, err := snapshots.Save(ctx, wb, name)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	}

	path := filepath.Join(exportDir, name)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := wb.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", ".", "Directory the workbook is written to")
	exportCmd.Flags().BoolVar(&exportSnapshot, "snapshot", false, "Store the workbook in the snapshot bucket instead")

	RootCmd.AddCommand(exportCmd)
}
