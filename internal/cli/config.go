package cli

import (
	"context"

	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/spf13/cobra"
)

var (
	// Flags for config set
	allowUploads            bool
	allowUploadDeletions    bool
	allowEmailNotifications bool
	recordsPerPage          int
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the admin config",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the admin config",
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env) error {
		cfg, err := service.NewConfigService(e.store, e.log).Get(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), cfg)
	}),
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change admin flags; only flags given on the command line are applied",
	Example: `  stockctl config set --allow-uploads=false
  stockctl config set --records-per-page 50 --allow-email-notifications`,
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env) error {
		upd := configUpdateFromFlags(cmd)
		cfg, err := service.NewConfigService(e.store, e.log).Update(ctx, actor.SystemActor(), upd)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), cfg)
	}),
}

// configUpdateFromFlags leaves unchanged flags nil.
func configUpdateFromFlags(cmd *cobra.Command) service.ConfigUpdate {
	var upd service.ConfigUpdate
	flags := cmd.Flags()
	if flags.Changed("allow-uploads") {
		upd.AllowUploads = &allowUploads
	}
	if flags.Changed("allow-upload-deletions") {
		upd.AllowUploadDeletions = &allowUploadDeletions
	}
	if flags.Changed("allow-email-notifications") {
		upd.AllowEmailNotifications = &allowEmailNotifications
	}
	if flags.Changed("records-per-page") {
		upd.RecordsPerPage = &recordsPerPage
	}
	return upd
}

func editLockCmd(use, short string, locked bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env) error {
			cfg, err := service.NewConfigService(e.store, e.log).SetEditLock(ctx, actor.SystemActor(), !locked, locked)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"locked": cfg.EditLock, "mode": cfg.Mode()})
		}),
	}
}

func init() {
	configSetCmd.Flags().BoolVar(&allowUploads, "allow-uploads", true, "Accept spreadsheet uploads")
	configSetCmd.Flags().BoolVar(&allowUploadDeletions, "allow-upload-deletions", false, "Let uploads deactivate items and delete holdings")
	configSetCmd.Flags().BoolVar(&allowEmailNotifications, "allow-email-notifications", false, "Mail transfer requests to the warehouse")
	configSetCmd.Flags().IntVar(&recordsPerPage, "records-per-page", 25, "Page size shown to clients")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(editLockCmd("lock", "Put the warehouse into maintenance mode", true))
	configCmd.AddCommand(editLockCmd("unlock", "Return the warehouse to normal mode", false))

	RootCmd.AddCommand(configCmd)
}
