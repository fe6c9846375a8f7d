package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopstock/stock-backend/internal/auth/jwt"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// Flags for token
	tokenUsername string
	tokenUserID   string
	tokenEmail    string
	tokenGroups   []string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign an access token for local testing",
	Long: `Token signs an access token with the configured JWT secret. Access
tokens are normally issued by the identity service; this is meant for
development and smoke tests.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(ServiceName)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		id := tokenUserID
		if id == "" {
			id = uuid.NewString()
		}
		token, expiry, err := jwt.NewManager(&cfg.JWT).Issue(&actor.Actor{
			ID:       id,
			Username: tokenUsername,
			Email:    tokenEmail,
			Groups:   tokenGroups,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"access_token": token,
			"expires_at":   expiry.UTC().Format(time.RFC3339),
		})
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenUsername, "username", "u", "", "Username the token speaks for")
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "User ID (random when empty)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email address")
	tokenCmd.Flags().StringSliceVarP(&tokenGroups, "groups", "g", []string{actor.GroupShopUsers}, "Groups, comma separated")
	_ = tokenCmd.MarkFlagRequired("username")

	RootCmd.AddCommand(tokenCmd)
}
