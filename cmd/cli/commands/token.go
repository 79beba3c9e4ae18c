package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-shifts/pkg/api"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

// TokenCmd creates the token command
func TokenCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <user_id> <volunteer|coordinator|admin|superadmin>",
		Short: "Issue an API token for a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Cfg.Server.JWTSecret == "" {
				return errors.New("server.jwtSecret (or VOLUNTEER_JWT_SECRET) is required to issue tokens")
			}

			role := model.UserRole(args[1])
			if !role.IsValid() {
				return fmt.Errorf("unknown role %q", args[1])
			}
			events, _ := cmd.Flags().GetString("events")

			identity := api.NewIdentity(app.Cfg.Server.JWTSecret, app.Cfg.Server.TokenTTL, app.Logger)
			token, err := identity.IssueToken(model.Actor{
				UserID:          args[0],
				Role:            role,
				ManagedEventIDs: splitList(events),
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Token issued for %s (%s), valid for %s\n\n%s\n\n", args[0], role, app.Cfg.Server.TokenTTL, token)
			return nil
		},
	}

	cmd.Flags().String("events", "", "Comma-separated event ids the user manages")

	return cmd
}
