package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-shifts/pkg/postgres"
)

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, ok := app.Store.(*postgres.DB)
			if !ok {
				// sqlite migrates on open and memory has no schema
				fmt.Printf("Nothing to migrate for the %s driver.\n", app.Cfg.Database.Driver)
				return nil
			}

			if err := pg.RunMigrations(app.Ctx); err != nil {
				return err
			}

			fmt.Printf("\n✓ Migrations applied\n\n")
			return nil
		},
	}
}
