package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-shifts/pkg/core/services"
)

// SeedCmd creates the seed command
func SeedCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Load users, events, roles and shifts from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := services.LoadSeed(args[0])
			if err != nil {
				return err
			}

			result, err := services.ApplySeed(app.Ctx, app.Store, app.Logger, seed, app.Cfg.Booking.MaxActiveEvents)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Seed applied!\n\n")
			fmt.Printf("Users:          %d\n", result.Users)
			fmt.Printf("Events:         %d\n", result.Events)
			fmt.Printf("Roles:          %d\n", result.Roles)
			fmt.Printf("Shifts:         %d\n", result.Shifts)
			fmt.Printf("Shifts skipped: %d\n\n", result.SkippedShifts)
			return nil
		},
	}
}
