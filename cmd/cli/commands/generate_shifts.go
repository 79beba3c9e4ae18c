package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-shifts/pkg/core/services"
)

// GenerateShiftsCmd creates the generateShifts command
func GenerateShiftsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generateShifts <event_id> <role_id> <pattern>",
		Short: "Create a role's shifts from a configured shift pattern",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, err := app.Cfg.Pattern(args[2])
			if err != nil {
				return err
			}

			result, err := services.GenerateShifts(app.Ctx, app.Store, app.Logger, args[0], args[1], *pattern)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Generated %d shifts from pattern %s (%d already existed)\n\n", len(result.Created), pattern.Name, result.Skipped)
			for _, shift := range result.Created {
				fmt.Printf("  %s  %-13s  %d vacancies\n", shift.Date, shift.TimeSlot, shift.TotalVacancies)
			}
			fmt.Println()
			return nil
		},
	}
}
