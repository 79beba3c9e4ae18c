package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-shifts/pkg/core/metrics"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

// MetricsCmd creates the metrics command
func MetricsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics [event_id]",
		Short: "Show event summaries, or the dashboard of one event",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				summaries, err := app.Service.EventSummaries(app.Ctx)
				if err != nil {
					return err
				}

				fmt.Printf("\n%-24s  %-10s  %10s  %6s  %9s\n", "Event", "State", "Volunteers", "Shifts", "Occupied")
				for _, s := range summaries {
					fmt.Printf("%-24s  %-10s  %10d  %6d  %8d%%\n",
						s.Event.Slug, s.Event.State, s.Volunteers, s.Shifts, s.OccupationPercentage)
				}
				fmt.Println()
				return nil
			}

			dashboard, err := app.Service.Dashboard(app.Ctx, model.SystemActor, args[0])
			if err != nil {
				return err
			}
			printDashboard(dashboard)
			return nil
		},
	}
}

func printDashboard(d *metrics.Dashboard) {
	fmt.Printf("\nDashboard for event %s\n\n", d.EventID)
	fmt.Printf("Vacancies:               %d occupied / %d total (%d free)\n", d.OccupiedVacancies, d.TotalVacancies, d.AvailableVacancies)
	fmt.Printf("Occupation:              %d%%\n", d.OccupationPercentage)
	fmt.Printf("Shifts:                  %d\n", d.TotalShifts)
	fmt.Printf("Volunteers:              %d (%.2f shifts each)\n", d.UniqueVolunteers, d.AvgShiftsPerVolunteer)
	fmt.Printf("Attendance:              %d%%\n", d.AttendancePercentage)
	fmt.Printf("Previous experience:     %d%%\n", d.PreviousExperiencePercentage)
	fmt.Printf("Pending cancellations:   %d\n", d.PendingCancellations)
	fmt.Printf("Pending coord. requests: %d\n", d.PendingCoordinatorRequests)
	fmt.Printf("Waitlist:                %d\n", d.WaitlistCount)

	if len(d.DailyOccupation) > 0 {
		fmt.Printf("\nBy day:\n")
		for _, day := range d.DailyOccupation {
			fmt.Printf("  %s  %3d%%\n", day.Date, day.Occupation)
		}
	}
	if len(d.RoleDistribution) > 0 {
		fmt.Printf("\nBy role:\n")
		for _, r := range d.RoleDistribution {
			fmt.Printf("  %-24s  %d\n", r.RoleName, r.Count)
		}
	}
	fmt.Println()
}
