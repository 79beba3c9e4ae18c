package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/core/services"
)

// ShiftsCmd creates the shifts command
func ShiftsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "shifts <event_id> <date>",
		Short: "List the shifts of an event day with live availability",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			listings, err := app.Service.ShiftsForDate(app.Ctx, model.SystemActor, args[0], args[1])
			if err != nil {
				return err
			}

			if len(listings) == 0 {
				fmt.Printf("No shifts on %s.\n", args[1])
				return nil
			}

			fmt.Printf("\nShifts on %s:\n\n", args[1])
			fmt.Printf("%-13s  %-24s  %-10s  %s\n", "Time", "Role", "Free", "Shift ID")
			for _, l := range listings {
				free := fmt.Sprintf("%d/%d", l.Shift.AvailableVacancies, l.Shift.TotalVacancies)
				role := l.Role.Name
				if l.Role.Hidden {
					role += " (hidden)"
				}
				fmt.Printf("%-13s  %-24s  %s%-10s%s  %s%s%s\n",
					l.Shift.TimeSlot, role,
					vacancyColor(l.Shift), free, colorReset,
					colorDim, l.Shift.ID, colorReset)
			}
			fmt.Println()
			return nil
		},
	}
}

// MyBookingsCmd creates the bookings command
func MyBookingsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings <user_id>",
		Short: "List a volunteer's bookings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, _ := cmd.Flags().GetString("event")

			details, err := app.Service.MyBookings(app.Ctx, args[0], eventID)
			if err != nil {
				return err
			}

			if len(details) == 0 {
				fmt.Printf("%s has no bookings.\n", args[0])
				return nil
			}

			fmt.Printf("\nBookings of %s:\n\n", args[0])
			printDetails(details)
			return nil
		},
	}

	cmd.Flags().String("event", "", "Only list bookings of this event")

	return cmd
}

// PendingCmd creates the pending command
func PendingCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending <event_id>",
		Short: "List bookings waiting for staff review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cancellations, _ := cmd.Flags().GetBool("cancellations")

			queue := app.Service.PendingRequests
			title := "Booking requests"
			if cancellations {
				queue = app.Service.PendingCancellations
				title = "Cancellation requests"
			}

			details, err := queue(app.Ctx, model.SystemActor, args[0])
			if err != nil {
				return err
			}

			if len(details) == 0 {
				fmt.Printf("No %s pending.\n", title)
				return nil
			}

			fmt.Printf("\n%s pending review (%d):\n\n", title, len(details))
			printDetails(details)
			return nil
		},
	}

	cmd.Flags().Bool("cancellations", false, "List cancellation requests instead of booking requests")

	return cmd
}

// RosterCmd creates the roster command
func RosterCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "roster <event_id> <date> <time_slot>",
		Short: "Print the confirmed volunteers of a time slot",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := app.Service.Roster(app.Ctx, model.SystemActor, args[0], args[1], args[2])
			if err != nil {
				return err
			}

			fmt.Printf("\nRoster for %s %s (%d volunteers):\n\n", args[1], args[2], len(entries))
			for _, e := range entries {
				fmt.Printf("  %-30s  %-12s  %-15s  %s\n", e.FullName, e.DNI, e.Phone, e.RoleName)
			}
			fmt.Println()
			return nil
		},
	}
}

func printDetails(details []services.BookingDetail) {
	for _, d := range details {
		who := d.Booking.UserID
		if d.User != nil {
			who = d.User.FullName
		}
		fmt.Printf("  %s %-13s  %-24s  %-24s  %s%-22s%s  %s%s%s\n",
			d.Shift.Date, d.Shift.TimeSlot, d.Role.Name, who,
			statusColor(d.Booking.Status), d.Booking.Status, colorReset,
			colorDim, d.Booking.ID, colorReset)
	}
	fmt.Println()
}
