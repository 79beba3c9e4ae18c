package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

// CoordinatorCmd creates the coordinator command
func CoordinatorCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "coordinator <assign|remove> <shift_id> <user_id>",
		Short: "Assign or remove a shift coordinator",
		Long: `Assign or remove a shift coordinator.

Assigning promotes a volunteer to the coordinator role. Removing the last
shift a coordinator looks after returns them to the volunteer role.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				shift *model.Shift
				err   error
			)
			switch args[0] {
			case "assign":
				shift, err = app.Service.AssignCoordinator(app.Ctx, model.SystemActor, args[1], args[2])
			case "remove":
				shift, err = app.Service.RemoveCoordinator(app.Ctx, model.SystemActor, args[1], args[2])
			default:
				return fmt.Errorf("unknown coordinator action %q (want assign or remove)", args[0])
			}
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Coordinators updated\n\n")
			printShift(shift)
			return nil
		},
	}
}

// DeleteShiftCmd creates the deleteShift command
func DeleteShiftCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteShift <shift_id>",
		Short: "Delete a shift that has no active bookings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Service.DeleteShift(app.Ctx, model.SystemActor, args[0]); err != nil {
				return err
			}

			fmt.Printf("\n✓ Shift %s deleted\n\n", args[0])
			return nil
		},
	}
}

// RescheduleCmd creates the rescheduleShift command
func RescheduleCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rescheduleShift <shift_id> <date> <time_slot>",
		Short: "Move a shift to another date or time slot and tell its volunteers",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			shift, err := app.Service.RescheduleShift(app.Ctx, model.SystemActor, args[0], args[1], args[2])
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Shift rescheduled\n\n")
			printShift(shift)
			return nil
		},
	}
}

func printShift(shift *model.Shift) {
	fmt.Printf("Shift:        %s (%s %s)\n", shift.ID, shift.Date, shift.TimeSlot)
	fmt.Printf("Vacancies:    %s%d/%d available%s\n",
		vacancyColor(*shift), shift.AvailableVacancies, shift.TotalVacancies, colorReset)
	if len(shift.CoordinatorIDs) > 0 {
		fmt.Printf("Coordinators: %s\n", strings.Join(shift.CoordinatorIDs, ", "))
	}
	fmt.Println()
}
