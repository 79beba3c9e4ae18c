package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

// AttendanceCmd creates the attendance command
func AttendanceCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attendance <booking_id> <pending|attended|absent>",
		Short: "Record whether a volunteer attended their shift",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mark, err := parseAttendance(args[1])
			if err != nil {
				return err
			}

			b, err := app.Service.UpdateAttendance(app.Ctx, model.SystemActor, args[0], mark)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("food") {
				food, _ := cmd.Flags().GetBool("food")
				if b, err = app.Service.UpdateFoodStatus(app.Ctx, model.SystemActor, args[0], food); err != nil {
					return err
				}
			}

			fmt.Printf("\n✓ Attendance recorded\n\n")
			printBooking(b)
			if b.FoodDelivered {
				fmt.Printf("Food delivered\n\n")
			}
			return nil
		},
	}

	cmd.Flags().Bool("food", false, "Also record whether food was delivered")

	return cmd
}

// CapacityCmd creates the capacity command
func CapacityCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "capacity <shift_id> <total_vacancies>",
		Short: "Change the number of vacancies of a shift",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := parseCount("total_vacancies", args[1])
			if err != nil {
				return err
			}

			shift, err := app.Service.UpdateShiftCapacity(app.Ctx, model.SystemActor, args[0], total)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Capacity updated\n\n")
			printShift(shift)
			return nil
		},
	}
}
