package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/core/services"
)

type bookingAction func(ctx context.Context, actor model.Actor, bookingID string) (*model.Booking, error)

// BookCmd creates the book command
func BookCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "book <user_id> <shift_id>",
		Short: "Book a shift on behalf of a volunteer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("book command",
				zap.String("user_id", args[0]),
				zap.String("shift_id", args[1]))

			b, err := app.Service.CreateBookingFor(app.Ctx, model.SystemActor, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Booking created!\n\n")
			printBooking(b)
			return nil
		},
	}
}

// CancelCmd creates the cancel command
func CancelCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <booking_id>",
		Short: "Request cancellation of a confirmed booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := app.Service.RequestCancellation(app.Ctx, model.SystemActor, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Cancellation requested\n\n")
			printBooking(b)
			return nil
		},
	}
}

// ReviewCmd creates the review command
func ReviewCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "review <booking_id> <approve|reject|approve-cancellation|reject-cancellation|approve-coordinator>",
		Short: "Approve or reject a pending booking or cancellation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := reviewAction(app.Service, args[1])
			if err != nil {
				return err
			}

			b, err := action(app.Ctx, model.SystemActor, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Booking reviewed (%s)\n\n", args[1])
			printBooking(b)
			return nil
		},
	}
}

// reviewAction resolves a review decision to the service call that applies it
func reviewAction(svc *services.BookingService, decision string) (bookingAction, error) {
	switch decision {
	case "approve":
		return svc.ApproveRequest, nil
	case "reject":
		return svc.RejectRequest, nil
	case "approve-cancellation":
		return svc.ApproveCancellation, nil
	case "reject-cancellation":
		return svc.RejectCancellation, nil
	case "approve-coordinator":
		return svc.ApproveCoordinatorRequest, nil
	}
	return nil, fmt.Errorf("unknown decision %q", decision)
}

func printBooking(b *model.Booking) {
	fmt.Printf("Booking ID: %s\n", b.ID)
	fmt.Printf("User:       %s\n", b.UserID)
	fmt.Printf("Shift:      %s\n", b.ShiftID)
	fmt.Printf("Status:     %s%s%s\n", statusColor(b.Status), b.Status, colorReset)
	if b.Attendance != model.AttendanceUnset {
		fmt.Printf("Attendance: %s\n", b.Attendance)
	}
	fmt.Println()
}
