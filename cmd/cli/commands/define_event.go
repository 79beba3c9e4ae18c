package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/core/services"
)

// DefineEventCmd creates the defineEvent command
func DefineEventCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "defineEvent <slug> <name> <start_date> <end_date>",
		Short: "Define a new event (dates as YYYY-MM-DD)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			location, _ := cmd.Flags().GetString("location")
			country, _ := cmd.Flags().GetString("country")
			description, _ := cmd.Flags().GetString("description")
			state, _ := cmd.Flags().GetString("state")

			event, err := services.DefineEvent(app.Ctx, app.Store, app.Logger, services.EventInput{
				Slug:        args[0],
				Name:        args[1],
				StartDate:   args[2],
				EndDate:     args[3],
				Location:    location,
				Country:     country,
				Description: description,
				State:       model.EventState(state),
			}, app.Cfg.Booking.MaxActiveEvents)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Event created successfully!\n\n")
			fmt.Printf("Event ID: %s\n", event.ID)
			fmt.Printf("Slug:     %s\n", event.Slug)
			fmt.Printf("Dates:    %s to %s\n", event.StartDate, event.EndDate)
			fmt.Printf("State:    %s\n\n", event.State)
			return nil
		},
	}

	cmd.Flags().String("location", "", "Event location")
	cmd.Flags().String("country", "", "Event country")
	cmd.Flags().String("description", "", "Event description")
	cmd.Flags().String("state", string(model.EventActive), "Initial state: active, inactive or archived")

	return cmd
}

// EventStateCmd creates the eventState command
func EventStateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "eventState <event_id> <active|inactive|archived>",
		Short: "Change the state of an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := services.UpdateEventState(app.Ctx, app.Store, app.Logger, args[0], model.EventState(args[1]), app.Cfg.Booking.MaxActiveEvents)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Event %s is now %s\n\n", event.Slug, event.State)
			return nil
		},
	}
}

// DefineRoleCmd creates the defineRole command
func DefineRoleCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "defineRole <event_id> <name>",
		Short: "Define a role of an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			level, _ := cmd.Flags().GetString("experience")
			requiresApproval, _ := cmd.Flags().GetBool("requires-approval")
			hidden, _ := cmd.Flags().GetBool("hidden")

			role, err := services.DefineRole(app.Ctx, app.Store, app.Logger, services.RoleInput{
				EventID:          args[0],
				Name:             args[1],
				Description:      description,
				ExperienceLevel:  model.ExperienceLevel(level),
				RequiresApproval: requiresApproval,
				Hidden:           hidden,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Role created successfully!\n\n")
			fmt.Printf("Role ID:           %s\n", role.ID)
			fmt.Printf("Experience:        %s\n", role.ExperienceLevel)
			fmt.Printf("Requires approval: %t\n", role.RequiresApproval)
			fmt.Printf("Hidden:            %t\n\n", role.Hidden)
			return nil
		},
	}

	cmd.Flags().String("description", "", "Role description")
	cmd.Flags().String("experience", "", "Experience level: new, intermediate or advanced")
	cmd.Flags().Bool("requires-approval", false, "Bookings need staff approval")
	cmd.Flags().Bool("hidden", false, "Only staff can see the role")

	return cmd
}

// DefineShiftCmd creates the defineShift command
func DefineShiftCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "defineShift <event_id> <role_id> <date> <time_slot> <vacancies>",
		Short: "Define a single shift",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			vacancies, err := parseCount("vacancies", args[4])
			if err != nil {
				return err
			}
			coordinators, _ := cmd.Flags().GetString("coordinators")

			shift, err := services.DefineShift(app.Ctx, app.Store, app.Logger, services.ShiftInput{
				EventID:        args[0],
				RoleID:         args[1],
				Date:           args[2],
				TimeSlot:       args[3],
				TotalVacancies: vacancies,
				CoordinatorIDs: splitList(coordinators),
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Shift created successfully!\n\n")
			fmt.Printf("Shift ID:  %s\n", shift.ID)
			fmt.Printf("When:      %s %s\n", shift.Date, shift.TimeSlot)
			fmt.Printf("Vacancies: %d\n\n", shift.TotalVacancies)
			return nil
		},
	}

	cmd.Flags().String("coordinators", "", "Comma-separated user ids coordinating the shift")

	return cmd
}

// splitList splits a comma-separated flag value, dropping blanks
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
