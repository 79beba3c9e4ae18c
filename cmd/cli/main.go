package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/cmd/cli/commands"
	"github.com/jakechorley/volunteer-shifts/internal/config"
	"github.com/jakechorley/volunteer-shifts/pkg/utils/logging"
)

var (
	env string
	app *commands.AppContext
)

func main() {
	app = &commands.AppContext{}

	rootCmd := &cobra.Command{
		Use:   "volunteer-shifts",
		Short: "Volunteer Shifts CLI - Manage event shifts and bookings",
		Long:  `A CLI tool for defining events and shifts, booking volunteers, reviewing requests, and serving the booking API.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if err := app.Close(); err != nil && app.Logger != nil {
				app.Logger.Error("Failed to close application", zap.Error(err))
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.SeedCmd(app))
	rootCmd.AddCommand(commands.DefineEventCmd(app))
	rootCmd.AddCommand(commands.EventStateCmd(app))
	rootCmd.AddCommand(commands.DefineRoleCmd(app))
	rootCmd.AddCommand(commands.DefineShiftCmd(app))
	rootCmd.AddCommand(commands.GenerateShiftsCmd(app))
	rootCmd.AddCommand(commands.ShiftsCmd(app))
	rootCmd.AddCommand(commands.BookCmd(app))
	rootCmd.AddCommand(commands.CancelCmd(app))
	rootCmd.AddCommand(commands.ReviewCmd(app))
	rootCmd.AddCommand(commands.AttendanceCmd(app))
	rootCmd.AddCommand(commands.CapacityCmd(app))
	rootCmd.AddCommand(commands.CoordinatorCmd(app))
	rootCmd.AddCommand(commands.RescheduleCmd(app))
	rootCmd.AddCommand(commands.DeleteShiftCmd(app))
	rootCmd.AddCommand(commands.MyBookingsCmd(app))
	rootCmd.AddCommand(commands.PendingCmd(app))
	rootCmd.AddCommand(commands.RosterCmd(app))
	rootCmd.AddCommand(commands.MetricsCmd(app))
	rootCmd.AddCommand(commands.TokenCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, store, notifiers and the booking service
func initApp() error {
	var err error
	app.Env = env
	app.Ctx = context.Background()

	app.Logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	if err := app.Init(); err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	app.Logger.Debug("Application initialized successfully")

	return nil
}
