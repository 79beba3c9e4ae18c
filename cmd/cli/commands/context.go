package commands

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/internal/config"
	"github.com/jakechorley/volunteer-shifts/pkg/clients/gmailclient"
	"github.com/jakechorley/volunteer-shifts/pkg/core/services"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
	"github.com/jakechorley/volunteer-shifts/pkg/notify"
	"github.com/jakechorley/volunteer-shifts/pkg/postgres"
	"github.com/jakechorley/volunteer-shifts/pkg/sqlite"
)

const notificationQueueSize = 256

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env      string
	Cfg      *config.Config
	Store    db.Store
	Service  *services.BookingService
	Notifier notify.Notifier
	Logger   *zap.Logger
	Ctx      context.Context

	closers []func() error
}

// Close releases the notifier queue and the store, in that order
func (app *AppContext) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

// Init opens the configured store and notifiers and builds the booking service
func (app *AppContext) Init() error {
	app.Logger.Info("Opening store", zap.String("driver", app.Cfg.Database.Driver))
	store, err := OpenStore(app.Ctx, app.Cfg.Database)
	if err != nil {
		return err
	}
	app.Store = store
	app.closers = append(app.closers, store.Close)

	notifier, err := app.buildNotifier()
	if err != nil {
		return err
	}
	app.Notifier = notifier

	app.Service = services.NewBookingService(app.Store, app.Notifier, app.Logger)
	return nil
}

// OpenStore opens the persistence store selected by the database config
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case "postgres":
		store, err := postgres.NewDB(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return store, nil
	case "sqlite":
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return db.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown database driver: %q", cfg.Driver)
}

// buildNotifier wires the enabled transports. Each one delivers from its own
// async queue so a slow Gmail or Discord API never holds up a booking.
func (app *AppContext) buildNotifier() (notify.Notifier, error) {
	var notifiers notify.Multi

	emailCfg := app.Cfg.Notifications.Email
	if emailCfg.Enabled {
		app.Logger.Info("Initializing gmail client")
		oauthCfg, err := config.LoadOAuthClientWithEnv(app.Env)
		if err != nil {
			return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
		}
		gmailClient, err := gmailclient.NewClient(app.Ctx, oauthCfg, app.Env, emailCfg.Sender, app.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gmail client: %w", err)
		}

		notifiers = append(notifiers, app.queued(notify.NewEmailNotifier(gmailClient, app.Logger)))
	}

	discordCfg := app.Cfg.Notifications.Discord
	if discordCfg.BotToken != "" {
		app.Logger.Info("Initializing discord session")
		session, err := notify.NewDiscordSession(discordCfg.BotToken)
		if err != nil {
			return nil, err
		}
		// Closed after its queue drains, since closers run in reverse
		app.closers = append(app.closers, session.Close)
		notifiers = append(notifiers, app.queued(notify.NewDiscordNotifier(session, discordCfg.ChannelID)))
	}

	if len(notifiers) == 0 {
		app.Logger.Debug("No notification transports enabled")
		return notify.Nop{}, nil
	}
	return notifiers, nil
}

// queued wraps a transport in an async queue that is drained on Close
func (app *AppContext) queued(transport notify.Notifier) notify.Notifier {
	async := notify.NewAsync(transport, notificationQueueSize, app.Logger)
	app.closers = append(app.closers, async.Close)
	return async
}
