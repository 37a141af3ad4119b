// Package app wires the funnel components onto the core telegram runtime.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/funnelbot/bot/assets"
	"github.com/m3rciful/funnelbot/bot/broadcast"
	botconfig "github.com/m3rciful/funnelbot/bot/config"
	"github.com/m3rciful/funnelbot/bot/conversation"
	"github.com/m3rciful/funnelbot/bot/membership"
	"github.com/m3rciful/funnelbot/bot/reminder"
	"github.com/m3rciful/funnelbot/bot/transport"
	"github.com/m3rciful/funnelbot/bot/users"
	"github.com/m3rciful/funnelbot/core/bootstrap"
	corecmd "github.com/m3rciful/funnelbot/core/cmd"
	coreconfig "github.com/m3rciful/funnelbot/core/config"
	"github.com/m3rciful/funnelbot/core/health"
	"github.com/m3rciful/funnelbot/core/logger"
	coretelegram "github.com/m3rciful/funnelbot/core/telegram"
	tgrouter "github.com/m3rciful/funnelbot/core/telegram/router"
	tgsender "github.com/m3rciful/funnelbot/core/telegram/sender"
	"github.com/m3rciful/funnelbot/migrations"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"
)

const shutdownTimeout = 5 * time.Second

// App holds the infrastructure produced by bootstrap.
type App struct {
	cfg    *botconfig.Config
	db     *sqlx.DB
	bundle assets.Bundle

	newBot func(*coreconfig.Config) (*tele.Bot, error)
}

// LoadConfig adapts botconfig.Load to the runner.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := botconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap initializes logging, storage and assets.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*botconfig.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:       cfg.CoreConfig(),
		Database:     cfg.Database,
		SkipDatabase: cfg.Storage.Driver == botconfig.StorageMemory,
		Migrations:   migrations.FS,
	})
	if err != nil {
		return nil, err
	}

	bundle, err := assets.LoadBundle(cfg.Funnel.GuidePath, cfg.Funnel.PlannerPath)
	if err != nil {
		if res.DB != nil {
			_ = res.DB.Close()
		}
		return nil, fmt.Errorf("app: %w", err)
	}

	logger.Info(context.Background(), "app", "bootstrap.done",
		slog.String("status", "ok"),
		slog.String("db", cfg.Storage.Driver),
	)
	return newApp(cfg, res.DB, bundle), nil
}

func newApp(cfg *botconfig.Config, db *sqlx.DB, bundle assets.Bundle) *App {
	return &App{
		cfg:    cfg,
		db:     db,
		bundle: bundle,
		newBot: coretelegram.NewBot,
	}
}

func (a *App) userStore() users.Store {
	if a.db != nil {
		return users.NewPostgresStore(a.db)
	}
	return users.NewMemoryStore()
}

// TelegramRunOptions builds the bot, the funnel components and the routes.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := a.cfg.CoreConfig()

	bot, err := a.newBot(core)
	if err != nil {
		return coretelegram.RunOptions{}, err
	}

	pool := tgsender.NewDispatcher(tgsender.Options{Workers: 4, QueueSize: 512})
	client := transport.NewClient(bot)
	registry := users.NewRegistry(a.userStore())

	funnel, err := conversation.NewRouter(conversation.Deps{
		Sender:      client,
		Registry:    registry,
		Reminders:   reminder.New(reminder.SystemClock{}),
		Verifier:    membership.NewVerifier(client),
		Broadcaster: broadcast.NewDispatcher(registry, client, pool),
	}, conversation.Options{
		ChannelID:      a.cfg.Funnel.ChannelID,
		OperatorChatID: a.cfg.Funnel.OperatorChatID,
		ReminderDelay:  a.cfg.Funnel.ReminderDelay,
		Guide:          a.bundle.Guide,
		Planner:        a.bundle.Planner,
		Texts:          conversation.DefaultTexts(a.cfg.Funnel.ChannelURL),
		FallbackReply:  a.cfg.FallbackEnabled(),
	})
	if err != nil {
		pool.Close()
		return coretelegram.RunOptions{}, err
	}

	handlers := transport.NewHandlers(funnel)
	reg := coretelegram.NewRegistry()
	reg.RegisterCommand("/start", coretelegram.Command{
		Handler:     handlers.OnStart,
		Description: "Получить гайд по планированию путешествий",
	})
	reg.RegisterCommand("/send_all", coretelegram.Command{
		Handler:     handlers.OnSendAll,
		Description: "Рассылка всем пользователям",
		AdminOnly:   core.Telegram.AdminID != 0,
		Hidden:      true,
	})
	reg.SetTextFallback(handlers.OnText)

	routes := tgrouter.CommandRoutes(reg, tgrouter.CommandRouteOptions{AdminID: core.Telegram.AdminID})
	routes = append(routes, tgrouter.TextRoutes(reg, tgrouter.TextOptions{})...)

	var listener *health.Server
	return coretelegram.RunOptions{
		Config:      core,
		Registry:    reg,
		Bot:         bot,
		Dispatcher:  pool,
		Middlewares: coretelegram.DefaultMiddlewares(core, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			srv, err := health.Start(ctx, health.Options{
				Listen: core.HTTP.Listen,
				Port:   core.HTTP.Port,
				Checks: a.healthChecks(),
			})
			if err != nil {
				return err
			}
			listener = srv
			return nil
		},
		OnStop: func(ctx context.Context, _ coretelegram.Runtime) error {
			return a.shutdown(ctx, listener)
		},
	}, nil
}

func (a *App) healthChecks() map[string]health.Pinger {
	if a.db == nil {
		return nil
	}
	return map[string]health.Pinger{"db": a.db.PingContext}
}

func (a *App) shutdown(ctx context.Context, listener *health.Server) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var firstErr error
	if err := listener.Shutdown(ctx); err != nil {
		logger.Warn(ctx, "http", "shutdown.failed", slog.String("err", err.Error()))
		firstErr = err
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn(ctx, "db", "close.failed", slog.String("err", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
