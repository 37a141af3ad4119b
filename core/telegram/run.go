package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/funnelbot/core/config"
	"github.com/m3rciful/funnelbot/core/logger"
	tgsender "github.com/m3rciful/funnelbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware is a named global middleware passed to bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds Handler to Endpoint via bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions configures RunTelegram. Nil Bot, Registry and Dispatcher are
// built from Config and DispatcherOptions.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry
	Bot      *tele.Bot

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	// DisableWebhookCleanup skips removing a stale webhook in polling mode.
	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime is what lifecycle hooks see of the running bot.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram installs middlewares, routes and the command menu, runs
// OnStart and serves updates until ctx is done or the poller stops. OnStop
// runs after serving ends on a context that is no longer cancelled.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}

	builtAt := time.Now()
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	announceMode(ctx, rt.Bot, time.Since(builtAt))
	if !opts.DisableWebhookCleanup && !isWebhook(opts.Config) {
		removeWebhook(ctx, rt.Bot)
	}
	install(rt, opts)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			rt.Dispatcher.Close()
			return err
		}
	}

	runErr := serve(ctx, rt.Bot)
	rt.Dispatcher.Close()
	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	return runErr
}

func newRuntime(opts RunOptions) (Runtime, error) {
	rt := Runtime{Bot: opts.Bot, Dispatcher: opts.Dispatcher, Registry: opts.Registry}
	if rt.Bot == nil {
		bot, err := NewBot(opts.Config)
		if err != nil {
			return Runtime{}, err
		}
		rt.Bot = bot
	}
	if rt.Registry == nil {
		rt.Registry = NewRegistry()
	}
	if rt.Dispatcher == nil {
		rt.Dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	return rt, nil
}

func announceMode(ctx context.Context, bot *tele.Bot, took time.Duration) {
	attrs := []slog.Attr{slog.Duration("duration", logger.RoundMS(took))}
	switch p := bot.Poller.(type) {
	case *tele.Webhook:
		attrs = append(attrs,
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
		)
	case *tele.LongPoller:
		attrs = append(attrs,
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", int(p.Timeout/time.Second)),
		)
	default:
		attrs = append(attrs, slog.String("mode", fmt.Sprintf("%T", p)))
	}
	logger.Info(ctx, "tg", "mode", attrs...)
}

// removeWebhook drops a webhook left by an earlier deployment; Telegram
// refuses getUpdates while one is set. Pending updates are kept.
func removeWebhook(ctx context.Context, bot *tele.Bot) {
	if err := bot.RemoveWebhook(false); err != nil {
		logger.Warn(ctx, "tg", "delete_webhook",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return
	}
	logger.Info(ctx, "tg", "delete_webhook", slog.String("status", "ok"))
}

func install(rt Runtime, opts RunOptions) {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			rt.Bot.Use(mw.Use)
		}
	}
	for _, route := range opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			rt.Bot.Handle(route.Endpoint, route.Handler)
		}
	}
	SetupCommands(rt.Bot, rt.Registry)
}

// serve blocks until the poller stops on its own or ctx is done. Plain
// cancellation is a clean stop; a passed deadline is reported.
func serve(ctx context.Context, bot *tele.Bot) error {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		bot.Start()
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		bot.Stop()
		<-stopped
	}
	if err := ctx.Err(); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
