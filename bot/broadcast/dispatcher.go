// Package broadcast fans a text out to every registered user.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/funnelbot/bot/users"
	"github.com/m3rciful/funnelbot/core/logger"
	tgsender "github.com/m3rciful/funnelbot/core/telegram/sender"
)

const component = "service.broadcast"

// Directory lists every known user.
type Directory interface {
	All(ctx context.Context) ([]users.User, error)
}

// TextSender delivers a single text message.
type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Queue accepts jobs without waiting for them to run.
type Queue interface {
	Enqueue(ctx context.Context, action, endpoint string, run func(ctx context.Context) error) error
}

// Dispatcher issues one independent send per user. Results of individual
// sends are never reported back to the caller.
type Dispatcher struct {
	users  Directory
	sender TextSender
	queue  Queue
}

// NewDispatcher wires a dispatcher. A nil queue makes every send synchronous.
func NewDispatcher(dir Directory, sender TextSender, queue Queue) *Dispatcher {
	return &Dispatcher{users: dir, sender: sender, queue: queue}
}

// BroadcastAll snapshots the registry and issues a send of text to every
// user. It returns the number of sends issued; only a failed snapshot is an
// error.
func (d *Dispatcher) BroadcastAll(ctx context.Context, text string) (int, error) {
	all, err := d.users.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	queued := 0
	for _, u := range all {
		chatID := u.ChatID
		run := func(ctx context.Context) error {
			return d.sender.SendText(ctx, chatID, text)
		}
		if d.enqueue(ctx, run) {
			queued++
			continue
		}
		if err := run(ctx); err != nil {
			logger.Warn(logger.WithChat(ctx, chatID), component, "broadcast.send_failed",
				slog.String("status", "fail"),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
	}

	logger.Info(ctx, component, "broadcast.dispatched",
		slog.String("status", "ok"),
		slog.Int("recipients", len(all)),
		slog.Int("queued", queued),
	)
	return len(all), nil
}

func (d *Dispatcher) enqueue(ctx context.Context, run func(ctx context.Context) error) bool {
	if d.queue == nil {
		return false
	}
	err := d.queue.Enqueue(ctx, "broadcast", "sendMessage", run)
	switch {
	case err == nil:
		return true
	case errors.Is(err, tgsender.ErrQueueFull), errors.Is(err, tgsender.ErrQueueClosed):
		logger.Debug(ctx, component, "broadcast.inline", slog.String("cause", err.Error()))
		return false
	default:
		logger.Warn(ctx, component, "broadcast.enqueue_failed", slog.String("err", err.Error()))
		return false
	}
}
