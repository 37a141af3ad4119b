// Package conversation drives the funnel: it turns one inbound event into the
// outbound sends and registry/reminder side effects that event calls for.
//
// The router keeps no per-user state of its own. Whether a user has received
// the guide is inferred from the registry; an unlocked planner is never
// recorded, so "готово" can be repeated and every success resends it.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/funnelbot/bot/assets"
	"github.com/m3rciful/funnelbot/bot/membership"
	"github.com/m3rciful/funnelbot/bot/users"
	"github.com/m3rciful/funnelbot/core/logger"
)

const component = "funnel"

// DefaultReminderDelay is how long after /start the follow-up is sent.
const DefaultReminderDelay = time.Hour

// Sender performs outbound sends to a chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, doc assets.Document) error
}

// Registry is the subset of the user registry the router needs.
type Registry interface {
	UpsertIfAbsent(ctx context.Context, chatID int64, name, handle string) (bool, error)
}

// Reminders schedules the deferred follow-up.
type Reminders interface {
	Schedule(chatID int64, delay time.Duration, action func())
}

// Verifier answers the subscription check.
type Verifier interface {
	Check(ctx context.Context, channelID string, userID int64) membership.Result
}

// Broadcaster fans a text out to every user.
type Broadcaster interface {
	BroadcastAll(ctx context.Context, text string) (int, error)
}

// Deps are the collaborators the router drives.
type Deps struct {
	Sender      Sender
	Registry    Registry
	Reminders   Reminders
	Verifier    Verifier
	Broadcaster Broadcaster
}

// Options configure the router.
type Options struct {
	// ChannelID is the channel users must join, numeric id or @username.
	ChannelID string
	// OperatorChatID receives forwarded feedback.
	OperatorChatID int64
	ReminderDelay  time.Duration
	Guide          assets.Document
	Planner        assets.Document
	Texts          Texts
	// FallbackReply sends Texts.Fallback to the chat when handling fails.
	FallbackReply bool
}

// Router dispatches events in a fixed priority order: broadcast, start,
// the two keywords, then free-text feedback.
type Router struct {
	deps  Deps
	opts  Options
	texts Texts
}

// NewRouter validates deps and applies option defaults.
func NewRouter(deps Deps, opts Options) (*Router, error) {
	switch {
	case deps.Sender == nil:
		return nil, errors.New("conversation: nil sender")
	case deps.Registry == nil:
		return nil, errors.New("conversation: nil registry")
	case deps.Reminders == nil:
		return nil, errors.New("conversation: nil reminders")
	case deps.Verifier == nil:
		return nil, errors.New("conversation: nil verifier")
	case deps.Broadcaster == nil:
		return nil, errors.New("conversation: nil broadcaster")
	}
	if opts.ReminderDelay <= 0 {
		opts.ReminderDelay = DefaultReminderDelay
	}
	return &Router{deps: deps, opts: opts, texts: opts.Texts.withDefaults()}, nil
}

// Handle processes a single event. Sends within one event are issued in
// order and each is awaited before the next. Errors are returned after the
// fallback reply; /start still registers the user when its sends fail.
func (r *Router) Handle(ctx context.Context, ev Event) error {
	if ev == nil {
		return errors.New("conversation: nil event")
	}
	start := time.Now()
	ctx = logger.WithEventKind(ctx, ev.kind())

	var (
		chatID int64
		err    error
	)
	switch e := ev.(type) {
	case BroadcastCommand:
		chatID = e.IssuerChatID
		err = r.handleBroadcast(ctx, e)
	case Start:
		chatID = e.ChatID
		err = r.handleStart(ctx, e)
	case Text:
		chatID = e.ChatID
		err = r.handleText(ctx, e)
	default:
		return fmt.Errorf("conversation: unsupported event %T", ev)
	}

	if err != nil {
		logger.Warn(ctx, component, "route.fail",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.Duration("duration", logger.Took(start)),
		)
		r.sendFallback(ctx, chatID)
		return err
	}
	logger.Debug(ctx, component, "route.done",
		slog.String("status", "ok"),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func (r *Router) handleBroadcast(ctx context.Context, e BroadcastCommand) error {
	if strings.TrimSpace(e.Body) == "" {
		return r.deps.Sender.SendText(ctx, e.IssuerChatID, r.texts.BroadcastUsage)
	}
	n, err := r.deps.Broadcaster.BroadcastAll(ctx, e.Body)
	if err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	logger.Info(ctx, component, "route.broadcast",
		slog.String("status", "ok"),
		slog.Int("recipients", n),
	)
	return r.deps.Sender.SendText(ctx, e.IssuerChatID, r.texts.BroadcastDone)
}

// handleStart attempts both sends, then registers the user and schedules
// the follow-up even when a send failed. A persistence error aborts before
// scheduling; send errors are returned after the reminder is armed.
func (r *Router) handleStart(ctx context.Context, e Start) error {
	var sendErr error
	if err := r.deps.Sender.SendText(ctx, e.ChatID, r.texts.Welcome); err != nil {
		sendErr = fmt.Errorf("send welcome: %w", err)
	}
	if err := r.deps.Sender.SendDocument(ctx, e.ChatID, r.opts.Guide); err != nil {
		sendErr = errors.Join(sendErr, fmt.Errorf("send guide: %w", err))
	}
	created, err := r.deps.Registry.UpsertIfAbsent(ctx, e.ChatID, e.FromName, e.FromHandle)
	if err != nil {
		return errors.Join(sendErr, err)
	}

	chatID := e.ChatID
	detached := context.WithoutCancel(ctx)
	r.deps.Reminders.Schedule(chatID, r.opts.ReminderDelay, func() {
		if err := r.deps.Sender.SendText(detached, chatID, r.texts.FollowUp); err != nil {
			logger.Warn(detached, component, "reminder.send_failed",
				slog.String("status", "fail"),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
	})

	// The stage the user arrived in: a replayed /start comes from guided.
	var known *users.User
	if !created {
		known = &users.User{ChatID: chatID}
	}
	logger.Info(ctx, component, "route.start",
		slog.String("status", logger.Status(sendErr)),
		slog.String("stage", string(DeriveStage(known, membership.Unchecked))),
		slog.Duration("delay", r.opts.ReminderDelay),
	)
	return sendErr
}

func (r *Router) handleText(ctx context.Context, e Text) error {
	switch Normalize(e.Body) {
	case KeywordPlanning:
		return r.deps.Sender.SendText(ctx, e.ChatID, r.texts.Gate)
	case KeywordDone:
		return r.handleDone(ctx, e)
	case "":
		logger.Debug(ctx, component, "route.skip", slog.String("status", "skip"))
		return nil
	}
	return r.handleFeedback(ctx, e)
}

func (r *Router) handleDone(ctx context.Context, e Text) error {
	res := r.deps.Verifier.Check(ctx, r.opts.ChannelID, e.FromID)
	if res != membership.Subscribed {
		level := slog.LevelInfo
		if res == membership.CheckFailed {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, component, "route.done_keyword",
			slog.String("membership", res.String()),
			slog.String("channel_id", r.opts.ChannelID),
		)
		return r.deps.Sender.SendText(ctx, e.ChatID, r.texts.Retry)
	}

	logger.Info(ctx, component, "route.done_keyword",
		slog.String("membership", res.String()),
		slog.String("stage", string(DeriveStage(nil, res))),
	)
	if err := r.deps.Sender.SendText(ctx, e.ChatID, r.texts.Thanks); err != nil {
		return fmt.Errorf("send thanks: %w", err)
	}
	if err := r.deps.Sender.SendDocument(ctx, e.ChatID, r.opts.Planner); err != nil {
		return fmt.Errorf("send planner: %w", err)
	}
	return nil
}

func (r *Router) handleFeedback(ctx context.Context, e Text) error {
	note := operatorNote(e.FromHandle, e.FromID, e.Body)
	if err := r.deps.Sender.SendText(ctx, r.opts.OperatorChatID, note); err != nil {
		return fmt.Errorf("forward feedback: %w", err)
	}
	logger.Info(ctx, component, "route.feedback",
		slog.String("status", "ok"),
		slog.Int64("operator_chat_id", r.opts.OperatorChatID),
	)
	return r.deps.Sender.SendText(ctx, e.ChatID, r.texts.FeedbackThanks)
}

func (r *Router) sendFallback(ctx context.Context, chatID int64) {
	if !r.opts.FallbackReply || chatID == 0 {
		return
	}
	if err := r.deps.Sender.SendText(ctx, chatID, r.texts.Fallback); err != nil {
		logger.Debug(ctx, component, "fallback.send_failed", slog.String("err", err.Error()))
	}
}
