package middleware

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	coreconfig "github.com/m3rciful/funnelbot/core/config"
	"github.com/m3rciful/funnelbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	// Interval is the minimum gap between two updates of one user.
	Interval time.Duration
	// Exclude lists update kinds that bypass the limit (see updateKind).
	Exclude   []string
	OnLimited tele.HandlerFunc

	now func() time.Time
}

// RateLimitMiddleware drops updates that arrive less than Interval after the
// previous accepted update of the same user. Dropped updates do not move the
// window.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	lim := &limiter{interval: opts.Interval, last: make(map[int64]time.Time)}
	now := opts.now
	if now == nil {
		now = time.Now
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 || excluded(opts.Exclude, updateKind(c.Update())) {
				return next(c)
			}
			if lim.allow(user.ID, now()) {
				return next(c)
			}
			logger.Warn(UpdateContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.Duration("delay", opts.Interval),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return coreconfig.UpdateCallback
	case upd.Message != nil:
		return coreconfig.UpdateMessage
	case upd.Query != nil:
		return coreconfig.UpdateInlineQuery
	}
	return "other"
}

func excluded(kinds []string, kind string) bool {
	return slices.ContainsFunc(kinds, func(k string) bool {
		return strings.EqualFold(strings.TrimSpace(k), kind)
	})
}

// limiter remembers the last accepted update per user. Entries idle for a
// full interval are swept at most once per interval.
type limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[int64]time.Time
	swept    time.Time
}

func (l *limiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) >= l.interval {
		for id, at := range l.last {
			if now.Sub(at) >= l.interval {
				delete(l.last, id)
			}
		}
		l.swept = now
	}
	if at, ok := l.last[userID]; ok && now.Sub(at) < l.interval {
		return false
	}
	l.last[userID] = now
	return true
}
