package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/funnelbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// receipts remembers recently logged update ids so an update passing the
// middleware twice (global chain and route chain) is logged once.
var receipts = struct {
	sync.Mutex
	seen map[int]time.Time
}{seen: make(map[int]time.Time)}

const receiptTTL = 10 * time.Second

func firstReceipt(updateID int, now time.Time) bool {
	receipts.Lock()
	defer receipts.Unlock()
	for id, at := range receipts.seen {
		if now.Sub(at) > receiptTTL {
			delete(receipts.seen, id)
		}
	}
	if _, dup := receipts.seen[updateID]; dup {
		return false
	}
	receipts.seen[updateID] = now
	return true
}

// LoggerMiddleware attaches the update context to c and writes a sampled
// update.received line.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := UpdateContext(c)
		f := logger.FieldsFrom(ctx)

		if firstReceipt(f.UpdateID, time.Now()) && logger.SampleDebug() {
			attrs := []slog.Attr{slog.String("status", "ok")}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user := c.Sender(); user != nil && user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			if c.Message() != nil {
				if t := c.Text(); t != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
				}
			}
			logger.Debug(ctx, "tg", "update.received", attrs...)
		}
		return next(c)
	}
}
