package middleware

import (
	"context"

	"github.com/m3rciful/funnelbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const updateContextKey = "update_ctx"

// UpdateContext returns the logging context of the update behind c: its
// rid plus update, user and chat ids. The context is built once per update
// and cached on c, so every layer logs under the same rid.
func UpdateContext(c tele.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if ctx, ok := c.Get(updateContextKey).(context.Context); ok {
		return ctx
	}
	f := logger.Fields{UpdateID: c.Update().ID}
	if chat := c.Chat(); chat != nil {
		f.ChatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		f.UserID = user.ID
	}
	f.RID = logger.NewRID(f.UpdateID, f.ChatID, f.UserID)

	ctx := logger.WithFields(context.Background(), f)
	c.Set(updateContextKey, ctx)
	return ctx
}

// TagHandler adds the serving route to the update context of c.
func TagHandler(c tele.Context, handler string) context.Context {
	ctx := logger.WithHandler(UpdateContext(c), handler)
	if c != nil {
		c.Set(updateContextKey, ctx)
	}
	return ctx
}
