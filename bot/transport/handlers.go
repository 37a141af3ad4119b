package transport

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/m3rciful/funnelbot/bot/conversation"
	"github.com/m3rciful/funnelbot/bot/users"
	"github.com/m3rciful/funnelbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// EventHandler consumes funnel events.
type EventHandler interface {
	Handle(ctx context.Context, ev conversation.Event) error
}

// Handlers converts telebot updates into funnel events.
type Handlers struct {
	next EventHandler
}

// NewHandlers returns handlers feeding next.
func NewHandlers(next EventHandler) *Handlers {
	return &Handlers{next: next}
}

// OnStart handles /start.
func (h *Handlers) OnStart(c tele.Context) error {
	ev := conversation.Start{ChatID: chatID(c)}
	if u := c.Sender(); u != nil {
		ev.FromName = users.DisplayName(u.FirstName, u.LastName)
		ev.FromHandle = u.Username
	}
	return h.next.Handle(middleware.UpdateContext(c), ev)
}

// OnText handles any text message that is not a registered command.
func (h *Handlers) OnText(c tele.Context) error {
	ev := conversation.Text{ChatID: chatID(c), Body: c.Text()}
	if u := c.Sender(); u != nil {
		ev.FromID = u.ID
		ev.FromHandle = u.Username
	}
	return h.next.Handle(middleware.UpdateContext(c), ev)
}

// OnSendAll handles /send_all <text>. The body is everything after the
// command, line breaks included.
func (h *Handlers) OnSendAll(c tele.Context) error {
	ev := conversation.BroadcastCommand{IssuerChatID: chatID(c)}
	if m := c.Message(); m != nil {
		ev.Body = commandBody(m.Text)
	}
	return h.next.Handle(middleware.UpdateContext(c), ev)
}

func chatID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}

// commandBody strips the leading command token ("/cmd" or "/cmd@bot") and
// the one whitespace rune separating it from the body. telebot's Payload
// cannot be used here: it stops at the first line break.
func commandBody(text string) string {
	if !strings.HasPrefix(text, "/") {
		return text
	}
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	_, size := utf8.DecodeRuneInString(text[i:])
	return text[i+size:]
}
