package transport

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/m3rciful/funnelbot/bot/assets"
	"github.com/m3rciful/funnelbot/bot/conversation"
	"github.com/m3rciful/funnelbot/core/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

type sendCall struct {
	to   string
	what interface{}
}

type fakeAPI struct {
	calls   []sendCall
	sendErr error

	member    *tele.ChatMember
	memberErr error
	chat      string
	user      string
}

func (f *fakeAPI) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.calls = append(f.calls, sendCall{to: to.Recipient(), what: what})
	return &tele.Message{}, f.sendErr
}

func (f *fakeAPI) ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error) {
	f.chat, f.user = chat.Recipient(), user.Recipient()
	return f.member, f.memberErr
}

func TestClientSendText(t *testing.T) {
	api := &fakeAPI{}
	require.NoError(t, NewClient(api).SendText(context.Background(), 42, "hi"))
	require.Len(t, api.calls, 1)
	assert.Equal(t, "42", api.calls[0].to)
	assert.Equal(t, "hi", api.calls[0].what)
}

func TestClientSendDocument(t *testing.T) {
	api := &fakeAPI{}
	doc := assets.Document{Name: assets.PlannerFileName, Data: []byte("png")}
	require.NoError(t, NewClient(api).SendDocument(context.Background(), 42, doc))

	require.Len(t, api.calls, 1)
	sent, ok := api.calls[0].what.(*tele.Document)
	require.True(t, ok)
	assert.Equal(t, assets.PlannerFileName, sent.FileName)
	data, err := io.ReadAll(sent.File.FileReader)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestClientWrapsSendError(t *testing.T) {
	blocked := &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}
	api := &fakeAPI{sendErr: blocked}
	err := NewClient(api).SendText(context.Background(), 1, "x")
	assert.ErrorIs(t, err, blocked)
}

func TestClientHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api := &fakeAPI{}
	assert.ErrorIs(t, NewClient(api).SendText(ctx, 1, "x"), context.Canceled)
	assert.Empty(t, api.calls)
}

func TestClientMemberStatus(t *testing.T) {
	api := &fakeAPI{member: &tele.ChatMember{Role: tele.Member}}
	status, err := NewClient(api).MemberStatus(context.Background(), "@thedreamersguide", 7)
	require.NoError(t, err)
	assert.Equal(t, "member", status)
	assert.Equal(t, "@thedreamersguide", api.chat)
	assert.Equal(t, "7", api.user)

	api = &fakeAPI{memberErr: errors.New("Bad Request: chat not found (400)")}
	_, err = NewClient(api).MemberStatus(context.Background(), "-100123", 7)
	assert.Error(t, err)

	_, err = NewClient(&fakeAPI{}).MemberStatus(context.Background(), "-100123", 7)
	assert.Error(t, err)
}

type captured struct {
	events []conversation.Event
	ctxs   []context.Context
}

func (c *captured) Handle(ctx context.Context, ev conversation.Event) error {
	c.events = append(c.events, ev)
	c.ctxs = append(c.ctxs, ctx)
	return nil
}

// routedBot returns an offline bot that runs handlers inline, so updates
// go through telebot's own command parsing.
func routedBot(t *testing.T, h *Handlers) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)
	bot.Me.Username = "funnelbot"
	bot.Handle("/start", h.OnStart)
	bot.Handle("/send_all", h.OnSendAll)
	bot.Handle(tele.OnText, h.OnText)
	return bot
}

func TestHandlersBuildEvents(t *testing.T) {
	anna := &tele.User{ID: 1, FirstName: "Anna", LastName: "K", Username: "anna99"}
	chat := &tele.Chat{ID: 1, Type: tele.ChatPrivate}
	sink := &captured{}
	bot := routedBot(t, NewHandlers(sink))

	for i, text := range []string{"/start", "  ГОТОВО ", "/send_all hello all"} {
		bot.ProcessUpdate(tele.Update{ID: 100 + i, Message: &tele.Message{Sender: anna, Chat: chat, Text: text}})
	}

	assert.Equal(t, []conversation.Event{
		conversation.Start{ChatID: 1, FromName: "Anna K", FromHandle: "anna99"},
		conversation.Text{ChatID: 1, FromID: 1, FromHandle: "anna99", Body: "  ГОТОВО "},
		conversation.BroadcastCommand{IssuerChatID: 1, Body: "hello all"},
	}, sink.events)
	f := logger.FieldsFrom(sink.ctxs[0])
	assert.Equal(t, int64(1), f.ChatID)
	assert.Equal(t, 100, f.UpdateID)
	assert.Equal(t, logger.NewRID(100, 1, 1), f.RID)
}

func TestSendAllKeepsWholeBody(t *testing.T) {
	admin := &tele.User{ID: 9}
	chat := &tele.Chat{ID: 9, Type: tele.ChatPrivate}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"multi-line", "/send_all Привет!\nНовый пост в канале", "Привет!\nНовый пост в канале"},
		{"bot mention", "/send_all@funnelbot Привет!\n\nВторой абзац", "Привет!\n\nВторой абзац"},
		{"newline separator", "/send_all\nСразу с новой строки", "Сразу с новой строки"},
		{"inner spacing kept", "/send_all  два пробела ", " два пробела "},
		{"no body", "/send_all", ""},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &captured{}
			bot := routedBot(t, NewHandlers(sink))
			bot.ProcessUpdate(tele.Update{ID: i + 1, Message: &tele.Message{Sender: admin, Chat: chat, Text: tt.text}})

			require.Len(t, sink.events, 1)
			assert.Equal(t, conversation.BroadcastCommand{IssuerChatID: 9, Body: tt.want}, sink.events[0])
		})
	}
}

func TestSendAllForOtherBotIsIgnored(t *testing.T) {
	sink := &captured{}
	bot := routedBot(t, NewHandlers(sink))
	bot.ProcessUpdate(tele.Update{ID: 1, Message: &tele.Message{
		Sender: &tele.User{ID: 9},
		Chat:   &tele.Chat{ID: 9, Type: tele.ChatPrivate},
		Text:   "/send_all@otherbot hi",
	}})
	assert.Empty(t, sink.events)
}

func TestCommandBody(t *testing.T) {
	assert.Equal(t, "a\nb", commandBody("/send_all a\nb"))
	assert.Equal(t, "", commandBody("/send_all"))
	assert.Equal(t, "x", commandBody("/send_all\tx"))
	assert.Equal(t, "plain", commandBody("plain"))
}
