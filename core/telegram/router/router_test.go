package router

import (
	"errors"
	"fmt"
	"testing"

	tg "github.com/m3rciful/funnelbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

func offlineContext(t *testing.T, userID int64, text string) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("offline bot: %v", err)
	}
	return bot.NewContext(tele.Update{
		ID: int(userID),
		Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID},
			Text:   text,
		},
	})
}

func routeFor(t *testing.T, routes []tg.Route, endpoint any) tele.HandlerFunc {
	t.Helper()
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	t.Fatalf("no route for %v", endpoint)
	return nil
}

func TestCommandRoutesEnforceAdmin(t *testing.T) {
	var calls, rejected int
	reg := tg.NewRegistry()
	reg.RegisterCommand("/send_all", tg.Command{
		Handler:     func(tele.Context) error { calls++; return nil },
		Description: "broadcast",
		AdminOnly:   true,
	})
	routes := CommandRoutes(reg, CommandRouteOptions{
		AdminID:       1,
		OnAdminReject: func(tele.Context) error { rejected++; return nil },
	})
	h := routeFor(t, routes, "/send_all")

	_ = h(offlineContext(t, 1, "/send_all hi"))
	_ = h(offlineContext(t, 2, "/send_all hi"))
	if calls != 1 || rejected != 1 {
		t.Fatalf("calls=%d rejected=%d", calls, rejected)
	}
}

func TestCommandRoutesReturnHandlerError(t *testing.T) {
	boom := errors.New("boom")
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", tg.Command{
		Handler:     func(tele.Context) error { return boom },
		Description: "start",
	})
	h := routeFor(t, CommandRoutes(reg, CommandRouteOptions{}), "/start")
	if err := h(offlineContext(t, 3, "/start")); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestTextRoutesUseRegistryFallback(t *testing.T) {
	var got string
	reg := tg.NewRegistry()
	reg.SetTextFallback(func(c tele.Context) error { got = c.Text(); return nil })

	h := routeFor(t, TextRoutes(reg, TextOptions{}), tele.OnText)
	if err := h(offlineContext(t, 4, "готово")); err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if got != "готово" {
		t.Fatalf("fallback saw %q", got)
	}
}

func TestTextRoutesUnknownText(t *testing.T) {
	var unknown int
	h := routeFor(t, TextRoutes(nil, TextOptions{
		UnknownText: func(tele.Context) error { unknown++; return nil },
	}), tele.OnText)
	_ = h(offlineContext(t, 5, "hi"))
	if unknown != 1 {
		t.Fatalf("unknown=%d", unknown)
	}
	if err := routeFor(t, TextRoutes(nil, TextOptions{}), tele.OnText)(offlineContext(t, 6, "hi")); err != nil {
		t.Fatalf("unexpected err %v", err)
	}
}

func TestHandlerName(t *testing.T) {
	if got := handlerName(" /Send All "); got != "send_all" {
		t.Fatalf("got %q", got)
	}
	if got := handlerName(""); got != "unknown" {
		t.Fatalf("got %q", got)
	}
}

type codedErr struct{}

func (codedErr) Error() string { return "x" }
func (codedErr) Code() string  { return "check failed" }

func TestErrorCode(t *testing.T) {
	if got := errorCode(codedErr{}); got != "CHECK_FAILED" {
		t.Fatalf("got %q", got)
	}
	if got := errorCode(errors.New("x")); got != "ERRORSTRING" {
		t.Fatalf("got %q", got)
	}
	if got := errorCode(fmt.Errorf("send guide: %w", codedErr{})); got != "CHECK_FAILED" {
		t.Fatalf("wrapped coded error: got %q", got)
	}
	if got := errorCode(fmt.Errorf("send guide: %w", errors.New("x"))); got != "ERRORSTRING" {
		t.Fatalf("wrapped error: got %q", got)
	}
}
