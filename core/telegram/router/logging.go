package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/funnelbot/core/logger"
	"github.com/m3rciful/funnelbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// handled runs fn as the named handler and writes one handler.handled line.
// A nil fn means nothing took the update, which is logged as a skip.
func handled(c tele.Context, name string, fn tele.HandlerFunc) error {
	start := time.Now()
	ctx := middleware.TagHandler(c, name)

	var err error
	status := "skip"
	if fn != nil {
		err = fn(c)
		status = logger.Status(err)
	}

	level := slog.LevelInfo
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.Log(ctx, level, "tg", "handler.handled", attrs...)
	return err
}

// handlerName turns an endpoint such as "/send_all" into a log-friendly name.
func handlerName(endpoint string) string {
	name := strings.TrimPrefix(strings.TrimSpace(endpoint), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.Join(strings.Fields(name), "_"))
}

// errorCode prefers a Code() anywhere in the chain, then the type name of
// the innermost wrapped error.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return upperSnake(code)
		}
	}
	for next := errors.Unwrap(err); next != nil; next = errors.Unwrap(err) {
		err = next
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return upperSnake(t.Name())
}

func upperSnake(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), "_"))
}
