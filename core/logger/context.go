package logger

import (
	"context"
	"strconv"
	"strings"
)

// Fields are the correlation identifiers attached to a context. The handler
// copies every non-zero field into each record logged with that context.
type Fields struct {
	RID       string
	UpdateID  int
	UserID    int64
	ChatID    int64
	Handler   string
	EventKind string
}

type fieldsKey struct{}

// WithFields overlays the non-zero members of f onto the fields already
// carried by ctx.
func WithFields(ctx context.Context, f Fields) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	merged := FieldsFrom(ctx)
	if f.RID != "" {
		merged.RID = f.RID
	}
	if f.UpdateID != 0 {
		merged.UpdateID = f.UpdateID
	}
	if f.UserID != 0 {
		merged.UserID = f.UserID
	}
	if f.ChatID != 0 {
		merged.ChatID = f.ChatID
	}
	if f.Handler != "" {
		merged.Handler = f.Handler
	}
	if f.EventKind != "" {
		merged.EventKind = f.EventKind
	}
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// FieldsFrom returns the fields carried by ctx, or the zero value.
func FieldsFrom(ctx context.Context) Fields {
	if ctx == nil {
		return Fields{}
	}
	f, _ := ctx.Value(fieldsKey{}).(Fields)
	return f
}

// WithChat scopes ctx to a chat outside of any update, e.g. a timer callback.
func WithChat(ctx context.Context, chatID int64) context.Context {
	return WithFields(ctx, Fields{ChatID: chatID})
}

// WithHandler records the route that is serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	return WithFields(ctx, Fields{Handler: handler})
}

// WithEventKind records which funnel event the update was turned into.
func WithEventKind(ctx context.Context, kind string) context.Context {
	return WithFields(ctx, Fields{EventKind: kind})
}

// NewRID builds the correlation id of an update: update, chat and user ids
// in base36 joined by dots.
func NewRID(updateID int, chatID, userID int64) string {
	parts := []string{
		strconv.FormatInt(int64(updateID), 36),
		strconv.FormatInt(chatID, 36),
		strconv.FormatInt(userID, 36),
	}
	return strings.Join(parts, ".")
}

func (f Fields) each(fn func(key string, val any)) {
	if f.RID != "" {
		fn("rid", f.RID)
	}
	if f.UpdateID != 0 {
		fn("update_id", int64(f.UpdateID))
	}
	if f.UserID != 0 {
		fn("user_id", f.UserID)
	}
	if f.ChatID != 0 {
		fn("chat_id", f.ChatID)
	}
	if f.Handler != "" {
		fn("handler", f.Handler)
	}
	if f.EventKind != "" {
		fn("event_kind", f.EventKind)
	}
}
