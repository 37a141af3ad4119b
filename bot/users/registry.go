package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/funnelbot/core/logger"
)

const component = "service.users"

// Registry exposes the find and create-once operations used by the funnel.
type Registry struct {
	store Store
}

// NewRegistry builds a registry on top of store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// FindByID returns the user registered for chatID or ErrNotFound.
func (r *Registry) FindByID(ctx context.Context, chatID int64) (*User, error) {
	return r.store.FindByChatID(ctx, chatID)
}

// UpsertIfAbsent creates the record for chatID unless one already exists and
// reports whether it created one. Lookup and insert are separate calls, so two
// concurrent callers can both observe absence and both insert.
func (r *Registry) UpsertIfAbsent(ctx context.Context, chatID int64, name, handle string) (bool, error) {
	_, err := r.store.FindByChatID(ctx, chatID)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, ErrNotFound):
		return false, fmt.Errorf("find user %d: %w", chatID, err)
	}

	u := &User{ChatID: chatID, Name: name, Handle: handle}
	if err := r.store.Create(ctx, u); err != nil {
		return false, fmt.Errorf("create user %d: %w", chatID, err)
	}
	logger.Info(ctx, component, "user.created",
		slog.Int64("chat_id", chatID),
		slog.String("username", handle),
	)
	return true, nil
}

// All returns a snapshot of every registered user.
func (r *Registry) All(ctx context.Context) ([]User, error) {
	list, err := r.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return list, nil
}
