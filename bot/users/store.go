package users

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores when no record matches the chat id.
var ErrNotFound = errors.New("users: not found")

// Store is the persistence boundary of the registry.
type Store interface {
	FindAll(ctx context.Context) ([]User, error)
	FindByChatID(ctx context.Context, chatID int64) (*User, error)
	// Create inserts u, filling ID and timestamps.
	Create(ctx context.Context, u *User) error
}
