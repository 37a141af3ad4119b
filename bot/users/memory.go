package users

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps users in process memory. Like the SQL table it does not
// enforce chat id uniqueness.
type MemoryStore struct {
	mu    sync.RWMutex
	users []User
	now   func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// FindAll returns a snapshot of all records in insertion order.
func (s *MemoryStore) FindAll(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, len(s.users))
	copy(out, s.users)
	return out, nil
}

// FindByChatID returns the first record created for chatID.
func (s *MemoryStore) FindByChatID(_ context.Context, chatID int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ChatID == chatID {
			found := u
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// Create appends u.
func (s *MemoryStore) Create(_ context.Context, u *User) error {
	if u == nil {
		return errors.New("nil user")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := s.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	s.mu.Lock()
	s.users = append(s.users, *u)
	s.mu.Unlock()
	return nil
}
