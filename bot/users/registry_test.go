package users

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countChat(t *testing.T, s Store, chatID int64) int {
	t.Helper()
	all, err := s.FindAll(context.Background())
	require.NoError(t, err)
	n := 0
	for _, u := range all {
		if u.ChatID == chatID {
			n++
		}
	}
	return n
}

func TestUpsertIfAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	reg := NewRegistry(store)

	created, err := reg.UpsertIfAbsent(ctx, 1, "Anna", "anna99")
	require.NoError(t, err)
	assert.True(t, created)

	for i := 0; i < 5; i++ {
		created, err = reg.UpsertIfAbsent(ctx, 1, "Anna Renamed", "other")
		require.NoError(t, err)
		assert.False(t, created)
	}

	assert.Equal(t, 1, countChat(t, store, 1))
	u, err := reg.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Anna", u.Name)
	assert.Equal(t, "anna99", u.Handle)
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())
}

func TestFindByIDMissing(t *testing.T) {
	_, err := NewRegistry(NewMemoryStore()).FindByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

// gatedStore holds every lookup until `parties` lookups are in flight, which
// forces concurrent callers through the check-then-create window together.
type gatedStore struct {
	*MemoryStore
	gate sync.WaitGroup
}

func newGatedStore(parties int) *gatedStore {
	s := &gatedStore{MemoryStore: NewMemoryStore()}
	s.gate.Add(parties)
	return s
}

func (s *gatedStore) FindByChatID(ctx context.Context, chatID int64) (*User, error) {
	u, err := s.MemoryStore.FindByChatID(ctx, chatID)
	s.gate.Done()
	s.gate.Wait()
	return u, err
}

func TestUpsertIfAbsentConcurrentDuplicateWindow(t *testing.T) {
	const parties = 2
	store := newGatedStore(parties)
	reg := NewRegistry(store)

	var wg sync.WaitGroup
	results := make([]bool, parties)
	for i := 0; i < parties; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := reg.UpsertIfAbsent(context.Background(), 7, "Race", "race")
			assert.NoError(t, err)
			results[i] = created
		}(i)
	}
	wg.Wait()

	// Both callers saw absence; duplicates are bounded by the number of
	// overlapping starts, never more.
	dups := countChat(t, store.MemoryStore, 7)
	assert.GreaterOrEqual(t, dups, 1)
	assert.LessOrEqual(t, dups, parties)
	assert.Equal(t, []bool{true, true}, results)

	// Once the window closes, replays create nothing new.
	created, err := NewRegistry(store.MemoryStore).UpsertIfAbsent(context.Background(), 7, "Race", "race")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, dups, countChat(t, store.MemoryStore, 7))
}

type failingStore struct {
	*MemoryStore
	findErr   error
	createErr error
}

func (s *failingStore) FindByChatID(ctx context.Context, chatID int64) (*User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.MemoryStore.FindByChatID(ctx, chatID)
}

func (s *failingStore) Create(ctx context.Context, u *User) error {
	if s.createErr != nil {
		return s.createErr
	}
	return s.MemoryStore.Create(ctx, u)
}

func TestUpsertIfAbsentPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")

	_, err := NewRegistry(&failingStore{MemoryStore: NewMemoryStore(), findErr: boom}).
		UpsertIfAbsent(context.Background(), 1, "", "")
	assert.ErrorIs(t, err, boom)

	_, err = NewRegistry(&failingStore{MemoryStore: NewMemoryStore(), createErr: boom}).
		UpsertIfAbsent(context.Background(), 1, "", "")
	assert.ErrorIs(t, err, boom)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Anna Petrova", DisplayName("Anna", "Petrova"))
	assert.Equal(t, "Anna", DisplayName(" Anna ", ""))
	assert.Equal(t, "", DisplayName("", " "))
}
