package broadcast

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/m3rciful/funnelbot/bot/users"
	tgsender "github.com/m3rciful/funnelbot/core/telegram/sender"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu     sync.Mutex
	sent   []int64
	failOn map[int64]bool
}

func (s *recordingSender) SendText(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, chatID)
	if s.failOn[chatID] {
		return errors.New("Forbidden: bot was blocked by the user (403)")
	}
	return nil
}

func (s *recordingSender) chats() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]int64(nil), s.sent...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type staticDirectory struct {
	list []users.User
	err  error
}

func (d staticDirectory) All(context.Context) ([]users.User, error) { return d.list, d.err }

type closedQueue struct{}

func (closedQueue) Enqueue(context.Context, string, string, func(context.Context) error) error {
	return tgsender.ErrQueueClosed
}

func directoryOf(ids ...int64) staticDirectory {
	var d staticDirectory
	for _, id := range ids {
		d.list = append(d.list, users.User{ChatID: id})
	}
	return d
}

func TestBroadcastAllSurvivesPartialFailure(t *testing.T) {
	pool := tgsender.NewDispatcher(tgsender.Options{Workers: 2, QueueSize: 16})
	sender := &recordingSender{failOn: map[int64]bool{2: true, 4: true}}
	d := NewDispatcher(directoryOf(1, 2, 3, 4, 5), sender, pool)

	n, err := d.BroadcastAll(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	pool.Close()
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, sender.chats())
	assert.Equal(t, tgsender.Stats{Processed: 5, Failed: 2}, pool.Stats())
}

func TestBroadcastAllRunsInlineWhenQueueRejects(t *testing.T) {
	sender := &recordingSender{failOn: map[int64]bool{7: true}}
	d := NewDispatcher(directoryOf(7, 8), sender, closedQueue{})

	n, err := d.BroadcastAll(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{7, 8}, sender.chats())
}

func TestBroadcastAllWithoutQueue(t *testing.T) {
	sender := &recordingSender{}
	n, err := NewDispatcher(directoryOf(), sender, nil).BroadcastAll(context.Background(), "hello")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, sender.chats())
}

func TestBroadcastAllPropagatesListError(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(staticDirectory{err: errors.New("db down")}, sender, nil)

	_, err := d.BroadcastAll(context.Background(), "hello")
	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, sender.chats())
}
