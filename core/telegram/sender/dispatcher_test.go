package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func TestDispatcherRunsEachJobOnce(t *testing.T) {
	d := NewDispatcher(Options{Workers: 3, QueueSize: 8})
	var calls atomic.Int32
	results := []error{nil, errors.New("boom"), tele.ErrBlockedByUser, nil, fmt.Errorf("send: %w", tele.ErrUserIsDeactivated), nil}
	for _, res := range results {
		res := res
		require.NoError(t, d.Enqueue(context.Background(), "broadcast", "sendMessage", func(context.Context) error {
			calls.Add(1)
			return res
		}))
	}
	d.Close()

	assert.Equal(t, int32(6), calls.Load())
	assert.Equal(t, Stats{Processed: 6, Failed: 3, Unreachable: 2}, d.Stats())
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	d.Close()
	d.Close()
	err := d.Enqueue(context.Background(), "broadcast", "", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestDispatcherQueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	defer d.Close()
	defer close(release)

	block := func(context.Context) error {
		close(started)
		<-release
		return nil
	}
	require.NoError(t, d.Enqueue(context.Background(), "broadcast", "", block))
	<-started
	noop := func(context.Context) error { return nil }
	require.NoError(t, d.Enqueue(context.Background(), "broadcast", "", noop), "second job fills the buffer")
	assert.ErrorIs(t, d.Enqueue(context.Background(), "broadcast", "", noop), ErrQueueFull)
}

func TestDispatcherRecoversPanic(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1, MaxDuration: time.Second})
	require.NoError(t, d.Enqueue(context.Background(), "broadcast", "", func(context.Context) error { panic("boom") }))
	d.Close()
	assert.Equal(t, uint64(1), d.Stats().Failed)
}

func TestDispatcherJobOutlivesCancelledCaller(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1, MaxDuration: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ctxErr error
	require.NoError(t, d.Enqueue(ctx, "broadcast", "", func(runCtx context.Context) error {
		ctxErr = runCtx.Err()
		return nil
	}))
	d.Close()
	assert.NoError(t, ctxErr)
	assert.Equal(t, uint64(0), d.Stats().Failed)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{tele.ErrBlockedByUser, "unreachable"},
		{fmt.Errorf("send guide: %w", tele.ErrNotStartedByUser), "unreachable"},
		{tele.ErrChatNotFound, "chat_not_found"},
		{context.DeadlineExceeded, "timeout"},
		{&net.OpError{Op: "dial", Err: errors.New("connection refused")}, "network"},
		{&tele.Error{Code: http.StatusForbidden, Description: "Forbidden: something new"}, "http_4xx"},
		{errors.New("telegram: Bad Gateway (502)"), "http_5xx"},
		{errors.New("weird (x)"), "unknown"},
		{errors.New("weird"), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyError(tt.err), "%v", tt.err)
	}
	// A zero FloodError cannot be printed, so it stays out of the table.
	assert.Equal(t, "flood", classifyError(tele.FloodError{RetryAfter: 3}))
}

func TestRedactToken(t *testing.T) {
	got := redactToken(`Post "https://api.telegram.org/bot123:ABC-def/sendMessage": EOF`)
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": EOF`, got)
}
