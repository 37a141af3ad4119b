// Package reminder keeps at most one tracked follow-up timer per chat.
// Pending reminders live in memory only and are lost on restart.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/funnelbot/core/logger"
)

const component = "service.reminders"

// Scheduler maps chat ids to pending one-shot timers.
type Scheduler struct {
	clock Clock

	mu      sync.Mutex
	pending map[int64]Timer
}

// New returns a scheduler driven by clock; nil means the system clock.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		clock:   clock,
		pending: make(map[int64]Timer),
	}
}

// Schedule runs action once after delay and then drops the entry for chatID.
//
// A timer already tracked for chatID is replaced in the map but not stopped:
// it still fires, and when it does it removes whatever entry chatID holds at
// that moment.
func (s *Scheduler) Schedule(chatID int64, delay time.Duration, action func()) {
	ctx := logger.WithChat(context.Background(), chatID)

	s.mu.Lock()
	_, superseded := s.pending[chatID]
	s.pending[chatID] = s.clock.AfterFunc(delay, func() { s.fire(chatID, action) })
	size := len(s.pending)
	s.mu.Unlock()

	logger.Debug(ctx, component, "reminder.scheduled",
		slog.Duration("delay", delay),
		slog.Bool("superseded", superseded),
		slog.Int("pending", size),
	)
	if superseded {
		logger.Warn(ctx, component, "reminder.superseded",
			slog.String("cause", "previous timer left running"),
		)
	}
}

func (s *Scheduler) fire(chatID int64, action func()) {
	ctx := logger.WithChat(context.Background(), chatID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, component, "reminder.panic", slog.String("err", fmt.Sprint(r)))
		}
		s.mu.Lock()
		delete(s.pending, chatID)
		s.mu.Unlock()
	}()
	action()
	logger.Debug(ctx, component, "reminder.fired", slog.String("status", "ok"))
}

// Cancel stops and forgets the timer tracked for chatID. It reports whether
// an entry existed.
func (s *Scheduler) Cancel(chatID int64) bool {
	s.mu.Lock()
	t, ok := s.pending[chatID]
	if ok {
		delete(s.pending, chatID)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	t.Stop()
	logger.Debug(logger.WithChat(context.Background(), chatID), component, "reminder.cancelled")
	return true
}

// Pending reports whether a timer is tracked for chatID.
func (s *Scheduler) Pending(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[chatID]
	return ok
}

// Len returns the number of tracked timers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
