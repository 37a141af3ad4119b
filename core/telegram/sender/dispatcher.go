// Package sender runs outbound Telegram calls that nobody waits for, such
// as broadcast fan-out, on a small worker pool.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/funnelbot/core/logger"
)

const component = "tg.sender"

var (
	// ErrQueueClosed is returned when enqueue is attempted after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	QueueSize int
	Workers   int
	// MaxDuration bounds a single job.
	MaxDuration time.Duration
}

// Stats counts finished jobs. Unreachable counts the failures caused by a
// user who blocked the bot or deleted the account.
type Stats struct {
	Processed   uint64
	Failed      uint64
	Unreachable uint64
}

type job struct {
	ctx    context.Context
	action string
	method string
	run    func(ctx context.Context) error
}

// Dispatcher executes jobs on a fixed worker pool. Each job gets exactly one
// attempt; a failure is logged and counted, never returned to whoever
// enqueued it.
type Dispatcher struct {
	opts Options

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup

	processed, failed, unreachable atomic.Uint64
}

// NewDispatcher starts the workers. Zero options fall back to 256 queued
// jobs, 4 workers and 12s per job.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}
	d := &Dispatcher{opts: opts, jobs: make(chan job, opts.QueueSize)}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				d.execute(j)
			}
		}()
	}
	return d
}

// Enqueue hands run to the pool and returns at once. action names the
// caller's intent for logs ("broadcast"), method the Bot API call.
func (d *Dispatcher) Enqueue(ctx context.Context, action, method string, run func(ctx context.Context) error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, method: method, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stats returns the counters so far.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Processed:   d.processed.Load(),
		Failed:      d.failed.Load(),
		Unreachable: d.unreachable.Load(),
	}
}

// Close stops accepting jobs, waits for the queued ones and logs the totals.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
	st := d.Stats()
	logger.Info(context.Background(), component, "pool.closed",
		slog.Uint64("processed", st.Processed),
		slog.Uint64("failed", st.Failed),
		slog.Uint64("unreachable", st.Unreachable),
	)
}

func (d *Dispatcher) execute(j job) {
	defer d.processed.Add(1)

	// The job outlives the update that queued it, so only the deadline is new.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	err := runGuarded(ctx, j.run)
	attrs := []slog.Attr{
		slog.String("action", j.action),
		slog.String("method", j.method),
		slog.Duration("duration", logger.Took(start)),
	}
	if err == nil {
		logger.Debug(j.ctx, component, "send.ok", append(attrs, slog.String("status", "ok"))...)
		return
	}

	d.failed.Add(1)
	code := classifyError(err)
	if code == codeUnreachable {
		d.unreachable.Add(1)
	}
	logger.Warn(j.ctx, component, "send.fail", append(attrs,
		slog.String("status", "fail"),
		slog.String("err", redactToken(err.Error())),
		slog.String("err_code", code),
	)...)
}

func runGuarded(ctx context.Context, run func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("telegram sender: panic: %v", r)
		}
	}()
	return run(ctx)
}
