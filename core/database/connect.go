package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/funnelbot/core/logger"
)

const (
	defaultWait  = 30 * time.Second
	pingInterval = 2 * time.Second
	pingTimeout  = 5 * time.Second
)

type pinger interface {
	PingContext(ctx context.Context) error
}

// Connect opens the postgres pool and pings it until the server answers or
// database.wait_seconds passes, so the bot may start alongside its database.
func Connect(cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.wait())
	defer cancel()

	host, port, name := cfg.Target()
	start := time.Now()
	db, err := sqlx.Open("postgres", cfg.URLString())
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if n := cfg.MaxConnections; n > 0 {
		db.SetMaxOpenConns(n)
		db.SetMaxIdleConns(n)
	}

	attempts, err := pingUntilReady(ctx, db, pingInterval)
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("host", host),
		slog.String("port", port),
		slog.String("db", name),
		slog.Int("attempts", attempts),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		_ = db.Close()
		logger.Error(ctx, "db", "db.connect", append(attrs, slog.String("err", err.Error()))...)
		return nil, fmt.Errorf("db connect: %w", err)
	}
	logger.Info(ctx, "db", "db.connect", append(attrs, slog.Int("pool_open", cfg.MaxConnections))...)
	return db, nil
}

// pingUntilReady pings every interval until one succeeds or ctx ends, and
// returns the number of pings made.
func pingUntilReady(ctx context.Context, db pinger, every time.Duration) (int, error) {
	for attempt := 1; ; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := db.PingContext(pctx)
		cancel()
		if err == nil {
			return attempt, nil
		}

		t := time.NewTimer(every)
		select {
		case <-ctx.Done():
			t.Stop()
			return attempt, fmt.Errorf("database not ready: %w", err)
		case <-t.C:
		}
	}
}
