package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/funnelbot/core/logger"
)

const migrateComponent = "db.migrate"

// RunMigrations brings the schema up to the newest version found in
// migrations. When cfg.MigrationsDir is set, that directory is used instead,
// which lets an operator ship a hotfix without rebuilding the binary.
func RunMigrations(cfg Config, migrations fs.FS) error {
	ctx := context.Background()
	src, origin := migrations, "embedded"
	if dir := strings.TrimSpace(cfg.MigrationsDir); dir != "" {
		src, origin = os.DirFS(dir), dir
	}
	if src == nil {
		return errors.New("migrate: no migrations source")
	}

	ups, err := upFiles(src)
	if err != nil {
		return fmt.Errorf("migrate: list %s: %w", origin, err)
	}
	preview, truncated := logger.SummarizeStrings(ups, 6)
	logger.Debug(ctx, migrateComponent, "migrate.resolve",
		slog.String("source", origin),
		slog.Int("files_total", len(ups)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	driver, err := iofs.New(src, ".")
	if err != nil {
		return fmt.Errorf("migrate: open source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", driver, cfg.URLString())
	if err != nil {
		return fmt.Errorf("migrate: init: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn(ctx, migrateComponent, "migrate.close",
				slog.String("status", "fail"),
				slog.Any("err", errors.Join(srcErr, dbErr)),
			)
		}
	}()

	from, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := logger.Took(start)
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.Error(ctx, migrateComponent, "migrate.apply",
			slog.String("status", "fail"),
			slog.Uint64("from_ver", uint64(from)),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", took),
		)
		return fmt.Errorf("migrate: up: %w", upErr)
	}
	to, _, _ := m.Version()

	applied := appliedBetween(ups, uint64(from), uint64(to))
	names, _ := logger.SummarizeStrings(applied, 6)
	logger.Info(ctx, migrateComponent, "migrate.summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.String("applied", names),
		slog.Duration("duration", took),
	)
	return nil
}

// upFiles returns the sorted names of the up migrations at the root of src.
func upFiles(src fs.FS) ([]string, error) {
	names, err := fs.Glob(src, "*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// appliedBetween picks the files whose version lies in (from, to].
func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		prefix, _, _ := strings.Cut(f, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			continue
		}
		if v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
