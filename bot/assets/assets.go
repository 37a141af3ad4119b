// Package assets loads the static documents the funnel hands out. They are
// read once at startup and kept in memory for the life of the process.
package assets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/m3rciful/funnelbot/core/logger"
)

const (
	// GuideFileName is the file name users see for the lead-magnet guide.
	GuideFileName = "Гайд_планирование_путешествий_@daaspil.pdf"
	// PlannerFileName is the file name users see for the gated planner.
	PlannerFileName = "Тревел-планер @daaspil.png"
)

// Document is an in-memory file ready to be uploaded.
type Document struct {
	Name string
	Data []byte
}

// Empty reports whether the document has no content.
func (d Document) Empty() bool { return len(d.Data) == 0 }

// Bundle holds both funnel documents.
type Bundle struct {
	Guide   Document
	Planner Document
}

// Load reads path into a document presented to users as name.
func Load(path, name string) (Document, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Document{}, fmt.Errorf("asset %q: empty path", name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("asset %q: %w", name, err)
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("asset %q: %s is empty", name, path)
	}
	return Document{Name: name, Data: data}, nil
}

// LoadBundle reads the guide and the planner.
func LoadBundle(guidePath, plannerPath string) (Bundle, error) {
	guide, err := Load(guidePath, GuideFileName)
	if err != nil {
		return Bundle{}, err
	}
	planner, err := Load(plannerPath, PlannerFileName)
	if err != nil {
		return Bundle{}, err
	}
	logger.Info(context.Background(), "app", "assets.loaded",
		slog.String("status", "ok"),
		slog.Int("guide_bytes", len(guide.Data)),
		slog.Int("planner_bytes", len(planner.Data)),
	)
	return Bundle{Guide: guide, Planner: planner}, nil
}
