package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/datastore"
	"github.com/astralabs/astra-go/internal/errors"
)

func init() {
	Default().Register("file", func(settings *conf.Settings) Connector {
		return NewFileConnector(settings.Ingest.File)
	})
}

// FileConnector ingests text files from a local directory.
type FileConnector struct {
	settings conf.FileIngestSettings
}

// NewFileConnector creates a connector scanning the configured directory.
func NewFileConnector(settings conf.FileIngestSettings) *FileConnector {
	if settings.Pattern == "" {
		settings.Pattern = "*.txt"
	}
	return &FileConnector{settings: settings}
}

// SourceName identifies events produced by this connector.
func (c *FileConnector) SourceName() string {
	return "file"
}

// Fetch reads every file matching the configured glob pattern. Unreadable
// files abort the fetch so a partial directory scan is never persisted.
func (c *FileConnector) Fetch(ctx context.Context) ([]datastore.ContentEvent, error) {
	pattern := filepath.Join(c.settings.Path, c.settings.Pattern)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.New(fmt.Errorf("bad file pattern %q: %w", pattern, err)).
			Component("ingest").
			Category(errors.CategoryValidation).
			Build()
	}

	events := make([]datastore.ContentEvent, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.New(fmt.Errorf("reading %s: %w", path, err)).
				Component("ingest").
				Category(errors.CategoryFileIO).
				Build()
		}

		name := filepath.Base(path)
		events = append(events, newEvent(c.SourceName(), "file:"+name, string(data), map[string]any{
			"file_name": name,
			"file_path": path,
			"file_size": info.Size(),
		}))
	}
	return events, nil
}
