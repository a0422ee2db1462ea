package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
)

// menuFileSchema validates the raw menu document before decoding.
const menuFileSchema = `{
	"type": "object",
	"required": ["items"],
	"properties": {
		"items": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "name", "price_cents"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string", "minLength": 1},
					"price_cents": {"type": "integer", "minimum": 0},
					"category": {"type": "string"},
					"description": {"type": "string"},
					"available": {"type": "boolean"}
				}
			}
		}
	}
}`

type menuFileDoc struct {
	Items []menuFileItem `json:"items"`
}

type menuFileItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PriceCents  int64  `json:"price_cents"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Available   *bool  `json:"available"`
}

// FileMenuSource reads the catalog from a JSON file and invalidates its
// in-memory copy when the file changes on disk.
type FileMenuSource struct {
	path   string
	schema *gojsonschema.Schema
	logger zerolog.Logger

	mu      sync.RWMutex
	cached  []ports.MenuItem
	loaded  bool
	watcher *fsnotify.Watcher
}

// NewFileMenuSource creates a file-backed menu source for the given path.
func NewFileMenuSource(path string, logger zerolog.Logger) (*FileMenuSource, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(menuFileSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile menu schema: %w", err)
	}

	return &FileMenuSource{
		path:   path,
		schema: schema,
		logger: logger.With().Str("component", "menu_file").Logger(),
	}, nil
}

// Watch starts invalidating the cached copy on file changes. It returns once
// the watcher is registered; events are consumed until ctx is cancelled.
func (s *FileMenuSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create menu watcher: %w", err)
	}

	// Watch the directory: editors often replace the file instead of writing in place.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch menu directory: %w", err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	go s.consumeEvents(ctx, watcher)
	return nil
}

func (s *FileMenuSource) consumeEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.mu.Lock()
			s.loaded = false
			s.cached = nil
			s.mu.Unlock()
			s.logger.Info().Str("file", s.path).Str("op", event.Op.String()).Msg("menu file changed, cache invalidated")
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn().Err(err).Msg("menu watcher error")
		}
	}
}

// FetchItems returns the decoded catalog, re-reading the file after changes.
func (s *FileMenuSource) FetchItems(ctx context.Context) ([]ports.MenuItem, error) {
	s.mu.RLock()
	if s.loaded {
		items := make([]ports.MenuItem, len(s.cached))
		copy(items, s.cached)
		s.mu.RUnlock()
		return items, nil
	}
	s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu file: %w", err)
	}

	if err := s.validateDocument(data); err != nil {
		return nil, err
	}

	var doc menuFileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode menu file: %w", err)
	}

	items := make([]ports.MenuItem, 0, len(doc.Items))
	for _, raw := range doc.Items {
		available := true
		if raw.Available != nil {
			available = *raw.Available
		}
		items = append(items, ports.MenuItem{
			ID:          raw.ID,
			Name:        raw.Name,
			PriceCents:  raw.PriceCents,
			Category:    raw.Category,
			Description: raw.Description,
			Available:   available,
			Source:      ports.MenuSourceStore,
		})
	}

	s.mu.Lock()
	s.cached = items
	s.loaded = true
	s.mu.Unlock()

	out := make([]ports.MenuItem, len(items))
	copy(out, items)
	return out, nil
}

// validateDocument checks the raw payload against the menu schema.
func (s *FileMenuSource) validateDocument(data []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("menu schema validation error: %w", err)
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return fmt.Errorf("menu file invalid: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Ensure FileMenuSource implements the MenuSource interface.
var _ ports.MenuSource = (*FileMenuSource)(nil)
