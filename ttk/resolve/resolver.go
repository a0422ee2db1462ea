// Package resolve maps free-text menu mentions onto catalog items. Lookup
// tables (corrections, synonyms, disambiguation rules) are declared data so
// matching stays deterministic across calls.
package resolve

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
	"github.com/tabletalkhq/tabletalk/ttk/menu"
)

// Resolver performs exact, fuzzy, and whole-utterance lookups against a menu
// snapshot. The variation index is rebuilt whenever the snapshot changes.
type Resolver struct {
	logger zerolog.Logger

	mu    sync.Mutex
	index *VariationIndex
}

func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{logger: logger.With().Str("component", "resolve").Logger()}
}

func (r *Resolver) indexFor(cache *menu.Cache) *VariationIndex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index == nil || r.index.cache != cache {
		r.index = BuildVariationIndex(cache)
	}
	return r.index
}

// ResolveExact finds a case-insensitive full-name match among available items.
func (r *Resolver) ResolveExact(name string, cache *menu.Cache) (ports.MenuItem, bool) {
	for _, item := range cache.Items {
		if item.Available && strings.EqualFold(item.Name, name) {
			return item, true
		}
	}
	return ports.MenuItem{}, false
}

// ResolveFuzzy scores every available item against the search string after
// rewriting known transcription slips. The best-scoring item wins only when
// it clears the acceptance floor; a miss is logged, never substituted.
func (r *Resolver) ResolveFuzzy(name string, cache *menu.Cache) (ports.MenuItem, bool) {
	search := strings.ToLower(strings.TrimSpace(name))
	if search == "" {
		return ports.MenuItem{}, false
	}
	corrected := applyCorrections(search)

	var best ports.MenuItem
	bestScore := 0
	for _, item := range cache.Items {
		if !item.Available {
			continue
		}
		score := fuzzyScore(search, corrected, strings.ToLower(item.Name))
		if score > bestScore {
			best, bestScore = item, score
		}
	}
	if bestScore < acceptScore {
		r.logger.Debug().
			Str("search", name).
			Int("best_score", bestScore).
			Msg("fuzzy lookup missed")
		return ports.MenuItem{}, false
	}
	return best, true
}

// Resolve tries the exact match first and falls back to fuzzy scoring.
func (r *Resolver) Resolve(name string, cache *menu.Cache) (ports.MenuItem, bool) {
	if item, ok := r.ResolveExact(name, cache); ok {
		return item, true
	}
	return r.ResolveFuzzy(name, cache)
}
