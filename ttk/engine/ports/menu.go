package engineports

import "context"

// Menu source tags recorded on every cached item.
const (
	MenuSourceStore     = "store"
	MenuSourceFallback  = "fallback used"
	MenuSourceHardcoded = "hardcoded"
)

// MenuItem is one catalog entry; Resolver and Distributor never branch on provenance.
type MenuItem struct {
	ID          string
	Name        string
	PriceCents  int64  // unit price in cents
	Category    string // "appetizers", "entrees", "drinks", ...
	Description string
	Available   bool
	Source      string // "store" | "fallback used" | "hardcoded"
}

// MenuSource loads the raw catalog from wherever it lives.
type MenuSource interface {
	FetchItems(ctx context.Context) ([]MenuItem, error)
}
