package adapters

import (
	"context"
	"fmt"

	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
)

// StoreMenuSource serves the catalog straight from the data store.
type StoreMenuSource struct {
	store ports.DataStore
}

// NewStoreMenuSource creates a menu source backed by the data store.
func NewStoreMenuSource(store ports.DataStore) *StoreMenuSource {
	return &StoreMenuSource{store: store}
}

// FetchItems loads the catalog from the data store.
func (s *StoreMenuSource) FetchItems(ctx context.Context) ([]ports.MenuItem, error) {
	items, err := s.store.ListMenuItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch menu from store: %w", err)
	}
	return items, nil
}

// Ensure StoreMenuSource implements the MenuSource interface.
var _ ports.MenuSource = (*StoreMenuSource)(nil)
