package menu

import (
	"sort"

	"github.com/RoaringBitmap/roaring"

	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
)

// Index answers category and availability queries over one cache snapshot
// using bitmaps keyed by item position.
type Index struct {
	cache      *Cache
	available  *roaring.Bitmap
	byCategory map[string]*roaring.Bitmap
}

// NewIndex builds the bitmap index for a cache snapshot.
func NewIndex(cache *Cache) *Index {
	idx := &Index{
		cache:      cache,
		available:  roaring.New(),
		byCategory: make(map[string]*roaring.Bitmap),
	}

	for i, item := range cache.Items {
		pos := uint32(i)
		if item.Available {
			idx.available.Add(pos)
		}
		bm, ok := idx.byCategory[item.Category]
		if !ok {
			bm = roaring.New()
			idx.byCategory[item.Category] = bm
		}
		bm.Add(pos)
	}

	return idx
}

// Categories lists the known categories in sorted order.
func (idx *Index) Categories() []string {
	cats := make([]string, 0, len(idx.byCategory))
	for cat := range idx.byCategory {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// Available returns the available items in catalog order.
func (idx *Index) Available() []ports.MenuItem {
	return idx.collect(idx.available)
}

// AvailableInCategory returns the available items of one category.
func (idx *Index) AvailableInCategory(category string) []ports.MenuItem {
	bm, ok := idx.byCategory[category]
	if !ok {
		return nil
	}
	return idx.collect(roaring.And(idx.available, bm))
}

func (idx *Index) collect(bm *roaring.Bitmap) []ports.MenuItem {
	positions := bm.ToArray()
	items := make([]ports.MenuItem, 0, len(positions))
	for _, pos := range positions {
		items = append(items, idx.cache.Items[pos])
	}
	return items
}
