package resolve

import (
	"sort"
	"strings"

	radix "github.com/armon/go-radix"

	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
	"github.com/tabletalkhq/tabletalk/ttk/menu"
)

type variationEntry struct {
	itemID     string
	itemName   string
	variation  string
	priceCents int64
}

// VariationIndex maps every spoken variation onto its catalog entry through
// a radix tree, so mention scanning can take the longest variation starting
// at any word boundary in one lookup.
type VariationIndex struct {
	cache *menu.Cache
	tree  *radix.Tree
}

// BuildVariationIndex registers variations item by item, longest catalog
// name first. When two items claim the same variation the longer, more
// specific name keeps it.
func BuildVariationIndex(cache *menu.Cache) *VariationIndex {
	items := make([]ports.MenuItem, 0, len(cache.Items))
	for _, item := range cache.Items {
		if item.Available {
			items = append(items, item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if len(items[i].Name) != len(items[j].Name) {
			return len(items[i].Name) > len(items[j].Name)
		}
		return items[i].Name < items[j].Name
	})

	tree := radix.New()
	for _, item := range items {
		for _, v := range variationsFor(item) {
			if _, claimed := tree.Get(v); claimed {
				continue
			}
			tree.Insert(v, variationEntry{
				itemID:     item.ID,
				itemName:   item.Name,
				variation:  v,
				priceCents: item.PriceCents,
			})
		}
	}
	return &VariationIndex{cache: cache, tree: tree}
}

// longestAt returns the longest registered variation that prefixes rest.
func (ix *VariationIndex) longestAt(rest string) (variationEntry, bool) {
	_, v, ok := ix.tree.LongestPrefix(rest)
	if !ok {
		return variationEntry{}, false
	}
	return v.(variationEntry), true
}

// Len reports how many variations are registered.
func (ix *VariationIndex) Len() int {
	return ix.tree.Len()
}

// variationsFor generates the deterministic spoken forms of one item: the
// lowercase name, a space-for-hyphen form, an apostrophe-free form, declared
// synonyms, and a plural of each.
func variationsFor(item ports.MenuItem) []string {
	seen := make(map[string]struct{}, 8)
	var out []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if !strings.HasSuffix(v, "s") {
			plural := v + "s"
			if _, dup := seen[plural]; !dup {
				seen[plural] = struct{}{}
				out = append(out, plural)
			}
		}
	}

	base := strings.ToLower(item.Name)
	add(base)
	add(strings.ReplaceAll(base, "-", " "))
	add(strings.ReplaceAll(base, "'", ""))
	for _, syn := range itemSynonyms[item.ID] {
		add(syn)
	}
	return out
}
