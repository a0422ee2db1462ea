package menu

import ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"

// hardcodedItems is the minimal catalog served when nothing else is
// available, enough to keep a call moving until the store recovers.
func hardcodedItems() []ports.MenuItem {
	return []ports.MenuItem{
		{
			ID:          "buffalo-wings",
			Name:        "Buffalo Wings",
			PriceCents:  1299,
			Category:    "appetizers",
			Description: "Crispy chicken wings tossed in spicy buffalo sauce with blue cheese",
			Available:   true,
			Source:      ports.MenuSourceHardcoded,
		},
		{
			ID:          "ribeye-steak",
			Name:        "Ribeye Steak",
			PriceCents:  2499,
			Category:    "main-courses",
			Description: "12oz ribeye steak grilled to perfection with garlic butter",
			Available:   true,
			Source:      ports.MenuSourceHardcoded,
		},
		{
			ID:          "pepsi",
			Name:        "Pepsi",
			PriceCents:  299,
			Category:    "drinks",
			Description: "Classic Pepsi cola soft drink",
			Available:   true,
			Source:      ports.MenuSourceHardcoded,
		},
	}
}
