package preset

// Default colors used when no preset or custom palette is active.
const (
	DefaultPrimary   = "#8B5CF6"
	DefaultSecondary = "#06B6D4"
	DefaultAccent    = "#F59E0B"
)

var builtin = NewCatalog(
	Preset{
		ID:          DefaultID,
		Name:        "Default",
		Description: "The standard violet palette.",
		Primary:     DefaultPrimary,
		Secondary:   DefaultSecondary,
		Accent:      DefaultAccent,
		IsFree:      true,
		Category:    CategoryClassic,
	},
	Preset{
		ID:          "brachypelma",
		Name:        "Mexican Red Knee",
		Description: "Warm reds and oranges from Brachypelma hamorii.",
		Primary:     "#DC2626",
		Secondary:   "#F97316",
		Accent:      "#FBBF24",
		IsFree:      true,
		Category:    CategoryNewWorld,
	},
	Preset{
		ID:          "grammostola",
		Name:        "Chaco Golden Knee",
		Description: "Earthy browns with golden highlights.",
		Primary:     "#A16207",
		Secondary:   "#78716C",
		Accent:      "#FDE68A",
		IsFree:      true,
		Category:    CategoryNewWorld,
	},
	Preset{
		ID:          "gbb",
		Name:        "Greenbottle Blue",
		Description: "Electric blue, metallic green and orange from Chromatopelma cyaneopubescens.",
		Primary:     "#0EA5E9",
		Secondary:   "#22C55E",
		Accent:      "#F97316",
		IsFree:      false,
		Category:    CategoryNewWorld,
	},
	Preset{
		ID:          "caribena",
		Name:        "Antilles Pinktoe",
		Description: "Iridescent pink, teal and violet.",
		Primary:     "#EC4899",
		Secondary:   "#14B8A6",
		Accent:      "#A855F7",
		IsFree:      false,
		Category:    CategoryArboreal,
	},
	Preset{
		ID:          "poecilotheria",
		Name:        "Gooty Sapphire",
		Description: "Deep sapphire with yellow leg bands.",
		Primary:     "#2563EB",
		Secondary:   "#1E3A8A",
		Accent:      "#FACC15",
		IsFree:      false,
		Category:    CategoryArboreal,
	},
	Preset{
		ID:          "monocentropus",
		Name:        "Socotra Island Blue",
		Description: "Dusty blue over a tan carapace.",
		Primary:     "#3B82F6",
		Secondary:   "#D6B98C",
		Accent:      "#64748B",
		IsFree:      false,
		Category:    CategoryOldWorld,
	},
	Preset{
		ID:          "pterinochilus",
		Name:        "Orange Baboon",
		Description: "High-contrast orange on charcoal.",
		Primary:     "#EA580C",
		Secondary:   "#292524",
		Accent:      "#FDBA74",
		IsFree:      false,
		Category:    CategoryOldWorld,
	},
)

// Builtin returns the application's preset catalog.
func Builtin() *Catalog {
	return builtin
}
