// Package preset provides the fixed catalog of named color palettes.
// The catalog is immutable after construction and safe for concurrent use.
package preset

// DefaultID is the sentinel preset ID that selects the built-in palette.
const DefaultID = "default"

// Category groups presets for display.
type Category string

const (
	CategoryClassic  Category = "classic"
	CategoryNewWorld Category = "new-world"
	CategoryOldWorld Category = "old-world"
	CategoryArboreal Category = "arboreal"
)

// Tier is the entitlement level required to apply a preset.
type Tier int

const (
	TierFree Tier = iota
	TierPremium
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierFree:
		return "free"
	case TierPremium:
		return "premium"
	default:
		return "unknown"
	}
}

// Preset is a named primary/secondary/accent color triple.
type Preset struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Primary     string   `json:"primary"`
	Secondary   string   `json:"secondary"`
	Accent      string   `json:"accent"`
	IsFree      bool     `json:"is_free"`
	Category    Category `json:"category"`
}

// Tier returns the entitlement tier required to apply p.
func (p Preset) Tier() Tier {
	if p.IsFree {
		return TierFree
	}
	return TierPremium
}

// Filter restricts List results. A nil field matches everything.
type Filter struct {
	IsFree   *bool
	Category *Category
}

// FreeOnly returns a Filter matching free presets.
func FreeOnly() Filter {
	free := true
	return Filter{IsFree: &free}
}

// PremiumOnly returns a Filter matching premium presets.
func PremiumOnly() Filter {
	free := false
	return Filter{IsFree: &free}
}

func (f Filter) match(p Preset) bool {
	if f.IsFree != nil && p.IsFree != *f.IsFree {
		return false
	}
	if f.Category != nil && p.Category != *f.Category {
		return false
	}
	return true
}

// Catalog is an insertion-ordered, read-only registry of presets.
type Catalog struct {
	order []string
	byID  map[string]Preset
}

// NewCatalog builds a Catalog from presets in the given order.
// Later entries with a duplicate ID are ignored.
func NewCatalog(presets ...Preset) *Catalog {
	c := &Catalog{
		order: make([]string, 0, len(presets)),
		byID:  make(map[string]Preset, len(presets)),
	}
	for _, p := range presets {
		if _, dup := c.byID[p.ID]; dup {
			continue
		}
		c.order = append(c.order, p.ID)
		c.byID[p.ID] = p
	}
	return c
}

// Get returns the preset with the given ID.
func (c *Catalog) Get(id string) (Preset, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// List returns the presets matching f in catalog insertion order.
func (c *Catalog) List(f Filter) []Preset {
	out := make([]Preset, 0, len(c.order))
	for _, id := range c.order {
		p := c.byID[id]
		if f.match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of presets in the catalog.
func (c *Catalog) Len() int {
	return len(c.order)
}
