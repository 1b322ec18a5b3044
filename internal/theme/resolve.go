package theme

import (
	"sync"

	"github.com/HerbHall/palette/pkg/color"
	"github.com/HerbHall/palette/pkg/preset"
)

// shadeStep is the blend fraction used for primaryLight and primaryDark.
const shadeStep = 0.2

// DefaultColors is the built-in brand triple.
var DefaultColors = UserColors{
	Primary:   preset.DefaultPrimary,
	Secondary: preset.DefaultSecondary,
	Accent:    preset.DefaultAccent,
}

// Resolve computes the Colors for the given selector state using the
// built-in preset catalog. It is pure and deterministic.
func Resolve(mode ColorMode, pm PaletteMode, presetID string, custom *UserColors) Colors {
	return resolve(preset.Builtin(), mode, pm, presetID, custom)
}

// BrandColors returns the primary/secondary/accent triple selected by
// the palette mode. Custom colors win over presets; anything unresolvable
// falls back to DefaultColors.
func BrandColors(cat *preset.Catalog, pm PaletteMode, presetID string, custom *UserColors) UserColors {
	switch {
	case pm == ModeCustom && custom != nil:
		return *custom
	case pm == ModePreset:
		if p, ok := cat.Get(presetID); ok {
			return UserColors{Primary: p.Primary, Secondary: p.Secondary, Accent: p.Accent}
		}
	}
	return DefaultColors
}

func resolve(cat *preset.Catalog, mode ColorMode, pm PaletteMode, presetID string, custom *UserColors) Colors {
	brand := BrandColors(cat, pm, presetID, custom)
	n := neutralsFor(mode)
	return Colors{
		Background:      n.background,
		Surface:         n.surface,
		SurfaceElevated: n.surfaceElevated,
		Border:          n.border,
		Divider:         n.divider,
		TextPrimary:     n.textPrimary,
		TextSecondary:   n.textSecondary,
		TextTertiary:    n.textTertiary,
		TextInverse:     n.textInverse,
		Primary:         brand.Primary,
		PrimaryLight:    color.Lighten(brand.Primary, shadeStep),
		PrimaryDark:     color.Darken(brand.Primary, shadeStep),
		Secondary:       brand.Secondary,
		Accent:          brand.Accent,
		Success:         n.success,
		Warning:         n.warning,
		Error:           n.errorColor,
		Info:            n.info,
	}
}

// Resolver memoizes the most recent resolution so repeated renders with
// unchanged inputs skip the color math.
type Resolver struct {
	catalog *preset.Catalog

	mu     sync.Mutex
	valid  bool
	key    resolveKey
	colors Colors
}

type resolveKey struct {
	mode     ColorMode
	pm       PaletteMode
	presetID string
	hasCC    bool
	cc       UserColors
}

// NewResolver creates a Resolver over cat. A nil catalog uses the built-in one.
func NewResolver(cat *preset.Catalog) *Resolver {
	if cat == nil {
		cat = preset.Builtin()
	}
	return &Resolver{catalog: cat}
}

// Catalog returns the catalog the resolver reads presets from.
func (r *Resolver) Catalog() *preset.Catalog {
	return r.catalog
}

// Resolve returns the Colors for p, reusing the last result when p's
// inputs are unchanged.
func (r *Resolver) Resolve(p Preference) Colors {
	k := resolveKey{mode: p.ColorMode, pm: p.PaletteMode, presetID: p.PresetID}
	if p.CustomColors != nil {
		k.hasCC = true
		k.cc = *p.CustomColors
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.valid && r.key == k {
		return r.colors
	}
	r.colors = resolve(r.catalog, p.ColorMode, p.PaletteMode, p.PresetID, p.CustomColors)
	r.key = k
	r.valid = true
	return r.colors
}
