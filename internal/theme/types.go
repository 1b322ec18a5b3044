// Package theme resolves render-ready color sets from palette selections.
package theme

import (
	"errors"
	"fmt"

	"github.com/HerbHall/palette/pkg/color"
)

// ErrInvalidColor is returned when a user-supplied color is not a hex color.
var ErrInvalidColor = errors.New("invalid color")

// ColorMode is the light/dark axis, independent of the palette.
type ColorMode string

const (
	Light ColorMode = "light"
	Dark  ColorMode = "dark"
)

// ParseColorMode returns the ColorMode named by s.
func ParseColorMode(s string) (ColorMode, bool) {
	switch ColorMode(s) {
	case Light, Dark:
		return ColorMode(s), true
	default:
		return "", false
	}
}

// PaletteMode selects which source supplies the brand colors.
type PaletteMode string

const (
	ModeDefault PaletteMode = "default"
	ModePreset  PaletteMode = "preset"
	ModeCustom  PaletteMode = "custom"
)

// ParsePaletteMode returns the PaletteMode named by s.
func ParsePaletteMode(s string) (PaletteMode, bool) {
	switch PaletteMode(s) {
	case ModeDefault, ModePreset, ModeCustom:
		return PaletteMode(s), true
	default:
		return "", false
	}
}

// UserColors is a primary/secondary/accent triple.
type UserColors struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Accent    string `json:"accent"`
}

// Validate checks that every color is a hex color.
func (u UserColors) Validate() error {
	for name, c := range map[string]string{
		"primary":   u.Primary,
		"secondary": u.Secondary,
		"accent":    u.Accent,
	} {
		if !color.Valid(c) {
			return fmt.Errorf("%w: %s %q", ErrInvalidColor, name, c)
		}
	}
	return nil
}

// Colors is the complete resolved color set used for rendering.
type Colors struct {
	Background      string `json:"background"`
	Surface         string `json:"surface"`
	SurfaceElevated string `json:"surfaceElevated"`
	Border          string `json:"border"`
	Divider         string `json:"divider"`
	TextPrimary     string `json:"textPrimary"`
	TextSecondary   string `json:"textSecondary"`
	TextTertiary    string `json:"textTertiary"`
	TextInverse     string `json:"textInverse"`
	Primary         string `json:"primary"`
	PrimaryLight    string `json:"primaryLight"`
	PrimaryDark     string `json:"primaryDark"`
	Secondary       string `json:"secondary"`
	Accent          string `json:"accent"`
	Success         string `json:"success"`
	Warning         string `json:"warning"`
	Error           string `json:"error"`
	Info            string `json:"info"`
}

// Preference is the persisted selector state. It is the only theme state
// that survives a restart; Colors are always recomputed from it.
type Preference struct {
	ColorMode    ColorMode   `json:"colorMode"`
	PaletteMode  PaletteMode `json:"paletteMode"`
	PresetID     string      `json:"presetId,omitempty"`
	CustomColors *UserColors `json:"customColors,omitempty"`
}

// DefaultPreference returns the preference used when nothing is stored.
func DefaultPreference(mode ColorMode) Preference {
	if _, ok := ParseColorMode(string(mode)); !ok {
		mode = Dark
	}
	return Preference{ColorMode: mode, PaletteMode: ModeDefault}
}

// Clone returns a deep copy of p.
func (p Preference) Clone() Preference {
	if p.CustomColors != nil {
		cc := *p.CustomColors
		p.CustomColors = &cc
	}
	return p
}

// Equal reports whether p and q describe the same selection.
func (p Preference) Equal(q Preference) bool {
	if p.ColorMode != q.ColorMode || p.PaletteMode != q.PaletteMode || p.PresetID != q.PresetID {
		return false
	}
	if (p.CustomColors == nil) != (q.CustomColors == nil) {
		return false
	}
	return p.CustomColors == nil || *p.CustomColors == *q.CustomColors
}

// Resolve computes the Colors for p against the built-in catalog.
func (p Preference) Resolve() Colors {
	return Resolve(p.ColorMode, p.PaletteMode, p.PresetID, p.CustomColors)
}

// Validate reports whether p is a well-formed selection: known modes,
// a preset ID when the palette mode is preset, and hex custom colors.
func (p Preference) Validate() error {
	if _, ok := ParseColorMode(string(p.ColorMode)); !ok {
		return fmt.Errorf("unknown color mode %q", p.ColorMode)
	}
	if _, ok := ParsePaletteMode(string(p.PaletteMode)); !ok {
		return fmt.Errorf("unknown palette mode %q", p.PaletteMode)
	}
	if p.PaletteMode == ModePreset && p.PresetID == "" {
		return errors.New("preset palette mode requires a preset id")
	}
	if p.PaletteMode == ModeCustom && p.CustomColors == nil {
		return errors.New("custom palette mode requires custom colors")
	}
	if p.CustomColors != nil {
		if err := p.CustomColors.Validate(); err != nil {
			return err
		}
	}
	return nil
}
