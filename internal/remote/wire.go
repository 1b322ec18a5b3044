package remote

import (
	"errors"
	"fmt"

	"github.com/HerbHall/palette/internal/theme"
)

// Preference is the profile service's wire shape. Unset fields are omitted.
type Preference struct {
	ColorMode       string  `json:"color_mode"`
	ThemeType       string  `json:"theme_type"`
	PresetID        *string `json:"preset_id,omitempty"`
	CustomPrimary   *string `json:"custom_primary,omitempty"`
	CustomSecondary *string `json:"custom_secondary,omitempty"`
	CustomAccent    *string `json:"custom_accent,omitempty"`
}

// FromTheme converts p to the wire shape.
func FromTheme(p theme.Preference) Preference {
	w := Preference{
		ColorMode: string(p.ColorMode),
		ThemeType: string(p.PaletteMode),
	}
	if p.PresetID != "" {
		id := p.PresetID
		w.PresetID = &id
	}
	if cc := p.CustomColors; cc != nil {
		primary, secondary, accent := cc.Primary, cc.Secondary, cc.Accent
		w.CustomPrimary = &primary
		w.CustomSecondary = &secondary
		w.CustomAccent = &accent
	}
	return w
}

// Theme converts w to a validated theme.Preference. Custom colors are
// kept only when all three are present.
func (w Preference) Theme() (theme.Preference, error) {
	mode, ok := theme.ParseColorMode(w.ColorMode)
	if !ok {
		return theme.Preference{}, fmt.Errorf("unknown color_mode %q", w.ColorMode)
	}
	pm, ok := theme.ParsePaletteMode(w.ThemeType)
	if !ok {
		return theme.Preference{}, fmt.Errorf("unknown theme_type %q", w.ThemeType)
	}

	p := theme.Preference{ColorMode: mode, PaletteMode: pm}
	if w.PresetID != nil {
		p.PresetID = *w.PresetID
	}
	switch set := countSet(w.CustomPrimary, w.CustomSecondary, w.CustomAccent); set {
	case 0:
	case 3:
		p.CustomColors = &theme.UserColors{
			Primary:   *w.CustomPrimary,
			Secondary: *w.CustomSecondary,
			Accent:    *w.CustomAccent,
		}
	default:
		return theme.Preference{}, errors.New("custom colors must be set together")
	}
	if pm == theme.ModeCustom {
		p.PresetID = ""
	}
	if err := p.Validate(); err != nil {
		return theme.Preference{}, err
	}
	return p, nil
}

func countSet(vals ...*string) int {
	n := 0
	for _, v := range vals {
		if v != nil {
			n++
		}
	}
	return n
}
