package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HerbHall/palette/internal/theme"
	"go.uber.org/zap"
)

// Cache keys. The color mode is stored as its bare literal; the palette
// selection as a JSON object.
const (
	KeyColorMode = "theme.color_mode"
	KeyPalette   = "theme.palette"
)

type palettePayload struct {
	PaletteMode  theme.PaletteMode `json:"paletteMode"`
	PresetID     *string           `json:"presetId"`
	CustomColors *theme.UserColors `json:"customColors"`
}

// Local loads and saves the theme preference through a KV.
type Local struct {
	kv          KV
	defaultMode theme.ColorMode
	logger      *zap.Logger
}

// NewLocal creates a Local over kv. defaultMode is used when no color mode
// is cached.
func NewLocal(kv KV, defaultMode theme.ColorMode, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{kv: kv, defaultMode: defaultMode, logger: logger}
}

// Load returns the cached preference. Missing or malformed entries are
// treated as absent and replaced by defaults; only storage failures are
// returned, alongside the defaults.
func (l *Local) Load(ctx context.Context) (theme.Preference, error) {
	pref := theme.DefaultPreference(l.defaultMode)
	var errs []error

	raw, err := l.kv.Get(ctx, KeyColorMode)
	switch {
	case err == nil:
		if mode, ok := theme.ParseColorMode(raw); ok {
			pref.ColorMode = mode
		} else {
			l.logger.Warn("ignoring malformed cached color mode", zap.String("value", raw))
		}
	case !errors.Is(err, ErrNotFound):
		errs = append(errs, fmt.Errorf("load color mode: %w", err))
	}

	raw, err = l.kv.Get(ctx, KeyPalette)
	switch {
	case err == nil:
		if sel, ok := l.decodePalette(raw, pref.ColorMode); ok {
			pref.PaletteMode = sel.PaletteMode
			pref.PresetID = sel.PresetID
			pref.CustomColors = sel.CustomColors
		}
	case !errors.Is(err, ErrNotFound):
		errs = append(errs, fmt.Errorf("load palette: %w", err))
	}

	return pref, errors.Join(errs...)
}

// Save writes pref under both cache keys. A failed save leaves both keys
// as they were.
func (l *Local) Save(ctx context.Context, pref theme.Preference) error {
	payload := palettePayload{
		PaletteMode:  pref.PaletteMode,
		CustomColors: pref.CustomColors,
	}
	if pref.PresetID != "" {
		id := pref.PresetID
		payload.PresetID = &id
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode palette: %w", err)
	}

	err = l.kv.SetMany(ctx, map[string]string{
		KeyColorMode: string(pref.ColorMode),
		KeyPalette:   string(data),
	})
	if err != nil {
		return fmt.Errorf("save preference: %w", err)
	}
	return nil
}

// decodePalette parses the cached palette object. Anything that does not
// form a valid selection is dropped; a bad custom color triple is discarded
// on its own when the rest of the selection still stands.
func (l *Local) decodePalette(raw string, mode theme.ColorMode) (theme.Preference, bool) {
	var payload palettePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		l.logger.Warn("ignoring malformed cached palette", zap.Error(err))
		return theme.Preference{}, false
	}

	sel := theme.Preference{
		ColorMode:    mode,
		PaletteMode:  payload.PaletteMode,
		CustomColors: payload.CustomColors,
	}
	if payload.PresetID != nil {
		sel.PresetID = *payload.PresetID
	}
	if sel.CustomColors != nil && sel.CustomColors.Validate() != nil {
		l.logger.Warn("dropping malformed cached custom colors")
		sel.CustomColors = nil
	}
	if err := sel.Validate(); err != nil {
		l.logger.Warn("ignoring invalid cached palette", zap.Error(err))
		return theme.Preference{}, false
	}
	return sel, true
}
