// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/HerbHall/palette/internal/store"
	"github.com/HerbHall/palette/internal/theme"
)

// NewStore opens a SQLite database in a temp dir, closed at test cleanup.
func NewStore(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "palette-test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open(%q): %v", path, err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewPreference returns a dark, default-palette Preference.
// Override individual fields with the With* options.
func NewPreference(opts ...func(*theme.Preference)) theme.Preference {
	p := theme.DefaultPreference(theme.Dark)
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// WithColorMode sets the light/dark mode.
func WithColorMode(m theme.ColorMode) func(*theme.Preference) {
	return func(p *theme.Preference) { p.ColorMode = m }
}

// WithPreset selects a preset palette.
func WithPreset(id string) func(*theme.Preference) {
	return func(p *theme.Preference) {
		p.PaletteMode = theme.ModePreset
		p.PresetID = id
	}
}

// WithCustom selects a custom palette.
func WithCustom(primary, secondary, accent string) func(*theme.Preference) {
	return func(p *theme.Preference) {
		p.PaletteMode = theme.ModeCustom
		p.PresetID = ""
		p.CustomColors = &theme.UserColors{Primary: primary, Secondary: secondary, Accent: accent}
	}
}

// WithRetainedCustom stores custom colors without activating them.
func WithRetainedCustom(primary, secondary, accent string) func(*theme.Preference) {
	return func(p *theme.Preference) {
		p.CustomColors = &theme.UserColors{Primary: primary, Secondary: secondary, Accent: accent}
	}
}
