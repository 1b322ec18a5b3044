package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/HerbHall/palette/internal/event"
	"github.com/HerbHall/palette/internal/theme"
	"github.com/HerbHall/palette/internal/themestore"
	"github.com/HerbHall/palette/pkg/preset"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Faint(true)
)

func swatch(hex string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("    ")
}

// renderStatus prints the one-line summary of the current selection.
func renderStatus(w io.Writer, s *themestore.Store) error {
	if s.Status() != themestore.StatusReady {
		return themestore.ErrNotReady
	}
	_, err := fmt.Fprintln(w, statusLine(s.Preference(), s.IsPremium()))
	return err
}

func statusLine(p theme.Preference, premium bool) string {
	line := fmt.Sprintf("%s %s  %s %s",
		labelStyle.Render("mode:"), p.ColorMode,
		labelStyle.Render("palette:"), p.PaletteMode)
	if p.PaletteMode == theme.ModePreset {
		line += " (" + p.PresetID + ")"
	}
	if premium {
		line += "  " + mutedStyle.Render("premium")
	}
	return line
}

// renderChange prints a theme change as published by the store, with the
// resolved brand colors as swatches.
func renderChange(w io.Writer, c themestore.Change, premium bool) error {
	_, err := fmt.Fprintf(w, "%s  %s%s%s\n", statusLine(c.Preference, premium),
		swatch(c.Colors.Primary), swatch(c.Colors.Secondary), swatch(c.Colors.Accent))
	return err
}

// followChanges renders every theme.changed event on bus to w until the
// returned func is called.
func followChanges(bus *event.Bus, w io.Writer, premium func() bool) (unsubscribe func()) {
	return bus.Subscribe(event.TopicThemeChanged, func(_ context.Context, e event.Event) {
		c, ok := e.Payload.(themestore.Change)
		if !ok {
			return
		}
		_ = renderChange(w, c, premium())
	})
}

// renderColors prints one swatch row per resolved color.
func renderColors(w io.Writer, c theme.Colors) {
	rows := []struct {
		name, hex string
	}{
		{"background", c.Background},
		{"surface", c.Surface},
		{"surfaceElevated", c.SurfaceElevated},
		{"border", c.Border},
		{"divider", c.Divider},
		{"textPrimary", c.TextPrimary},
		{"textSecondary", c.TextSecondary},
		{"textTertiary", c.TextTertiary},
		{"textInverse", c.TextInverse},
		{"primary", c.Primary},
		{"primaryLight", c.PrimaryLight},
		{"primaryDark", c.PrimaryDark},
		{"secondary", c.Secondary},
		{"accent", c.Accent},
		{"success", c.Success},
		{"warning", c.Warning},
		{"error", c.Error},
		{"info", c.Info},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s %-16s %s\n", swatch(r.hex), r.name, r.hex)
	}
}

func renderPresets(w io.Writer, presets []preset.Preset) {
	for _, p := range presets {
		tier := ""
		if p.Tier() == preset.TierPremium {
			tier = mutedStyle.Render(" [premium]")
		}
		fmt.Fprintf(w, "%s%s%s %-14s %s%s\n",
			swatch(p.Primary), swatch(p.Secondary), swatch(p.Accent),
			p.ID, p.Name, tier)
	}
}
