package theme

// neutrals holds the mode-dependent colors that do not come from the palette.
type neutrals struct {
	background, surface, surfaceElevated, border, divider string
	textPrimary, textSecondary, textTertiary, textInverse string
	success, warning, errorColor, info                    string
}

var darkNeutrals = neutrals{
	background:      "#0a0a0f",
	surface:         "#16161f",
	surfaceElevated: "#1f1f2b",
	border:          "#2a2a3a",
	divider:         "#22222e",
	textPrimary:     "#f5f5f7",
	textSecondary:   "#a1a1b5",
	textTertiary:    "#6b6b80",
	textInverse:     "#0a0a0f",
	success:         "#10B981",
	warning:         "#F59E0B",
	errorColor:      "#EF4444",
	info:            "#3B82F6",
}

var lightNeutrals = neutrals{
	background:      "#ffffff",
	surface:         "#f8f9fa",
	surfaceElevated: "#ffffff",
	border:          "#e5e7eb",
	divider:         "#f0f0f3",
	textPrimary:     "#111827",
	textSecondary:   "#4b5563",
	textTertiary:    "#9ca3af",
	textInverse:     "#ffffff",
	success:         "#059669",
	warning:         "#D97706",
	errorColor:      "#DC2626",
	info:            "#2563EB",
}

func neutralsFor(mode ColorMode) neutrals {
	if mode == Light {
		return lightNeutrals
	}
	return darkNeutrals
}
