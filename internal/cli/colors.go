package cli

import "github.com/charmbracelet/lipgloss"

// Club lighting palette
// Shared colours for consistent branding across CLI and TUI
var (
	// Core neon colours (cool to hot)
	NeonCyan    = lipgloss.Color("#00E5FF") // Deck A
	NeonViolet  = lipgloss.Color("#B388FF") // Crossfade
	NeonMagenta = lipgloss.Color("#FF3EA5") // Deck B
	NeonAmber   = lipgloss.Color("#FFB300") // Tempo highlights

	// Accent colours
	SmokeGray = lipgloss.Color("#8A8FA3") // Subtle text
)
