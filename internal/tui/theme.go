package tui

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"

	"questboard/internal/model"
)

// Palette helpers. The board must stay readable on light and dark terminals,
// so chrome colours are adaptive; tag colours come from the store as-is.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted      lipgloss.TerminalColor = ac("240", "243")
	colorSurfaceFg  lipgloss.TerminalColor = ac("235", "252")
	colorBoardBg    lipgloss.TerminalColor = ac("#efe4c8", "#2b2418") // parchment
	colorBoardDot   lipgloss.TerminalColor = ac("#d8c9a3", "#43382a")
	colorCardBg     lipgloss.TerminalColor = ac("#fbf4e0", "#3b3224")
	colorCardFg     lipgloss.TerminalColor = ac("#2b2418", "#f1e6c8")
	colorControlBg  lipgloss.TerminalColor = ac("252", "235")
	colorSelectedBg lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg lipgloss.TerminalColor = ac("235", "255")
	colorAccent     lipgloss.TerminalColor = ac("27", "62")
	colorLocked     lipgloss.TerminalColor = ac("160", "203")
	colorModalBg    lipgloss.TerminalColor = ac("255", "235")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

// tagColor converts a stored colour ("#rrggbb" or "hsl(h, s%, l%)") to
// a terminal colour. Unparseable values use the fallback tag colour.
func tagColor(v string) lipgloss.Color {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "#") {
		if _, err := colorful.Hex(v); err == nil {
			return lipgloss.Color(v)
		}
	}
	if strings.HasPrefix(v, "hsl(") {
		var h, s, l float64
		if _, err := fmt.Sscanf(v, "hsl(%g, %g%%, %g%%)", &h, &s, &l); err == nil {
			return lipgloss.Color(colorful.Hsl(h, s/100, l/100).Clamped().Hex())
		}
	}
	return lipgloss.Color(model.FallbackTagColor)
}

// applyColorProfilePreference only honours NO_COLOR and otherwise follows the
// terminal: termenv.EnvColorProfile would also honour CLICOLOR, which is meant
// for scriptable output.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	colorterm := strings.ToLower(os.Getenv("COLORTERM"))
	term := strings.ToLower(os.Getenv("TERM"))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	case strings.Contains(term, "256color"):
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference sets background detection from QUESTBOARD_TUI_THEME
// (light|dark|auto), then the COLORFGBG heuristic.
func applyThemePreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("QUESTBOARD_TUI_THEME"))) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}
	// COLORFGBG is "fg;bg"; the last segment is the background.
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
		}
	}
}
