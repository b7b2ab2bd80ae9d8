// ABOUTME: Icon system with Nerd Font detection and Unicode fallback
// ABOUTME: Provides consistent iconography across different terminal capabilities

package icons

import (
	"os"
	"strings"
	"sync"
)

var (
	useNerdFonts     bool
	nerdFontDetected sync.Once
)

// detectNerdFonts checks if Nerd Fonts should be used
func detectNerdFonts() bool {
	// Explicit override via environment variable
	if env := os.Getenv("VALHALLA_NERD_FONTS"); env != "" {
		return env == "1" || strings.ToLower(env) == "true"
	}

	term := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")

	// iTerm2, Alacritty, WezTerm, Kitty typically have Nerd Fonts
	nerdFontTerminals := []string{
		"iTerm.app",
		"alacritty",
		"WezTerm",
		"kitty",
		"ghostty",
	}

	for _, t := range nerdFontTerminals {
		if strings.Contains(termProgram, t) || strings.Contains(term, strings.ToLower(t)) {
			return true
		}
	}

	if os.Getenv("NERD_FONTS") == "1" {
		return true
	}

	// Default to Unicode fallback for maximum compatibility
	return false
}

// HasNerdFonts returns true if Nerd Fonts are available
func HasNerdFonts() bool {
	nerdFontDetected.Do(func() {
		useNerdFonts = detectNerdFonts()
	})
	return useNerdFonts
}

// Icon represents an icon with Nerd Font and Unicode fallback variants
type Icon struct {
	NerdFont string
	Fallback string
}

// String returns the appropriate icon based on font availability
func (i Icon) String() string {
	if HasNerdFonts() {
		return i.NerdFont
	}
	return i.Fallback
}

// Icon definitions - Nerd Font codepoints with Unicode fallbacks
var (
	// Identity and security
	Lock    = Icon{"󰌾", "🔒"} // nf-md-lock
	Account = Icon{"󰀄", "👤"} // nf-md-account
	Shield  = Icon{"󰒃", "⛊"} // nf-md-shield_check
	Key     = Icon{"󰌆", "🔑"} // nf-md-key

	// Status indicators
	CheckOK  = Icon{"", "✓"} // nf-oct-check_circle
	Warning  = Icon{"", "⚠"} // nf-oct-alert
	Critical = Icon{"", "✗"} // nf-oct-x_circle
	Info     = Icon{"", "ℹ"} // nf-oct-info

	// Devices, matched against session deviceInfo text
	Mobile  = Icon{"󰄜", "📱"} // nf-md-cellphone
	Tablet  = Icon{"󰓶", "📱"} // nf-md-tablet
	Laptop  = Icon{"󰌢", "💻"} // nf-md-laptop
	Desktop = Icon{"󰇄", "🖥"} // nf-md-desktop_classic

	// Actions
	Refresh = Icon{"󰑓", "↻"} // nf-md-refresh
	Back    = Icon{"󰁍", "←"} // nf-md-arrow_left
	Quit    = Icon{"󰗼", "×"} // nf-md-exit_to_app
	Trash   = Icon{"󰩹", "⌫"} // nf-md-trash_can
)

// ForDevice maps a session's deviceInfo description to a device icon
func ForDevice(deviceInfo string) Icon {
	info := strings.ToLower(deviceInfo)
	switch {
	case strings.Contains(info, "android"), strings.Contains(info, "iphone"), strings.Contains(info, "mobile"):
		return Mobile
	case strings.Contains(info, "tablet"), strings.Contains(info, "ipad"):
		return Tablet
	case strings.Contains(info, "mac"), strings.Contains(info, "windows"), strings.Contains(info, "laptop"):
		return Laptop
	default:
		return Desktop
	}
}
