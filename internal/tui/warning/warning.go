// ABOUTME: Escalating warning panel for remaining login attempts
// ABOUTME: Renders severity-colored text with attempt progress

package warning

import (
	"fmt"
	"strings"

	"github.com/aldavm/valhalla-cli/internal/authflow"
	"github.com/aldavm/valhalla-cli/internal/tui/icons"
	"github.com/aldavm/valhalla-cli/internal/tui/widgets"
	"github.com/charmbracelet/lipgloss"
)

var (
	advisoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308")).Bold(true)
	elevatedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

// Render formats the lockout warning for the given state. Returns "" when no
// warning is active.
func Render(state authflow.LockoutState, width int) string {
	if !state.Active {
		return ""
	}

	var (
		style lipgloss.Style
		icon  icons.Icon
		head  string
	)
	switch state.Severity() {
	case authflow.SeverityCritical:
		style, icon = criticalStyle, icons.Critical
		head = "Last attempt available!"
		if state.RemainingAttempts == 0 {
			head = "No attempts remaining"
		}
	case authflow.SeverityElevated:
		style, icon = elevatedStyle, icons.Warning
		head = fmt.Sprintf("%d attempts remaining", state.RemainingAttempts)
	default:
		style, icon = advisoryStyle, icons.Info
		head = fmt.Sprintf("%d attempts remaining", state.RemainingAttempts)
	}

	barWidth := width - 4
	if barWidth < 10 {
		barWidth = 10
	}
	cfg := widgets.DefaultProgressBarConfig()
	cfg.Width = barWidth
	// The attempt bar escalates color with every failure.
	cfg.WarnThreshold = 34
	cfg.CritThreshold = 67
	percent := float64(state.FailedAttempts) / float64(state.MaxAttempts) * 100

	var sb strings.Builder
	sb.WriteString(style.Render(fmt.Sprintf("%s %s", icon, head)))
	sb.WriteString("\n")
	sb.WriteString(detailStyle.Render(fmt.Sprintf(
		"%d of %d failed attempts. The account is blocked after the next %d failure(s).",
		state.FailedAttempts, state.MaxAttempts, state.RemainingAttempts)))
	sb.WriteString("\n")
	sb.WriteString(widgets.ProgressBar(percent, cfg))
	return sb.String()
}
