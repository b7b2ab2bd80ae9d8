// ABOUTME: Active-session list for the quota-exceeded login flow
// ABOUTME: Lets the user pick a session to terminate and retry the login

package sessionpicker

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aldavm/valhalla-cli/internal/client"
	"github.com/aldavm/valhalla-cli/internal/tui/icons"
	"github.com/aldavm/valhalla-cli/internal/tui/widgets"
)

// EvictRequestedMsg is sent when the user asks to terminate a session
type EvictRequestedMsg struct {
	SessionID string
}

// RetryRequestedMsg is sent when the user asks to retry the login
type RetryRequestedMsg struct{}

// CancelledMsg is sent when the user closes the picker
type CancelledMsg struct{}

// Styles
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E5E7EB"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	retryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
)

// Picker is the session selection component
type Picker struct {
	quota    *client.SessionQuota
	reason   string
	cursor   int
	evicting string // id of the session being terminated, "" when none
	canRetry bool
	err      string
	width    int
}

// New creates a picker. reason is the server's quota-exhaustion message.
func New(reason string) *Picker {
	return &Picker{reason: reason}
}

// SetQuota replaces the displayed listing. Call after every refresh so stale
// counts are never shown.
func (p *Picker) SetQuota(quota *client.SessionQuota, canRetry bool) {
	p.quota = quota
	p.canRetry = canRetry
	p.evicting = ""
	if p.quota != nil && p.cursor >= len(p.quota.Sessions) {
		p.cursor = len(p.quota.Sessions) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

// SetEvicting marks a session as being terminated for spinner display
func (p *Picker) SetEvicting(sessionID string) {
	p.evicting = sessionID
	p.err = ""
}

// SetError displays an eviction or refresh failure
func (p *Picker) SetError(msg string) {
	p.err = msg
	p.evicting = ""
}

// SetWidth sets the render width
func (p *Picker) SetWidth(width int) {
	p.width = width
}

// Init implements tea.Model
func (p *Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (p *Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	// Ignore input while an eviction is in flight
	if p.evicting != "" {
		return p, nil
	}

	switch key.String() {
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.quota != nil && p.cursor < len(p.quota.Sessions)-1 {
			p.cursor++
		}
	case "enter", "x":
		if p.quota != nil && len(p.quota.Sessions) > 0 {
			id := p.quota.Sessions[p.cursor].ID
			return p, func() tea.Msg { return EvictRequestedMsg{SessionID: id} }
		}
	case "r":
		if p.canRetry {
			return p, func() tea.Msg { return RetryRequestedMsg{} }
		}
	case "esc", "q":
		return p, func() tea.Msg { return CancelledMsg{} }
	}
	return p, nil
}

// View implements tea.Model
func (p *Picker) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Session limit reached"))
	sb.WriteString("\n\n")
	if p.reason != "" {
		sb.WriteString(noticeStyle.Render(p.reason))
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render("Close one of your existing sessions to sign in on this device."))
	sb.WriteString("\n\n")

	if p.quota == nil {
		sb.WriteString(dimStyle.Render("Loading active sessions..."))
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(p.renderOccupancy())
	sb.WriteString("\n\n")

	for i, s := range p.quota.Sessions {
		line := fmt.Sprintf("%s  %s  %s  %s",
			icons.ForDevice(s.DeviceInfo), s.DeviceInfo, s.IPAddress, formatCreatedAt(s.CreatedAt))
		switch {
		case s.ID == p.evicting:
			sb.WriteString(dimStyle.Render("  " + line + "  (closing...)"))
		case i == p.cursor:
			sb.WriteString(selectedStyle.Render("> " + line))
		default:
			sb.WriteString(normalStyle.Render("  " + line))
		}
		sb.WriteString("\n")
	}
	if len(p.quota.Sessions) == 0 {
		sb.WriteString(dimStyle.Render("  no active sessions"))
		sb.WriteString("\n")
	}

	if p.err != "" {
		sb.WriteString("\n")
		sb.WriteString(noticeStyle.Render(p.err))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if p.canRetry {
		sb.WriteString(retryStyle.Render("A slot is free - press r to retry the login"))
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render("↑/↓ select · enter close session · r retry · esc cancel"))
	return sb.String()
}

// renderOccupancy shows sessions used against the allowance
func (p *Picker) renderOccupancy() string {
	cfg := widgets.DefaultProgressBarConfig()
	cfg.Width = 24
	cfg.WarnThreshold = 80
	cfg.CritThreshold = 100

	percent := 0.0
	if p.quota.MaxTokensAllowed > 0 {
		percent = float64(p.quota.TotalSessions) / float64(p.quota.MaxTokensAllowed) * 100
	}

	level := widgets.StatusOK
	switch {
	case percent >= 100:
		level = widgets.StatusCritical
	case percent >= 80:
		level = widgets.StatusWarning
	}

	return fmt.Sprintf("%s %s %s",
		widgets.Badge(fmt.Sprintf("%d/%d", p.quota.TotalSessions, p.quota.MaxTokensAllowed), level),
		widgets.ProgressBar(percent, cfg),
		dimStyle.Render("sessions in use"))
}

func formatCreatedAt(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.Local().Format("Jan 2 15:04")
}
