// ABOUTME: Root bubbletea model for the interactive login flow
// ABOUTME: Routes between form, session-eviction, blocked, and welcome screens

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aldavm/valhalla-cli/internal/authflow"
	"github.com/aldavm/valhalla-cli/internal/client"
	"github.com/aldavm/valhalla-cli/internal/tui/loginform"
	"github.com/aldavm/valhalla-cli/internal/tui/sessionpicker"
	"github.com/aldavm/valhalla-cli/internal/tui/styles"
	"github.com/aldavm/valhalla-cli/internal/tui/warning"
)

// Screen represents the current TUI screen
type Screen int

const (
	ScreenForm Screen = iota
	ScreenSubmitting
	ScreenSessions
	ScreenBlocked
	ScreenWelcome
	ScreenDone
)

// submitResultMsg is sent when a login attempt (or retry) finishes
type submitResultMsg struct {
	outcome authflow.Outcome
	err     error
}

// evictResultMsg is sent when a session eviction and quota refresh finish
type evictResultMsg struct {
	err error
}

// App is the root model for the login TUI
type App struct {
	ctrl     *authflow.Controller
	resolver *authflow.QuotaResolver
	screen   Screen
	width    int
	height   int

	form   *loginform.Form
	picker *sessionpicker.Picker
	spin   spinner.Model

	errMsg       string
	blockedEmail string
	doneUser     *client.User
}

// New creates the login TUI application
func New(ctrl *authflow.Controller, prefillEmail string) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Secondary)

	return &App{
		ctrl:     ctrl,
		resolver: ctrl.Quota(),
		screen:   ScreenForm,
		form:     loginform.New(prefillEmail),
		spin:     sp,
	}
}

// AuthenticatedUser returns the user once the flow has committed, nil before
func (a *App) AuthenticatedUser() *client.User {
	return a.doneUser
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return a.form.Init()
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.form.SetWidth(msg.Width)
		if a.picker != nil {
			a.picker.SetWidth(msg.Width)
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.ctrl.Abandon()
			return a, tea.Quit
		}
		switch a.screen {
		case ScreenForm:
			return a.updateForm(msg)
		case ScreenSessions:
			return a.updatePicker(msg)
		case ScreenBlocked:
			return a.updateBlocked(msg)
		case ScreenWelcome:
			return a.updateWelcome(msg)
		case ScreenSubmitting:
			// Input is ignored while a submission is in flight.
			return a, nil
		}

	case spinner.TickMsg:
		if a.screen == ScreenSubmitting {
			var cmd tea.Cmd
			a.spin, cmd = a.spin.Update(msg)
			return a, cmd
		}
		return a, nil

	case loginform.SubmitMsg:
		a.errMsg = ""
		a.screen = ScreenSubmitting
		return a, tea.Batch(a.spin.Tick, a.submitCmd(msg.Email, msg.Password))

	case loginform.CancelledMsg:
		a.ctrl.Abandon()
		return a, tea.Quit

	case submitResultMsg:
		return a.handleSubmitResult(msg)

	case sessionpicker.EvictRequestedMsg:
		if a.picker != nil {
			a.picker.SetEvicting(msg.SessionID)
		}
		return a, a.evictCmd(msg.SessionID)

	case sessionpicker.RetryRequestedMsg:
		a.screen = ScreenSubmitting
		return a, tea.Batch(a.spin.Tick, a.retryCmd())

	case sessionpicker.CancelledMsg:
		// Leaving the session view discards the retained credentials.
		a.ctrl.Abandon()
		a.picker = nil
		return a.backToForm("")

	case evictResultMsg:
		if a.picker == nil {
			return a, nil
		}
		if msg.err != nil {
			a.picker.SetError(fmt.Sprintf("Failed to close session: %v", msg.err))
			return a, nil
		}
		a.picker.SetQuota(a.resolver.Current(), a.resolver.CanRetry())
		return a, nil

	default:
		// huh needs internal messages forwarded while the form is active
		if a.screen == ScreenForm {
			return a.updateForm(msg)
		}
	}

	return a, nil
}

func (a *App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := a.form.Update(msg)
	a.form = model.(*loginform.Form)
	return a, cmd
}

func (a *App) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.picker == nil {
		return a, nil
	}
	model, cmd := a.picker.Update(msg)
	a.picker = model.(*sessionpicker.Picker)
	return a, cmd
}

func (a *App) updateBlocked(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "enter", "esc":
		return a.backToForm("")
	}
	return a, nil
}

func (a *App) updateWelcome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc", "q":
		// Closing the welcome message commits the held login.
		user, err := a.ctrl.AcknowledgeWelcome()
		if err != nil {
			return a.backToForm(fmt.Sprintf("Could not complete the login: %v", err))
		}
		a.doneUser = user
		a.screen = ScreenDone
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) handleSubmitResult(msg submitResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		switch msg.err {
		case authflow.ErrAttemptAbandoned, authflow.ErrSubmitInFlight:
			// Stale or duplicate result; nothing to apply.
			return a, nil
		}
		return a.backToForm(msg.err.Error())
	}

	switch msg.outcome.Kind {
	case authflow.OutcomeSuccess:
		if a.ctrl.State() == authflow.StateAwaitingWelcomeAck {
			a.screen = ScreenWelcome
			return a, nil
		}
		a.doneUser = msg.outcome.User
		a.screen = ScreenDone
		return a, tea.Quit

	case authflow.OutcomeAccountBlocked:
		a.blockedEmail = msg.outcome.Email
		a.screen = ScreenBlocked
		return a, nil

	case authflow.OutcomeSessionLimit:
		a.picker = sessionpicker.New(msg.outcome.Message)
		a.picker.SetWidth(a.width)
		a.picker.SetQuota(a.resolver.Current(), a.resolver.CanRetry())
		a.screen = ScreenSessions
		return a, nil

	case authflow.OutcomeAttemptsRemaining:
		return a.backToForm(msg.outcome.Message)

	default:
		return a.backToForm(msg.outcome.Message)
	}
}

// backToForm returns to the credential form for a fresh attempt
func (a *App) backToForm(errMsg string) (tea.Model, tea.Cmd) {
	a.ctrl.ResetAttempt()
	a.errMsg = errMsg
	a.screen = ScreenForm
	return a, a.form.Reset()
}

func (a *App) submitCmd(email, password string) tea.Cmd {
	return func() tea.Msg {
		outcome, err := a.ctrl.Submit(context.Background(), email, password)
		return submitResultMsg{outcome: outcome, err: err}
	}
}

func (a *App) retryCmd() tea.Cmd {
	return func() tea.Msg {
		outcome, err := a.ctrl.Retry(context.Background())
		return submitResultMsg{outcome: outcome, err: err}
	}
}

func (a *App) evictCmd(sessionID string) tea.Cmd {
	return func() tea.Msg {
		return evictResultMsg{err: a.resolver.Evict(context.Background(), sessionID)}
	}
}

// View implements tea.Model
func (a *App) View() string {
	var sb strings.Builder

	sb.WriteString(styles.Title.Render("VALHALLA +"))
	sb.WriteString("\n")
	sb.WriteString(styles.Subtitle.Render("Sign in to continue"))
	sb.WriteString("\n")

	switch a.screen {
	case ScreenForm:
		if lockout := a.ctrl.Lockout(); lockout.Active {
			sb.WriteString(warning.Render(lockout, a.contentWidth()))
			sb.WriteString("\n\n")
		}
		if a.errMsg != "" {
			sb.WriteString(styles.ErrorText.Render(a.errMsg))
			sb.WriteString("\n\n")
		}
		sb.WriteString(a.form.View())

	case ScreenSubmitting:
		sb.WriteString(fmt.Sprintf("\n%s Signing in...\n", a.spin.View()))

	case ScreenSessions:
		if a.picker != nil {
			sb.WriteString(a.picker.View())
		}

	case ScreenBlocked:
		sb.WriteString(a.viewBlocked())

	case ScreenWelcome:
		sb.WriteString(a.viewWelcome())

	case ScreenDone:
		// Final confirmation prints after the program exits.
	}

	return sb.String()
}

func (a *App) viewBlocked() string {
	body := fmt.Sprintf("%s\n\n%s\n\n%s",
		styles.StatusCritical.Render("Account permanently blocked"),
		fmt.Sprintf("The account %s has been blocked after repeated failed login attempts.\nContact support to restore access.", styles.ValueStyle.Render(a.blockedEmail)),
		styles.Help.Render("enter try another account · q quit"))
	return styles.DangerPanel.Render(body)
}

func (a *App) viewWelcome() string {
	message, name, ok := a.ctrl.PendingWelcome()
	if !ok {
		return ""
	}
	body := fmt.Sprintf("%s\n\n%s\n\n%s",
		styles.StatusOK.Render(fmt.Sprintf("Welcome, %s!", name)),
		message,
		styles.Help.Render("press enter to continue"))
	return styles.Panel.Render(body)
}

func (a *App) contentWidth() int {
	if a.width <= 0 {
		return 60
	}
	return a.width - 4
}
