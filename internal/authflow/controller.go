// ABOUTME: Orchestrates the login flow: submission, outcome branching, retry
// ABOUTME: Owns the in-flight guard, pending credentials, and lockout state

package authflow

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/aldavm/valhalla-cli/internal/client"
	"go.uber.org/zap"
)

// State is the current phase of the login flow
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateAwaitingWelcomeAck
	StateSucceeded
	StateBlocked
	StateQuotaExceeded
	StateFailed
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingWelcomeAck:
		return "awaiting_welcome_ack"
	case StateSucceeded:
		return "succeeded"
	case StateBlocked:
		return "blocked"
	case StateQuotaExceeded:
		return "quota_exceeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrSubmitInFlight is returned when a submission is attempted while a
	// previous one has not finished. Concurrent submits are rejected, not
	// queued.
	ErrSubmitInFlight = errors.New("a login submission is already in flight")
	// ErrAttemptAbandoned is returned to a submission whose flow was
	// abandoned while the request was in flight. Its result is discarded.
	ErrAttemptAbandoned = errors.New("login attempt abandoned")
	// ErrNoPendingRetry is returned by Retry when no credentials are retained.
	ErrNoPendingRetry = errors.New("no pending login to retry")
	// ErrNotAwaitingWelcome is returned when there is no welcome message to
	// acknowledge.
	ErrNotAwaitingWelcome = errors.New("no welcome acknowledgement pending")
)

// ValidationError is a client-side rejection raised before any request is sent
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validateCredentials(email, password string) error {
	if email == "" {
		return &ValidationError{Field: "email", Reason: "is required"}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Reason: "is not a valid address"}
	}
	if password == "" {
		return &ValidationError{Field: "password", Reason: "is required"}
	}
	return nil
}

// Gateway is the subset of backend operations the login flow drives
type Gateway interface {
	Login(ctx context.Context, email, password string) (*client.LoginResult, error)
	SessionsByCredentials(ctx context.Context, email, password string) (*client.SessionQuota, error)
	RemoveSessionByCredentials(ctx context.Context, sessionID, email, password string) error
	SessionsByToken(ctx context.Context) (*client.SessionQuota, error)
	RemoveSessionByToken(ctx context.Context, sessionID string) error
}

// SessionSink receives the authenticated identity once login commits
type SessionSink interface {
	Login(token string, user *client.User) error
}

// pendingRetry holds the submitted credentials while the session-quota flow
// is open. This is the only place credentials outlive a submission, and it is
// discarded on every exit path. Never logged, never serialized.
type pendingRetry struct {
	email    string
	password string
	quota    *client.SessionQuota
}

type pendingWelcome struct {
	token string
	user  *client.User
}

// Controller drives login attempts against the Gateway and commits
// successful ones to the SessionSink. Methods are safe for use from the
// goroutines a TUI runtime spawns; only one submission may be in flight.
type Controller struct {
	mu      sync.Mutex
	gw      Gateway
	sink    SessionSink
	log     *zap.Logger
	state   State
	lockout LockoutTracker
	gen     uint64
	cancel  context.CancelFunc
	pending *pendingRetry
	welcome *pendingWelcome
}

// New creates a Controller in the idle state
func New(gw Gateway, sink SessionSink, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{gw: gw, sink: sink, log: log, state: StateIdle}
}

// State returns the current flow state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Lockout returns the current attempt accounting
func (c *Controller) Lockout() LockoutState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lockout.State()
}

// PendingWelcome returns the welcome message held before the deferred login
// commit, with the display name to greet.
func (c *Controller) PendingWelcome() (message, name string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.welcome == nil {
		return "", "", false
	}
	name = c.welcome.user.Name
	if name == "" {
		name = c.welcome.user.Email
	}
	return c.welcome.user.WelcomeMessage, name, true
}

// Submit runs one login attempt. Credentials are validated locally first;
// a second call while one is in flight fails with ErrSubmitInFlight.
func (c *Controller) Submit(ctx context.Context, email, password string) (Outcome, error) {
	if err := validateCredentials(email, password); err != nil {
		return Outcome{}, err
	}

	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return Outcome{}, ErrSubmitInFlight
	}
	return c.attemptLocked(ctx, email, password)
}

// Retry re-submits the retained credentials from the session-quota flow
func (c *Controller) Retry(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return Outcome{}, ErrSubmitInFlight
	}
	if c.pending == nil {
		c.mu.Unlock()
		return Outcome{}, ErrNoPendingRetry
	}
	email, password := c.pending.email, c.pending.password
	return c.attemptLocked(ctx, email, password)
}

// attemptLocked performs a single login round trip. The caller holds c.mu;
// the lock is released for the network call and re-taken to apply the result.
func (c *Controller) attemptLocked(ctx context.Context, email, password string) (Outcome, error) {
	c.state = StateSubmitting
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	result, err := c.gw.Login(ctx, email, password)
	outcome := Classify(email, result, err)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return Outcome{}, ErrAttemptAbandoned
	}
	c.cancel = nil

	switch outcome.Kind {
	case OutcomeSuccess:
		if strings.TrimSpace(outcome.User.WelcomeMessage) != "" {
			// Hold the token until the welcome message is acknowledged.
			c.welcome = &pendingWelcome{token: outcome.Token, user: outcome.User}
			c.setStateLocked(StateAwaitingWelcomeAck, outcome.Kind.String())
			c.mu.Unlock()
			return outcome, nil
		}
		if err := c.commitLocked(outcome.Token, outcome.User); err != nil {
			c.setStateLocked(StateFailed, outcome.Kind.String())
			c.mu.Unlock()
			return Outcome{}, err
		}
		c.mu.Unlock()
		return outcome, nil

	case OutcomeAccountBlocked:
		// A blocked account has no remaining-attempts meaning.
		c.lockout.Clear()
		c.pending = nil
		c.setStateLocked(StateBlocked, outcome.Kind.String())
		c.mu.Unlock()
		return outcome, nil

	case OutcomeSessionLimit:
		c.pending = &pendingRetry{email: email, password: password}
		c.setStateLocked(StateQuotaExceeded, outcome.Kind.String())
		c.mu.Unlock()
		// Populate the quota right away so the active sessions can be shown.
		quota, qerr := c.gw.SessionsByCredentials(ctx, email, password)
		c.mu.Lock()
		if gen == c.gen && c.pending != nil {
			if qerr != nil {
				c.log.Warn("failed to fetch active sessions", zap.Error(qerr))
			} else {
				c.pending.quota = quota
			}
		}
		c.mu.Unlock()
		return outcome, nil

	case OutcomeAttemptsRemaining:
		c.lockout.RecordRemaining(outcome.Remaining)
		c.setStateLocked(StateFailed, outcome.Kind.String())
		c.mu.Unlock()
		return outcome, nil

	default:
		c.setStateLocked(StateFailed, outcome.Kind.String())
		c.mu.Unlock()
		return outcome, nil
	}
}

// AcknowledgeWelcome commits the deferred login held behind the welcome
// message and returns the now-authenticated user.
func (c *Controller) AcknowledgeWelcome() (*client.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAwaitingWelcomeAck || c.welcome == nil {
		return nil, ErrNotAwaitingWelcome
	}
	user := c.welcome.user
	if err := c.commitLocked(c.welcome.token, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Abandon discards the current flow: any in-flight request is canceled and
// its late result ignored, and retained credentials are dropped.
func (c *Controller) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.pending = nil
	c.welcome = nil
	c.setStateLocked(StateIdle, "abandoned")
}

// ResetAttempt returns a terminal failure state to idle when the user starts
// a fresh attempt. Lockout accounting persists until the server reports
// otherwise.
func (c *Controller) ResetAttempt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateBlocked || c.state == StateFailed {
		c.state = StateIdle
	}
}

// commitLocked populates the session sink and clears all transient state.
// Caller holds c.mu.
func (c *Controller) commitLocked(token string, user *client.User) error {
	if err := c.sink.Login(token, user); err != nil {
		return err
	}
	c.lockout.Clear()
	c.pending = nil
	c.welcome = nil
	c.setStateLocked(StateSucceeded, "success")
	return nil
}

func (c *Controller) setStateLocked(next State, reason string) {
	if c.state != next {
		c.log.Debug("login flow transition",
			zap.String("from", c.state.String()),
			zap.String("to", next.String()),
			zap.String("reason", reason))
	}
	c.state = next
}
