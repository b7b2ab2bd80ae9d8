// ABOUTME: Tracks remaining login attempts reported by the server
// ABOUTME: Pure accounting; the server alone decides when an account blocks

package authflow

// MaxAttempts is the fixed number of login attempts before the server blocks
// an account.
const MaxAttempts = 3

// Severity grades the lockout warning shown to the user
type Severity int

const (
	SeverityNone Severity = iota
	SeverityAdvisory
	SeverityElevated
	SeverityCritical
)

// LockoutState is the derived attempt accounting. Active is false until the
// server has reported a remaining-attempts count for the current context.
type LockoutState struct {
	MaxAttempts       int
	FailedAttempts    int
	RemainingAttempts int
	Active            bool
}

// Severity returns the warning grade for the current state
func (s LockoutState) Severity() Severity {
	if !s.Active {
		return SeverityNone
	}
	switch {
	case s.RemainingAttempts <= 1:
		return SeverityCritical
	case s.RemainingAttempts <= 2:
		return SeverityElevated
	default:
		return SeverityAdvisory
	}
}

// LockoutTracker accumulates the server-reported attempt counts
type LockoutTracker struct {
	state LockoutState
}

// RecordRemaining updates the tracker from a server-reported count. Values
// outside 0..MaxAttempts are clamped, keeping the
// failed+remaining == MaxAttempts invariant.
func (t *LockoutTracker) RecordRemaining(n int) {
	if n < 0 {
		n = 0
	}
	if n > MaxAttempts {
		n = MaxAttempts
	}
	t.state = LockoutState{
		MaxAttempts:       MaxAttempts,
		FailedAttempts:    MaxAttempts - n,
		RemainingAttempts: n,
		Active:            true,
	}
}

// Clear resets the tracker to its inactive state
func (t *LockoutTracker) Clear() {
	t.state = LockoutState{}
}

// State returns a copy of the current lockout state
func (t *LockoutTracker) State() LockoutState {
	return t.state
}
