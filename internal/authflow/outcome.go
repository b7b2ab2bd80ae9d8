// ABOUTME: Classifies login responses into a closed set of outcome variants
// ABOUTME: Prefers structured error codes, falls back to legacy message text

package authflow

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/aldavm/valhalla-cli/internal/client"
)

// OutcomeKind identifies the variant of a classified login result
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeAccountBlocked
	OutcomeSessionLimit
	OutcomeAttemptsRemaining
	OutcomeGenericFailure
)

// String returns the string representation of an OutcomeKind
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeAccountBlocked:
		return "account_blocked"
	case OutcomeSessionLimit:
		return "session_limit_exceeded"
	case OutcomeAttemptsRemaining:
		return "attempts_remaining"
	case OutcomeGenericFailure:
		return "generic_failure"
	default:
		return "unknown"
	}
}

// Outcome is a classified login result
type Outcome struct {
	Kind      OutcomeKind
	Token     string       // success only
	User      *client.User // success only
	Email     string       // blocked only
	Remaining int          // attempts-remaining only
	Message   string
}

// Structured error codes newer backends return alongside the message
const (
	codeAccountBlocked     = "ACCOUNT_BLOCKED"
	codeSessionLimit       = "SESSION_LIMIT_EXCEEDED"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
)

var attemptsPattern = regexp.MustCompile(`(\d+) attempts? remaining`)

// Classify maps a login response to its outcome variant. Older backends only
// return human-readable text, so message matching remains as the fallback.
func Classify(email string, result *client.LoginResult, err error) Outcome {
	if err == nil {
		return Outcome{
			Kind:  OutcomeSuccess,
			Token: result.AccessToken,
			User:  result.User,
		}
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return Outcome{Kind: OutcomeGenericFailure, Message: err.Error()}
	}

	msg := apiErr.Message
	if msg == "" {
		msg = apiErr.Error()
	}

	switch apiErr.Code {
	case codeAccountBlocked:
		return Outcome{Kind: OutcomeAccountBlocked, Email: email, Message: msg}
	case codeSessionLimit:
		return Outcome{Kind: OutcomeSessionLimit, Message: msg}
	case codeInvalidCredentials:
		if apiErr.RemainingAttempts != nil {
			return Outcome{Kind: OutcomeAttemptsRemaining, Remaining: *apiErr.RemainingAttempts, Message: msg}
		}
	}

	if isBlockedMessage(msg) {
		return Outcome{Kind: OutcomeAccountBlocked, Email: email, Message: msg}
	}
	if isSessionLimitMessage(msg) {
		return Outcome{Kind: OutcomeSessionLimit, Message: msg}
	}
	if n, ok := remainingFromMessage(msg); ok {
		return Outcome{Kind: OutcomeAttemptsRemaining, Remaining: n, Message: msg}
	}
	return Outcome{Kind: OutcomeGenericFailure, Message: msg}
}

func isBlockedMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "blocked") || strings.Contains(lower, "cuenta bloqueada")
}

func isSessionLimitMessage(msg string) bool {
	return strings.Contains(msg, "Maximum") && strings.Contains(msg, "active sessions allowed")
}

func remainingFromMessage(msg string) (int, bool) {
	m := attemptsPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
