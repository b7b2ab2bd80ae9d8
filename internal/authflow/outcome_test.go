// ABOUTME: Tests for login outcome classification
// ABOUTME: Covers structured codes and the legacy text fallback

package authflow

import (
	"errors"
	"testing"

	"github.com/aldavm/valhalla-cli/internal/client"
)

func TestClassify_Success(t *testing.T) {
	result := &client.LoginResult{
		AccessToken: "tok",
		User:        &client.User{ID: "u1", Name: "Ana", Email: "ana@example.com"},
	}
	outcome := Classify("ana@example.com", result, nil)
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("expected success, got %s", outcome.Kind)
	}
	if outcome.Token != "tok" {
		t.Errorf("expected token tok, got %s", outcome.Token)
	}
	if outcome.User == nil || outcome.User.Name != "Ana" {
		t.Errorf("expected user Ana, got %+v", outcome.User)
	}
}

func TestClassify_StructuredCodes(t *testing.T) {
	remaining := 1
	tests := []struct {
		name string
		err  *client.APIError
		want OutcomeKind
	}{
		{
			name: "account blocked code",
			err:  &client.APIError{StatusCode: 401, Code: "ACCOUNT_BLOCKED", Message: "nope"},
			want: OutcomeAccountBlocked,
		},
		{
			name: "session limit code",
			err:  &client.APIError{StatusCode: 409, Code: "SESSION_LIMIT_EXCEEDED", Message: "full"},
			want: OutcomeSessionLimit,
		},
		{
			name: "invalid credentials with remaining field",
			err:  &client.APIError{StatusCode: 401, Code: "INVALID_CREDENTIALS", Message: "bad", RemainingAttempts: &remaining},
			want: OutcomeAttemptsRemaining,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Classify("ana@example.com", nil, tt.err)
			if outcome.Kind != tt.want {
				t.Errorf("expected %s, got %s", tt.want, outcome.Kind)
			}
		})
	}
}

func TestClassify_CodeWinsOverText(t *testing.T) {
	// The message mentions sessions but the code says blocked.
	err := &client.APIError{
		StatusCode: 401,
		Code:       "ACCOUNT_BLOCKED",
		Message:    "Maximum number of active sessions allowed",
	}
	outcome := Classify("ana@example.com", nil, err)
	if outcome.Kind != OutcomeAccountBlocked {
		t.Errorf("expected code to take precedence, got %s", outcome.Kind)
	}
}

func TestClassify_LegacyTextFallback(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    OutcomeKind
	}{
		{"session limit text", "Maximum number of active sessions allowed reached", OutcomeSessionLimit},
		{"blocked english", "Your account has been Blocked", OutcomeAccountBlocked},
		{"blocked spanish", "Cuenta bloqueada por intentos fallidos", OutcomeAccountBlocked},
		{"attempts remaining plural", "Invalid credentials. 2 attempts remaining.", OutcomeAttemptsRemaining},
		{"attempts remaining singular", "Invalid credentials. 1 attempt remaining.", OutcomeAttemptsRemaining},
		{"generic", "something went wrong", OutcomeGenericFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &client.APIError{StatusCode: 401, Message: tt.message}
			outcome := Classify("ana@example.com", nil, err)
			if outcome.Kind != tt.want {
				t.Errorf("expected %s for %q, got %s", tt.want, tt.message, outcome.Kind)
			}
		})
	}
}

func TestClassify_RemainingParsedFromText(t *testing.T) {
	err := &client.APIError{StatusCode: 401, Message: "Invalid credentials. 2 attempts remaining."}
	outcome := Classify("ana@example.com", nil, err)
	if outcome.Kind != OutcomeAttemptsRemaining {
		t.Fatalf("expected attempts remaining, got %s", outcome.Kind)
	}
	if outcome.Remaining != 2 {
		t.Errorf("expected remaining 2, got %d", outcome.Remaining)
	}
}

func TestClassify_BlockedCarriesEmail(t *testing.T) {
	err := &client.APIError{StatusCode: 401, Code: "ACCOUNT_BLOCKED", Message: "blocked"}
	outcome := Classify("ana@example.com", nil, err)
	if outcome.Email != "ana@example.com" {
		t.Errorf("expected blocked outcome to carry the email, got %q", outcome.Email)
	}
}

func TestClassify_TransportError(t *testing.T) {
	outcome := Classify("ana@example.com", nil, errors.New("request timed out"))
	if outcome.Kind != OutcomeGenericFailure {
		t.Fatalf("expected generic failure, got %s", outcome.Kind)
	}
	if outcome.Message != "request timed out" {
		t.Errorf("expected transport message preserved, got %q", outcome.Message)
	}
}
