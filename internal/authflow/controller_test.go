// ABOUTME: Tests for the login flow controller
// ABOUTME: Uses fake gateway and sink to drive each outcome branch

package authflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aldavm/valhalla-cli/internal/client"
)

type fakeGateway struct {
	mu            sync.Mutex
	loginFn       func(ctx context.Context, email, password string) (*client.LoginResult, error)
	sessions      []client.RemoteSession
	maxAllowed    int
	loginCalls    int
	removedByCred []string
}

func (g *fakeGateway) Login(ctx context.Context, email, password string) (*client.LoginResult, error) {
	g.mu.Lock()
	g.loginCalls++
	g.mu.Unlock()
	return g.loginFn(ctx, email, password)
}

func (g *fakeGateway) SessionsByCredentials(ctx context.Context, email, password string) (*client.SessionQuota, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &client.SessionQuota{
		Sessions:         append([]client.RemoteSession(nil), g.sessions...),
		TotalSessions:    len(g.sessions),
		MaxTokensAllowed: g.maxAllowed,
	}, nil
}

func (g *fakeGateway) RemoveSessionByCredentials(ctx context.Context, sessionID, email, password string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removedByCred = append(g.removedByCred, sessionID)
	for i, s := range g.sessions {
		if s.ID == sessionID {
			g.sessions = append(g.sessions[:i], g.sessions[i+1:]...)
			return nil
		}
	}
	return errors.New("session not found")
}

func (g *fakeGateway) SessionsByToken(ctx context.Context) (*client.SessionQuota, error) {
	return g.SessionsByCredentials(ctx, "", "")
}

func (g *fakeGateway) RemoveSessionByToken(ctx context.Context, sessionID string) error {
	return g.RemoveSessionByCredentials(ctx, sessionID, "", "")
}

type fakeSink struct {
	mu    sync.Mutex
	token string
	user  *client.User
	calls int
	err   error
}

func (s *fakeSink) Login(token string, user *client.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.calls++
	s.token = token
	s.user = user
	return nil
}

func successLogin(token string, user *client.User) func(context.Context, string, string) (*client.LoginResult, error) {
	return func(ctx context.Context, email, password string) (*client.LoginResult, error) {
		return &client.LoginResult{AccessToken: token, User: user}, nil
	}
}

func failLogin(err error) func(context.Context, string, string) (*client.LoginResult, error) {
	return func(ctx context.Context, email, password string) (*client.LoginResult, error) {
		return nil, err
	}
}

func TestSubmit_SuccessCommitsSession(t *testing.T) {
	gw := &fakeGateway{loginFn: successLogin("tok", &client.User{ID: "u1", Name: "Ana", Email: "ana@example.com"})}
	sink := &fakeSink{}
	ctrl := New(gw, sink, nil)

	outcome, err := ctrl.Submit(context.Background(), "ana@example.com", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("expected success, got %s", outcome.Kind)
	}
	if ctrl.State() != StateSucceeded {
		t.Errorf("expected state succeeded, got %s", ctrl.State())
	}
	if sink.token != "tok" || sink.user == nil || sink.user.ID != "u1" {
		t.Errorf("expected sink to receive the session, got token=%q user=%+v", sink.token, sink.user)
	}
}

func TestSubmit_ValidatesBeforeRequest(t *testing.T) {
	gw := &fakeGateway{loginFn: successLogin("tok", &client.User{ID: "u1"})}
	ctrl := New(gw, &fakeSink{}, nil)

	tests := []struct {
		name     string
		email    string
		password string
		field    string
	}{
		{"missing email", "", "secret", "email"},
		{"malformed email", "not-an-address", "secret", "email"},
		{"missing password", "ana@example.com", "", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ctrl.Submit(context.Background(), tt.email, tt.password)
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected *ValidationError, got %T: %v", err, err)
			}
			if valErr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, valErr.Field)
			}
		})
	}
	if gw.loginCalls != 0 {
		t.Errorf("expected no requests for invalid input, got %d", gw.loginCalls)
	}
}

func TestSubmit_RejectsConcurrentSubmit(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &fakeGateway{loginFn: func(ctx context.Context, email, password string) (*client.LoginResult, error) {
		close(entered)
		<-release
		return &client.LoginResult{AccessToken: "tok", User: &client.User{ID: "u1"}}, nil
	}}
	ctrl := New(gw, &fakeSink{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Submit(context.Background(), "ana@example.com", "secret")
		done <- err
	}()
	<-entered

	_, err := ctrl.Submit(context.Background(), "ana@example.com", "secret")
	if !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("expected ErrSubmitInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
}

func TestAbandon_DiscardsInFlightResult(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &fakeGateway{loginFn: func(ctx context.Context, email, password string) (*client.LoginResult, error) {
		close(entered)
		<-release
		return &client.LoginResult{AccessToken: "tok", User: &client.User{ID: "u1"}}, nil
	}}
	sink := &fakeSink{}
	ctrl := New(gw, sink, nil)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Submit(context.Background(), "ana@example.com", "secret")
		done <- err
	}()
	<-entered

	ctrl.Abandon()
	close(release)

	if err := <-done; !errors.Is(err, ErrAttemptAbandoned) {
		t.Errorf("expected ErrAttemptAbandoned, got %v", err)
	}
	if sink.calls != 0 {
		t.Error("abandoned result must not reach the sink")
	}
	if ctrl.State() != StateIdle {
		t.Errorf("expected idle state after abandon, got %s", ctrl.State())
	}
}

func TestSubmit_AttemptsRemainingUpdatesLockout(t *testing.T) {
	remaining := 2
	gw := &fakeGateway{loginFn: failLogin(&client.APIError{
		StatusCode:        401,
		Code:              "INVALID_CREDENTIALS",
		Message:           "Invalid credentials. 2 attempts remaining.",
		RemainingAttempts: &remaining,
	})}
	ctrl := New(gw, &fakeSink{}, nil)

	outcome, err := ctrl.Submit(context.Background(), "ana@example.com", "wrong")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeAttemptsRemaining {
		t.Fatalf("expected attempts remaining, got %s", outcome.Kind)
	}

	state := ctrl.Lockout()
	if state.FailedAttempts != 1 || state.RemainingAttempts != 2 {
		t.Errorf("expected {failed:1 remaining:2}, got %+v", state)
	}
	if ctrl.State() != StateFailed {
		t.Errorf("expected state failed, got %s", ctrl.State())
	}
}

func TestSubmit_BlockedClearsLockout(t *testing.T) {
	remaining := 1
	gw := &fakeGateway{loginFn: failLogin(&client.APIError{
		StatusCode:        401,
		Code:              "INVALID_CREDENTIALS",
		Message:           "Invalid credentials. 1 attempt remaining.",
		RemainingAttempts: &remaining,
	})}
	ctrl := New(gw, &fakeSink{}, nil)
	if _, err := ctrl.Submit(context.Background(), "ana@example.com", "wrong"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gw.loginFn = failLogin(&client.APIError{StatusCode: 401, Code: "ACCOUNT_BLOCKED", Message: "Account blocked"})
	ctrl.ResetAttempt()
	outcome, err := ctrl.Submit(context.Background(), "ana@example.com", "wrong")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeAccountBlocked {
		t.Fatalf("expected blocked, got %s", outcome.Kind)
	}
	if ctrl.State() != StateBlocked {
		t.Errorf("expected state blocked, got %s", ctrl.State())
	}
	if ctrl.Lockout().Active {
		t.Error("blocked accounts carry no remaining-attempts meaning")
	}
}

func TestSubmit_SessionLimitRetainsCredentialsAndQuota(t *testing.T) {
	gw := &fakeGateway{
		loginFn: failLogin(&client.APIError{StatusCode: 409, Code: "SESSION_LIMIT_EXCEEDED", Message: "full"}),
		sessions: []client.RemoteSession{
			{ID: "s1", DeviceInfo: "iPhone"},
			{ID: "s2", DeviceInfo: "Windows"},
		},
		maxAllowed: 2,
	}
	ctrl := New(gw, &fakeSink{}, nil)

	outcome, err := ctrl.Submit(context.Background(), "ana@example.com", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeSessionLimit {
		t.Fatalf("expected session limit, got %s", outcome.Kind)
	}
	if ctrl.State() != StateQuotaExceeded {
		t.Errorf("expected state quota exceeded, got %s", ctrl.State())
	}

	quota := ctrl.Quota().Current()
	if quota == nil {
		t.Fatal("expected quota to be populated after the limit outcome")
	}
	if quota.TotalSessions != 2 || quota.MaxTokensAllowed != 2 {
		t.Errorf("expected 2/2, got %d/%d", quota.TotalSessions, quota.MaxTokensAllowed)
	}
	if ctrl.Quota().CanRetry() {
		t.Error("retry must not be offered while the allowance is full")
	}
}

func TestQuotaFlow_EvictThenRetrySucceeds(t *testing.T) {
	gw := &fakeGateway{
		loginFn: failLogin(&client.APIError{StatusCode: 409, Code: "SESSION_LIMIT_EXCEEDED", Message: "full"}),
		sessions: []client.RemoteSession{
			{ID: "s1", DeviceInfo: "iPhone"},
			{ID: "s2", DeviceInfo: "Windows"},
		},
		maxAllowed: 2,
	}
	sink := &fakeSink{}
	ctrl := New(gw, sink, nil)

	if _, err := ctrl.Submit(context.Background(), "ana@example.com", "secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resolver := ctrl.Quota()
	if err := resolver.Evict(context.Background(), "s1"); err != nil {
		t.Fatalf("evict failed: %v", err)
	}
	if got := resolver.Current().TotalSessions; got != 1 {
		t.Errorf("expected refreshed count 1 after eviction, got %d", got)
	}
	if !resolver.CanRetry() {
		t.Fatal("expected retry to be available after eviction")
	}

	// The retry reuses the retained credentials and now succeeds.
	gw.loginFn = successLogin("tok", &client.User{ID: "u1", Email: "ana@example.com"})
	outcome, err := ctrl.Retry(context.Background())
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("expected success, got %s", outcome.Kind)
	}
	if sink.calls != 1 {
		t.Errorf("expected one committed session, got %d", sink.calls)
	}
	if resolver.Current() != nil {
		t.Error("retained credentials and quota must be discarded after commit")
	}
}

func TestRetry_WithoutPendingFails(t *testing.T) {
	ctrl := New(&fakeGateway{}, &fakeSink{}, nil)
	_, err := ctrl.Retry(context.Background())
	if !errors.Is(err, ErrNoPendingRetry) {
		t.Errorf("expected ErrNoPendingRetry, got %v", err)
	}
}

func TestAbandon_DiscardsRetainedCredentials(t *testing.T) {
	gw := &fakeGateway{
		loginFn:    failLogin(&client.APIError{StatusCode: 409, Code: "SESSION_LIMIT_EXCEEDED", Message: "full"}),
		sessions:   []client.RemoteSession{{ID: "s1"}},
		maxAllowed: 1,
	}
	ctrl := New(gw, &fakeSink{}, nil)
	if _, err := ctrl.Submit(context.Background(), "ana@example.com", "secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctrl.Abandon()
	if ctrl.Quota().Current() != nil {
		t.Error("expected quota context dropped on abandon")
	}
	if _, err := ctrl.Retry(context.Background()); !errors.Is(err, ErrNoPendingRetry) {
		t.Errorf("expected ErrNoPendingRetry after abandon, got %v", err)
	}
}

func TestWelcomeMessage_DefersCommitUntilAck(t *testing.T) {
	user := &client.User{ID: "u1", Name: "Ana", Email: "ana@example.com", WelcomeMessage: "Welcome back!"}
	gw := &fakeGateway{loginFn: successLogin("tok", user)}
	sink := &fakeSink{}
	ctrl := New(gw, sink, nil)

	outcome, err := ctrl.Submit(context.Background(), "ana@example.com", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("expected success, got %s", outcome.Kind)
	}
	if ctrl.State() != StateAwaitingWelcomeAck {
		t.Fatalf("expected awaiting ack, got %s", ctrl.State())
	}
	if sink.calls != 0 {
		t.Fatal("session must not commit before the welcome is acknowledged")
	}

	message, name, ok := ctrl.PendingWelcome()
	if !ok || message != "Welcome back!" || name != "Ana" {
		t.Errorf("unexpected pending welcome: %q %q %v", message, name, ok)
	}

	acked, err := ctrl.AcknowledgeWelcome()
	if err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	if acked.ID != "u1" {
		t.Errorf("expected acked user u1, got %s", acked.ID)
	}
	if sink.calls != 1 {
		t.Errorf("expected commit after ack, got %d sink calls", sink.calls)
	}
	if ctrl.State() != StateSucceeded {
		t.Errorf("expected state succeeded, got %s", ctrl.State())
	}
}

func TestAcknowledgeWelcome_WithoutPending(t *testing.T) {
	ctrl := New(&fakeGateway{}, &fakeSink{}, nil)
	if _, err := ctrl.AcknowledgeWelcome(); !errors.Is(err, ErrNotAwaitingWelcome) {
		t.Errorf("expected ErrNotAwaitingWelcome, got %v", err)
	}
}

func TestResetAttempt_KeepsLockoutAccounting(t *testing.T) {
	remaining := 2
	gw := &fakeGateway{loginFn: failLogin(&client.APIError{
		StatusCode:        401,
		Code:              "INVALID_CREDENTIALS",
		Message:           "Invalid credentials. 2 attempts remaining.",
		RemainingAttempts: &remaining,
	})}
	ctrl := New(gw, &fakeSink{}, nil)
	if _, err := ctrl.Submit(context.Background(), "ana@example.com", "wrong"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctrl.ResetAttempt()
	if ctrl.State() != StateIdle {
		t.Errorf("expected idle, got %s", ctrl.State())
	}
	if state := ctrl.Lockout(); !state.Active || state.RemainingAttempts != 2 {
		t.Errorf("lockout accounting must survive a reset, got %+v", state)
	}
}

func TestSubmit_SuccessClearsLockout(t *testing.T) {
	remaining := 1
	gw := &fakeGateway{loginFn: failLogin(&client.APIError{
		StatusCode:        401,
		Code:              "INVALID_CREDENTIALS",
		Message:           "Invalid credentials. 1 attempt remaining.",
		RemainingAttempts: &remaining,
	})}
	ctrl := New(gw, &fakeSink{}, nil)
	if _, err := ctrl.Submit(context.Background(), "ana@example.com", "wrong"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gw.loginFn = successLogin("tok", &client.User{ID: "u1", Email: "ana@example.com"})
	ctrl.ResetAttempt()
	if _, err := ctrl.Submit(context.Background(), "ana@example.com", "right"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctrl.Lockout().Active {
		t.Error("expected lockout cleared after a successful login")
	}
}

func TestSubmit_SinkFailureFailsFlow(t *testing.T) {
	gw := &fakeGateway{loginFn: successLogin("tok", &client.User{ID: "u1", Email: "ana@example.com"})}
	sink := &fakeSink{err: errors.New("disk full")}
	ctrl := New(gw, sink, nil)

	_, err := ctrl.Submit(context.Background(), "ana@example.com", "secret")
	if err == nil {
		t.Fatal("expected error when the session cannot be persisted")
	}
	if ctrl.State() != StateFailed {
		t.Errorf("expected state failed, got %s", ctrl.State())
	}
}

func TestSubmit_ContextPropagates(t *testing.T) {
	gw := &fakeGateway{loginFn: func(ctx context.Context, email, password string) (*client.LoginResult, error) {
		select {
		case <-ctx.Done():
			return nil, errors.New("request canceled")
		case <-time.After(5 * time.Second):
			return &client.LoginResult{AccessToken: "tok", User: &client.User{ID: "u1"}}, nil
		}
	}}
	ctrl := New(gw, &fakeSink{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	outcome, err := ctrl.Submit(ctx, "ana@example.com", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeGenericFailure {
		t.Errorf("expected generic failure for a canceled request, got %s", outcome.Kind)
	}
}
