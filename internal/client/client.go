// ABOUTME: HTTP client for the Valhalla authentication backend
// ABOUTME: Wraps the /auth endpoints with typed errors for CLI usage

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is the API client for the Valhalla backend. It performs no retries;
// every call resolves or fails exactly once.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokenSource    func() string
	onUnauthorized func()
	deviceID       string
	deviceInfo     string
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource sets the function that supplies the bearer token for
// authenticated calls. An empty return means no token is attached.
func WithTokenSource(fn func() string) Option {
	return func(c *Client) { c.tokenSource = fn }
}

// WithUnauthorizedHandler sets the callback invoked when an authenticated
// call is rejected with 401. The handler runs before the error is returned.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithDeviceIdentity sets the device headers sent with login requests so the
// server can label this client in session listings.
func WithDeviceIdentity(id, info string) Option {
	return func(c *Client) {
		c.deviceID = id
		c.deviceInfo = info
	}
}

// New creates a new API client with the given base URL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// User is the authenticated identity returned by the backend
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	WelcomeMessage string `json:"welcomeMessage,omitempty"`
}

// LoginResult represents the POST /auth/login response
type LoginResult struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// RemoteSession is one active session as reported by the server
type RemoteSession struct {
	ID         string `json:"id"`
	DeviceInfo string `json:"deviceInfo"`
	IPAddress  string `json:"ipAddress"`
	CreatedAt  string `json:"createdAt"`
}

// SessionQuota represents the active-sessions response
type SessionQuota struct {
	Sessions         []RemoteSession `json:"sessions"`
	TotalSessions    int             `json:"totalSessions"`
	MaxTokensAllowed int             `json:"maxTokensAllowed"`
}

// SessionConfig represents the GET /auth/session-config response
type SessionConfig struct {
	MaxTokensAllowed int `json:"maxTokensAllowed"`
	TokenTTLMinutes  int `json:"tokenTTLMinutes,omitempty"`
}

// AccountStatus represents the POST /auth/account-status response
type AccountStatus struct {
	IsBlocked         bool `json:"isBlocked"`
	FailedAttempts    int  `json:"failedAttempts"`
	MaxAttempts       int  `json:"maxAttempts"`
	RemainingAttempts int  `json:"remainingAttempts"`
}

// ErrorResponse represents an API error body. Newer backends return a
// structured code; older ones only a text message.
type ErrorResponse struct {
	Message           string `json:"message"`
	Code              string `json:"code,omitempty"`
	RemainingAttempts *int   `json:"remainingAttempts,omitempty"`
}

// APIError is a non-2xx response decoded into its domain content
type APIError struct {
	StatusCode        int
	Code              string
	Message           string
	RemainingAttempts *int
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login calls POST /auth/login and returns the issued token and user
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login", credentialsBody{email, password})
	if err != nil {
		return nil, err
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-Id", c.deviceID)
	}
	if c.deviceInfo != "" {
		req.Header.Set("X-Device-Info", c.deviceInfo)
	}

	var result LoginResult
	if err := c.doUnauthenticated(req, &result); err != nil {
		return nil, err
	}
	if result.User == nil {
		return nil, fmt.Errorf("invalid response from backend: missing user")
	}
	return &result, nil
}

// ValidateCredentials calls POST /auth/validate-credentials. It checks the
// credentials without issuing a token.
func (c *Client) ValidateCredentials(ctx context.Context, email, password string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/validate-credentials", credentialsBody{email, password})
	if err != nil {
		return err
	}
	return c.doUnauthenticated(req, nil)
}

// SessionsByCredentials calls POST /auth/active-sessions-by-email. Used while
// unauthenticated, during the login saga.
func (c *Client) SessionsByCredentials(ctx context.Context, email, password string) (*SessionQuota, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/active-sessions-by-email", credentialsBody{email, password})
	if err != nil {
		return nil, err
	}
	var quota SessionQuota
	if err := c.doUnauthenticated(req, &quota); err != nil {
		return nil, err
	}
	return &quota, nil
}

// RemoveSessionByCredentials calls POST /auth/remove-session-by-email/{id}
func (c *Client) RemoveSessionByCredentials(ctx context.Context, sessionID, email, password string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/remove-session-by-email/"+sessionID, credentialsBody{email, password})
	if err != nil {
		return err
	}
	return c.doUnauthenticated(req, nil)
}

// SessionsByToken calls GET /auth/active-sessions with the bearer token
func (c *Client) SessionsByToken(ctx context.Context) (*SessionQuota, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/active-sessions", nil)
	if err != nil {
		return nil, err
	}
	var quota SessionQuota
	if err := c.doAuthenticated(req, &quota); err != nil {
		return nil, err
	}
	return &quota, nil
}

// SessionConfig calls GET /auth/session-config
func (c *Client) SessionConfig(ctx context.Context) (*SessionConfig, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/session-config", nil)
	if err != nil {
		return nil, err
	}
	var cfg SessionConfig
	if err := c.doAuthenticated(req, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RemoveSessionByToken calls POST /auth/remove-session/{id}
func (c *Client) RemoveSessionByToken(ctx context.Context, sessionID string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/remove-session/"+sessionID, nil)
	if err != nil {
		return err
	}
	return c.doAuthenticated(req, nil)
}

// RemoveCurrentSession calls POST /auth/remove-session, terminating the
// session behind the current token.
func (c *Client) RemoveCurrentSession(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/remove-session", nil)
	if err != nil {
		return err
	}
	return c.doAuthenticated(req, nil)
}

// AccountStatus calls POST /auth/account-status for the given email
func (c *Client) AccountStatus(ctx context.Context, email string) (*AccountStatus, error) {
	body := struct {
		Email string `json:"email"`
	}{email}
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/account-status", body)
	if err != nil {
		return nil, err
	}
	var status AccountStatus
	if err := c.doUnauthenticated(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Logout calls POST /auth/logout to invalidate the current token server-side
func (c *Client) Logout(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/logout", nil)
	if err != nil {
		return err
	}
	return c.doAuthenticated(req, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// doAuthenticated attaches the bearer token, executes the request, and fires
// the unauthorized handler on a 401.
func (c *Client) doAuthenticated(req *http.Request, out any) error {
	if c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return c.do(req, out, true)
}

// doUnauthenticated executes a credential-scoped request. A 401 here means
// bad credentials, not a rejected token, so the handler is not fired.
func (c *Client) doUnauthenticated(req *http.Request, out any) error {
	return c.do(req, out, false)
}

func (c *Client) do(req *http.Request, out any, authenticated bool) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.handleRequestError(req.Context(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := c.handleErrorResponse(resp)
		if authenticated && resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from backend: %w", err)
	}
	return nil
}

// handleRequestError converts transport-level failures to friendly errors
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if ctx.Err() == context.Canceled {
		return fmt.Errorf("request canceled")
	}
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("request timed out")
	}
	return fmt.Errorf("cannot connect to backend at %s: %w", c.baseURL, err)
}

// handleErrorResponse decodes a non-2xx body into an APIError. A 409 is
// passed through with whatever the server put in the body.
func (c *Client) handleErrorResponse(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
		apiErr.Code = errResp.Code
		apiErr.Message = errResp.Message
		apiErr.RemainingAttempts = errResp.RemainingAttempts
	}
	return apiErr
}
