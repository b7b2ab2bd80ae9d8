// ABOUTME: Resolves session-quota exhaustion by evicting remote sessions
// ABOUTME: Routes eviction through credentials or token and refreshes counts

package authflow

import (
	"context"

	"github.com/aldavm/valhalla-cli/internal/client"
)

// QuotaResolver exposes the active-session listing and eviction operations
// for the quota-exceeded branch of the login flow. While credentials are
// retained it works unauthenticated; otherwise it uses the bearer token.
type QuotaResolver struct {
	c *Controller
}

// Quota returns the resolver backed by this controller
func (c *Controller) Quota() *QuotaResolver {
	return &QuotaResolver{c: c}
}

// Current returns the last fetched session quota, or nil when none has been
// loaded yet.
func (q *QuotaResolver) Current() *client.SessionQuota {
	q.c.mu.Lock()
	defer q.c.mu.Unlock()
	if q.c.pending == nil {
		return nil
	}
	return q.c.pending.quota
}

// Refresh re-fetches the session quota. Counts shown to the user must come
// from here after every eviction, never from stale data.
func (q *QuotaResolver) Refresh(ctx context.Context) error {
	q.c.mu.Lock()
	pending := q.c.pending
	q.c.mu.Unlock()

	var (
		quota *client.SessionQuota
		err   error
	)
	if pending != nil {
		quota, err = q.c.gw.SessionsByCredentials(ctx, pending.email, pending.password)
	} else {
		quota, err = q.c.gw.SessionsByToken(ctx)
	}
	if err != nil {
		return err
	}

	q.c.mu.Lock()
	if q.c.pending != nil {
		q.c.pending.quota = quota
	}
	q.c.mu.Unlock()
	return nil
}

// Evict terminates one remote session by id, then refreshes the quota so
// retry availability reflects the new counts.
func (q *QuotaResolver) Evict(ctx context.Context, sessionID string) error {
	q.c.mu.Lock()
	pending := q.c.pending
	q.c.mu.Unlock()

	var err error
	if pending != nil {
		err = q.c.gw.RemoveSessionByCredentials(ctx, sessionID, pending.email, pending.password)
	} else {
		err = q.c.gw.RemoveSessionByToken(ctx, sessionID)
	}
	if err != nil {
		return err
	}
	return q.Refresh(ctx)
}

// CanRetry reports whether a login retry could now fit within the allowance.
// False until a quota has been fetched.
func (q *QuotaResolver) CanRetry() bool {
	q.c.mu.Lock()
	defer q.c.mu.Unlock()
	if q.c.pending == nil || q.c.pending.quota == nil {
		return false
	}
	return q.c.pending.quota.TotalSessions < q.c.pending.quota.MaxTokensAllowed
}
