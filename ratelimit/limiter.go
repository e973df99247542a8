// Package ratelimit implements a per-session fixed-window rate limiter
// backed by the learning store's rate-limit partition. The limiter fails
// open: when storage is unavailable requests are allowed, since denying
// a farmer an answer over an infrastructure fault is the worse outcome.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/krishimitra/advisor/core"
	"github.com/krishimitra/advisor/learning"
)

// Window state is kept a little past expiry so a read after the window
// rolls over still sees the stale record and resets it cleanly.
const ttlGrace = 300 * time.Second

// Defaults applied when options leave them zero
const (
	DefaultMaxRequests = 5
	DefaultWindow      = time.Hour
)

// Decision is the outcome of a rate-limit check
type Decision struct {
	Allowed      bool  `json:"allowed"`
	Limit        int   `json:"limit"`
	Count        int   `json:"current_count"`
	Remaining    int   `json:"remaining"`
	ResetSeconds int64 `json:"reset_seconds"`
}

// LimitExceededError reports a denied request and when the window resets
type LimitExceededError struct {
	SessionID    string
	Kind         string
	ResetSeconds int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for session %s (%s), resets in %ds",
		e.SessionID, e.Kind, e.ResetSeconds)
}

func (e *LimitExceededError) Unwrap() error { return core.ErrRateLimited }

// Limiter enforces a fixed request window per (session, kind)
type Limiter struct {
	store       learning.Store
	maxRequests int
	window      time.Duration
	logger      core.Logger
	now         func() time.Time
}

// LimiterOptions configures a Limiter
type LimiterOptions struct {
	Store       learning.Store
	MaxRequests int
	Window      time.Duration
	Logger      core.Logger
	Now         func() time.Time
}

// NewLimiter creates a rate limiter. A nil store means every check fails
// open.
func NewLimiter(opts LimiterOptions) *Limiter {
	store := opts.Store
	if store == nil {
		store = learning.Unavailable{}
	}
	maxRequests := opts.MaxRequests
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		store:       store,
		maxRequests: maxRequests,
		window:      window,
		logger:      logger,
		now:         now,
	}
}

func limitKey(sessionID, kind string) string {
	return sessionID + "#" + kind
}

// CheckAndIncrement consumes one request from the session's window. The
// returned error is non-nil only when the limit is exceeded, in which
// case it wraps core.ErrRateLimited.
func (l *Limiter) CheckAndIncrement(ctx context.Context, sessionID, kind string) (Decision, error) {
	now := l.now().Unix()
	windowSecs := int64(l.window / time.Second)

	rec, ok := l.store.RateLimitRead(ctx, limitKey(sessionID, kind))
	if !ok {
		rec = nil
	}

	if rec == nil || now-rec.WindowStart >= windowSecs {
		// Fresh window
		rec = &learning.RateLimitRecord{Count: 1, WindowStart: now, LastRequest: now}
		if !l.store.RateLimitWrite(ctx, limitKey(sessionID, kind), rec, l.window+ttlGrace) {
			return l.failOpen(sessionID, kind), nil
		}
		return Decision{
			Allowed:      true,
			Limit:        l.maxRequests,
			Count:        1,
			Remaining:    l.maxRequests - 1,
			ResetSeconds: windowSecs,
		}, nil
	}

	elapsed := now - rec.WindowStart
	reset := windowSecs - elapsed

	if rec.Count >= l.maxRequests {
		l.logger.Warn("Rate limit exceeded", map[string]interface{}{
			"session_id":    sessionID,
			"kind":          kind,
			"count":         rec.Count,
			"reset_seconds": reset,
		})
		return Decision{
			Allowed:      false,
			Limit:        l.maxRequests,
			Count:        rec.Count,
			Remaining:    0,
			ResetSeconds: reset,
		}, &LimitExceededError{SessionID: sessionID, Kind: kind, ResetSeconds: reset}
	}

	rec.Count++
	rec.LastRequest = now
	if !l.store.RateLimitWrite(ctx, limitKey(sessionID, kind), rec, l.window+ttlGrace) {
		return l.failOpen(sessionID, kind), nil
	}
	return Decision{
		Allowed:      true,
		Limit:        l.maxRequests,
		Count:        rec.Count,
		Remaining:    l.maxRequests - rec.Count,
		ResetSeconds: reset,
	}, nil
}

// Status reports the window state without consuming a request
func (l *Limiter) Status(ctx context.Context, sessionID, kind string) Decision {
	now := l.now().Unix()
	windowSecs := int64(l.window / time.Second)

	rec, ok := l.store.RateLimitRead(ctx, limitKey(sessionID, kind))
	if !ok || rec == nil || now-rec.WindowStart >= windowSecs {
		return Decision{
			Allowed:      true,
			Limit:        l.maxRequests,
			Count:        0,
			Remaining:    l.maxRequests,
			ResetSeconds: windowSecs,
		}
	}

	remaining := l.maxRequests - rec.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:      rec.Count < l.maxRequests,
		Limit:        l.maxRequests,
		Count:        rec.Count,
		Remaining:    remaining,
		ResetSeconds: windowSecs - (now - rec.WindowStart),
	}
}

// failOpen is the degraded decision when storage cannot be written
func (l *Limiter) failOpen(sessionID, kind string) Decision {
	l.logger.Warn("Rate limit storage unavailable, failing open", map[string]interface{}{
		"session_id": sessionID,
		"kind":       kind,
	})
	return Decision{
		Allowed:      true,
		Limit:        l.maxRequests,
		Count:        1,
		Remaining:    l.maxRequests - 1,
		ResetSeconds: int64(l.window / time.Second),
	}
}
