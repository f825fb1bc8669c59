// Package session tracks an access/refresh token pair on the client side.
//
// A Manager is a small state machine:
//
//	Valid ──stale or invalidated──▶ Refreshing ──ok──▶ Valid
//	                                    │
//	                                    └──error──▶ Expired ──SetTokens──▶ Valid
//
// Callers that ask for a token while a refresh is running wait on one shared
// list and all receive the outcome of that single refresh.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSkew is how long before expiry a token is treated as stale.
const DefaultSkew = 30 * time.Second

var ErrSessionExpired = errors.New("session expired: sign in again")

// State of a Manager.
type State int

const (
	StateExpired State = iota
	StateValid
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateRefreshing:
		return "refreshing"
	default:
		return "expired"
	}
}

// Tokens is a token pair. A zero ExpiresAt is filled from the access token's
// exp claim when possible.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Refresher exchanges a refresh token for a new pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

type RefreshFunc func(ctx context.Context, refreshToken string) (Tokens, error)

func (f RefreshFunc) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	return f(ctx, refreshToken)
}

type outcome struct {
	token string
	err   error
}

// Manager hands out access tokens and refreshes them on demand. It is safe for
// concurrent use.
type Manager struct {
	refresher Refresher
	skew      time.Duration
	now       func() time.Time

	mu          sync.Mutex
	state       State
	tokens      Tokens
	invalidated bool
	epoch       uint64
	waiters     []chan outcome
}

type Option func(*Manager)

func WithSkew(d time.Duration) Option {
	return func(m *Manager) { m.skew = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager in StateExpired. Call SetTokens after sign-in.
func NewManager(refresher Refresher, opts ...Option) *Manager {
	m := &Manager{
		refresher: refresher,
		skew:      DefaultSkew,
		now:       time.Now,
		state:     StateExpired,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State reports the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetTokens installs a fresh pair and moves to StateValid. A refresh in flight
// is superseded: its waiters receive the new access token.
func (m *Manager) SetTokens(t Tokens) {
	if t.ExpiresAt.IsZero() {
		t.ExpiresAt = ExpiryOf(t.AccessToken)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.tokens = t
	m.invalidated = false
	m.state = StateValid
	m.release(outcome{token: t.AccessToken})
}

// Invalidate marks the current access token as rejected so the next Token call
// refreshes. It has no effect outside StateValid.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateValid {
		m.invalidated = true
	}
}

// Clear drops the tokens and moves to StateExpired.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.tokens = Tokens{}
	m.invalidated = false
	m.state = StateExpired
	m.release(outcome{err: ErrSessionExpired})
}

// Token returns a usable access token, refreshing first when the current one
// is stale or was invalidated. It returns ErrSessionExpired once the session
// cannot be refreshed.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()

	switch m.state {
	case StateExpired:
		m.mu.Unlock()
		return "", ErrSessionExpired

	case StateValid:
		if !m.invalidated && !m.stale() {
			token := m.tokens.AccessToken
			m.mu.Unlock()
			return token, nil
		}
		if m.tokens.RefreshToken == "" || m.refresher == nil {
			m.state = StateExpired
			m.tokens = Tokens{}
			m.mu.Unlock()
			return "", ErrSessionExpired
		}
		m.state = StateRefreshing
		// The refresh outlives any single caller's cancellation.
		go m.refresh(context.WithoutCancel(ctx), m.epoch, m.tokens.RefreshToken)
	}

	ch := make(chan outcome, 1)
	m.waiters = append(m.waiters, ch)
	m.mu.Unlock()

	select {
	case out := <-ch:
		return out.token, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) refresh(ctx context.Context, epoch uint64, refreshToken string) {
	tokens, err := m.refresher.Refresh(ctx, refreshToken)
	if err == nil && tokens.ExpiresAt.IsZero() {
		tokens.ExpiresAt = ExpiryOf(tokens.AccessToken)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.epoch {
		// SetTokens or Clear ran meanwhile and already released the waiters.
		return
	}
	m.epoch++

	if err != nil || tokens.AccessToken == "" {
		if err == nil {
			err = errors.New("empty access token")
		}
		m.state = StateExpired
		m.tokens = Tokens{}
		m.release(outcome{err: fmt.Errorf("%w: %v", ErrSessionExpired, err)})
		return
	}

	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}
	m.tokens = tokens
	m.invalidated = false
	m.state = StateValid
	m.release(outcome{token: tokens.AccessToken})
}

// release must be called with mu held.
func (m *Manager) release(out outcome) {
	for _, ch := range m.waiters {
		ch <- out
	}
	m.waiters = nil
}

func (m *Manager) stale() bool {
	if m.tokens.ExpiresAt.IsZero() {
		return false
	}
	return !m.now().Add(m.skew).Before(m.tokens.ExpiresAt)
}

// ExpiryOf reads the exp claim of a JWT without verifying its signature. It
// returns the zero time when the token has no readable exp.
func ExpiryOf(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
