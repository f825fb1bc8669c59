// Package client is a Go client for the IdeaForge generation API.
//
// Access tokens are managed by a session.Manager. A request rejected with 401
// invalidates the session, waits for one refresh and is replayed once.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Conceptual-Machines/ideaforge-api/pkg/session"
)

const (
	generatePath = "/api/v1/generate/"
	loginPath    = "/api/auth/login"
	logoutPath   = "/api/auth/logout"
	refreshPath  = "/api/auth/refresh"

	contentTypeJSON = "application/json"
)

// APIError is a non-2xx reply from the API.
type APIError struct {
	Status  int
	Message string
	Kind    string // generation failure kind, when the server reported one
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ideaforge api: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Manager
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSession replaces the session manager. Its refresher should call Refresh.
func WithSession(m *session.Manager) Option {
	return func(c *Client) {
		c.session = m
	}
}

// New creates a client for the API at baseURL. Call Login or SetTokens before
// making generation requests.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.session == nil {
		c.session = session.NewManager(session.RefreshFunc(c.Refresh))
	}
	return c
}

// Session exposes the token state machine.
func (c *Client) Session() *session.Manager {
	return c.session
}

// SetTokens seeds the session, e.g. from a token saved by a previous login.
func (c *Client) SetTokens(accessToken, refreshToken string) {
	c.session.SetTokens(session.Tokens{AccessToken: accessToken, RefreshToken: refreshToken})
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (t tokenResponse) tokens(now time.Time) session.Tokens {
	out := session.Tokens{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}
	if t.ExpiresIn > 0 {
		out.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return out
}

// Login exchanges credentials for tokens and stores them in the session.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}
	var out tokenResponse
	if err := c.send(ctx, loginPath, "", contentTypeJSON, body, &out); err != nil {
		return err
	}
	c.session.SetTokens(out.tokens(c.now()))
	return nil
}

// Logout tells the server to end the session and drops the local tokens. The
// tokens are dropped even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.session.Clear()
	return c.send(ctx, logoutPath, "", contentTypeJSON, []byte("{}"), nil)
}

// Refresh exchanges a refresh token for a new pair. It is the session's refresher.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (session.Tokens, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return session.Tokens{}, err
	}
	var out tokenResponse
	if err := c.send(ctx, refreshPath, "", contentTypeJSON, body, &out); err != nil {
		return session.Tokens{}, err
	}
	return out.tokens(c.now()), nil
}

// do sends an authenticated request, refreshing and replaying once on 401.
func (c *Client) do(ctx context.Context, path, contentType string, body []byte, out any) error {
	token, err := c.session.Token(ctx)
	if err != nil {
		return err
	}

	err = c.send(ctx, path, token, contentType, body, out)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	c.session.Invalidate()
	fresh, refreshErr := c.session.Token(ctx)
	if refreshErr != nil {
		return refreshErr
	}
	if fresh == token {
		return err
	}
	return c.send(ctx, path, fresh, contentType, body, out)
}

func (c *Client) send(ctx context.Context, path, token, contentType string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentTypeJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var payload struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Kind = payload.Kind
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
