package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/ideaforge-api/pkg/client"
	"github.com/Conceptual-Machines/ideaforge-api/pkg/session"
)

// Callers outside this module build their own manager and hand it to the client.
func TestWithSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer seeded", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"operation":"topics","result":["A"]}`))
	}))
	t.Cleanup(server.Close)

	refresher := session.RefreshFunc(func(context.Context, string) (session.Tokens, error) {
		t.Error("refresh should not be needed")
		return session.Tokens{}, session.ErrSessionExpired
	})
	m := session.NewManager(refresher)
	m.SetTokens(session.Tokens{AccessToken: "seeded"})

	c := client.New(server.URL, client.WithHTTPClient(server.Client()), client.WithSession(m))
	require.Same(t, m, c.Session())

	topics, err := c.ExpandTopic(context.Background(), "batteries")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, topics)
}
