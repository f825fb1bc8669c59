package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
	"github.com/Conceptual-Machines/ideaforge-api/pkg/session"
)

func TestFilterSensitiveHeaders(t *testing.T) {
	filtered := filterSensitiveHeaders(map[string]string{
		"Authorization": "Bearer x",
		"cookie":        "access_token=y",
		"Content-Type":  "application/json",
	})
	assert.Equal(t, "[REDACTED]", filtered["Authorization"])
	assert.Equal(t, "[REDACTED]", filtered["cookie"])
	assert.Equal(t, "application/json", filtered["Content-Type"])
}

func TestBuildRequest(t *testing.T) {
	dir := t.TempDir()
	proposal := filepath.Join(dir, "proposal.txt")
	require.NoError(t, os.WriteFile(proposal, []byte("  a bold plan \n"), 0o600))
	doc := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(doc, []byte("%PDF-1.4"), 0o600))

	tests := []struct {
		name    string
		op      generation.Operation
		flags   generateFlags
		wantErr bool
		check   func(t *testing.T, req generation.Request)
	}{
		{name: "topics needs topic", op: generation.OpExpandTopic, wantErr: true},
		{
			name:  "ideas",
			op:    generation.OpGenerateIdeas,
			flags: generateFlags{topic: " batteries ", industrial: true},
			check: func(t *testing.T, req generation.Request) {
				assert.Equal(t, "batteries", req.Topic)
				assert.True(t, req.Industrial)
			},
		},
		{name: "critique needs context", op: generation.OpCritiqueProposal, wantErr: true},
		{
			name:  "critique from file",
			op:    generation.OpCritiqueProposal,
			flags: generateFlags{contextFile: proposal},
			check: func(t *testing.T, req generation.Request) {
				assert.Equal(t, "a bold plan", req.Context)
			},
		},
		{name: "extract needs file", op: generation.OpExtractText, wantErr: true},
		{
			name:  "extract detects mime type",
			op:    generation.OpExtractText,
			flags: generateFlags{file: doc},
			check: func(t *testing.T, req generation.Request) {
				assert.Equal(t, "application/pdf", req.MIMEType)
				assert.Equal(t, []byte("%PDF-1.4"), req.Content)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := buildRequest(tt.op, tt.flags)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.op, req.Operation)
			tt.check(t, req)
		})
	}
}

func TestRemoteRunner(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/api/auth/login" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"a1","refresh_token":"r1","expires_in":3600}`))
	}))
	t.Cleanup(server.Close)

	tests := []struct {
		name         string
		flags        generateFlags
		accessToken  string
		wantLoggedIn bool
		wantErr      bool
	}{
		{name: "password login", flags: generateFlags{email: "a@b.c", password: "pw"}, wantLoggedIn: true},
		{name: "token from environment", accessToken: "a1"},
		{name: "no credentials", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("IDEAFORGE_PASSWORD", "")
			t.Setenv("IDEAFORGE_ACCESS_TOKEN", tt.accessToken)
			tt.flags.apiURL = server.URL

			c, loggedIn, err := remoteRunner(context.Background(), tt.flags)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLoggedIn, loggedIn)
			assert.Equal(t, session.StateValid, c.Session().State())
		})
	}
}
