package commands

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/admindash/cmd/cli/internal/credentials"
	"github.com/wolfeidau/admindash/internal/session"
)

func TestSessionsListCmd_Empty(t *testing.T) {
	g, out := (&harness{url: "http://localhost:8080", credDir: t.TempDir()}).globals("")

	require.NoError(t, (&SessionsListCmd{}).Run(context.Background(), g))
	assert.Contains(t, out.String(), "No sessions found.")
	assert.Contains(t, out.String(), "admindash login --server <url>")
}

func TestSessionsListCmd_MarksCurrent(t *testing.T) {
	dir := t.TempDir()

	for _, server := range []string{"https://a.example.com", "https://b.example.com"} {
		store, err := credentials.NewStore(dir, server)
		require.NoError(t, err)
		require.NoError(t, store.Set(&session.Credential{
			Token: "token-" + server,
			Admin: json.RawMessage(`{"email":"ops@example.com"}`),
		}))
	}

	g, out := (&harness{url: "https://b.example.com/", credDir: dir}).globals("")
	require.NoError(t, (&SessionsListCmd{}).Run(context.Background(), g))

	lines := splitLines(out.String())
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "FINGERPRINT")
	assert.Contains(t, lines[1], "https://a.example.com")
	assert.NotContains(t, lines[1], "*")
	assert.Contains(t, lines[2], "https://b.example.com")
	assert.Contains(t, lines[2], "ops@example.com")
	assert.Contains(t, lines[2], "*")
}

func TestSessionsCmd_AgainstServer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	g, out := h.globals("")
	require.NoError(t, (&SessionsListCmd{}).Run(ctx, g))
	assert.Contains(t, out.String(), h.url)
	assert.Contains(t, out.String(), testEmail)

	g, out = h.globals("")
	require.NoError(t, (&SessionsForgetCmd{}).Run(ctx, g))
	assert.Contains(t, out.String(), "Forgot session for "+h.url)

	g, _ = h.globals("")
	require.ErrorContains(t, (&SessionsForgetCmd{}).Run(ctx, g), "no session stored for "+h.url)
	require.ErrorIs(t, (&StatusCmd{}).Run(ctx, g), ErrNotLoggedIn)
}

func TestAdminEmail(t *testing.T) {
	tests := []struct {
		name  string
		admin string
		want  string
	}{
		{name: "cached profile", admin: `{"name":"Ada","email":"ada@example.com"}`, want: "ada@example.com"},
		{name: "no profile", want: "-"},
		{name: "profile without email", admin: `{"name":"Ada"}`, want: "-"},
		{name: "garbage", admin: `not json`, want: "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred := &session.Credential{Token: "t"}
			if tt.admin != "" {
				cred.Admin = json.RawMessage(tt.admin)
			}
			assert.Equal(t, tt.want, adminEmail(cred))
		})
	}
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
