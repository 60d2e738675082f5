package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/admindash/cmd/cli/internal/credentials"
)

func TestShell_LoginThenCommands(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	product := h.first(t, "products")
	order := h.first(t, "orders")

	script := strings.Join([]string{
		testEmail,
		testPassword,
		"filter acetone",
		"delete " + product.ID(),
		"n",
		"use orders",
		"status " + order.ID() + " shipped",
		"bogus",
		"create name=x",
		"exit",
	}, "\n") + "\n"

	g, out := h.globals(script)
	require.NoError(t, (&ShellCmd{Tab: "products"}).Run(ctx, g))

	got := out.String()
	assert.Contains(t, got, "Validating session...")
	assert.Contains(t, got, "Not logged in.")
	assert.Contains(t, got, "Logged in as "+testEmail)
	assert.Contains(t, got, "3 of 3 products")
	assert.Contains(t, got, "1 of 3 products")
	assert.Contains(t, got, "Delete product "+product.ID()+"? [y/N]: ")
	assert.Contains(t, got, "Cancelled.")
	assert.Contains(t, got, "orders> ")
	assert.Contains(t, got, "Updated orders "+order.ID())
	assert.Contains(t, got, `error: unknown command "bogus", type 'help'`)
	assert.Contains(t, got, "orders does not support create")

	stored, err := h.docs.Get(ctx, "orders", order.ID())
	require.NoError(t, err)
	assert.Equal(t, "shipped", stored.String("status"))

	_, err = h.docs.Get(ctx, "products", product.ID())
	require.NoError(t, err)
}

func TestShell_ReusesStoredSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	g, out := h.globals("stats\nprofile\n")
	require.NoError(t, (&ShellCmd{Tab: "careers"}).Run(context.Background(), g))

	got := out.String()
	assert.NotContains(t, got, "Not logged in.")
	assert.Contains(t, got, "2 of 2 careers")
	assert.Contains(t, got, "RESOURCE")
	assert.Contains(t, got, "Email:   "+testEmail)
}

func TestShell_BadLoginRetries(t *testing.T) {
	h := newHarness(t)

	script := strings.Join([]string{
		testEmail, "wrong-password",
		testEmail, testPassword,
		"exit",
	}, "\n") + "\n"

	g, out := h.globals(script)
	require.NoError(t, (&ShellCmd{Tab: "products"}).Run(context.Background(), g))

	got := out.String()
	assert.Contains(t, got, "error: login failed: Invalid email or password")
	assert.Equal(t, 2, strings.Count(got, "Email: "))
	assert.Contains(t, got, "Logged in as "+testEmail)
}

func TestShell_NoInputIsNotLoggedIn(t *testing.T) {
	h := newHarness(t)

	g, _ := h.globals("")
	require.ErrorIs(t, (&ShellCmd{Tab: "products"}).Run(context.Background(), g), ErrNotLoggedIn)
}

func TestShell_LogoutExits(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	g, out := h.globals("logout\ny\nstats\n")
	require.NoError(t, (&ShellCmd{Tab: "products"}).Run(context.Background(), g))
	assert.Contains(t, out.String(), "Logged out.")
	assert.NotContains(t, out.String(), "RESOURCE")

	store, err := credentials.NewStore(h.credDir, h.url)
	require.NoError(t, err)
	_, err = store.Get()
	require.Error(t, err)
}

func TestShell_UnknownTab(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	g, out := h.globals("show\nuse products\nexit\n")
	require.NoError(t, (&ShellCmd{Tab: "widgets"}).Run(context.Background(), g))

	got := out.String()
	assert.Contains(t, got, `error: unknown resource "widgets"`)
	assert.Contains(t, got, "error: no tab open, run 'use <resource>'")
	assert.Contains(t, got, "3 of 3 products")
}

func TestShell_Within(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	blogs, err := h.docs.List(ctx, "blogs")
	require.NoError(t, err)

	g, out := h.globals("within post " + blogs[0].ID() + "\nwithin post\nload\nexit\n")
	require.NoError(t, (&ShellCmd{Tab: "comments"}).Run(ctx, g))

	got := out.String()
	assert.Contains(t, got, "2 of 2 comments")
	assert.Contains(t, got, "Status: pending 1, approved 1")
	assert.Contains(t, got, "1 of 1 comments")
	assert.Contains(t, got, "Status: pending 1, approved 0")
	assert.Contains(t, got, "error: usage: within <post> <id>")
}

func TestShell_QuotedArguments(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	product := h.first(t, "products")

	script := strings.Join([]string{
		`filter "acetone"`,
		`update ` + product.ID() + ` ChemicalName=Acetone\ Extra\ Pure CASNumber='67-64-1 (dry)'`,
		`filter "oops`,
		"exit",
	}, "\n") + "\n"

	g, out := h.globals(script)
	require.NoError(t, (&ShellCmd{Tab: "products"}).Run(ctx, g))

	got := out.String()
	assert.Contains(t, got, "1 of 3 products")
	assert.Contains(t, got, "Updated products "+product.ID())
	assert.Contains(t, got, "error: invalid command line string")

	stored, err := h.docs.Get(ctx, "products", product.ID())
	require.NoError(t, err)
	assert.Equal(t, "Acetone Extra Pure", stored.String("ChemicalName"))
	assert.Equal(t, "67-64-1 (dry)", stored.String("CASNumber"))
}
