//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wolfeidau/admindash/internal/store"
)

func setupPostgresContainer(t *testing.T, ctx context.Context) *Stores {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	stores, err := Open(ctx, &Config{
		ConnString:  fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(stores.Close)

	return stores
}

func TestIntegration_DocumentStore(t *testing.T) {
	ctx := context.Background()
	stores := setupPostgresContainer(t, ctx)
	docs := stores.Documents

	t.Run("migrations are idempotent", func(t *testing.T) {
		require.NoError(t, Migrate(ctx, stores.Pool))
	})

	var first store.Document

	t.Run("create and list in insertion order", func(t *testing.T) {
		var err error
		first, err = docs.Create(ctx, "products", store.Document{"ChemicalName": "Acetone", "inStock": true})
		require.NoError(t, err)
		require.NotEmpty(t, first.ID())

		_, err = docs.Create(ctx, "products", store.Document{"ChemicalName": "Benzene"})
		require.NoError(t, err)

		list, err := docs.List(ctx, "products")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Acetone", list[0].String("ChemicalName"))
		assert.Equal(t, true, list[0]["inStock"])

		n, err := docs.Count(ctx, "products")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("update merges", func(t *testing.T) {
		updated, err := docs.Update(ctx, "products", first.ID(), store.Document{"inStock": false, "_id": "nope"})
		require.NoError(t, err)
		assert.Equal(t, first.ID(), updated.ID())
		assert.Equal(t, false, updated["inStock"])
		assert.Equal(t, "Acetone", updated.String("ChemicalName"))
	})

	t.Run("collections are isolated", func(t *testing.T) {
		_, err := docs.Get(ctx, "blogs", first.ID())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("malformed ids are not found", func(t *testing.T) {
		_, err := docs.Get(ctx, "products", "not-a-uuid")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, docs.Delete(ctx, "products", first.ID()))
		require.ErrorIs(t, docs.Delete(ctx, "products", first.ID()), store.ErrNotFound)
	})
}

func TestIntegration_AdminStore(t *testing.T) {
	ctx := context.Background()
	admins := setupPostgresContainer(t, ctx).Admins

	created, err := admins.Upsert(ctx, &store.Admin{Name: "Ada", Email: "Admin@Example.com", PasswordHash: "h1"})
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", created.Email)
	assert.Equal(t, "admin", created.Role)

	again, err := admins.Upsert(ctx, &store.Admin{Name: "Ada L", Email: "admin@example.com", PasswordHash: "h2"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	phone := "555-0100"
	updated, err := admins.UpdateProfile(ctx, created.ID, store.ProfilePatch{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Ada L", updated.Name)
	assert.Equal(t, "555-0100", updated.Phone)

	got, err := admins.GetByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.PasswordHash)

	_, err = admins.GetByEmail(ctx, "who@example.com")
	require.ErrorIs(t, err, store.ErrAdminNotFound)
}
