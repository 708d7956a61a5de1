package database

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMigrateURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pgx5://u:p@h:5432/db?sslmode=disable", toMigrateURL("postgres://u:p@h:5432/db?sslmode=disable"))
	assert.Equal(t, "pgx5://u@h/db", toMigrateURL("postgresql://u@h/db"))
	assert.Equal(t, "pgx5://u@h/db", toMigrateURL("pgx5://u@h/db"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	t.Parallel()

	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	pool, connStr := SetupTestDB(t)
	ctx := context.Background()

	var exists bool
	err := pool.QueryRow(ctx, `SELECT to_regclass('public.synonyms') IS NOT NULL`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)

	// re-running is a no-op
	require.NoError(t, MigrateUp(connStr))

	require.NoError(t, MigrateDown(connStr))
	err = pool.QueryRow(ctx, `SELECT to_regclass('public.synonyms') IS NOT NULL`).Scan(&exists)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, MigrateUp(connStr))
}
