package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskdata/taskd/sqlite/migrations"
	"go.uber.org/zap"
)

func TestMigratorUp(t *testing.T) {
	t.Parallel()

	store, clean := NewTestStore(t)
	defer clean(t)
	ctx := context.Background()

	migrator := NewMigrator(store, zap.NewNop())
	require.NoError(t, migrator.Up(ctx, migrations.All))

	v, err := store.userVersion()
	require.NoError(t, err)
	require.Greater(t, v, 0)

	tables, err := store.tableNames()
	require.NoError(t, err)
	require.Contains(t, tables, "users")
	require.Contains(t, tables, "tasks")

	// running the migrator again is a no-op
	require.NoError(t, migrator.Up(ctx, migrations.All))

	again, err := store.userVersion()
	require.NoError(t, err)
	require.Equal(t, v, again)
}

func TestScriptVersion(t *testing.T) {
	t.Parallel()

	v, err := scriptVersion("0001_create_tables.sql")
	require.NoError(t, err)
	require.Equal(t, 1, v)

	v, err = scriptVersion("0299_drop_everything.sql")
	require.NoError(t, err)
	require.Equal(t, 299, v)

	_, err = scriptVersion("not_versioned.sql")
	require.Error(t, err)
}
