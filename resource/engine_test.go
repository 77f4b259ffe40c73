package resource_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskdata/taskd"
	"github.com/taskdata/taskd/resource"
	"github.com/taskdata/taskd/snowflake"
	"github.com/taskdata/taskd/sqlite"
	"github.com/taskdata/taskd/sqlite/migrations"
	"github.com/taskdata/taskd/tasks"
	"go.uber.org/zap"
)

var idGen = snowflake.NewIDGenerator()

func TestCreateAndGetOwned(t *testing.T) {
	t.Parallel()

	engine, clean := newTestEngine(t)
	defer clean(t)
	ctx := context.Background()

	owner := idGen.ID()
	other := idGen.ID()

	// getting an id that was never assigned returns absent, not an error
	got, err := engine.GetOwned(ctx, owner, idGen.ID())
	require.NoError(t, err)
	require.Nil(t, got)

	created := mustCreate(t, engine, owner, map[string]interface{}{
		"title":       "buy milk",
		"description": "2 liters",
	})

	require.True(t, created.ID.Valid())
	require.Equal(t, owner, created.UserID)
	require.Equal(t, "buy milk", created.Title)
	require.NotNil(t, created.Description)
	require.Equal(t, "2 liters", *created.Description)
	require.False(t, created.Completed)
	require.False(t, created.CreatedAt.IsZero())
	require.Equal(t, created.CreatedAt, created.UpdatedAt)

	// round-trip: reading the record back returns exactly what was created
	got, err = engine.GetOwned(ctx, owner, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got.(*taskd.Task))

	// another subject sees the record as absent
	got, err = engine.GetOwned(ctx, other, created.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCreateStampsOwner(t *testing.T) {
	t.Parallel()

	engine, clean := newTestEngine(t)
	defer clean(t)

	owner := idGen.ID()
	hijack := idGen.ID()

	// owner and id values in the payload are dropped, not honored
	created := mustCreate(t, engine, owner, map[string]interface{}{
		"title":   "buy milk",
		"user_id": hijack,
		"id":      taskd.ID(12345),
	})

	require.Equal(t, owner, created.UserID)
	require.NotEqual(t, taskd.ID(12345), created.ID)
}

func TestIsOwned(t *testing.T) {
	t.Parallel()

	engine, clean := newTestEngine(t)
	defer clean(t)
	ctx := context.Background()

	owner := idGen.ID()
	other := idGen.ID()
	created := mustCreate(t, engine, owner, map[string]interface{}{"title": "buy milk"})

	owned, err := engine.IsOwned(ctx, owner, created.ID)
	require.NoError(t, err)
	require.True(t, owned)

	// a record owned by someone else and a record that does not exist give
	// the same answer
	owned, err = engine.IsOwned(ctx, other, created.ID)
	require.NoError(t, err)
	require.False(t, owned)

	owned, err = engine.IsOwned(ctx, owner, idGen.ID())
	require.NoError(t, err)
	require.False(t, owned)
}

func TestListOwned(t *testing.T) {
	t.Parallel()

	engine, clean := newTestEngine(t)
	defer clean(t)
	ctx := context.Background()

	owner := idGen.ID()
	other := idGen.ID()

	// empty list, not an error, when the subject owns nothing
	list, err := engine.ListOwned(ctx, owner, resource.Filter{})
	require.NoError(t, err)
	require.Equal(t, 0, list.Len())

	first := mustCreate(t, engine, owner, map[string]interface{}{"title": "first"})
	second := mustCreate(t, engine, owner, map[string]interface{}{"title": "second", "completed": true})
	third := mustCreate(t, engine, owner, map[string]interface{}{"title": "third"})
	mustCreate(t, engine, other, map[string]interface{}{"title": "not yours"})

	// only the subject's records come back, newest first
	list, err = engine.ListOwned(ctx, owner, resource.Filter{})
	require.NoError(t, err)
	got := *list.(*taskd.TaskList)
	require.Len(t, got, 3)
	require.Equal(t, third.ID, got[0].ID)
	require.Equal(t, second.ID, got[1].ID)
	require.Equal(t, first.ID, got[2].ID)
	for _, task := range got {
		require.Equal(t, owner, task.UserID)
	}

	// a caller filter narrows but cannot cross the ownership boundary
	list, err = engine.ListOwned(ctx, owner, resource.Filter{
		Where: map[string]interface{}{"completed": true},
	})
	require.NoError(t, err)
	got = *list.(*taskd.TaskList)
	require.Len(t, got, 1)
	require.Equal(t, second.ID, got[0].ID)

	// limit and offset page through the default ordering
	list, err = engine.ListOwned(ctx, owner, resource.Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	got = *list.(*taskd.TaskList)
	require.Len(t, got, 1)
	require.Equal(t, second.ID, got[0].ID)

	// filtering on a column outside the schema's filterable set is refused
	_, err = engine.ListOwned(ctx, owner, resource.Filter{
		Where: map[string]interface{}{"hashed_password": "x"},
	})
	require.Error(t, err)
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	engine, clean := newTestEngine(t)
	defer clean(t)
	ctx := context.Background()

	owner := idGen.ID()
	other := idGen.ID()

	// updating an absent record is a no-op, not an error
	got, err := engine.Update(ctx, owner, idGen.ID(), map[string]interface{}{"title": "nope"})
	require.NoError(t, err)
	require.Nil(t, got)

	created := mustCreate(t, engine, owner, map[string]interface{}{"title": "buy milk"})

	// another subject's update behaves exactly like the record not existing
	got, err = engine.Update(ctx, other, created.ID, map[string]interface{}{"title": "stolen"})
	require.NoError(t, err)
	require.Nil(t, got)

	unchanged, err := engine.GetOwned(ctx, owner, created.ID)
	require.NoError(t, err)
	require.Equal(t, "buy milk", unchanged.(*taskd.Task).Title)

	got, err = engine.Update(ctx, owner, created.ID, map[string]interface{}{
		"title":     "buy oat milk",
		"completed": true,
	})
	require.NoError(t, err)
	updated := got.(*taskd.Task)
	require.Equal(t, "buy oat milk", updated.Title)
	require.True(t, updated.Completed)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))
}

func TestUpdateOwnerImmutable(t *testing.T) {
	t.Parallel()

	engine, clean := newTestEngine(t)
	defer clean(t)
	ctx := context.Background()

	owner := idGen.ID()
	other := idGen.ID()
	created := mustCreate(t, engine, owner, map[string]interface{}{"title": "buy milk"})

	// the owner column is not updatable, whatever the payload says
	got, err := engine.Update(ctx, owner, created.ID, map[string]interface{}{
		"title":   "still mine",
		"user_id": other,
	})
	require.NoError(t, err)
	require.Equal(t, owner, got.(*taskd.Task).UserID)

	// and the record is still reachable only by its owner
	gone, err := engine.GetOwned(ctx, other, created.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	engine, clean := newTestEngine(t)
	defer clean(t)
	ctx := context.Background()

	owner := idGen.ID()
	other := idGen.ID()
	created := mustCreate(t, engine, owner, map[string]interface{}{"title": "buy milk"})

	// another subject cannot delete the record and cannot tell it exists
	deleted, err := engine.Delete(ctx, other, created.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	deleted, err = engine.Delete(ctx, owner, created.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	// deleting twice is idempotent: true then false, never an error
	deleted, err = engine.Delete(ctx, owner, created.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	got, err := engine.GetOwned(ctx, owner, created.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestToggle(t *testing.T) {
	t.Parallel()

	engine, clean := newTestEngine(t)
	defer clean(t)
	ctx := context.Background()

	owner := idGen.ID()
	other := idGen.ID()

	got, err := engine.Toggle(ctx, owner, idGen.ID(), "completed")
	require.NoError(t, err)
	require.Nil(t, got)

	created := mustCreate(t, engine, owner, map[string]interface{}{"title": "buy milk"})
	require.False(t, created.Completed)

	got, err = engine.Toggle(ctx, other, created.ID, "completed")
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = engine.Toggle(ctx, owner, created.ID, "completed")
	require.NoError(t, err)
	require.True(t, got.(*taskd.Task).Completed)

	// toggling twice returns the field to its original value
	got, err = engine.Toggle(ctx, owner, created.ID, "completed")
	require.NoError(t, err)
	require.False(t, got.(*taskd.Task).Completed)

	// only updatable columns may be toggled
	_, err = engine.Toggle(ctx, owner, created.ID, "user_id")
	require.Error(t, err)
}

func TestToggleConcurrent(t *testing.T) {
	t.Parallel()

	engine, clean := newTestEngine(t)
	defer clean(t)
	ctx := context.Background()

	owner := idGen.ID()
	created := mustCreate(t, engine, owner, map[string]interface{}{"title": "buy milk"})
	require.False(t, created.Completed)

	// each toggle reads and writes in one transaction, so concurrent
	// toggles serialize: an even number of them must land back on the
	// starting value, never losing an update
	const toggles = 20

	errs := make(chan error, toggles)

	var wg sync.WaitGroup
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := engine.Toggle(ctx, owner, created.ID, "completed")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	got, err := engine.GetOwned(ctx, owner, created.ID)
	require.NoError(t, err)
	require.False(t, got.(*taskd.Task).Completed)
}

func newTestEngine(t *testing.T) (*resource.Engine, func(t *testing.T)) {
	store, clean := sqlite.NewTestStore(t)
	ctx := context.Background()

	migrator := sqlite.NewMigrator(store, zap.NewNop())
	err := migrator.Up(ctx, migrations.All)
	require.NoError(t, err)

	return resource.NewEngine(zap.NewNop(), store, tasks.Schema{}), clean
}

func mustCreate(t *testing.T, engine *resource.Engine, owner taskd.ID, payload map[string]interface{}) *taskd.Task {
	t.Helper()

	rec, err := engine.Create(context.Background(), owner, payload)
	require.NoError(t, err)

	return rec.(*taskd.Task)
}
