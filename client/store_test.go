package client_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/goliatone/go-sessions/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newSQLStore(t *testing.T) *client.SQLStore {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	store := client.NewSQLStore(db)
	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestState(t *testing.T) {
	assert.True(t, client.State{}.Empty())
	assert.False(t, client.State{Token: "t", ExpiresAt: 1}.Empty())

	assert.False(t, client.State{}.Orphaned())
	assert.False(t, client.State{Token: "t", ExpiresAt: 1}.Orphaned())
	assert.True(t, client.State{Token: "t"}.Orphaned())
	assert.True(t, client.State{ExpiresAt: 1}.Orphaned())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := client.NewMemoryStore()

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, state.Empty())

	saved := client.State{Token: "token-abc", ExpiresAt: 1234567890123}
	require.NoError(t, store.Save(ctx, saved))

	state, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, state)

	require.NoError(t, store.Clear(ctx))

	state, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, state.Empty())
}

func TestSQLStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save load clear round trip", func(t *testing.T) {
		store := newSQLStore(t)

		state, err := store.Load(ctx)
		require.NoError(t, err)
		assert.True(t, state.Empty())

		saved := client.State{Token: "token-abc", ExpiresAt: 1234567890123}
		require.NoError(t, store.Save(ctx, saved))

		state, err = store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, saved, state)

		require.NoError(t, store.Clear(ctx))

		state, err = store.Load(ctx)
		require.NoError(t, err)
		assert.True(t, state.Empty())
	})

	t.Run("save overwrites the previous pair", func(t *testing.T) {
		store := newSQLStore(t)

		require.NoError(t, store.Save(ctx, client.State{Token: "first", ExpiresAt: 100}))
		require.NoError(t, store.Save(ctx, client.State{Token: "second", ExpiresAt: 200}))

		state, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "second", state.Token)
		assert.Equal(t, int64(200), state.ExpiresAt)
	})

	t.Run("clear on an empty store is a no-op", func(t *testing.T) {
		store := newSQLStore(t)
		assert.NoError(t, store.Clear(ctx))
	})
}
