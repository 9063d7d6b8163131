package twofactor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-twofactor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePairingStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file reads as empty store", func(t *testing.T) {
		store := twofactor.NewFilePairingStore(filepath.Join(t.TempDir(), "pairings.json"))

		records, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)

		id, err := store.Find(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("corrupt file reads as empty store", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pairings.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		store := twofactor.NewFilePairingStore(path)

		records, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("upsert persists and survives a reload", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pairings.json")

		store := twofactor.NewFilePairingStore(path)
		require.NoError(t, store.Upsert(ctx, "Alice", "ACC1"))

		id, err := store.Find(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "ACC1", id)

		reloaded := twofactor.NewFilePairingStore(path)
		id, err = reloaded.Find(ctx, "ALICE")
		require.NoError(t, err)
		assert.Equal(t, "ACC1", id)
	})

	t.Run("upsert replaces the previous pairing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pairings.json")

		store := twofactor.NewFilePairingStore(path)
		require.NoError(t, store.Upsert(ctx, "alice", "ACC1"))
		require.NoError(t, store.Upsert(ctx, "alice", "ACC2"))

		records, err := store.Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "ACC2", records[0].AccountID)
	})

	t.Run("clear keeps the row with a blank account id", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pairings.json")

		store := twofactor.NewFilePairingStore(path)
		require.NoError(t, store.Upsert(ctx, "alice", "ACC1"))
		require.NoError(t, store.Clear(ctx, "alice"))

		id, err := store.Find(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, id)

		records, err := store.Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.False(t, records[0].Paired())

		reloaded := twofactor.NewFilePairingStore(path)
		records, err = reloaded.Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Empty(t, records[0].AccountID)
	})

	t.Run("clear on an unknown user is a no-op", func(t *testing.T) {
		store := twofactor.NewFilePairingStore(filepath.Join(t.TempDir(), "pairings.json"))
		require.NoError(t, store.Clear(ctx, "ghost"))
	})

	t.Run("persistence failure surfaces and rolls back", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "pairings.json")

		store := twofactor.NewFilePairingStore(path)
		require.NoError(t, store.Upsert(ctx, "alice", "ACC1"))

		// make the directory unwritable so the temp-file write fails
		require.NoError(t, os.Chmod(dir, 0o500))
		t.Cleanup(func() { os.Chmod(dir, 0o700) })

		err := store.Upsert(ctx, "alice", "ACC2")
		require.Error(t, err)
		assert.True(t, twofactor.IsPersistenceError(err))

		id, findErr := store.Find(ctx, "alice")
		require.NoError(t, findErr)
		assert.Equal(t, "ACC1", id)
	})

	t.Run("records load in stable order", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pairings.json")

		store := twofactor.NewFilePairingStore(path)
		require.NoError(t, store.Upsert(ctx, "carol", "ACC3"))
		require.NoError(t, store.Upsert(ctx, "alice", "ACC1"))
		require.NoError(t, store.Upsert(ctx, "bob", "ACC2"))

		records, err := store.Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "alice", records[0].Username)
		assert.Equal(t, "bob", records[1].Username)
		assert.Equal(t, "carol", records[2].Username)
	})
}
