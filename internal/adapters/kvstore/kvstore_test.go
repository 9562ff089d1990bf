package kvstore

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devbush/tabr/internal/domain"
	"github.com/devbush/tabr/internal/ports"
)

// exerciseStore runs the shared KVStore contract against an implementation.
func exerciseStore(t *testing.T, store ports.KVStore) {
	t.Helper()
	ctx := context.Background()

	got, err := store.Get(ctx, ports.TierLocal, []string{"missing"})
	require.NoError(t, err)
	assert.Empty(t, got, "missing keys are absent from results")

	require.NoError(t, store.Set(ctx, ports.TierLocal, map[string][]byte{
		"tabr_favorites": []byte(`[]`),
		"tabr_preload":   []byte(`{"provider":"unsplash"}`),
	}))
	require.NoError(t, store.Set(ctx, ports.TierSync, map[string][]byte{
		"photoSource": []byte(`"pixabay"`),
	}))

	got, err = store.Get(ctx, ports.TierLocal, []string{"tabr_favorites", "tabr_preload", "photoSource"})
	require.NoError(t, err)
	assert.Len(t, got, 2, "tiers are isolated")
	assert.Equal(t, `[]`, string(got["tabr_favorites"]))

	require.NoError(t, store.Set(ctx, ports.TierLocal, map[string][]byte{
		"tabr_favorites": []byte(`[{"url":"a"}]`),
	}))
	got, err = store.Get(ctx, ports.TierLocal, []string{"tabr_favorites"})
	require.NoError(t, err)
	assert.Equal(t, `[{"url":"a"}]`, string(got["tabr_favorites"]), "set overwrites")

	require.NoError(t, store.Remove(ctx, ports.TierLocal, []string{"tabr_favorites", "never-set"}))
	got, err = store.Get(ctx, ports.TierLocal, []string{"tabr_favorites", "tabr_preload"})
	require.NoError(t, err)
	assert.NotContains(t, got, "tabr_favorites")
	assert.Contains(t, got, "tabr_preload")

	got, err = store.Get(ctx, ports.TierSync, []string{"photoSource"})
	require.NoError(t, err)
	assert.Equal(t, `"pixabay"`, string(got["photoSource"]))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	value := []byte("original")
	require.NoError(t, store.Set(ctx, ports.TierLocal, map[string][]byte{"k": value}))
	value[0] = 'X'

	got, err := store.Get(ctx, ports.TierLocal, []string{"k"})
	require.NoError(t, err)
	assert.Equal(t, "original", string(got["k"]))
}

func TestSQLiteStore(t *testing.T) {
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "tabr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exerciseStore(t, store)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tabr.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, ports.TierSync, map[string][]byte{"unsplashKey": []byte(`"abc"`)}))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Get(ctx, ports.TierSync, []string{"unsplashKey"})
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(got["unsplashKey"]))
}

func TestSQLiteStore_Closed(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "tabr.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "double close is a no-op")

	_, err = store.Get(ctx, ports.TierLocal, []string{"k"})
	assert.ErrorIs(t, err, domain.ErrStoreClosed)
	assert.ErrorIs(t, store.Set(ctx, ports.TierLocal, map[string][]byte{"k": []byte("v")}), domain.ErrStoreClosed)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestMigrate_SkipsAppliedVersions(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "tabr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	files := fstest.MapFS{
		"001_kv_entries.sql": &fstest.MapFile{Data: []byte("CREAT broken;")},
		"002_extra.sql":      &fstest.MapFile{Data: []byte("CREATE TABLE extra(id TEXT);")},
	}
	require.NoError(t, migrate(ctx, store.db, files), "version 1 is already applied")
	require.NoError(t, migrate(ctx, store.db, files), "second run is a no-op")

	var version int
	require.NoError(t, store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, 2, version)

	_, err = store.db.ExecContext(ctx, "INSERT INTO extra(id) VALUES ('x')")
	assert.NoError(t, err)
}

func TestMigrate_RejectsUnnumberedFile(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "tabr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	files := fstest.MapFS{"init.sql": &fstest.MapFile{Data: []byte("SELECT 1;")}}
	assert.Error(t, migrate(ctx, store.db, files))
}
