package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestArchiveWritesTenantScopedKey(t *testing.T) {
	dir := t.TempDir()
	store, err := createLocalStore(map[string]interface{}{"dir": dir})
	require.NoError(t, err)

	archive := NewArchive(store, 30)
	archive.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	payload := []map[string]string{{"id": "p1"}}
	require.NoError(t, archive.Archive(context.Background(), "t1", "products", payload))

	path := filepath.Join(dir, "t1", "products", "20250601T120000Z.json")
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded []map[string]string
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, payload, decoded)
}

func TestArchivePruneKeepsRecent(t *testing.T) {
	dir := t.TempDir()
	store, err := createLocalStore(map[string]interface{}{"dir": dir})
	require.NoError(t, err)

	oldPath := filepath.Join(dir, "t1", "orders", "old.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(oldPath), 0o755))
	require.NoError(t, os.WriteFile(oldPath, []byte("{}"), 0o644))
	stale := time.Now().Add(-40 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, stale, stale))

	freshPath := filepath.Join(dir, "t1", "orders", "fresh.json")
	require.NoError(t, os.WriteFile(freshPath, []byte("{}"), 0o644))

	archive := NewArchive(store, 30)
	require.NoError(t, archive.Prune(context.Background()))

	_, err = os.Stat(oldPath)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshPath)
	require.NoError(t, err)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := createLocalStore(map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)
	err = store.Put(context.Background(), "../escape.json", []byte("{}"))
	require.Error(t, err)
}
