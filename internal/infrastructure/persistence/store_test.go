package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfguard/backend/internal/shared/types"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	store := NewFileStore(path)

	end := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	in := types.PersistedData{
		Whitelist: []types.WhitelistEntry{
			{ID: 1, Name: "Opera", IsTracked: true, AddedDate: end},
		},
		Sessions: []types.SessionRecord{
			{ID: 3, AppName: "opera", StartTime: end.Add(-time.Minute), EndTime: &end, DurationSeconds: 60},
		},
		NextSessionID: 4,
	}
	require.NoError(t, store.Save(in))

	out, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, int64(4), out.NextSessionID)
	require.Len(t, out.Whitelist, 1)
	assert.Equal(t, "Opera", out.Whitelist[0].Name)
	require.Len(t, out.Sessions, 1)
	require.NotNil(t, out.Sessions[0].EndTime)
	assert.True(t, out.Sessions[0].EndTime.Equal(end))
	assert.False(t, out.Sessions[0].IsCurrent)
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	data, err := store.Load()
	require.NoError(t, err)

	assert.Empty(t, data.Whitelist)
	assert.Empty(t, data.Sessions)
	assert.Equal(t, int64(1), data.NextSessionID)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestFileStoreCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "data.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(types.PersistedData{NextSessionID: 1}))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestFileStoreBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	store := NewFileStore(path).WithBackup(true)

	// First save has nothing to back up.
	require.NoError(t, store.Save(types.PersistedData{NextSessionID: 1}))
	_, err := os.Stat(path + ".bak.gz")
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Save(types.PersistedData{NextSessionID: 2}))
	_, err = os.Stat(path + ".bak.gz")
	assert.NoError(t, err)
}
