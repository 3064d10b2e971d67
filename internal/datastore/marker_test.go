package datastore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "results.json")

	require.NoError(t, WriteFileAtomic(path, []byte(`{"ok":true}`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	t.Run("no temp files remain", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "results.json", entries[0].Name())
	})

	t.Run("overwrite replaces content in one step", func(t *testing.T) {
		require.NoError(t, WriteFileAtomic(path, []byte(`{"ok":false}`)))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, `{"ok":false}`, string(data))
	})
}

func TestMarkerProtocol(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	meta := &Meta{
		Status:     StatusComplete,
		App:        "logistic",
		Digest:     "abcd1234",
		RunID:      "2c5b2981-93c4-4b92-84d6-9a1c9a62a1de",
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
	}

	t.Run("roundtrip", func(t *testing.T) {
		store := NewDirectory(t.TempDir())
		require.NoError(t, WriteMeta(store, meta))

		got, err := ReadMeta(store)
		require.NoError(t, err)
		assert.Equal(t, meta.App, got.App)
		assert.Equal(t, meta.Digest, got.Digest)
		assert.Equal(t, meta.RunID, got.RunID)
		assert.True(t, got.FinishedAt.Equal(now))
	})

	t.Run("missing marker means incomplete", func(t *testing.T) {
		store := NewDirectory(t.TempDir())
		_, err := ReadMeta(store)
		assert.ErrorIs(t, err, ErrIncomplete)
		assert.False(t, IsComplete(store))
	})

	t.Run("reading never creates the directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "absent")
		store := NewDirectory(dir)
		_, err := ReadMeta(store)
		assert.ErrorIs(t, err, ErrIncomplete)
		assert.False(t, IsComplete(store))
		assert.NoDirExists(t, dir)
	})

	t.Run("unparsable marker means incomplete", func(t *testing.T) {
		dir := t.TempDir()
		store := NewDirectory(dir)
		require.NoError(t, os.WriteFile(filepath.Join(dir, MarkerFile), []byte("not json"), 0o644))
		_, err := ReadMeta(store)
		assert.ErrorIs(t, err, ErrIncomplete)
		assert.False(t, IsComplete(store))
	})

	t.Run("marker without completion status means incomplete", func(t *testing.T) {
		store := NewDirectory(t.TempDir())
		partial := *meta
		partial.Status = "running"
		require.NoError(t, WriteMeta(store, &partial))
		assert.False(t, IsComplete(store))
	})

	t.Run("marker without the parameter dump means incomplete", func(t *testing.T) {
		store := NewDirectory(t.TempDir())
		require.NoError(t, WriteMeta(store, meta))
		assert.False(t, IsComplete(store))
	})

	t.Run("complete store", func(t *testing.T) {
		store := NewDirectory(t.TempDir())
		path, err := store.Path(ParamsFile)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
		require.NoError(t, WriteMeta(store, meta))
		assert.True(t, IsComplete(store))
	})

	t.Run("sub markers are independent of the owner", func(t *testing.T) {
		dir := t.TempDir()
		owner := NewDirectory(dir)
		sub := NewSub(owner, "stats")

		path, err := owner.Path(ParamsFile)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
		require.NoError(t, WriteMeta(owner, meta))
		require.True(t, IsComplete(owner))

		assert.False(t, IsComplete(sub), "owner completion must not leak into the sub")

		subMeta := *meta
		subMeta.App = "seriesstats"
		path, err = sub.Path(ParamsFile)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
		require.NoError(t, WriteMeta(sub, &subMeta))

		assert.True(t, IsComplete(sub))
		assert.FileExists(t, filepath.Join(dir, "stats-"+MarkerFile))
		got, err := ReadMeta(sub)
		require.NoError(t, err)
		assert.Equal(t, "seriesstats", got.App)
		got, err = ReadMeta(owner)
		require.NoError(t, err)
		assert.Equal(t, "logistic", got.App)
	})
}
