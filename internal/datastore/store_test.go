package datastore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryStore(t *testing.T) {
	root := t.TempDir()
	store := NewDirectory(filepath.Join(root, "out"))

	t.Run("Dir does not create the directory", func(t *testing.T) {
		dir, err := store.Dir()
		require.NoError(t, err)
		_, statErr := os.Stat(dir)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("File resolves without creating anything", func(t *testing.T) {
		p, err := store.File("results.json")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "out", "results.json"), p)
		assert.NoDirExists(t, filepath.Join(root, "out"))
	})

	t.Run("Path creates the directory for writing", func(t *testing.T) {
		p, err := store.Path("results.json")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "out", "results.json"), p)

		dir, _ := store.Dir()
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("Exists", func(t *testing.T) {
		p, err := store.Path("series.json")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(p, []byte("[]"), 0o644))

		assert.True(t, store.Exists("series.json"))
		assert.False(t, store.Exists("absent.json"))
	})

	t.Run("empty path is an error", func(t *testing.T) {
		_, err := NewDirectory("").Dir()
		assert.ErrorContains(t, err, "path is empty")
	})
}

func TestSubStore(t *testing.T) {
	root := t.TempDir()
	owner := NewDirectory(root)
	sub := NewSub(owner, "fig")

	t.Run("shares the owner directory with a name prefix", func(t *testing.T) {
		p, err := sub.Path("axes.json")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "fig-axes.json"), p)
	})

	t.Run("nested subs chain prefixes", func(t *testing.T) {
		inner := NewSub(sub, "legend")
		p, err := inner.Path("labels.json")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "fig-legend-labels.json"), p)
	})

	t.Run("File applies the same prefix", func(t *testing.T) {
		p, err := sub.File("axes.json")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "fig-axes.json"), p)
	})

	t.Run("Exists sees only prefixed files", func(t *testing.T) {
		p, err := sub.Path("axes.json")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0o644))

		assert.True(t, sub.Exists("axes.json"))
		assert.False(t, owner.Exists("axes.json"))
		assert.True(t, owner.Exists("fig-axes.json"))
	})
}

func TestHashStore(t *testing.T) {
	digest := Digest("logistic", []byte(`{"r":3.7}`))
	require.Len(t, digest, 64)
	assert.Equal(t, strings.ToLower(digest), digest)

	t.Run("digest is stable", func(t *testing.T) {
		assert.Equal(t, digest, Digest("logistic", []byte(`{"r":3.7}`)))
	})

	t.Run("app name participates in the digest", func(t *testing.T) {
		assert.NotEqual(t, digest, Digest("other", []byte(`{"r":3.7}`)))
	})

	t.Run("parameter bytes participate in the digest", func(t *testing.T) {
		assert.NotEqual(t, digest, Digest("logistic", []byte(`{"r":3.8}`)))
	})

	t.Run("directory layout shards on the first two characters", func(t *testing.T) {
		root := t.TempDir()
		store := NewHash(root, digest)
		dir, err := store.Dir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, digest[:2], digest[2:]), dir)
	})

	t.Run("empty root falls back to the default", func(t *testing.T) {
		store := NewHash("", digest)
		dir, err := store.Dir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(DefaultRoot, digest[:2], digest[2:]), dir)
	})

	t.Run("short digest is rejected", func(t *testing.T) {
		_, err := NewHash("", "ab").Dir()
		assert.ErrorContains(t, err, "too short")
	})
}
