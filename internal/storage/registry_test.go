package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileID(t *testing.T) {
	t.Run("is the crc32 of the name in hex", func(t *testing.T) {
		assert.Equal(t, "8c53961a", FileID("trace-a.jfr"))
		assert.Equal(t, "cbf3ecca", FileID("trace-b.jfr"))
		assert.Equal(t, "0", FileID(""))
	})

	t.Run("ignores content and directory", func(t *testing.T) {
		dirA := t.TempDir()
		dirB := t.TempDir()
		writeFile(t, dirA, "trace-a.jfr", "first")
		writeFile(t, dirB, "trace-a.jfr", "completely different content")

		filesA, err := NewRegistry(dirA, ".jfr").List()
		require.NoError(t, err)
		filesB, err := NewRegistry(dirB, ".jfr").List()
		require.NoError(t, err)

		require.Len(t, filesA, 1)
		require.Len(t, filesB, 1)
		assert.Equal(t, filesA[0].ID, filesB[0].ID)
		assert.NotEqual(t, filesA[0].Path, filesB[0].Path)
	})
}

func TestRegistry_List(t *testing.T) {
	t.Run("selects regular files by extension", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "trace-b.jfr", "bb")
		writeFile(t, dir, "trace-a.jfr", "a")
		writeFile(t, dir, "notes.txt", "ignored")
		writeFile(t, dir, "upper.JFR", "case sensitive")
		require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.jfr"), 0755))

		r := NewRegistry(dir, ".jfr")
		files, err := r.List()
		require.NoError(t, err)
		require.Len(t, files, 2)

		// Directory order is by name
		assert.Equal(t, "trace-a.jfr", files[0].Name)
		assert.Equal(t, "trace-b.jfr", files[1].Name)
		assert.Equal(t, "8c53961a", files[0].ID)
		assert.Equal(t, int64(1), files[0].Size)
		assert.Equal(t, int64(2), files[1].Size)
		assert.True(t, filepath.IsAbs(files[0].Path))
		assert.Equal(t, filepath.Join(r.Dir(), "trace-a.jfr"), files[0].Path)
	})

	t.Run("empty directory", func(t *testing.T) {
		files, err := NewRegistry(t.TempDir(), ".jfr").List()
		require.NoError(t, err)
		assert.NotNil(t, files)
		assert.Empty(t, files)
	})

	t.Run("replaces the listing on rescan", func(t *testing.T) {
		dir := t.TempDir()
		pathA := writeFile(t, dir, "trace-a.jfr", "a")
		r := NewRegistry(dir, ".jfr")
		_, err := r.List()
		require.NoError(t, err)

		require.NoError(t, os.Remove(pathA))
		writeFile(t, dir, "trace-b.jfr", "b")
		files, err := r.List()
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "trace-b.jfr", files[0].Name)

		_, err = r.Get(FileID("trace-a.jfr"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing directory keeps previous listing", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "trace-a.jfr", "a")
		r := NewRegistry(dir, ".jfr")
		_, err := r.List()
		require.NoError(t, err)

		require.NoError(t, os.RemoveAll(dir))
		files, err := r.List()
		assert.Nil(t, files)

		var de *DiscoveryError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, r.Dir(), de.Dir)
		assert.True(t, errors.Is(err, os.ErrNotExist))

		assert.Len(t, r.Files(), 1)
		f, err := r.Get("8c53961a")
		require.NoError(t, err)
		assert.Equal(t, "trace-a.jfr", f.Name)
	})
}

func TestRegistry_Get(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "trace-a.jfr", "abc")
	r := NewRegistry(dir, ".jfr")

	t.Run("nothing found before the first scan", func(t *testing.T) {
		_, err := r.Get("8c53961a")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, r.Files())
	})

	_, err := r.List()
	require.NoError(t, err)

	t.Run("finds a listed file", func(t *testing.T) {
		f, err := r.Get("8c53961a")
		require.NoError(t, err)
		assert.Equal(t, "trace-a.jfr", f.Name)
		assert.Equal(t, int64(3), f.Size)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := r.Get("deadbeef")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "deadbeef")
	})
}

func TestRegistry_ConcurrentListAndGet(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "trace-a.jfr", "a")
	r := NewRegistry(dir, ".jfr")
	_, err := r.List()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.List()
		}()
		go func() {
			defer wg.Done()
			f, err := r.Get("8c53961a")
			if assert.NoError(t, err) {
				assert.Equal(t, "trace-a.jfr", f.Name)
			}
		}()
	}
	wg.Wait()
}
