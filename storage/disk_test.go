package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store := NewDiskStore(t.TempDir())

	url, err := store.Save("uploads/abc/photo.jpg", strings.NewReader("image bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/static/uploads/uploads/abc/photo.jpg", url)
}

func TestDiskStoreWritesUnderBaseDir(t *testing.T) {
	base := t.TempDir()
	store := NewDiskStore(base)

	_, err := store.Save("uploads/abc/photo.jpg", strings.NewReader("payload"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(base, "uploads", "abc", "photo.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestDiskStoreRejectsTraversal(t *testing.T) {
	store := NewDiskStore(t.TempDir())

	for _, p := range []string{"../outside.jpg", "uploads/../../outside.jpg", "/etc/passwd"} {
		_, err := store.Save(p, strings.NewReader("x"))
		assert.Error(t, err, "path %q must be rejected", p)
	}
}

func TestDiskStoreRemove(t *testing.T) {
	base := t.TempDir()
	store := NewDiskStore(base)

	_, err := store.Save("uploads/abc/photo.jpg", strings.NewReader("bytes"))
	require.NoError(t, err)

	require.NoError(t, store.Remove("uploads/abc/photo.jpg"))
	_, err = os.Stat(filepath.Join(base, "uploads", "abc", "photo.jpg"))
	assert.True(t, os.IsNotExist(err))

	// removing twice is fine
	assert.NoError(t, store.Remove("uploads/abc/photo.jpg"))
}
