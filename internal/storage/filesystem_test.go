package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreWriteReadList(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"bob_2.png", "alice_2.jpg", "alice_1.png", "alice2_1.png"} {
		_, err := store.Write(ctx, key, []byte(key))
		require.NoError(t, err)
	}
	require.NoError(t, os.Mkdir(filepath.Join(store.BasePath(), "alice_dir"), 0o755))

	keys, err := store.List(ctx, "alice_")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice_1.png", "alice_2.jpg"}, keys)

	data, err := store.Read(ctx, "alice_2.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("alice_2.jpg"), data)

	_, err = store.Read(ctx, "carol_1.png")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"", "..", "../secret", "a/../../b"} {
		_, err := store.Read(context.Background(), key)
		assert.Error(t, err, key)
	}
}

func TestSanitizeKey(t *testing.T) {
	cases := map[string]string{
		"/alice_1.png":  "alice_1.png",
		"./alice_1.png": "alice_1.png",
		`dir\alice.png`: "dir/alice.png",
		"a/./b.png":     "a/b.png",
	}
	for in, want := range cases {
		got, err := sanitizeKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestFileStoreCanceledContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.List(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}
