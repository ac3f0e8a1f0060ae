package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatar-server/internal/asset"
	"avatar-server/internal/domain"
)

func TestPhotoFromFlags(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "me.jpg")
	require.NoError(t, os.WriteFile(file, []byte("jpeg"), 0o644))

	src, err := photoFromFlags(file, "", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), src.Data)
	assert.Equal(t, "me.jpg", src.Filename)

	src, err = photoFromFlags("", " https://example.com/a.png ", "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.png", src.URL)
	assert.Empty(t, src.Data)

	src, err = photoFromFlags("", "", "")
	require.NoError(t, err)
	assert.True(t, src.IsEmpty())

	_, err = photoFromFlags(filepath.Join(dir, "missing.png"), "", "")
	require.Error(t, err)
}

func TestWriteResultIntoDirectory(t *testing.T) {
	dir := t.TempDir()
	result := domain.Result{
		Filename: "avatar_u1_00001_.png",
		DataURI:  asset.EncodeDataURI("image/png", []byte("png-bytes")),
	}

	path, err := writeResult(dir, result)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "avatar_u1_00001_.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestWriteResultExplicitFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "me.png")
	path, err := writeResult(out, domain.Result{DataURI: asset.EncodeDataURI("image/png", []byte("x"))})
	require.NoError(t, err)
	assert.Equal(t, out, path)
}

func TestWriteResultRejectsMalformedImage(t *testing.T) {
	_, err := writeResult(t.TempDir(), domain.Result{DataURI: "not-a-data-uri"})
	require.Error(t, err)
}
