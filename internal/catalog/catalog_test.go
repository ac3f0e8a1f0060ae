package catalog

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatar-server/internal/domain"
)

type failingSource struct{}

func (failingSource) List(context.Context, domain.StyleKind) ([]domain.StyleAsset, error) {
	return nil, errors.New("db down")
}

func TestStaticCatalogHasSevenOfEach(t *testing.T) {
	c := New(NewStatic(), nil)
	for _, kind := range []domain.StyleKind{domain.StyleGarment, domain.StyleBackdrop} {
		items, err := c.List(context.Background(), kind)
		require.NoError(t, err)
		assert.Len(t, items, 7)
		for _, item := range items {
			assert.Equal(t, kind, item.Kind)
			assert.NotEmpty(t, item.Description)
			assert.NotEmpty(t, item.LocalPath)
		}
	}
}

func TestStaticItemsAreCopies(t *testing.T) {
	items := StaticItems(domain.StyleGarment)
	items[0].Description = "changed"
	assert.NotEqual(t, "changed", StaticItems(domain.StyleGarment)[0].Description)
}

func TestLookup(t *testing.T) {
	c := New(NewStatic(), nil)
	got, err := c.Lookup(context.Background(), domain.StyleBackdrop, "b3")
	require.NoError(t, err)
	assert.Equal(t, "Lantern Festival Street", got.DisplayName)

	_, err = c.Lookup(context.Background(), domain.StyleBackdrop, "k1")
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))

	_, err = c.Lookup(context.Background(), domain.StyleGarment, " ")
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))

	_, err = c.List(context.Background(), domain.StyleKind("hat"))
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
}

func TestLookupSourceFailureIsNotInvalid(t *testing.T) {
	_, err := New(failingSource{}, nil).Lookup(context.Background(), domain.StyleGarment, "k1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrInvalidRequest))
}

func TestDirectoryScan(t *testing.T) {
	root := fstest.MapFS{
		"kimono/k2.png":            {Data: []byte("x")},
		"kimono/festival_red.webp": {Data: []byte("x")},
		"kimono/notes.txt":         {Data: []byte("x")},
		"kimono/.hidden.png":       {Data: []byte("x")},
		"background/b1.jpg":        {Data: []byte("x")},
	}
	d := NewDirectory(root, time.Minute, nil)

	garments, err := d.List(context.Background(), domain.StyleGarment)
	require.NoError(t, err)
	require.Len(t, garments, 2)
	assert.Equal(t, "festival_red", garments[0].ID)
	assert.Equal(t, "Festival Red", garments[0].DisplayName)
	assert.Equal(t, "festival red", garments[0].Description)
	assert.Equal(t, "kimono/festival_red.webp", garments[0].LocalPath)
	assert.Equal(t, "Elegant Wave", garments[1].DisplayName)
	assert.Equal(t, domain.StyleGarment, garments[1].Kind)

	backdrops, err := d.List(context.Background(), domain.StyleBackdrop)
	require.NoError(t, err)
	require.Len(t, backdrops, 1)
	assert.Equal(t, "background/b1.jpg", backdrops[0].LocalPath)
}

func TestDirectoryCachesUntilExpiry(t *testing.T) {
	root := fstest.MapFS{
		"kimono/k1.png":     {Data: []byte("x")},
		"background/b1.png": {Data: []byte("x")},
	}
	d := NewDirectory(root, 50*time.Millisecond, nil)
	items, err := d.List(context.Background(), domain.StyleGarment)
	require.NoError(t, err)
	require.Len(t, items, 1)

	root["kimono/k2.png"] = &fstest.MapFile{Data: []byte("x")}
	items, err = d.List(context.Background(), domain.StyleGarment)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	assert.Eventually(t, func() bool {
		items, err := d.List(context.Background(), domain.StyleGarment)
		return err == nil && len(items) == 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestDirectoryMissingFolder(t *testing.T) {
	d := NewDirectory(fstest.MapFS{"kimono/k1.png": {Data: []byte("x")}}, time.Minute, nil)
	_, err := d.List(context.Background(), domain.StyleGarment)
	assert.ErrorContains(t, err, "scan background")
}
