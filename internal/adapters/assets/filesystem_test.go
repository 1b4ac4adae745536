package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/arcana/internal/domain"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o644))
	return path
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fool := touch(t, dir, "the_fool.png")
	foolReversed := touch(t, dir, "the_fool_reversed.jpg")
	sun := touch(t, dir, "the_sun.webp")

	d, err := NewDirectory(dir)
	require.NoError(t, err)

	ref, ok, err := d.Lookup(ctx, domain.Card{Name: "The Fool", Image: "the_fool"}, domain.Upright)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, fool, ref)

	ref, ok, err = d.Lookup(ctx, domain.Card{Name: "The Fool", Image: "the_fool"}, domain.Reversed)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, foolReversed, ref)

	// reversed falls back to the upright image
	ref, ok, err = d.Lookup(ctx, domain.Card{Name: "The Sun", Image: "the_sun"}, domain.Reversed)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sun, ref)

	// no image name derives one from the card name
	ref, ok, err = d.Lookup(ctx, domain.Card{Name: "The Sun"}, domain.Upright)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sun, ref)

	_, ok, err = d.Lookup(ctx, domain.Card{Name: "The Moon", Image: "the_moon"}, domain.Upright)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmptyRootDisablesImages(t *testing.T) {
	d, err := NewDirectory("")
	require.NoError(t, err)
	_, ok, err := d.Lookup(context.Background(), domain.Card{Name: "The Fool"}, domain.Upright)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewDirectoryRejectsBadRoot(t *testing.T) {
	_, err := NewDirectory(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	file := touch(t, t.TempDir(), "x.png")
	_, err = NewDirectory(file)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
