package layout

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typobench/internal/model"
)

func TestDefaultLookup(t *testing.T) {
	l := Default()

	e, err := l.Lookup('e')
	require.NoError(t, err)
	assert.Equal(t, LayerLowercase, e.Layer)
	assert.InDelta(t, 0.25, e.Center.X, 1e-9)
	assert.InDelta(t, 0.125, e.Center.Y, 1e-9)
	assert.Equal(t, model.Point{X: 0.2, Y: 0}, e.TopLeft())

	upper, err := l.Lookup('E')
	require.NoError(t, err)
	assert.Equal(t, LayerUppercase, upper.Layer)

	digit, err := l.Lookup('7')
	require.NoError(t, err)
	assert.Equal(t, LayerNumbers, digit.Layer)

	space, err := l.Lookup(' ')
	require.NoError(t, err)
	assert.Equal(t, LayerLowercase, space.Layer)
}

func TestLookupMiss(t *testing.T) {
	l := Default()
	_, err := l.Lookup('€')
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrKeyNotFound))

	_, err = l.KeyInfo('e', LayerNumbers)
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.False(t, l.Has('€'))
}

func TestWIsAdjacentToE(t *testing.T) {
	l := Default()
	dw, err := l.Distance('e', 'w')
	require.NoError(t, err)
	dp, err := l.Distance('e', 'p')
	require.NoError(t, err)
	assert.InDelta(t, keyWidth, dw, 1e-9)
	assert.Greater(t, dp, dw)
}

func TestNearestChar(t *testing.T) {
	l := Default()

	ch, err := l.NearestChar(model.Point{X: 0.26, Y: 0.1}, LayerLowercase)
	require.NoError(t, err)
	assert.Equal(t, 'e', ch)

	// Outside the keyboard, the closest center wins.
	ch, err = l.NearestChar(model.Point{X: -1, Y: 0.125}, LayerLowercase)
	require.NoError(t, err)
	assert.Equal(t, 'q', ch)

	_, err = l.NearestChar(model.Point{}, 99)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestNearestCharTieGoesToFirstKey(t *testing.T) {
	l, err := New("tie", nil, []Layer{{ID: 0, Keys: []Key{
		{Char: 'a', Bounds: Rect{Left: 0, Top: 0, Right: 1, Bottom: 1}},
		{Char: 'b', Bounds: Rect{Left: 2, Top: 0, Right: 3, Bottom: 1}},
	}}})
	require.NoError(t, err)
	ch, err := l.NearestChar(model.Point{X: 1.5, Y: 0.5}, 0)
	require.NoError(t, err)
	assert.Equal(t, 'a', ch)
}

func TestVirtualAccentLayers(t *testing.T) {
	l := Default()

	e, err := l.Lookup('e')
	require.NoError(t, err)
	eAcute, err := l.Lookup('é')
	require.NoError(t, err)
	eGrave, err := l.Lookup('è')
	require.NoError(t, err)

	assert.Greater(t, eAcute.Layer, LayerNumbers)
	assert.Equal(t, eAcute.Layer, eGrave.Layer)
	assert.Equal(t, e.Bounds.Bottom, eGrave.Bounds.Bottom)
	assert.InDelta(t, e.Bounds.Left+keyWidth, eAcute.Bounds.Left, 1e-9)

	a, err := l.Lookup('à')
	require.NoError(t, err)
	assert.NotEqual(t, eAcute.Layer, a.Layer)

	// The fifth accent starts a new row above.
	fifth := []rune(lowerAccents['e'])[4]
	info, err := l.Lookup(fifth)
	require.NoError(t, err)
	assert.InDelta(t, e.Bounds.Top, info.Bounds.Bottom, 1e-9)

	assert.Contains(t, l.Accents(), 'é')
	assert.Contains(t, l.LetterAccents(), 'É')
}

func TestIgnoreLayersAfter(t *testing.T) {
	l, err := New("en-US", nil, defaultLayers(), IgnoreLayersAfter(LayerLowercase))
	require.NoError(t, err)
	assert.True(t, l.Has('e'))
	assert.False(t, l.Has('E'))
	assert.False(t, l.Has('7'))
}

func TestNewRejectsEmptyBounds(t *testing.T) {
	_, err := New("bad", nil, []Layer{{ID: 0, Keys: []Key{{Char: 'a'}}}})
	require.Error(t, err)

	_, err = New("empty", nil, nil)
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.toml")
	content := `name = "tiny"
spelling_symbols = "'"

[[layers]]
id = 0
name = "lowercase"

[[layers.keys]]
char = "a"
accents = "à"
left = 0.0
top = 0.0
right = 0.5
bottom = 0.5

[[layers.keys]]
char = "space"
left = 0.0
top = 0.5
right = 1.0
bottom = 1.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	l, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tiny", l.Name())
	assert.True(t, l.IsSpellingSymbol('\''))
	assert.True(t, l.Has(' '))
	info, err := l.Lookup('à')
	require.NoError(t, err)
	assert.Equal(t, 1, info.Layer)
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = \"x\"\ncolour = 1\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
