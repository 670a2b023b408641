// Package layout models keyboard geometry: layers of keys with rectangles,
// character lookup and nearest key resolution.
package layout

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"unicode"

	"github.com/verte-zerg/typobench/internal/model"
)

// Base layer identifiers. Virtual accent layers are numbered after the
// highest real layer.
const (
	LayerLowercase = 0
	LayerUppercase = 1
	LayerNumbers   = 2
)

// accentsPerLine is how many virtual accent keys sit side by side.
const accentsPerLine = 4

// ErrKeyNotFound is returned when a character cannot be typed on a layout.
var ErrKeyNotFound = errors.New("layout: key not found")

// Rect is a key bounding box. Y grows downward.
type Rect struct {
	Left   float64 `toml:"left" json:"left"`
	Top    float64 `toml:"top" json:"top"`
	Right  float64 `toml:"right" json:"right"`
	Bottom float64 `toml:"bottom" json:"bottom"`
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Center returns the middle of the rectangle.
func (r Rect) Center() model.Point {
	return model.Point{X: r.Left + r.Width()/2, Y: r.Top + r.Height()/2}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p model.Point) bool {
	return r.Left <= p.X && p.X <= r.Right && r.Top <= p.Y && p.Y <= r.Bottom
}

// Clamp moves p inside r.
func (r Rect) Clamp(p model.Point) model.Point {
	return model.Point{
		X: math.Min(math.Max(p.X, r.Left), r.Right),
		Y: math.Min(math.Max(p.Y, r.Top), r.Bottom),
	}
}

// Key is one button of a layer.
type Key struct {
	Char    rune
	Bounds  Rect
	Accents []rune
}

// KeyInfo is the geometry of a character on one layer.
type KeyInfo struct {
	Layer  int
	Bounds Rect
	Center model.Point
}

// TopLeft returns the top-left corner of the key.
func (k KeyInfo) TopLeft() model.Point {
	return model.Point{X: k.Bounds.Left, Y: k.Bounds.Top}
}

// Layer is a list of keys sharing an identifier.
type Layer struct {
	ID   int
	Name string
	Keys []Key
}

// Layout is an immutable keyboard. It is safe for concurrent use.
type Layout struct {
	name     string
	spelling []rune
	layers   map[int][]Key
	ids      []int
	byLayer  map[int]map[rune]KeyInfo
	lowest   map[rune]KeyInfo
	accents  []rune
}

// Option customizes layout construction.
type Option func(*buildConfig)

type buildConfig struct {
	ignoreAfter int
	ignore      bool
}

// IgnoreLayersAfter drops real layers with an identifier above id.
func IgnoreLayersAfter(id int) Option {
	return func(c *buildConfig) {
		c.ignoreAfter = id
		c.ignore = true
	}
}

// New builds a layout from real layers. Accents of every key are given their
// own virtual keys, on a fresh layer per base key, so that accent typos can
// be distance aware.
func New(name string, spelling []rune, layers []Layer, opts ...Option) (*Layout, error) {
	cfg := buildConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("layout %q has no layers", name)
	}

	l := &Layout{
		name:     name,
		spelling: slices.Clone(spelling),
		layers:   make(map[int][]Key),
		byLayer:  make(map[int]map[rune]KeyInfo),
		lowest:   make(map[rune]KeyInfo),
	}

	sorted := slices.Clone(layers)
	slices.SortStableFunc(sorted, func(a, b Layer) int { return a.ID - b.ID })
	nextVirtual := 0
	for _, layer := range sorted {
		if layer.ID < 0 {
			return nil, fmt.Errorf("layout %q: negative layer id %d", name, layer.ID)
		}
		nextVirtual = max(nextVirtual, layer.ID+1)
	}

	seenAccent := make(map[rune]bool)
	for _, layer := range sorted {
		if cfg.ignore && layer.ID > cfg.ignoreAfter {
			continue
		}
		for _, key := range layer.Keys {
			if key.Bounds.Width() <= 0 || key.Bounds.Height() <= 0 {
				return nil, fmt.Errorf("layout %q: key %q has empty bounds", name, key.Char)
			}
			l.add(layer.ID, Key{Char: key.Char, Bounds: key.Bounds, Accents: slices.Clone(key.Accents)})
			if len(key.Accents) == 0 {
				continue
			}
			for i, accent := range key.Accents {
				l.add(nextVirtual, Key{Char: accent, Bounds: virtualBounds(i, key.Bounds)})
				if !seenAccent[accent] {
					seenAccent[accent] = true
					l.accents = append(l.accents, accent)
				}
			}
			nextVirtual++
		}
	}
	if len(l.lowest) == 0 {
		return nil, fmt.Errorf("layout %q has no keys", name)
	}
	slices.Sort(l.accents)
	for id := range l.layers {
		l.ids = append(l.ids, id)
	}
	slices.Sort(l.ids)
	return l, nil
}

func (l *Layout) add(layer int, key Key) {
	l.layers[layer] = append(l.layers[layer], key)
	info := KeyInfo{Layer: layer, Bounds: key.Bounds, Center: key.Bounds.Center()}
	chars := l.byLayer[layer]
	if chars == nil {
		chars = make(map[rune]KeyInfo)
		l.byLayer[layer] = chars
	}
	if _, ok := chars[key.Char]; !ok {
		chars[key.Char] = info
	}
	if cur, ok := l.lowest[key.Char]; !ok || cur.Layer > layer {
		l.lowest[key.Char] = info
	}
}

// virtualBounds places accent idx of a key in rows of four, stacking rows
// upward from the base key.
func virtualBounds(idx int, base Rect) Rect {
	w, h := base.Width(), base.Height()
	left := base.Left + float64(idx%accentsPerLine)*w
	bottom := base.Bottom - float64(idx/accentsPerLine)*h
	return Rect{Left: left, Top: bottom - h, Right: left + w, Bottom: bottom}
}

// Name returns the layout name.
func (l *Layout) Name() string { return l.name }

// IsSpellingSymbol reports whether r may appear inside a word.
func (l *Layout) IsSpellingSymbol(r rune) bool { return slices.Contains(l.spelling, r) }

// Accents returns every accented character of the layout, sorted.
func (l *Layout) Accents() []rune { return slices.Clone(l.accents) }

// Layers returns the identifiers of real and virtual layers, sorted.
func (l *Layout) Layers() []int { return slices.Clone(l.ids) }

// Keys returns the keys of a layer in definition order.
func (l *Layout) Keys(layer int) []Key { return slices.Clone(l.layers[layer]) }

// KeyInfo returns the geometry of r on a specific layer.
func (l *Layout) KeyInfo(r rune, layer int) (KeyInfo, error) {
	info, ok := l.byLayer[layer][r]
	if !ok {
		return KeyInfo{}, fmt.Errorf("%w: %q on layer %d", ErrKeyNotFound, r, layer)
	}
	return info, nil
}

// Lookup returns the geometry of r on the lowest layer holding it.
func (l *Layout) Lookup(r rune) (KeyInfo, error) {
	info, ok := l.lowest[r]
	if !ok {
		return KeyInfo{}, fmt.Errorf("%w: %q", ErrKeyNotFound, r)
	}
	return info, nil
}

// Has reports whether r can be typed.
func (l *Layout) Has(r rune) bool {
	_, ok := l.lowest[r]
	return ok
}

// NearestChar returns the character of the key containing p on a layer.
// Outside every key it falls back to the closest key center; ties go to the
// key defined first.
func (l *Layout) NearestChar(p model.Point, layer int) (rune, error) {
	keys := l.layers[layer]
	if len(keys) == 0 {
		return 0, fmt.Errorf("%w: empty layer %d", ErrKeyNotFound, layer)
	}
	for _, k := range keys {
		if k.Bounds.Contains(p) {
			return k.Char, nil
		}
	}
	best := keys[0].Char
	bestDist := math.Inf(1)
	for _, k := range keys {
		if d := Euclidean(p, k.Bounds.Center()); d < bestDist {
			best, bestDist = k.Char, d
		}
	}
	return best, nil
}

// Distance returns the distance between the key centers of two characters.
func (l *Layout) Distance(a, b rune) (float64, error) {
	ka, err := l.Lookup(a)
	if err != nil {
		return 0, err
	}
	kb, err := l.Lookup(b)
	if err != nil {
		return 0, err
	}
	return Euclidean(ka.Center, kb.Center), nil
}

// LetterAccents returns accented characters that are letters.
func (l *Layout) LetterAccents() []rune {
	var out []rune
	for _, r := range l.accents {
		if unicode.IsLetter(r) {
			out = append(out, r)
		}
	}
	return out
}

// Euclidean is the distance between two points.
func Euclidean(a, b model.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
