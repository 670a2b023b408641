// Package noise injects realistic typing errors into clean words, using the
// keyboard geometry to favour mistakes between neighbouring keys.
package noise

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"unicode"

	"github.com/verte-zerg/typobench/internal/layout"
	"github.com/verte-zerg/typobench/internal/model"
	"github.com/verte-zerg/typobench/internal/sampling"
)

// Result is a noised word with the edits that produced it and one keystroke
// per rune of the noised word.
type Result struct {
	Word       string
	Typos      []model.TypoEvent
	Keystrokes []model.Keystroke
}

type neighbour struct {
	char   rune
	weight float64
}

// Model samples typos. It is immutable after New and safe for concurrent use
// as long as every goroutine passes its own generator.
type Model struct {
	layout  *layout.Layout
	cfg     Config
	accents map[rune]rune
	subst   map[rune][]neighbour
}

// New builds a noise model over a layout.
func New(l *layout.Layout, cfg Config) (*Model, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: layout is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Model{
		layout:  l,
		cfg:     cfg.Clone(),
		accents: accentTable(l.Accents()),
		subst:   make(map[rune][]neighbour),
	}
	m.buildSubstitutions()
	return m, nil
}

// buildSubstitutions lists, for every character, the other keys of its
// layer weighted by inverse squared distance.
func (m *Model) buildSubstitutions() {
	for _, id := range m.layout.Layers() {
		keys := m.layout.Keys(id)
		for _, k := range keys {
			info, err := m.layout.Lookup(k.Char)
			if err != nil || info.Layer != id {
				continue
			}
			center := k.Bounds.Center()
			var out []neighbour
			for _, other := range keys {
				if other.Char == k.Char || other.Char == ' ' {
					continue
				}
				if unicode.IsLetter(k.Char) != unicode.IsLetter(other.Char) {
					continue
				}
				d := layout.Euclidean(center, other.Bounds.Center())
				if d <= 0 {
					continue
				}
				out = append(out, neighbour{char: other.Char, weight: 1 / (d * d)})
			}
			if len(out) > 0 {
				m.subst[k.Char] = out
			}
		}
	}
}

// Correctable reports whether a word holds at least one letter. Words made
// only of digits or symbols are never noised.
func Correctable(word string) bool {
	for _, r := range word {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// Inject samples a number of typos and applies them to word. The output only
// depends on the word and on the state of rng.
func (m *Model) Inject(word string, rng *rand.Rand) Result {
	if !Correctable(word) {
		return Result{Word: word, Keystrokes: m.keystrokes([]rune(word), rng, false)}
	}

	n := sampling.Weighted(rng, m.cfg.TypoCounts)
	w := []rune(word)
	var events []model.TypoEvent
	for len(events) < n {
		kinds, weights := m.applicable(word, w, len(events) == 0)
		idx := sampling.Weighted(rng, weights)
		if idx < 0 {
			break
		}
		kind := kinds[idx]
		var ev model.TypoEvent
		w, ev = m.apply(kind, word, w, rng)
		events = append(events, ev)
		if kind == model.CommonTypo {
			break
		}
	}
	return Result{
		Word:       string(w),
		Typos:      events,
		Keystrokes: m.keystrokes(w, rng, m.cfg.Jitter),
	}
}

// applicable returns the kinds that can edit the current word state, with
// their configured weights, in a fixed order.
func (m *Model) applicable(clean string, w []rune, first bool) ([]model.TypoKind, []float64) {
	var kinds []model.TypoKind
	var weights []float64
	for _, kind := range model.TypoKinds {
		weight := m.cfg.Weights[kind]
		if weight <= 0 {
			continue
		}
		if kind == model.CommonTypo {
			if !first || len(m.cfg.CommonTypos[clean]) == 0 {
				continue
			}
		} else if len(m.sites(kind, w)) == 0 {
			continue
		}
		kinds = append(kinds, kind)
		weights = append(weights, weight)
	}
	return kinds, weights
}

type site struct {
	pos    int
	weight float64
}

// sites lists the positions where kind can be applied.
func (m *Model) sites(kind model.TypoKind, w []rune) []site {
	n := len(w)
	var out []site
	add := func(p int) {
		weight := 1.0
		if p == 0 && kind.IsDeletion() {
			weight = m.cfg.FrontDeletion
		}
		out = append(out, site{pos: p, weight: weight})
	}

	switch kind {
	case model.DeleteSpellingSymbol, model.DeleteSpace, model.DeletePunctuation, model.DeleteChar:
		// The last character is never deleted: that would be an
		// auto-completion case.
		for p := 0; p < n-1; p++ {
			if m.class(w[p]) == classOf(kind) {
				add(p)
			}
		}
	case model.AddSpellingSymbol, model.AddPunctuation, model.AddChar:
		for p := 0; p < n; p++ {
			if m.class(w[p]) == classOf(kind) {
				add(p)
			}
		}
	case model.AddSpace:
		for p := 1; p < n; p++ {
			if w[p-1] != ' ' && w[p] != ' ' {
				add(p)
			}
		}
	case model.SubstituteChar:
		for p := 0; p < n; p++ {
			if unicode.IsLetter(w[p]) && len(m.subst[w[p]]) > 0 {
				add(p)
			}
		}
	case model.SimplifyAccent:
		for p := 0; p < n; p++ {
			if _, ok := m.accents[w[p]]; ok {
				add(p)
			}
		}
	case model.SimplifyCase:
		if n < 2 || allUpper(w) {
			return nil
		}
		for p := 0; p < n; p++ {
			if unicode.IsUpper(w[p]) {
				add(p)
			}
		}
	case model.TransposeChar:
		for p := 0; p < n-1; p++ {
			if d, ok := m.sameLayerDistance(w[p], w[p+1]); ok {
				out = append(out, site{pos: p, weight: 1 / d})
			}
		}
	}
	return out
}

func (m *Model) sameLayerDistance(a, b rune) (float64, bool) {
	if a == b {
		return 0, false
	}
	ka, err := m.layout.Lookup(a)
	if err != nil {
		return 0, false
	}
	kb, err := m.layout.Lookup(b)
	if err != nil || ka.Layer != kb.Layer {
		return 0, false
	}
	d := layout.Euclidean(ka.Center, kb.Center)
	return d, d > 0
}

type charClass int

const (
	classOther charClass = iota
	classSpelling
	classSpace
	classPunctuation
	classPlain
)

func classOf(kind model.TypoKind) charClass {
	switch kind {
	case model.DeleteSpellingSymbol, model.AddSpellingSymbol:
		return classSpelling
	case model.DeleteSpace:
		return classSpace
	case model.DeletePunctuation, model.AddPunctuation:
		return classPunctuation
	case model.DeleteChar, model.AddChar:
		return classPlain
	}
	return classOther
}

// class sorts a character the way deletions and additions see it. Plain
// characters are letters of the base layer.
func (m *Model) class(r rune) charClass {
	switch {
	case m.layout.IsSpellingSymbol(r):
		return classSpelling
	case r == ' ':
		return classSpace
	case unicode.IsPunct(r):
		return classPunctuation
	case unicode.IsLetter(r):
		if _, err := m.layout.KeyInfo(r, layout.LayerLowercase); err == nil {
			return classPlain
		}
	}
	return classOther
}

func allUpper(w []rune) bool {
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
	}
	return true
}

func pickSite(rng *rand.Rand, sites []site) int {
	weights := make([]float64, len(sites))
	for i, s := range sites {
		weights[i] = s.weight
	}
	return sites[sampling.Weighted(rng, weights)].pos
}

// apply performs one edit of the given kind. The kind must be applicable.
func (m *Model) apply(kind model.TypoKind, clean string, w []rune, rng *rand.Rand) ([]rune, model.TypoEvent) {
	ev := model.TypoEvent{Kind: kind}
	if kind == model.CommonTypo {
		variants := m.cfg.CommonTypos[clean]
		typo := variants[rng.IntN(len(variants))]
		ev.Before, ev.After = string(w), typo
		return []rune(typo), ev
	}

	p := pickSite(rng, m.sites(kind, w))
	ev.Position = p
	switch kind {
	case model.DeleteSpellingSymbol, model.DeleteSpace, model.DeletePunctuation, model.DeleteChar:
		ev.Before = string(w[p])
		w = slices.Delete(w, p, p+1)
	case model.AddSpellingSymbol, model.AddPunctuation, model.AddChar:
		ev.Before = string(w[p])
		ev.After = string([]rune{w[p], w[p]})
		w = slices.Insert(w, p, w[p])
	case model.AddSpace:
		ev.After = " "
		w = slices.Insert(w, p, ' ')
	case model.SubstituteChar:
		cands := m.subst[w[p]]
		weights := make([]float64, len(cands))
		for i, c := range cands {
			weights[i] = c.weight
		}
		next := cands[sampling.Weighted(rng, weights)].char
		ev.Before, ev.After = string(w[p]), string(next)
		w[p] = next
	case model.SimplifyAccent:
		ev.Before, ev.After = string(w[p]), string(m.accents[w[p]])
		w[p] = m.accents[w[p]]
	case model.SimplifyCase:
		lower := unicode.ToLower(w[p])
		ev.Before, ev.After = string(w[p]), string(lower)
		w[p] = lower
	case model.TransposeChar:
		ev.Before = string(w[p : p+2])
		w[p], w[p+1] = w[p+1], w[p]
		ev.After = string(w[p : p+2])
	}
	return w, ev
}
