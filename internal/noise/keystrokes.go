package noise

import (
	"math/rand/v2"

	"github.com/verte-zerg/typobench/internal/layout"
	"github.com/verte-zerg/typobench/internal/model"
	"github.com/verte-zerg/typobench/internal/sampling"
)

// Keystrokes returns one tap per rune of word, jittered when the model is
// configured to. Characters missing from the layout yield invalid taps.
func (m *Model) Keystrokes(word string, rng *rand.Rand) []model.Keystroke {
	return m.keystrokes([]rune(word), rng, m.cfg.Jitter)
}

func (m *Model) keystrokes(w []rune, rng *rand.Rand, jitter bool) []model.Keystroke {
	out := make([]model.Keystroke, len(w))
	for i, r := range w {
		info, err := m.layout.Lookup(r)
		if err != nil {
			continue
		}
		out[i] = model.Keystroke{Point: m.tap(info, rng, jitter), Valid: true}
	}
	return out
}

// tap samples a position on a key with two gaussians whose sigma is half the
// key size divided by the configured ratio, clamped to the key.
func (m *Model) tap(info layout.KeyInfo, rng *rand.Rand, jitter bool) model.Point {
	p := model.Point{X: info.Center.X + m.cfg.XOffset, Y: info.Center.Y + m.cfg.YOffset}
	if jitter {
		p.X = sampling.Gauss(rng, p.X, (info.Bounds.Width()/2)/m.cfg.XRatio)
		p.Y = sampling.Gauss(rng, p.Y, (info.Bounds.Height()/2)/m.cfg.YRatio)
	}
	return info.Bounds.Clamp(p)
}

// Swipe synthesizes a gesture through the keys of word. It reports false
// when the word is shorter than two characters or holds a character that
// is not on the layout.
func (m *Model) Swipe(word string, rng *rand.Rand) ([]model.Point, bool) {
	w := []rune(word)
	if len(w) < 2 {
		return nil, false
	}
	control := make([]model.Point, len(w))
	for i, r := range w {
		info, err := m.layout.Lookup(r)
		if err != nil {
			return nil, false
		}
		control[i] = m.tap(info, rng, m.cfg.Jitter && Correctable(word))
	}
	return Gesture(control, rng, m.cfg.SwipeMinRate, m.cfg.SwipeMaxRate), true
}

// Gesture interpolates a polyline through control points. Each segment gets
// a number of points proportional to its length, at a rate drawn between
// minRate and maxRate. Consecutive duplicates are collapsed.
func Gesture(control []model.Point, rng *rand.Rand, minRate, maxRate float64) []model.Point {
	if len(control) == 0 {
		return nil
	}
	out := []model.Point{control[0]}
	for i := 1; i < len(control); i++ {
		a, b := control[i-1], control[i]
		rate := minRate
		if maxRate > minRate {
			rate += rng.Float64() * (maxRate - minRate)
		}
		steps := max(1, int(layout.Euclidean(a, b)*rate))
		for j := 1; j <= steps; j++ {
			f := float64(j) / float64(steps)
			p := model.Point{X: a.X + (b.X-a.X)*f, Y: a.Y + (b.Y-a.Y)*f}
			if p != out[len(out)-1] {
				out = append(out, p)
			}
		}
	}
	return out
}
