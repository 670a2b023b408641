package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/verte-zerg/typobench/internal/layout"
)

// RenderLayout prints the keys of one layer with their bounds and accents.
func RenderLayout(w io.Writer, l *layout.Layout, layer int) error {
	p := &printer{w: w}
	keys := l.Keys(layer)
	if len(keys) == 0 {
		return fmt.Errorf("layout %s has no layer %d (layers: %s)", l.Name(), layer, joinInts(l.Layers()))
	}
	p.println(fmt.Sprintf("%s, layer %d: %d keys", l.Name(), layer, len(keys)))
	t := newTable("Key", "Left", "Top", "Right", "Bottom", "Center", "Accents")
	for _, k := range keys {
		c := k.Bounds.Center()
		t.add(
			keyLabel(k.Char),
			fmt.Sprintf("%.3f", k.Bounds.Left),
			fmt.Sprintf("%.3f", k.Bounds.Top),
			fmt.Sprintf("%.3f", k.Bounds.Right),
			fmt.Sprintf("%.3f", k.Bounds.Bottom),
			fmt.Sprintf("%.3f,%.3f", c.X, c.Y),
			string(k.Accents),
		)
	}
	p.table(t)
	return p.err
}

func keyLabel(r rune) string {
	if r == ' ' {
		return "<space>"
	}
	return string(r)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
