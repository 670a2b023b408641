package report

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// textTable lays rows out as plain-text columns separated by two spaces.
// A column is right-aligned when every cell in it is a number or a
// placeholder ("-" or empty) and at least one is a number.
type textTable struct {
	headers []string
	rows    [][]string
	limits  map[int]int
}

func newTable(headers ...string) *textTable {
	return &textTable{headers: headers}
}

func (t *textTable) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

// clip caps the display width of a column; longer cells end in an ellipsis.
func (t *textTable) clip(col, width int) *textTable {
	if t.limits == nil {
		t.limits = make(map[int]int)
	}
	t.limits[col] = width
	return t
}

func (t *textTable) columns() int {
	n := len(t.headers)
	for _, row := range t.rows {
		n = max(n, len(row))
	}
	return n
}

func (t *textTable) cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	if limit, ok := t.limits[col]; ok {
		return truncate(row[col], limit)
	}
	return row[col]
}

func (t *textTable) lines() []string {
	n := t.columns()
	if n == 0 {
		return nil
	}
	widths := make([]int, n)
	numeric := make([]bool, n)
	for col := range n {
		widths[col] = displayWidth(t.cell(t.headers, col))
		seen, mixed := false, false
		for _, row := range t.rows {
			c := t.cell(row, col)
			widths[col] = max(widths[col], displayWidth(c))
			switch {
			case c == "" || c == "-":
			case isNumeric(c):
				seen = true
			default:
				mixed = true
			}
		}
		numeric[col] = seen && !mixed
	}

	out := make([]string, 0, len(t.rows)+1)
	if len(t.headers) > 0 {
		out = append(out, t.join(t.headers, widths, numeric))
	}
	for _, row := range t.rows {
		out = append(out, t.join(row, widths, numeric))
	}
	return out
}

func (t *textTable) join(row []string, widths []int, right []bool) string {
	var b strings.Builder
	for col, w := range widths {
		if col > 0 {
			b.WriteString("  ")
		}
		c := t.cell(row, col)
		pad := strings.Repeat(" ", max(0, w-displayWidth(c)))
		if right[col] {
			b.WriteString(pad + c)
		} else {
			b.WriteString(c + pad)
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// isNumeric reports whether s reads as a quantity: an optionally signed
// leading digit, as in "12", "97.50%", "1.5µs" or "2.0 kB".
func isNumeric(s string) bool {
	s = strings.TrimLeft(s, "+-")
	for _, r := range s {
		return unicode.IsDigit(r)
	}
	return false
}

// displayWidth counts terminal cells, so accented and wide characters in
// contexts keep columns aligned.
func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}

func truncate(value string, width int) string {
	if width <= 0 || displayWidth(value) <= width {
		return value
	}
	return runewidth.Truncate(value, width, "…")
}
