package layout

import "strings"

const (
	keyWidth  = 0.1
	keyHeight = 0.25
)

// rowSpec describes one row of same-sized keys.
type rowSpec struct {
	chars   string
	offset  float64
	accents map[rune]string
}

var lowerAccents = map[rune]string{
	'a': "àáâäæãåā",
	'c': "çćč",
	'e': "èéêëēėę",
	'i': "îïíīįì",
	'n': "ñń",
	'o': "ôöòóœøōõ",
	's': "ßśš",
	'u': "ûüùúū",
	'y': "ÿ",
	'z': "žźż",
}

// Default returns the built-in en-US QWERTY layout on a unit-wide keyboard.
func Default() *Layout {
	l, err := New("en-US", []rune("-'"), defaultLayers())
	if err != nil {
		panic(err)
	}
	return l
}

func defaultLayers() []Layer {
	upperAccents := make(map[rune]string, len(lowerAccents))
	for k, v := range lowerAccents {
		if k == 's' {
			// ß has no single uppercase form.
			v = "ŚŠ"
		}
		upperAccents[k-'a'+'A'] = strings.ToUpper(v)
	}

	lower := []rowSpec{
		{chars: "qwertyuiop", offset: 0, accents: lowerAccents},
		{chars: "asdfghjkl", offset: 0.05, accents: lowerAccents},
		{chars: "zxcvbnm", offset: 0.15, accents: lowerAccents},
	}
	upper := []rowSpec{
		{chars: "QWERTYUIOP", offset: 0, accents: upperAccents},
		{chars: "ASDFGHJKL", offset: 0.05, accents: upperAccents},
		{chars: "ZXCVBNM", offset: 0.15, accents: upperAccents},
	}
	numbers := []rowSpec{
		{chars: "1234567890", offset: 0},
		{chars: "@#$_&-+()/", offset: 0},
		{chars: "*\"':;!?", offset: 0.15},
	}
	return []Layer{
		{ID: LayerLowercase, Name: "lowercase", Keys: buildRows(lower)},
		{ID: LayerUppercase, Name: "uppercase", Keys: buildRows(upper)},
		{ID: LayerNumbers, Name: "numbers", Keys: buildRows(numbers)},
	}
}

func buildRows(rows []rowSpec) []Key {
	var keys []Key
	for i, row := range rows {
		top := float64(i) * keyHeight
		for j, ch := range []rune(row.chars) {
			left := row.offset + float64(j)*keyWidth
			keys = append(keys, Key{
				Char:    ch,
				Bounds:  Rect{Left: left, Top: top, Right: left + keyWidth, Bottom: top + keyHeight},
				Accents: []rune(row.accents[ch]),
			})
		}
	}
	return append(keys, bottomRow(len(rows))...)
}

func bottomRow(index int) []Key {
	top := float64(index) * keyHeight
	bottom := top + keyHeight
	return []Key{
		{Char: ',', Bounds: Rect{Left: 0.15, Top: top, Right: 0.25, Bottom: bottom}},
		{Char: ' ', Bounds: Rect{Left: 0.25, Top: top, Right: 0.75, Bottom: bottom}},
		{Char: '.', Bounds: Rect{Left: 0.75, Top: top, Right: 0.85, Bottom: bottom}},
	}
}
