package noise

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripAccents removes combining marks from s.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// accentTable maps each accented letter to its plain form. Letters without
// a single-rune plain form (æ, ß, ø) are left out.
func accentTable(accents []rune) map[rune]rune {
	table := make(map[rune]rune, len(accents))
	for _, r := range accents {
		if !unicode.IsLetter(r) {
			continue
		}
		plain := StripAccents(string(r))
		if utf8.RuneCountInString(plain) != 1 {
			continue
		}
		p, _ := utf8.DecodeRuneInString(plain)
		if p != r {
			table[r] = p
		}
	}
	return table
}
