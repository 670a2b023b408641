package wordlist

import "strings"

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// FilterForLang returns a language-specific filter for word lists.
func FilterForLang(lang string) FilterFunc {
	switch strings.ToLower(lang) {
	case "en":
		return filterEnglish
	default:
		return func(word string) bool { return word != "" }
	}
}

// filterEnglish keeps ASCII words. Apostrophes and hyphens are allowed
// between letters only.
func filterEnglish(word string) bool {
	if word == "" {
		return false
	}
	for i := 0; i < len(word); i++ {
		ch := word[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		case ch == '\'' || ch == '-':
			if i == 0 || i == len(word)-1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
