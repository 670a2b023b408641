// Package tokenizer normalizes sentences and splits them into words.
package tokenizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/verte-zerg/typobench/internal/model"
)

// MaxContextChars bounds the context of the last evaluated word of a
// sentence.
const MaxContextChars = 256

var replacer = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"’", "'", "ʻ", "'", "‘", "'", "´", "'", "ʼ", "'",
	"–", "-", "—", "-", "‑", "-", "−", "-", "ー", "-",
	"…", "...", "‚", ",", "․", ".",
)

var (
	dotsRe  = regexp.MustCompile(`\s*\.+\s*`)
	punctRe = regexp.MustCompile(`\s*[,:;()"!?\[\]{}~]\s*`)
)

// Preprocess maps typographic characters to what a keyboard can type and
// removes sentence punctuation. Keyboards differ in how they handle
// punctuation, so dropping it keeps the comparison fair.
func Preprocess(sentence string) string {
	sentence = norm.NFC.String(sentence)
	sentence = replacer.Replace(sentence)
	sentence = dotsRe.ReplaceAllString(sentence, " ")
	return punctRe.ReplaceAllString(sentence, " ")
}

// Tokenize splits on whitespace, keeping the character span of every word.
// Spans count runes, not bytes. The same input always yields the same
// tokens.
func Tokenize(sentence string) []model.Token {
	var tokens []model.Token
	start, startChar, char := -1, 0, 0
	for i, r := range sentence {
		switch {
		case unicode.IsSpace(r):
			if start >= 0 {
				tokens = append(tokens, model.Token{Word: sentence[start:i], Start: startChar, End: char})
				start = -1
			}
		case start < 0:
			start, startChar = i, char
		}
		char++
	}
	if start >= 0 {
		tokens = append(tokens, model.Token{Word: sentence[start:], Start: startChar, End: char})
	}
	return tokens
}

// Words returns the words of tokens.
func Words(tokens []model.Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Word
	}
	return out
}

// Context joins the words before position i, each followed by a space.
func Context(tokens []model.Token, i int) string {
	var b strings.Builder
	for _, t := range tokens[:min(i, len(tokens))] {
		b.WriteString(t.Word)
		b.WriteByte(' ')
	}
	return b.String()
}

// Evaluable returns how many leading positions have a context shorter than
// maxChars characters.
func Evaluable(tokens []model.Token, maxChars int) int {
	length := 0
	for i, t := range tokens {
		if length >= maxChars {
			return i
		}
		length += utf8.RuneCountInString(t.Word) + 1
	}
	return len(tokens)
}
