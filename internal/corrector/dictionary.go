package corrector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/verte-zerg/typobench/internal/dataset"
	"github.com/verte-zerg/typobench/internal/layout"
	"github.com/verte-zerg/typobench/internal/model"
	"github.com/verte-zerg/typobench/internal/noise"
	"github.com/verte-zerg/typobench/internal/tokenizer"
	"github.com/verte-zerg/typobench/internal/wordlist"
)

// Edit costs of the keyboard aware distance.
const (
	costEdit      = 1.0
	costAdjacent  = 0.6
	costCase      = 0.5
	costTranspose = 0.8
	maxCost       = 2.0
)

// DefaultMaxCandidates is the number of candidates a Dictionary returns.
const DefaultMaxCandidates = 3

type entry struct {
	word  string
	runes []rune
	count int
	first rune
	last  rune
	path  float64
}

// Dictionary is a frequency based corrector. It ranks vocabulary words by a
// keyboard aware edit distance for correction, by prefix for completion and
// by bigram counts for next word prediction, and it matches the first and
// last keys of a gesture for swipe resolution.
type Dictionary struct {
	layout  *layout.Layout
	max     int
	entries []entry // ranked by count, then word
	index   map[string]int
	bigrams map[string][]string
	pairs   map[string]map[string]int
}

// DictionaryOption customizes a Dictionary.
type DictionaryOption func(*Dictionary)

// WithDictionaryLayout sets the keyboard used for distances.
func WithDictionaryLayout(l *layout.Layout) DictionaryOption {
	return func(d *Dictionary) { d.layout = l }
}

// WithMaxCandidates bounds the candidates returned per call.
func WithMaxCandidates(n int) DictionaryOption {
	return func(d *Dictionary) {
		if n > 0 {
			d.max = n
		}
	}
}

// NewDictionary builds a dictionary from word counts and bigram counts
// keyed by the preceding word.
func NewDictionary(words []wordlist.Entry, bigrams map[string]map[string]int, opts ...DictionaryOption) *Dictionary {
	d := &Dictionary{
		layout: layout.Default(),
		max:    DefaultMaxCandidates,
		index:  make(map[string]int),
		pairs:  bigrams,
	}
	for _, opt := range opts {
		opt(d)
	}

	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w.Word] += w.Count
	}
	for word, count := range counts {
		if word == "" {
			continue
		}
		d.entries = append(d.entries, d.newEntry(word, count))
	}
	sort.Slice(d.entries, func(i, j int) bool {
		if d.entries[i].count != d.entries[j].count {
			return d.entries[i].count > d.entries[j].count
		}
		return d.entries[i].word < d.entries[j].word
	})
	for i, e := range d.entries {
		d.index[e.word] = i
	}

	d.bigrams = make(map[string][]string, len(bigrams))
	for prev, next := range bigrams {
		ranked := make([]string, 0, len(next))
		for w := range next {
			ranked = append(ranked, w)
		}
		sort.Slice(ranked, func(i, j int) bool {
			if next[ranked[i]] != next[ranked[j]] {
				return next[ranked[i]] > next[ranked[j]]
			}
			return d.rank(ranked[i]) < d.rank(ranked[j])
		})
		d.bigrams[prev] = ranked
	}
	return d
}

// NewDictionaryFromCorpus counts words and bigrams of sentences, after the
// same preprocessing the benchmark applies.
func NewDictionaryFromCorpus(sentences []string, opts ...DictionaryOption) *Dictionary {
	counts := make(map[string]int)
	bigrams := make(map[string]map[string]int)
	for _, s := range sentences {
		words := tokenizer.Words(tokenizer.Tokenize(tokenizer.Preprocess(s)))
		for i, w := range words {
			counts[w]++
			if i == 0 {
				continue
			}
			prev := strings.ToLower(words[i-1])
			if bigrams[prev] == nil {
				bigrams[prev] = make(map[string]int)
			}
			bigrams[prev][w]++
		}
	}
	entries := make([]wordlist.Entry, 0, len(counts))
	for w, c := range counts {
		entries = append(entries, wordlist.Entry{Word: w, Count: c})
	}
	return NewDictionary(entries, bigrams, opts...)
}

// NewDictionaryFromParams is the registry factory of the dictionary
// corrector. Parameters:
//
//	words   word list file (word [count] per line); default: corpus vocabulary
//	lang    word list filter language
//	corpus  dataset path for vocabulary and bigrams; default: built-in corpus
//	layout  TOML layout file; default: built-in QWERTY
//	max     candidates per call
func NewDictionaryFromParams(params map[string]string) (Corrector, error) {
	var opts []DictionaryOption
	for key, value := range params {
		switch key {
		case "words", "lang", "corpus":
		case "layout":
			l, err := layout.Load(value)
			if err != nil {
				return nil, fmt.Errorf("%w: layout: %v", ErrInvalidParam, err)
			}
			opts = append(opts, WithDictionaryLayout(l))
		case "max":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("%w: max must be a positive integer, got %q", ErrInvalidParam, value)
			}
			opts = append(opts, WithMaxCandidates(n))
		default:
			return nil, fmt.Errorf("%w: unknown dictionary parameter %q", ErrInvalidParam, key)
		}
	}

	corpus := dataset.Default()
	if path := params["corpus"]; path != "" {
		c, err := dataset.Load(path)
		if err != nil {
			return nil, fmt.Errorf("%w: corpus: %v", ErrInvalidParam, err)
		}
		corpus = c
	}
	var sentences []string
	for _, domain := range corpus.Domains() {
		sentences = append(sentences, corpus[domain]...)
	}
	fromCorpus := NewDictionaryFromCorpus(sentences, opts...)

	path := params["words"]
	if path == "" {
		return fromCorpus, nil
	}
	entries, err := wordlist.Load(path, wordlist.FilterForLang(params["lang"]))
	if err != nil {
		return nil, fmt.Errorf("%w: words: %v", ErrInvalidParam, err)
	}
	return NewDictionary(entries, fromCorpus.pairs, opts...), nil
}

func (d *Dictionary) newEntry(word string, count int) entry {
	e := entry{word: word, runes: []rune(word), count: count}
	e.first = unicode.ToLower(e.runes[0])
	e.last = unicode.ToLower(e.runes[len(e.runes)-1])
	for i := 1; i < len(e.runes); i++ {
		if dist, err := d.layout.Distance(unicode.ToLower(e.runes[i-1]), unicode.ToLower(e.runes[i])); err == nil {
			e.path += dist
		}
	}
	return e
}

func (d *Dictionary) rank(word string) int {
	if i, ok := d.index[word]; ok {
		return i
	}
	return len(d.entries)
}

// Len is the vocabulary size.
func (d *Dictionary) Len() int { return len(d.entries) }

// Contains reports whether word is in the vocabulary.
func (d *Dictionary) Contains(word string) bool {
	_, ok := d.index[word]
	return ok
}

type candidate struct {
	word   string
	cost   float64
	follow int
	rank   int
}

func (d *Dictionary) best(cands []candidate) []string {
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.cost != b.cost {
			return a.cost < b.cost
		}
		if a.follow != b.follow {
			return a.follow > b.follow
		}
		return a.rank < b.rank
	})
	out := make([]string, 0, min(d.max, len(cands)))
	for _, c := range cands[:min(d.max, len(cands))] {
		out = append(out, c.word)
	}
	return out
}

func (d *Dictionary) follows(history, word string) int {
	prev := lastWord(history)
	if prev == "" {
		return 0
	}
	return d.pairs[prev][word]
}

func lastWord(history string) string {
	fields := strings.Fields(history)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[len(fields)-1])
}

// AutoCorrect ranks vocabulary words within a small keyboard aware edit
// distance of word. A known word comes back first.
func (d *Dictionary) AutoCorrect(ctx context.Context, history string, _ []model.Keystroke, word string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	typed := []rune(word)
	if len(typed) == 0 {
		return nil, nil
	}
	var cands []candidate
	for i, e := range d.entries {
		if abs(len(e.runes)-len(typed)) > int(maxCost) {
			continue
		}
		cost := d.distance(typed, e.runes)
		if cost > maxCost {
			continue
		}
		cands = append(cands, candidate{word: e.word, cost: cost, follow: d.follows(history, e.word), rank: i})
	}
	return d.best(cands), nil
}

// AutoComplete ranks vocabulary words starting with partial, then words
// whose prefix is one edit away.
func (d *Dictionary) AutoComplete(ctx context.Context, history string, _ []model.Keystroke, partial string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	typed := []rune(partial)
	if len(typed) == 0 {
		return nil, nil
	}
	var cands []candidate
	for i, e := range d.entries {
		if len(e.runes) < len(typed) {
			continue
		}
		cost := 0.0
		if !strings.HasPrefix(e.word, partial) {
			cost = d.distance(typed, e.runes[:len(typed)])
			if cost > costEdit {
				continue
			}
		}
		cands = append(cands, candidate{word: e.word, cost: cost, follow: d.follows(history, e.word), rank: i})
	}
	return d.best(cands), nil
}

// PredictNextWord returns the most frequent followers of the last word of
// history, topped up with the most frequent words.
func (d *Dictionary) PredictNextWord(ctx context.Context, history string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]string, 0, d.max)
	seen := make(map[string]bool, d.max)
	for _, w := range d.bigrams[lastWord(history)] {
		if len(out) == d.max {
			return out, nil
		}
		out = append(out, w)
		seen[w] = true
	}
	for _, e := range d.entries {
		if len(out) == d.max {
			break
		}
		if !seen[e.word] {
			out = append(out, e.word)
		}
	}
	return out, nil
}

// ResolveSwipe keeps words starting and ending on the keys under the first
// and last gesture points and ranks them by how close their key path length
// is to the gesture length.
func (d *Dictionary) ResolveSwipe(ctx context.Context, history string, gesture []model.Point) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(gesture) == 0 {
		return nil, nil
	}
	first, err := d.layout.NearestChar(gesture[0], layout.LayerLowercase)
	if err != nil {
		return nil, nil
	}
	last, err := d.layout.NearestChar(gesture[len(gesture)-1], layout.LayerLowercase)
	if err != nil {
		return nil, nil
	}
	length := 0.0
	for i := 1; i < len(gesture); i++ {
		length += layout.Euclidean(gesture[i-1], gesture[i])
	}

	var cands []candidate
	for i, e := range d.entries {
		if len(e.runes) < 2 || e.first != first || e.last != last {
			continue
		}
		cands = append(cands, candidate{
			word:   e.word,
			cost:   math.Round(math.Abs(e.path-length)*100) / 100,
			follow: d.follows(history, e.word),
			rank:   i,
		})
	}
	return d.best(cands), nil
}

// distance is an optimal string alignment distance where substitutions of
// neighbouring keys, case and accent variants are cheaper than other edits.
func (d *Dictionary) distance(a, b []rune) float64 {
	prev2 := make([]float64, len(b)+1)
	prev := make([]float64, len(b)+1)
	cur := make([]float64, len(b)+1)
	for j := range prev {
		prev[j] = float64(j) * costEdit
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = float64(i) * costEdit
		for j := 1; j <= len(b); j++ {
			cur[j] = min(
				prev[j]+costEdit,
				cur[j-1]+costEdit,
				prev[j-1]+d.substitution(a[i-1], b[j-1]),
			)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] && a[i-1] != b[j-1] {
				cur[j] = min(cur[j], prev2[j-2]+costTranspose)
			}
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return prev[len(b)]
}

func (d *Dictionary) substitution(a, b rune) float64 {
	if a == b {
		return 0
	}
	la, lb := unicode.ToLower(a), unicode.ToLower(b)
	if la == lb || foldAccent(la) == foldAccent(lb) {
		return costCase
	}
	ka, errA := d.layout.Lookup(la)
	kb, errB := d.layout.Lookup(lb)
	if errA == nil && errB == nil && ka.Layer == kb.Layer && touching(ka.Bounds, kb.Bounds) {
		return costAdjacent
	}
	return costEdit
}

// touching reports whether two key rectangles share an edge or a corner.
func touching(a, b layout.Rect) bool {
	const eps = 1e-9
	return a.Left <= b.Right+eps && b.Left <= a.Right+eps &&
		a.Top <= b.Bottom+eps && b.Top <= a.Bottom+eps
}

func foldAccent(r rune) rune {
	if r < utf8.RuneSelf {
		return r
	}
	plain, _ := utf8.DecodeRuneInString(noise.StripAccents(string(r)))
	return plain
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
