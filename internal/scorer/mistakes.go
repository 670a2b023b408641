package scorer

import (
	"cmp"
	"slices"
	"strings"
)

// Mistake is one row of the most common mistakes table.
type Mistake struct {
	Count       int64    `json:"count"`
	Expected    string   `json:"expected"`
	Predictions []string `json:"predictions"`
	Context     string   `json:"context"`
}

type mistakeKey struct {
	expected    string
	predictions string
	context     string
}

type mistakeEntry struct {
	predictions []string
	count       int64
	// first is the smallest job sequence number seen for the key; it breaks
	// count ties so the table does not depend on scheduling.
	first uint64
}

// MistakeTable counts mismatches by (expected, predictions, context). It
// keeps every key, so the result of Top does not depend on the order of Add
// and Merge calls; callers cut the list when they read it.
type MistakeTable struct {
	entries map[mistakeKey]*mistakeEntry
}

// NewMistakeTable returns an empty table.
func NewMistakeTable() *MistakeTable {
	return &MistakeTable{entries: make(map[mistakeKey]*mistakeEntry)}
}

// Len returns the number of distinct mistakes.
func (t *MistakeTable) Len() int { return len(t.entries) }

// Add counts one mismatch.
func (t *MistakeTable) Add(expected string, predictions []string, context string, seq uint64) {
	key := mistakeKey{expected: expected, predictions: strings.Join(predictions, "\x1f"), context: context}
	if e, ok := t.entries[key]; ok {
		e.count++
		e.first = min(e.first, seq)
		return
	}
	t.entries[key] = &mistakeEntry{predictions: slices.Clone(predictions), count: 1, first: seq}
}

// Merge folds o into t.
func (t *MistakeTable) Merge(o *MistakeTable) {
	if o == nil {
		return
	}
	for key, oe := range o.entries {
		if e, ok := t.entries[key]; ok {
			e.count += oe.count
			e.first = min(e.first, oe.first)
			continue
		}
		t.entries[key] = &mistakeEntry{predictions: slices.Clone(oe.predictions), count: oe.count, first: oe.first}
	}
}

// Top returns the n most frequent mistakes, by descending count then by
// first occurrence.
func (t *MistakeTable) Top(n int) []Mistake {
	type row struct {
		key mistakeKey
		*mistakeEntry
	}
	rows := make([]row, 0, len(t.entries))
	for k, e := range t.entries {
		rows = append(rows, row{key: k, mistakeEntry: e})
	}
	slices.SortFunc(rows, func(a, b row) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		if c := cmp.Compare(a.first, b.first); c != 0 {
			return c
		}
		return cmp.Or(
			cmp.Compare(a.key.expected, b.key.expected),
			cmp.Compare(a.key.predictions, b.key.predictions),
			cmp.Compare(a.key.context, b.key.context),
		)
	})
	if n >= 0 && len(rows) > n {
		rows = rows[:n]
	}
	out := make([]Mistake, len(rows))
	for i, r := range rows {
		preds := slices.Clone(r.predictions)
		if preds == nil {
			preds = []string{}
		}
		out[i] = Mistake{Count: r.count, Expected: r.key.expected, Predictions: preds, Context: r.key.context}
	}
	return out
}
