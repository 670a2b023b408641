// Package model defines shared data structures.
package model

import "time"

// Point is a position in the normalized keyboard coordinate space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Keystroke is a tap position. Valid is false when the character has no
// geometry on the layout (no signal for that position).
type Keystroke struct {
	Point
	Valid bool `json:"valid"`
}

// Task identifies one of the evaluated prediction capabilities.
type Task int

const (
	TaskAutoCorrection Task = iota
	TaskAutoCompletion
	TaskNextWordPrediction
	TaskSwipeResolution
)

// AllTasks lists every task in report order.
var AllTasks = []Task{
	TaskNextWordPrediction,
	TaskAutoCompletion,
	TaskAutoCorrection,
	TaskSwipeResolution,
}

// String returns the report key of the task.
func (t Task) String() string {
	switch t {
	case TaskAutoCorrection:
		return "auto_correction"
	case TaskAutoCompletion:
		return "auto_completion"
	case TaskNextWordPrediction:
		return "next_word_prediction"
	case TaskSwipeResolution:
		return "swipe_resolution"
	default:
		return "unknown"
	}
}

// ParseTask resolves a report key (or its short alias) to a Task.
func ParseTask(s string) (Task, bool) {
	switch s {
	case "auto_correction", "acr":
		return TaskAutoCorrection, true
	case "auto_completion", "acp":
		return TaskAutoCompletion, true
	case "next_word_prediction", "nwp":
		return TaskNextWordPrediction, true
	case "swipe_resolution", "swp":
		return TaskSwipeResolution, true
	}
	return 0, false
}

// TypoKind is the category of a single injected edit.
type TypoKind int

const (
	DeleteSpellingSymbol TypoKind = iota
	DeleteSpace
	DeletePunctuation
	DeleteChar
	AddSpellingSymbol
	AddSpace
	AddPunctuation
	AddChar
	SubstituteChar
	SimplifyAccent
	SimplifyCase
	TransposeChar
	CommonTypo
)

// TypoKinds lists every kind in declaration order. Iteration over kinds must
// use this slice so sampling stays deterministic.
var TypoKinds = []TypoKind{
	DeleteSpellingSymbol,
	DeleteSpace,
	DeletePunctuation,
	DeleteChar,
	AddSpellingSymbol,
	AddSpace,
	AddPunctuation,
	AddChar,
	SubstituteChar,
	SimplifyAccent,
	SimplifyCase,
	TransposeChar,
	CommonTypo,
}

var typoNames = map[TypoKind]string{
	DeleteSpellingSymbol: "DELETE_SPELLING_SYMBOL",
	DeleteSpace:          "DELETE_SPACE",
	DeletePunctuation:    "DELETE_PUNCTUATION",
	DeleteChar:           "DELETE_CHAR",
	AddSpellingSymbol:    "ADD_SPELLING_SYMBOL",
	AddSpace:             "ADD_SPACE",
	AddPunctuation:       "ADD_PUNCTUATION",
	AddChar:              "ADD_CHAR",
	SubstituteChar:       "SUBSTITUTE_CHAR",
	SimplifyAccent:       "SIMPLIFY_ACCENT",
	SimplifyCase:         "SIMPLIFY_CASE",
	TransposeChar:        "TRANSPOSE_CHAR",
	CommonTypo:           "COMMON_TYPO",
}

// String returns the upper snake case name of the kind.
func (k TypoKind) String() string {
	if name, ok := typoNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsDeletion reports whether the kind removes a character.
func (k TypoKind) IsDeletion() bool {
	switch k {
	case DeleteSpellingSymbol, DeleteSpace, DeletePunctuation, DeleteChar:
		return true
	}
	return false
}

// ParseTypoKind resolves an upper snake case name.
func ParseTypoKind(s string) (TypoKind, bool) {
	for k, name := range typoNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// TypoEvent records one edit applied to a clean word. Position is a rune
// offset into the word as it was before the edit.
type TypoEvent struct {
	Kind     TypoKind `json:"kind"`
	Position int      `json:"position"`
	Before   string   `json:"before"`
	After    string   `json:"after"`
}

// Token is a word and its character span within a sentence, counted in runes.
type Token struct {
	Word  string
	Start int
	End   int
}

// CompletionBucket slices auto-completion by the share of the word revealed.
type CompletionBucket int

const (
	CompletionUnder25 CompletionBucket = iota
	Completion25To50
	Completion50To75
	CompletionOver75
)

// CompletionBuckets lists the buckets in report order.
var CompletionBuckets = []CompletionBucket{CompletionUnder25, Completion25To50, Completion50To75, CompletionOver75}

// String returns the report key of the bucket.
func (b CompletionBucket) String() string {
	switch b {
	case CompletionUnder25:
		return "<25%"
	case Completion25To50:
		return "25%~50%"
	case Completion50To75:
		return "50%~75%"
	default:
		return ">75%"
	}
}

// BucketFor returns the bucket of a completion ratio in [0, 1].
func BucketFor(ratio float64) CompletionBucket {
	switch {
	case ratio < 0.25:
		return CompletionUnder25
	case ratio < 0.5:
		return Completion25To50
	case ratio < 0.75:
		return Completion50To75
	default:
		return CompletionOver75
	}
}

// Target is the ground truth for one task at one word position, paired with
// the input the corrector receives.
type Target struct {
	Task     Task
	Position int
	Expected string
	// Context holds the clean words before Position, each followed by a space.
	Context string

	// Input is the noised word (auto-correction) or noised partial word
	// (auto-completion). Empty for the other tasks.
	Input      string
	Keystrokes []Keystroke
	Gesture    []Point
	Typos      []TypoEvent
	Completion CompletionBucket
}

// Labels are the slice dimensions attached to a job.
type Labels struct {
	Domain     string
	Typos      []TypoKind
	NumTypos   int
	Completion CompletionBucket
	// WithTypo is set for auto-completion when the partial word is not a
	// prefix of the expected word.
	WithTypo bool
}

// Job is one immutable unit of work dispatched to a corrector.
type Job struct {
	// Seq is a stable sequence number, independent of scheduling.
	Seq      uint64
	Sentence int
	Target   Target
	Labels   Labels
}

// Record is the outcome of one job.
type Record struct {
	Job         Job
	Predictions []string
	Runtime     time.Duration
	// Memory is the number of bytes allocated around the call, -1 when not
	// measured.
	Memory int64
	Err    error
}
