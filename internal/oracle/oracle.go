// Package oracle derives the expected answer of every task at every word of
// a clean sentence, paired with the input a corrector receives.
package oracle

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/verte-zerg/typobench/internal/layout"
	"github.com/verte-zerg/typobench/internal/model"
	"github.com/verte-zerg/typobench/internal/noise"
	"github.com/verte-zerg/typobench/internal/sampling"
	"github.com/verte-zerg/typobench/internal/tokenizer"
)

// ErrInvalidConfig is returned by New for unusable configurations.
var ErrInvalidConfig = errors.New("oracle: invalid config")

// Config selects tasks and sampling parameters.
type Config struct {
	Tasks []model.Task `validate:"min=1"`
	// CompletionWeights weights the completion buckets, in
	// model.CompletionBuckets order.
	CompletionWeights [4]float64 `validate:"dive,gte=0"`
	// SwipeRate is the share of positions tested with a swipe gesture.
	SwipeRate       float64 `validate:"gte=0,lte=1"`
	MaxContextChars int     `validate:"gt=0"`
}

// DefaultConfig enables every task.
func DefaultConfig() Config {
	return Config{
		Tasks:             slices.Clone(model.AllTasks),
		CompletionWeights: [4]float64{0.25, 0.25, 0.25, 0.25},
		SwipeRate:         1,
		MaxContextChars:   tokenizer.MaxContextChars,
	}
}

var validate = validator.New()

// Oracle is immutable and safe for concurrent use.
type Oracle struct {
	noise   *noise.Model
	layout  *layout.Layout
	cfg     Config
	enabled map[model.Task]bool
}

// New builds an oracle.
func New(n *noise.Model, l *layout.Layout, cfg Config) (*Oracle, error) {
	if n == nil || l == nil {
		return nil, fmt.Errorf("%w: noise model and layout are required", ErrInvalidConfig)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	total := 0.0
	for _, w := range cfg.CompletionWeights {
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: completion weights sum to zero", ErrInvalidConfig)
	}
	o := &Oracle{noise: n, layout: l, cfg: cfg, enabled: make(map[model.Task]bool)}
	o.cfg.Tasks = slices.Clone(cfg.Tasks)
	for _, t := range cfg.Tasks {
		o.enabled[t] = true
	}
	return o, nil
}

// Targets derives the targets of every evaluable position. stream returns
// the generator of a position; positions never share one.
func (o *Oracle) Targets(tokens []model.Token, stream func(i int) *rand.Rand) []model.Target {
	var out []model.Target
	n := tokenizer.Evaluable(tokens, o.cfg.MaxContextChars)
	for i := 0; i < n; i++ {
		out = append(out, o.At(tokens, i, stream(i))...)
	}
	return out
}

// At derives the targets at position i. Randomness is always drawn in the
// same order (noise, completion, swipe) whatever tasks are enabled, so the
// input of one task does not depend on the others.
func (o *Oracle) At(tokens []model.Token, i int, rng *rand.Rand) []model.Target {
	if i < 0 || i >= len(tokens) {
		return nil
	}
	word := tokens[i].Word
	ctx := tokenizer.Context(tokens, i)
	noised := o.noise.Inject(word, rng)
	partial, partialOK := o.partial(word, noised, rng)
	swipe := sampling.Bool(rng, o.cfg.SwipeRate)
	var gesture []model.Point
	if swipe {
		gesture, swipe = o.noise.Swipe(word, rng)
	}

	var out []model.Target
	for _, task := range model.AllTasks {
		if !o.enabled[task] {
			continue
		}
		switch task {
		case model.TaskNextWordPrediction:
			if i == 0 {
				continue
			}
			out = append(out, model.Target{Task: task, Position: i, Expected: word, Context: ctx})
		case model.TaskAutoCompletion:
			if !partialOK {
				continue
			}
			partial.Position, partial.Expected, partial.Context = i, word, ctx
			out = append(out, partial)
		case model.TaskAutoCorrection:
			out = append(out, model.Target{
				Task:       task,
				Position:   i,
				Expected:   word,
				Context:    ctx,
				Input:      noised.Word,
				Keystrokes: noised.Keystrokes,
				Typos:      noised.Typos,
			})
		case model.TaskSwipeResolution:
			if !swipe {
				continue
			}
			out = append(out, model.Target{Task: task, Position: i, Expected: word, Context: ctx, Gesture: gesture})
		}
	}
	return out
}

// partial truncates the noised word to a sampled length. The length is
// drawn by first picking a completion bucket by weight, among buckets
// holding at least one length in [1, n-1], then a length within it.
func (o *Oracle) partial(word string, noised noise.Result, rng *rand.Rand) (model.Target, bool) {
	clean := []rune(word)
	typed := []rune(noised.Word)
	n := min(len(clean), len(typed))
	if n < 2 {
		return model.Target{}, false
	}

	var byBucket [4][]int
	for l := 1; l < n; l++ {
		b := model.BucketFor(float64(l) / float64(len(clean)))
		byBucket[b] = append(byBucket[b], l)
	}
	weights := make([]float64, len(byBucket))
	for b, lengths := range byBucket {
		if len(lengths) > 0 {
			weights[b] = o.cfg.CompletionWeights[b]
		}
	}
	b := sampling.Weighted(rng, weights)
	if b < 0 {
		return model.Target{}, false
	}
	lengths := byBucket[b]
	l := lengths[rng.IntN(len(lengths))]

	var keys []model.Keystroke
	if len(noised.Keystrokes) >= l {
		keys = slices.Clone(noised.Keystrokes[:l])
	}
	return model.Target{
		Task:       model.TaskAutoCompletion,
		Input:      string(typed[:l]),
		Keystrokes: keys,
		Typos:      noised.Typos,
		Completion: model.CompletionBucket(b),
	}, true
}

// LabelsFor returns the slice labels of a target.
func LabelsFor(t model.Target, domain string) model.Labels {
	labels := model.Labels{Domain: domain}
	switch t.Task {
	case model.TaskAutoCorrection:
		labels.NumTypos = len(t.Typos)
		for _, ev := range t.Typos {
			labels.Typos = append(labels.Typos, ev.Kind)
		}
	case model.TaskAutoCompletion:
		labels.Completion = t.Completion
		labels.WithTypo = !strings.HasPrefix(t.Expected, t.Input)
	}
	return labels
}
