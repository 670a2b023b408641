// Package scorer accumulates prediction outcomes into mergeable counters
// sliced by domain, typo and completion, and derives the final report.
package scorer

import (
	"slices"
	"strconv"

	"github.com/verte-zerg/typobench/internal/model"
)

// Slice keys that are not typo kind names.
const (
	MultipleTypos = "MULTIPLE_TYPOS"
	WithTypo      = "with_typo"
	WithoutTypo   = "without_typo"
)

// NumberOfTyposKeys lists the per number of typos slices.
var NumberOfTyposKeys = []string{"1", "2", "3+"}

func numberOfTyposKey(n int) string {
	if n >= 3 {
		return "3+"
	}
	return strconv.Itoa(n)
}

// typoKindKey puts a single-typo item under its kind, and items with
// several typos under MultipleTypos, so slices partition the typo-bearing
// items.
func typoKindKey(kinds []model.TypoKind) string {
	if len(kinds) == 1 {
		return kinds[0].String()
	}
	return MultipleTypos
}

// TypoTypeKeys lists the per typo type slices in report order.
func TypoTypeKeys() []string {
	keys := make([]string, 0, len(model.TypoKinds)+1)
	for _, k := range model.TypoKinds {
		keys = append(keys, k.String())
	}
	return append(keys, MultipleTypos)
}

// Accumulator holds the raw counters of one task.
type Accumulator struct {
	Task        model.Task
	Total       Counts
	Domains     map[string]Counts
	TypoTypes   map[string]Counts
	TypoNumbers map[string]Counts
	Completion  map[model.CompletionBucket]Counts
	Other       map[string]Counts
	Perf        Perf
	Mistakes    *MistakeTable
}

func newAccumulator(task model.Task, domains []string, mistakes *MistakeTable) *Accumulator {
	acc := &Accumulator{
		Task:        task,
		Domains:     make(map[string]Counts),
		TypoTypes:   make(map[string]Counts),
		TypoNumbers: make(map[string]Counts),
		Completion:  make(map[model.CompletionBucket]Counts),
		Other:       make(map[string]Counts),
		Mistakes:    mistakes,
	}
	for _, d := range domains {
		acc.Domains[d] = Counts{}
	}
	return acc
}

func addTo[K comparable](m map[K]Counts, key K, c Counts) {
	cur := m[key]
	cur.Add(c)
	m[key] = cur
}

func mergeInto[K comparable](dst, src map[K]Counts) {
	for k, c := range src {
		addTo(dst, k, c)
	}
}

// Merge folds o into a.
func (a *Accumulator) Merge(o *Accumulator) {
	a.Total.Add(o.Total)
	mergeInto(a.Domains, o.Domains)
	mergeInto(a.TypoTypes, o.TypoTypes)
	mergeInto(a.TypoNumbers, o.TypoNumbers)
	mergeInto(a.Completion, o.Completion)
	mergeInto(a.Other, o.Other)
	a.Perf.Merge(o.Perf)
	if a.Mistakes != nil {
		a.Mistakes.Merge(o.Mistakes)
	}
}

// Option customizes a Scorer.
type Option func(*Scorer)

// WithMistakes enables mistake tracking. Every distinct mistake is kept until
// the report picks the most common ones.
func WithMistakes() Option {
	return func(s *Scorer) {
		s.trackMistakes = true
	}
}

// Scorer holds one accumulator per task. It is not safe for concurrent use;
// concurrent producers each fill their own Scorer and merge them.
type Scorer struct {
	domains       []string
	trackMistakes bool
	acc           map[model.Task]*Accumulator
}

// New returns an empty scorer. Every task and domain is present in the
// report, even without items.
func New(domains []string, opts ...Option) *Scorer {
	s := &Scorer{domains: slices.Clone(domains), acc: make(map[model.Task]*Accumulator)}
	for _, opt := range opts {
		opt(s)
	}
	for _, task := range model.AllTasks {
		var mistakes *MistakeTable
		if s.trackMistakes {
			mistakes = NewMistakeTable()
		}
		s.acc[task] = newAccumulator(task, s.domains, mistakes)
	}
	return s
}

// Fresh returns an empty scorer with the same settings.
func (s *Scorer) Fresh() *Scorer {
	opts := []Option{}
	if s.trackMistakes {
		opts = append(opts, WithMistakes())
	}
	return New(s.domains, opts...)
}

// Accumulator returns the counters of a task.
func (s *Scorer) Accumulator(task model.Task) *Accumulator { return s.acc[task] }

// Update scores one record. The first prediction decides top-1 metrics and
// the first three decide top-3 metrics; an empty list is always a miss.
func (s *Scorer) Update(rec model.Record) {
	target := rec.Job.Target
	acc, ok := s.acc[target.Task]
	if !ok {
		return
	}
	labels := rec.Job.Labels
	preds := rec.Predictions
	top1 := len(preds) > 0 && preds[0] == target.Expected
	top3 := slices.Contains(preds[:min(3, len(preds))], target.Expected)

	c := Counts{N: 1}
	if top1 {
		c.Top1 = 1
	}
	if top3 {
		c.Top3 = 1
	}
	typo := target.Task == model.TaskAutoCorrection && len(target.Typos) > 0
	if target.Task == model.TaskAutoCorrection {
		if typo {
			c.NTypo = 1
			c.TP, c.FN = c.Top1, 1-c.Top1
			c.TP3, c.FN3 = c.Top3, 1-c.Top3
		} else {
			c.TN, c.FP = c.Top1, 1-c.Top1
			c.TN3, c.FP3 = c.Top3, 1-c.Top3
		}
	}

	acc.Total.Add(c)
	addTo(acc.Domains, labels.Domain, c)
	switch target.Task {
	case model.TaskAutoCorrection:
		if typo {
			kinds := labels.Typos
			if len(kinds) == 0 {
				for _, ev := range target.Typos {
					kinds = append(kinds, ev.Kind)
				}
			}
			addTo(acc.TypoTypes, typoKindKey(kinds), c)
			addTo(acc.TypoNumbers, numberOfTyposKey(len(target.Typos)), c)
		}
	case model.TaskAutoCompletion:
		addTo(acc.Completion, labels.Completion, c)
		other := WithoutTypo
		if labels.WithTypo {
			other = WithTypo
		}
		addTo(acc.Other, other, c)
	}

	if rec.Runtime >= 0 {
		acc.Perf.Runtime.Observe(rec.Runtime.Nanoseconds())
	}
	if rec.Memory >= 0 {
		acc.Perf.Memory.Observe(rec.Memory)
	}
	if acc.Mistakes != nil && !top3 {
		acc.Mistakes.Add(target.Expected, preds[:min(3, len(preds))], target.Context+target.Input, rec.Job.Seq)
	}
}

// Merge folds o into s. Merge is commutative and associative on every
// counter.
func (s *Scorer) Merge(o *Scorer) {
	for task, oacc := range o.acc {
		acc, ok := s.acc[task]
		if !ok {
			s.acc[task] = oacc
			continue
		}
		acc.Merge(oacc)
	}
}
