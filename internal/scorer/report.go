package scorer

import (
	"github.com/verte-zerg/typobench/internal/model"
)

// Overall score weights: top-3 metrics for tasks the user picks from a
// suggestion list, top-1 metrics for tasks applied automatically.
const (
	WeightNextWord   = 0.15
	WeightCompletion = 0.2
	WeightCorrection = 0.4
	WeightSwipe      = 0.25
)

// TaskReport is the derived view of one task.
type TaskReport struct {
	Score              Score            `json:"score"`
	PerDomain          map[string]Score `json:"per_domain"`
	PerTypoType        map[string]Score `json:"per_typo_type,omitempty"`
	PerNumberOfTypos   map[string]Score `json:"per_number_of_typos,omitempty"`
	PerCompletionRate  map[string]Score `json:"per_completion_rate,omitempty"`
	PerOther           map[string]Score `json:"per_other,omitempty"`
	Performances       Performances     `json:"performances"`
	MostCommonMistakes []Mistake        `json:"most_common_mistakes,omitempty"`
}

// Report is the result of an evaluation.
type Report struct {
	NextWordPrediction TaskReport `json:"next_word_prediction"`
	AutoCompletion     TaskReport `json:"auto_completion"`
	AutoCorrection     TaskReport `json:"auto_correction"`
	SwipeResolution    TaskReport `json:"swipe_resolution"`
	OverallScore       float64    `json:"overall_score"`
}

// Task returns the report of a task.
func (r *Report) Task(t model.Task) *TaskReport {
	switch t {
	case model.TaskNextWordPrediction:
		return &r.NextWordPrediction
	case model.TaskAutoCompletion:
		return &r.AutoCompletion
	case model.TaskAutoCorrection:
		return &r.AutoCorrection
	default:
		return &r.SwipeResolution
	}
}

// OverallScore combines the four task scores into one number.
func OverallScore(r *Report) float64 {
	return WeightNextWord*r.NextWordPrediction.Score.Top3Accuracy +
		WeightCompletion*r.AutoCompletion.Score.Top3Accuracy +
		WeightCorrection*r.AutoCorrection.Score.FScore +
		WeightSwipe*r.SwipeResolution.Score.Accuracy
}

// Report derives ratios from the summed counters. Mistake tables are
// included when tracking is enabled, cut to the nMistakes most common.
func (s *Scorer) Report(beta float64, nMistakes int) *Report {
	r := &Report{}
	for _, task := range model.AllTasks {
		*r.Task(task) = s.acc[task].report(beta, nMistakes)
	}
	r.OverallScore = OverallScore(r)
	return r
}

func (a *Accumulator) report(beta float64, nMistakes int) TaskReport {
	score := AccuracyOf
	if a.Task == model.TaskAutoCorrection {
		score = func(c Counts) Score { return CorrectionOf(c, beta) }
	}

	tr := TaskReport{
		Score:        score(a.Total),
		PerDomain:    make(map[string]Score, len(a.Domains)),
		Performances: a.Perf.Report(),
	}
	for d, c := range a.Domains {
		tr.PerDomain[d] = score(c)
	}

	switch a.Task {
	case model.TaskAutoCorrection:
		// Typo slices only hold typo-bearing items; each gets a share of the
		// clean items proportional to its size, for precision to be defined.
		share := func(c Counts) Counts {
			p := 0.0
			if a.Total.NTypo > 0 {
				p = float64(c.NTypo) / float64(a.Total.NTypo)
			}
			return c.typoPart().Plus(a.Total.cleanShare(p))
		}
		tr.PerTypoType = make(map[string]Score)
		for _, key := range TypoTypeKeys() {
			tr.PerTypoType[key] = score(share(a.TypoTypes[key]))
		}
		tr.PerNumberOfTypos = make(map[string]Score)
		for _, key := range NumberOfTyposKeys {
			tr.PerNumberOfTypos[key] = score(share(a.TypoNumbers[key]))
		}
	case model.TaskAutoCompletion:
		tr.PerCompletionRate = make(map[string]Score)
		for _, b := range model.CompletionBuckets {
			tr.PerCompletionRate[b.String()] = score(a.Completion[b])
		}
		tr.PerOther = map[string]Score{
			WithoutTypo: score(a.Other[WithoutTypo]),
			WithTypo:    score(a.Other[WithTypo]),
		}
	}

	if a.Mistakes != nil {
		tr.MostCommonMistakes = a.Mistakes.Top(nMistakes)
		if tr.MostCommonMistakes == nil {
			tr.MostCommonMistakes = []Mistake{}
		}
	}
	return tr
}
