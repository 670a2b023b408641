package scorer

import (
	"encoding/json"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typobench/internal/model"
)

var domains = []string{"narrative", "dialogue"}

func acrRecord(seq uint64, domain, expected string, typos []model.TypoKind, preds ...string) model.Record {
	target := model.Target{Task: model.TaskAutoCorrection, Expected: expected, Context: "ctx ", Input: expected}
	for _, k := range typos {
		target.Typos = append(target.Typos, model.TypoEvent{Kind: k})
	}
	return model.Record{
		Job: model.Job{
			Seq:    seq,
			Target: target,
			Labels: model.Labels{Domain: domain, Typos: typos, NumTypos: len(typos)},
		},
		Predictions: preds,
		Runtime:     time.Duration(seq+1) * time.Microsecond,
		Memory:      int64(seq * 10),
	}
}

func record(seq uint64, task model.Task, domain, expected string, preds ...string) model.Record {
	return model.Record{
		Job: model.Job{
			Seq:    seq,
			Target: model.Target{Task: task, Expected: expected, Context: "ctx "},
			Labels: model.Labels{Domain: domain},
		},
		Predictions: preds,
		Memory:      -1,
	}
}

func TestTypoCorrectedIsTruePositive(t *testing.T) {
	s := New(domains)
	s.Update(acrRecord(0, "narrative", "love", []model.TypoKind{model.SubstituteChar}, "love"))
	c := s.Accumulator(model.TaskAutoCorrection).Total
	assert.Equal(t, Counts{N: 1, Top1: 1, Top3: 1, NTypo: 1, TP: 1, TP3: 1}, c)
}

func TestCleanWordKeptIsNotFalsePositive(t *testing.T) {
	s := New(domains)
	s.Update(acrRecord(0, "narrative", "love", nil, "love", "live"))
	c := s.Accumulator(model.TaskAutoCorrection).Total
	assert.Zero(t, c.NTypo)
	assert.Zero(t, c.FP)
	assert.Equal(t, int64(1), c.TN)
}

func TestOnlyFirstCandidateDecidesCorrection(t *testing.T) {
	s := New(domains)
	// The original word is offered, but a different word ranks first.
	s.Update(acrRecord(0, "narrative", "love", nil, "live", "love"))
	s.Update(acrRecord(1, "narrative", "cat", []model.TypoKind{model.DeleteChar}, "cot", "cat"))
	c := s.Accumulator(model.TaskAutoCorrection).Total
	assert.Equal(t, int64(1), c.FP)
	assert.Equal(t, int64(1), c.TN3)
	assert.Equal(t, int64(1), c.FN)
	assert.Equal(t, int64(1), c.TP3)

	score := s.Report(1, 0).AutoCorrection.Score
	assert.Zero(t, score.Precision)
	assert.Equal(t, 1.0, score.Top3Precision)
	assert.Equal(t, 1.0, score.Top3Recall)
}

func TestEmptyPredictionsAreMisses(t *testing.T) {
	s := New(domains)
	s.Update(record(0, model.TaskNextWordPrediction, "dialogue", "cat"))
	r := s.Report(1, 0)
	assert.Equal(t, int64(1), r.NextWordPrediction.Score.N)
	assert.Zero(t, r.NextWordPrediction.Score.Accuracy)
	assert.Zero(t, r.NextWordPrediction.Score.Top3Accuracy)
}

func TestFBeta(t *testing.T) {
	p, r := 0.6, 0.3
	assert.InDelta(t, 2*p*r/(p+r), FBeta(p, r, 1), 1e-12)
	for _, beta := range []float64{0.5, 0.9, 2} {
		b2 := beta * beta
		assert.InDelta(t, (1+b2)*p*r/(b2*p+r), FBeta(p, r, beta), 1e-12)
	}
	assert.Zero(t, FBeta(0, 0, 1))
}

func randomRecords(rng *rand.Rand, n int, seqBase uint64) []model.Record {
	words := []string{"a", "b", "c", "d"}
	out := make([]model.Record, 0, n)
	for i := 0; i < n; i++ {
		seq := seqBase + uint64(i)
		domain := domains[rng.IntN(len(domains))]
		expected := words[rng.IntN(len(words))]
		var preds []string
		for j := rng.IntN(5); j > 0; j-- {
			preds = append(preds, words[rng.IntN(len(words))])
		}
		task := model.AllTasks[rng.IntN(len(model.AllTasks))]
		if task == model.TaskAutoCorrection {
			var typos []model.TypoKind
			for j := rng.IntN(4); j > 0; j-- {
				typos = append(typos, model.TypoKinds[rng.IntN(len(model.TypoKinds))])
			}
			rec := acrRecord(seq, domain, expected, typos, preds...)
			out = append(out, rec)
			continue
		}
		rec := record(seq, task, domain, expected, preds...)
		rec.Job.Labels.Completion = model.CompletionBuckets[rng.IntN(4)]
		rec.Job.Labels.WithTypo = rng.IntN(2) == 0
		rec.Runtime = time.Duration(rng.IntN(1000))
		rec.Memory = int64(rng.IntN(1000)) - 100
		out = append(out, rec)
	}
	return out
}

func filled(recs []model.Record) *Scorer {
	s := New(domains, WithMistakes())
	for _, rec := range recs {
		s.Update(rec)
	}
	return s
}

func TestMergeIsAssociativeAndCommutative(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	a := randomRecords(rng, 300, 0)
	b := randomRecords(rng, 200, 1000)
	c := randomRecords(rng, 100, 2000)

	left := filled(a)
	left.Merge(filled(b))
	left.Merge(filled(c))

	bc := filled(b)
	bc.Merge(filled(c))
	right := filled(a)
	right.Merge(bc)

	swapped := filled(c)
	swapped.Merge(filled(a))
	swapped.Merge(filled(b))

	all := filled(append(append(append([]model.Record{}, a...), b...), c...))

	for _, task := range model.AllTasks {
		assert.Equal(t, left.Accumulator(task), right.Accumulator(task), task.String())
		assert.Equal(t, left.Accumulator(task), swapped.Accumulator(task), task.String())
		assert.Equal(t, all.Accumulator(task), left.Accumulator(task), task.String())
	}
	assert.Equal(t, all.Report(1, 50), right.Report(1, 50))
}

func TestSliceConsistency(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	s := filled(randomRecords(rng, 2000, 0))

	for _, task := range model.AllTasks {
		acc := s.Accumulator(task)
		var byDomain Counts
		for _, c := range acc.Domains {
			byDomain.Add(c)
		}
		assert.Equal(t, acc.Total, byDomain, task.String())
	}

	acr := s.Accumulator(model.TaskAutoCorrection)
	var typed, numbered Counts
	for _, c := range acr.TypoTypes {
		typed.Add(c)
	}
	for _, c := range acr.TypoNumbers {
		numbered.Add(c)
	}
	assert.Equal(t, acr.Total.typoPart(), typed.typoPart())
	assert.Equal(t, acr.Total.NTypo, numbered.NTypo)
	assert.Equal(t, acr.Total.NTypo, typed.N)
}

func TestTop3NeverBelowTop1(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	r := filled(randomRecords(rng, 3000, 0)).Report(1, 0)

	check := func(name string, s Score) {
		assert.GreaterOrEqual(t, s.Top3Accuracy, s.Accuracy, name)
	}
	for _, task := range model.AllTasks {
		tr := r.Task(task)
		check(task.String(), tr.Score)
		for _, group := range []map[string]Score{tr.PerDomain, tr.PerTypoType, tr.PerNumberOfTypos, tr.PerCompletionRate, tr.PerOther} {
			for k, s := range group {
				check(task.String()+"/"+k, s)
			}
		}
	}
}

func TestEmptyReportIsComplete(t *testing.T) {
	r := New(domains).Report(1, 10)
	for _, task := range model.AllTasks {
		tr := r.Task(task)
		assert.Zero(t, tr.Score.N)
		assert.Zero(t, tr.Score.Accuracy)
		assert.Len(t, tr.PerDomain, 2)
		assert.Nil(t, tr.MostCommonMistakes)
	}
	assert.Len(t, r.AutoCorrection.PerTypoType, len(model.TypoKinds)+1)
	assert.Len(t, r.AutoCorrection.PerNumberOfTypos, 3)
	assert.Len(t, r.AutoCompletion.PerCompletionRate, 4)
	assert.Len(t, r.AutoCompletion.PerOther, 2)
	assert.Zero(t, r.OverallScore)
}

func TestTypoSlicesGetProportionalCleanShare(t *testing.T) {
	s := New(domains)
	seq := uint64(0)
	add := func(rec model.Record) {
		rec.Job.Seq = seq
		seq++
		s.Update(rec)
	}
	for i := 0; i < 8; i++ {
		add(acrRecord(0, "narrative", "word", nil, "word"))
	}
	for i := 0; i < 2; i++ {
		add(acrRecord(0, "narrative", "word", nil, "other"))
	}
	for i := 0; i < 3; i++ {
		add(acrRecord(0, "narrative", "word", []model.TypoKind{model.SubstituteChar}, "word"))
	}
	add(acrRecord(0, "narrative", "word", []model.TypoKind{model.TransposeChar}, "other"))

	r := s.Report(1, 0)
	sub := r.AutoCorrection.PerTypoType[model.SubstituteChar.String()]
	// 3 of 4 typo items: 6 of the 8 clean hits and 2 of the 2 clean misses
	// (7.5 clean items rounds to 8).
	assert.Equal(t, int64(3), sub.NTypo)
	assert.Equal(t, int64(11), sub.N)
	assert.InDelta(t, 3.0/5.0, sub.Precision, 1e-9)
	assert.Equal(t, 1.0, sub.Recall)

	transpose := r.AutoCorrection.PerTypoType[model.TransposeChar.String()]
	assert.Equal(t, int64(1), transpose.NTypo)
	assert.Zero(t, transpose.Recall)

	assert.Equal(t, int64(4), r.AutoCorrection.PerNumberOfTypos["1"].NTypo)
	assert.Zero(t, r.AutoCorrection.PerNumberOfTypos["2"].N)
}

func TestMultipleTyposSlice(t *testing.T) {
	s := New(domains)
	s.Update(acrRecord(0, "narrative", "x", []model.TypoKind{model.SubstituteChar, model.DeleteChar}, "x"))
	s.Update(acrRecord(1, "narrative", "x", []model.TypoKind{model.AddChar, model.AddChar, model.DeleteChar}, "x"))
	acc := s.Accumulator(model.TaskAutoCorrection)
	assert.Equal(t, int64(2), acc.TypoTypes[MultipleTypos].NTypo)
	assert.Equal(t, int64(1), acc.TypoNumbers["2"].NTypo)
	assert.Equal(t, int64(1), acc.TypoNumbers["3+"].NTypo)
}

func TestMistakesTopAndTies(t *testing.T) {
	s := New(domains, WithMistakes())
	seq := uint64(0)
	add := func(expected string, n int, preds ...string) {
		for i := 0; i < n; i++ {
			s.Update(record(seq, model.TaskNextWordPrediction, "narrative", expected, preds...))
			seq++
		}
	}
	add("three", 3, "tree")
	add("five", 5, "fine", "fire")
	add("one", 1)
	add("tie", 3, "tee")
	add("hit", 4, "hit")

	top := s.Report(1, 2).NextWordPrediction.MostCommonMistakes
	require.Len(t, top, 2)
	assert.Equal(t, Mistake{Count: 5, Expected: "five", Predictions: []string{"fine", "fire"}, Context: "ctx "}, top[0])
	assert.Equal(t, "three", top[1].Expected)

	all := s.Accumulator(model.TaskNextWordPrediction).Mistakes.Top(10)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"five", "three", "tie", "one"}, []string{all[0].Expected, all[1].Expected, all[2].Expected, all[3].Expected})
	assert.Equal(t, []string{}, all[3].Predictions)
}

func TestMistakeTableKeepsEveryKey(t *testing.T) {
	table := NewMistakeTable()
	for i, e := range []string{"a", "b", "c", "a"} {
		table.Add(e, nil, "", uint64(i))
	}
	assert.Equal(t, 3, table.Len())
	top := table.Top(-1)
	require.Len(t, top, 3)
	assert.Equal(t, Mistake{Count: 2, Expected: "a", Predictions: []string{}}, top[0])
	assert.Len(t, table.Top(1), 1)
	assert.Empty(t, table.Top(0))
}

func TestMistakeTableMergeOrderDoesNotMatter(t *testing.T) {
	shard := func(entries ...string) *MistakeTable {
		m := NewMistakeTable()
		for i, e := range entries {
			m.Add(e, []string{"x"}, "ctx ", uint64(len(e)*10+i))
		}
		return m
	}
	build := func(order ...int) []Mistake {
		shards := []*MistakeTable{
			shard("late", "late", "late"),
			shard("early", "early"),
			shard("once", "late"),
		}
		total := NewMistakeTable()
		for _, i := range order {
			total.Merge(shards[i])
		}
		return total.Top(2)
	}
	want := build(0, 1, 2)
	require.Len(t, want, 2)
	assert.Equal(t, "late", want[0].Expected)
	assert.Equal(t, int64(4), want[0].Count)
	assert.Equal(t, "early", want[1].Expected)
	assert.Equal(t, want, build(2, 1, 0))
	assert.Equal(t, want, build(1, 2, 0))
}

func TestSummary(t *testing.T) {
	var a, b Summary
	for _, v := range []int64{5, 1, 9} {
		a.Observe(v)
	}
	b.Observe(20)
	a.Merge(b)
	a.Merge(Summary{})
	assert.Equal(t, Summary{Count: 4, Sum: 35, Min: 1, Max: 20}, a)
	assert.InDelta(t, 8.75, a.Mean(), 1e-12)
	assert.Zero(t, Summary{}.Mean())
}

func TestPerformancesSkipUnmeasuredMemory(t *testing.T) {
	s := New(domains)
	s.Update(acrRecord(1, "narrative", "a", nil, "a"))
	s.Update(record(2, model.TaskAutoCorrection, "narrative", "a", "a"))
	perf := s.Report(1, 0).AutoCorrection.Performances
	assert.Equal(t, int64(10), perf.MinMemory)
	assert.Equal(t, int64(10), perf.MaxMemory)
	assert.Equal(t, int64(0), perf.FastestRuntime)
	assert.Equal(t, int64(2000), perf.SlowestRuntime)
}

func TestScoreJSON(t *testing.T) {
	acc := AccuracyOf(Counts{N: 4, Top1: 1, Top3: 2})
	data, err := json.Marshal(acc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"accuracy":0.25,"top3_accuracy":0.5,"n":4}`, string(data))

	var back Score
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, acc, back)

	corr := CorrectionOf(Counts{N: 2, NTypo: 1, Top1: 1, Top3: 1, TP: 1, TP3: 1, FP: 1, FP3: 1}, 1)
	data, err = json.Marshal(corr)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"precision":0.5`)
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, corr, back)
}

func TestReportJSONShape(t *testing.T) {
	s := New(domains, WithMistakes())
	s.Update(record(0, model.TaskSwipeResolution, "narrative", "a", "b"))
	data, err := json.Marshal(s.Report(1, 5))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"next_word_prediction", "auto_completion", "auto_correction", "swipe_resolution", "overall_score"} {
		assert.Contains(t, raw, key)
	}
	var swp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["swipe_resolution"], &swp))
	assert.Contains(t, swp, "most_common_mistakes")
	assert.NotContains(t, swp, "per_typo_type")
	assert.JSONEq(t, `{"accuracy":0,"top3_accuracy":0,"n":1}`, string(swp["score"]))
}

func TestOverallScore(t *testing.T) {
	r := &Report{}
	r.NextWordPrediction.Score.Top3Accuracy = 1
	r.AutoCompletion.Score.Top3Accuracy = 1
	r.AutoCorrection.Score.FScore = 1
	r.SwipeResolution.Score.Accuracy = 1
	assert.InDelta(t, 1.0, OverallScore(r), 1e-12)
	r.AutoCorrection.Score.FScore = 0
	assert.InDelta(t, 0.6, OverallScore(r), 1e-12)
}
