package bench

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typobench/internal/corrector"
	"github.com/verte-zerg/typobench/internal/dataset"
	"github.com/verte-zerg/typobench/internal/layout"
	"github.com/verte-zerg/typobench/internal/model"
	"github.com/verte-zerg/typobench/internal/noise"
	"github.com/verte-zerg/typobench/internal/oracle"
	"github.com/verte-zerg/typobench/internal/scorer"
	"github.com/verte-zerg/typobench/internal/tokenizer"
)

type fixed struct {
	corrector.Base
	answer []string
}

func (f fixed) AutoCorrect(context.Context, string, []model.Keystroke, string) ([]string, error) {
	return f.answer, nil
}

type flaky struct {
	corrector.Base
	panics bool
}

func (f flaky) AutoCorrect(_ context.Context, _ string, _ []model.Keystroke, word string) ([]string, error) {
	if word == "beta" {
		if f.panics {
			panic("corrupted state")
		}
		return nil, errors.New("cannot handle beta")
	}
	return []string{word}, nil
}

func cleanNoise() noise.Config {
	cfg := noise.DefaultConfig()
	cfg.TypoCounts = []float64{1}
	return cfg
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func registryWith(name string, f corrector.Factory) *corrector.Registry {
	r := corrector.NewRegistry()
	r.MustRegister(name, f)
	return r
}

func TestMostCommonMistakes(t *testing.T) {
	corpus := dataset.Corpus{"d": {
		"alpha", "alpha", "alpha", "alpha", "alpha",
		"beta", "beta", "beta",
		"gamma",
	}}
	r := registryWith("wrong", func(map[string]string) (corrector.Corrector, error) {
		return fixed{answer: []string{"wrong"}}, nil
	})

	report, err := Evaluate(context.Background(), corrector.Spec{Name: "wrong"},
		WithRegistry(r),
		WithDataset(corpus),
		WithNoise(cleanNoise()),
		WithTasks(model.TaskAutoCorrection),
		WithTrackMistakes(true),
		WithMostCommonMistakes(2),
		WithProcs(3),
		WithLogger(quiet()),
	)
	require.NoError(t, err)

	assert.Equal(t, []scorer.Mistake{
		{Count: 5, Expected: "alpha", Predictions: []string{"wrong"}, Context: "alpha"},
		{Count: 3, Expected: "beta", Predictions: []string{"wrong"}, Context: "beta"},
	}, report.AutoCorrection.MostCommonMistakes)

	score := report.AutoCorrection.Score
	assert.Equal(t, int64(9), score.N)
	assert.Equal(t, int64(0), score.NTypo)
	assert.Zero(t, score.Accuracy)

	// Disabled tasks are present and empty.
	assert.Equal(t, int64(0), report.NextWordPrediction.Score.N)
	assert.Empty(t, report.SwipeResolution.MostCommonMistakes)
}

func TestFailingCorrectorCallsAreMisses(t *testing.T) {
	for _, panics := range []bool{false, true} {
		name := "error"
		if panics {
			name = "panic"
		}
		t.Run(name, func(t *testing.T) {
			r := registryWith("flaky", func(map[string]string) (corrector.Corrector, error) {
				return flaky{panics: panics}, nil
			})
			var logs bytes.Buffer
			report, err := Evaluate(context.Background(), corrector.Spec{Name: "flaky"},
				WithRegistry(r),
				WithDataset(dataset.Corpus{"d": {"alpha", "beta", "gamma"}}),
				WithNoise(cleanNoise()),
				WithTasks(model.TaskAutoCorrection),
				WithProcs(2),
				WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
			)
			require.NoError(t, err)

			score := report.AutoCorrection.Score
			assert.Equal(t, int64(3), score.N)
			assert.InDelta(t, 2.0/3.0, score.Accuracy, 1e-9)
			assert.Contains(t, logs.String(), "corrector call failed")
			assert.Contains(t, logs.String(), "sentence=1")
			assert.Contains(t, logs.String(), "failures=1")
		})
	}
}

func TestUnsupportedCorrector(t *testing.T) {
	var calls atomic.Int64
	r := corrector.NewRegistry()
	r.MustRegister("broken", func(map[string]string) (corrector.Corrector, error) {
		return nil, errors.New("model file missing")
	})
	r.MustRegister("counting", func(map[string]string) (corrector.Corrector, error) {
		calls.Add(1)
		return corrector.Noop{}, nil
	})

	_, err := Evaluate(context.Background(), corrector.Spec{Name: "broken"}, WithRegistry(r), WithLogger(quiet()))
	require.ErrorIs(t, err, ErrUnsupportedCorrector)

	_, err = Evaluate(context.Background(), corrector.Spec{Name: "missing"}, WithRegistry(r), WithLogger(quiet()))
	require.ErrorIs(t, err, ErrUnsupportedCorrector)
	require.ErrorIs(t, err, corrector.ErrUnknownCorrector)

	_, err = Evaluate(context.Background(), corrector.Spec{Name: "counting"}, WithRegistry(r), WithBeta(0), WithLogger(quiet()))
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Zero(t, calls.Load(), "configuration is checked before the corrector is built")
}

func TestWorkerBuildFailure(t *testing.T) {
	var built atomic.Int64
	r := registryWith("once", func(map[string]string) (corrector.Corrector, error) {
		if built.Add(1) > 1 {
			return nil, errors.New("only one instance allowed")
		}
		return corrector.Noop{}, nil
	})

	_, err := Evaluate(context.Background(), corrector.Spec{Name: "once"},
		WithRegistry(r),
		WithProcs(2),
		WithDataset(dataset.Corpus{"d": {"a few words here"}}),
		WithLogger(quiet()),
	)
	require.ErrorIs(t, err, ErrUnsupportedCorrector)
}

func TestInvalidConfig(t *testing.T) {
	bad := noise.DefaultConfig()
	bad.XRatio = 0

	tests := []struct {
		name string
		opt  Option
	}{
		{"zero beta", WithBeta(0)},
		{"negative beta", WithBeta(-1)},
		{"nan beta", WithBeta(math.NaN())},
		{"negative procs", WithProcs(-2)},
		{"negative mistakes", WithMostCommonMistakes(-1)},
		{"noise", WithNoise(bad)},
		{"oracle", WithOracle(oracle.Config{Tasks: model.AllTasks, SwipeRate: 2, MaxContextChars: 10})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(context.Background(), corrector.Spec{Name: "noop"}, tt.opt, WithLogger(quiet()))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Evaluate(ctx, corrector.Spec{Name: "noop"}, WithLogger(quiet()))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNoopReport(t *testing.T) {
	var done, total int
	report, err := Evaluate(context.Background(), corrector.Spec{Name: "noop"},
		WithProcs(4),
		WithLogger(quiet()),
		WithProgress(func(d, n int) { done, total = d, n }),
	)
	require.NoError(t, err)

	jobs := int64(0)
	for _, task := range model.AllTasks {
		tr := report.Task(task)
		assert.Positive(t, tr.Score.N, task.String())
		assert.Zero(t, tr.Score.Accuracy, task.String())
		assert.Zero(t, tr.Score.Top3Accuracy, task.String())
		jobs += tr.Score.N

		perDomain := int64(0)
		for _, s := range tr.PerDomain {
			perDomain += s.N
		}
		assert.Equal(t, tr.Score.N, perDomain, task.String())
	}
	assert.Zero(t, report.OverallScore)
	assert.Equal(t, int(jobs), total)
	assert.Equal(t, total, done)

	acr := report.AutoCorrection
	assert.Positive(t, acr.Score.NTypo)
	typoTotal := int64(0)
	for _, s := range acr.PerNumberOfTypos {
		typoTotal += s.NTypo
	}
	assert.Equal(t, acr.Score.NTypo, typoTotal)
	typeTotal := int64(0)
	for _, s := range acr.PerTypoType {
		typeTotal += s.NTypo
	}
	assert.Equal(t, acr.Score.NTypo, typeTotal)
}

func TestDeterministicAcrossWorkers(t *testing.T) {
	evaluate := func(procs int) *scorer.Report {
		report, err := Evaluate(context.Background(), corrector.Spec{Name: "dictionary"},
			WithProcs(procs),
			WithSeed(7),
			WithTrackMistakes(true),
			WithMostCommonMistakes(20),
			WithMemoryProfiling(false),
			WithLogger(quiet()),
		)
		require.NoError(t, err)
		for _, task := range model.AllTasks {
			report.Task(task).Performances = scorer.Performances{}
		}
		return report
	}

	single := evaluate(1)
	assert.Equal(t, single, evaluate(4))
	assert.Positive(t, single.OverallScore)
	assert.Positive(t, single.AutoCorrection.Score.Accuracy)
}

func TestBuildJobs(t *testing.T) {
	l := layout.Default()
	nm, err := noise.New(l, noise.DefaultConfig())
	require.NoError(t, err)
	orc, err := oracle.New(nm, l, oracle.DefaultConfig())
	require.NoError(t, err)

	corpus := dataset.Corpus{
		"b": {"the cat sat on the mat"},
		"a": {"I think we should leave now", "see you tomorrow"},
	}
	jobs := buildJobs(corpus, orc, 42)
	require.NotEmpty(t, jobs)
	assert.Equal(t, jobs, buildJobs(corpus, orc, 42))

	for i, job := range jobs {
		assert.Equal(t, uint64(i), job.Seq)
		domainSentences := corpus[job.Labels.Domain]
		tokens := tokenizer.Tokenize(tokenizer.Preprocess(domainSentences[job.Sentence]))
		assert.Equal(t, tokenizer.Context(tokens, job.Target.Position), job.Target.Context)
		if job.Target.Task == model.TaskNextWordPrediction {
			assert.Positive(t, job.Target.Position)
		}
	}
	assert.Equal(t, "a", jobs[0].Labels.Domain)
	assert.Equal(t, "b", jobs[len(jobs)-1].Labels.Domain)
}

func TestWorkerMeasuresSuccessfulCalls(t *testing.T) {
	job := model.Job{Target: model.Target{Task: model.TaskAutoCorrection, Input: "alpha", Expected: "alpha"}}

	w := &worker{corrector: flaky{}, memory: true}
	rec := w.run(context.Background(), job)
	require.NoError(t, rec.Err)
	assert.Equal(t, []string{"alpha"}, rec.Predictions)
	assert.GreaterOrEqual(t, int64(rec.Runtime), int64(0))
	assert.GreaterOrEqual(t, rec.Memory, int64(0))

	job.Target.Input = "beta"
	rec = (&worker{corrector: flaky{panics: true}}).run(context.Background(), job)
	require.ErrorIs(t, rec.Err, ErrCorrectorFailed)
	assert.Nil(t, rec.Predictions)
	assert.Equal(t, int64(-1), rec.Memory)
	assert.Negative(t, int64(rec.Runtime))
}
