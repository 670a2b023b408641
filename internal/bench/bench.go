// Package bench runs a corrector over noised sentences of a corpus on a
// pool of workers and reduces the outcomes into a report.
package bench

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/typobench/internal/corrector"
	"github.com/verte-zerg/typobench/internal/dataset"
	"github.com/verte-zerg/typobench/internal/model"
	"github.com/verte-zerg/typobench/internal/noise"
	"github.com/verte-zerg/typobench/internal/oracle"
	"github.com/verte-zerg/typobench/internal/sampling"
	"github.com/verte-zerg/typobench/internal/scorer"
	"github.com/verte-zerg/typobench/internal/tokenizer"
)

var (
	// ErrInvalidConfig is returned before any work starts when an option is
	// out of range.
	ErrInvalidConfig = errors.New("bench: invalid config")
	// ErrUnsupportedCorrector is returned before any work starts when the
	// corrector cannot be built from its spec.
	ErrUnsupportedCorrector = errors.New("bench: unsupported corrector")
	// ErrCorrectorFailed marks the record of a corrector call that returned
	// an error or panicked.
	ErrCorrectorFailed = errors.New("bench: corrector call failed")
)

var validate = validator.New()

// Evaluate benchmarks the corrector described by spec. Every worker builds
// its own instance from the spec; a spec that cannot be built fails the run
// before any job is dispatched. Failing corrector calls are scored as misses
// and logged, they never abort the run.
func Evaluate(ctx context.Context, spec corrector.Spec, opts ...Option) (*scorer.Report, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if math.IsNaN(cfg.Beta) || math.IsInf(cfg.Beta, 0) {
		return nil, fmt.Errorf("%w: beta must be finite", ErrInvalidConfig)
	}
	if cfg.Dataset == nil {
		cfg.Dataset = dataset.Default()
	}

	probe, err := cfg.Registry.Build(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedCorrector, spec, err)
	}

	nm, err := noise.New(cfg.Layout, cfg.Noise)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	orc, err := oracle.New(nm, cfg.Layout, cfg.Oracle)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	jobs := buildJobs(cfg.Dataset, orc, cfg.Seed)
	cfg.logger = cfg.logger.With("corrector", spec.String())
	cfg.logger.Info("evaluation started", "jobs", len(jobs), "procs", cfg.Procs, "seed", cfg.Seed, "domains", len(cfg.Dataset))
	start := time.Now()

	var scorerOpts []scorer.Option
	if cfg.TrackMistakes {
		scorerOpts = append(scorerOpts, scorer.WithMistakes())
	}
	total := scorer.New(cfg.Dataset.Domains(), scorerOpts...)

	failures, err := run(ctx, &cfg, spec, probe, jobs, total)
	if err != nil {
		return nil, err
	}

	cfg.logger.Info("evaluation finished", "jobs", len(jobs), "failures", failures, "elapsed", time.Since(start).Round(time.Millisecond))
	return total.Report(cfg.Beta, cfg.MostCommonMistakes), nil
}

// buildJobs derives every job of the corpus. Domains are visited in name
// order so sequence numbers are stable, and every position draws from its
// own stream keyed by (domain, sentence, position).
func buildJobs(corpus dataset.Corpus, orc *oracle.Oracle, seed uint64) []model.Job {
	var jobs []model.Job
	var seq uint64
	for _, domain := range corpus.Domains() {
		for si, sentence := range corpus[domain] {
			tokens := tokenizer.Tokenize(tokenizer.Preprocess(sentence))
			targets := orc.Targets(tokens, func(i int) *rand.Rand {
				return sampling.Stream(seed, domain, si, i)
			})
			for _, t := range targets {
				jobs = append(jobs, model.Job{
					Seq:      seq,
					Sentence: si,
					Target:   t,
					Labels:   oracle.LabelsFor(t, domain),
				})
				seq++
			}
		}
	}
	return jobs
}

// run drains jobs over cfg.Procs workers and scores the records into total.
// It returns the number of failed corrector calls.
func run(ctx context.Context, cfg *config, spec corrector.Spec, probe corrector.Corrector, jobs []model.Job, total *scorer.Scorer) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan model.Job)
	records := make(chan model.Record, cfg.Procs)

	g.Go(func() error {
		defer close(queue)
		for _, job := range jobs {
			select {
			case queue <- job:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers, wctx := errgroup.WithContext(gctx)
	for i := range cfg.Procs {
		workers.Go(func() error {
			c := probe
			if i > 0 {
				var err error
				if c, err = cfg.Registry.Build(spec); err != nil {
					return fmt.Errorf("%w: worker %d: %w", ErrUnsupportedCorrector, i, err)
				}
			}
			w := &worker{corrector: c, memory: cfg.MemoryProfiling}
			for job := range queue {
				select {
				case records <- w.run(wctx, job):
				case <-wctx.Done():
					return wctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(records)
		return workers.Wait()
	})

	failures, done := 0, 0
	batch := total.Fresh()
	for rec := range records {
		if rec.Err != nil {
			failures++
			t := rec.Job.Target
			cfg.logger.Warn("corrector call failed",
				"task", t.Task.String(),
				"domain", rec.Job.Labels.Domain,
				"sentence", rec.Job.Sentence,
				"position", t.Position,
				"error", rec.Err,
			)
		}
		batch.Update(rec)
		done++
		if done%mergeEvery == 0 {
			total.Merge(batch)
			batch = total.Fresh()
		}
		if cfg.progress != nil {
			cfg.progress(done, len(jobs))
		}
	}
	total.Merge(batch)

	if err := g.Wait(); err != nil {
		return failures, err
	}
	if cfg.progress != nil && len(jobs) == 0 {
		cfg.progress(0, 0)
	}
	return failures, nil
}
