package bench

import (
	"log/slog"
	"runtime"
	"slices"

	"github.com/verte-zerg/typobench/internal/corrector"
	"github.com/verte-zerg/typobench/internal/dataset"
	"github.com/verte-zerg/typobench/internal/layout"
	"github.com/verte-zerg/typobench/internal/model"
	"github.com/verte-zerg/typobench/internal/noise"
	"github.com/verte-zerg/typobench/internal/oracle"
)

// Defaults of an evaluation.
const (
	DefaultSeed               = 42
	DefaultBeta               = 1.0
	DefaultMostCommonMistakes = 1000
)

// mergeEvery is the number of records scored into a fresh batch before it
// is merged into the run totals.
const mergeEvery = 256

// Option configures an evaluation.
type Option func(*config)

type config struct {
	Seed               uint64
	Procs              int     `validate:"gt=0"`
	Beta               float64 `validate:"gt=0"`
	TrackMistakes      bool
	MostCommonMistakes int `validate:"gte=0"`
	Dataset            dataset.Corpus
	Layout             *layout.Layout      `validate:"required"`
	Noise              noise.Config        `validate:"-"`
	Oracle             oracle.Config       `validate:"-"`
	Registry           *corrector.Registry `validate:"required"`
	MemoryProfiling    bool

	logger   *slog.Logger
	progress func(done, total int)
}

func defaultConfig() config {
	return config{
		Seed:               DefaultSeed,
		Procs:              runtime.NumCPU(),
		Beta:               DefaultBeta,
		MostCommonMistakes: DefaultMostCommonMistakes,
		Noise:              noise.DefaultConfig(),
		Oracle:             oracle.DefaultConfig(),
		Layout:             layout.Default(),
		Registry:           corrector.Default(),
		MemoryProfiling:    true,
		logger:             slog.Default(),
	}
}

// WithSeed sets the run seed (default: 42).
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.Seed = seed
	}
}

// WithProcs sets the number of workers (default: runtime.NumCPU()). Zero
// keeps the default.
func WithProcs(n int) Option {
	return func(c *config) {
		if n != 0 {
			c.Procs = n
		}
	}
}

// WithBeta sets the F-beta weighting of auto-correction (default: 1).
func WithBeta(beta float64) Option {
	return func(c *config) {
		c.Beta = beta
	}
}

// WithTrackMistakes enables the most common mistakes tables.
func WithTrackMistakes(track bool) Option {
	return func(c *config) {
		c.TrackMistakes = track
	}
}

// WithMostCommonMistakes sets how many mistakes each table keeps (default:
// 1000).
func WithMostCommonMistakes(n int) Option {
	return func(c *config) {
		c.MostCommonMistakes = n
	}
}

// WithDataset replaces the built-in corpus.
func WithDataset(c dataset.Corpus) Option {
	return func(cfg *config) {
		cfg.Dataset = c
	}
}

// WithLayout sets the keyboard (default: en-US QWERTY).
func WithLayout(l *layout.Layout) Option {
	return func(c *config) {
		if l != nil {
			c.Layout = l
		}
	}
}

// WithNoise sets the noise model configuration.
func WithNoise(n noise.Config) Option {
	return func(c *config) {
		c.Noise = n.Clone()
	}
}

// WithOracle sets the oracle configuration. Empty Tasks keep the tasks
// already selected.
func WithOracle(o oracle.Config) Option {
	return func(c *config) {
		tasks := c.Oracle.Tasks
		c.Oracle = o
		if len(o.Tasks) == 0 {
			c.Oracle.Tasks = tasks
		}
	}
}

// WithTasks restricts the evaluated tasks. The report still holds every
// task; the others are empty.
func WithTasks(tasks ...model.Task) Option {
	return func(c *config) {
		if len(tasks) > 0 {
			c.Oracle.Tasks = slices.Clone(tasks)
		}
	}
}

// WithRegistry sets where correctors are built from (default:
// corrector.Default()).
func WithRegistry(r *corrector.Registry) Option {
	return func(c *config) {
		if r != nil {
			c.Registry = r
		}
	}
}

// WithMemoryProfiling toggles memory sampling around corrector calls
// (default: on).
func WithMemoryProfiling(on bool) Option {
	return func(c *config) {
		c.MemoryProfiling = on
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithProgress registers a callback receiving the number of finished jobs
// and the total. It is called from a single goroutine.
func WithProgress(fn func(done, total int)) Option {
	return func(c *config) {
		c.progress = fn
	}
}
