package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/typobench/internal/bench"
	"github.com/verte-zerg/typobench/internal/config"
	"github.com/verte-zerg/typobench/internal/corrector"
	"github.com/verte-zerg/typobench/internal/dataset"
	"github.com/verte-zerg/typobench/internal/layout"
	"github.com/verte-zerg/typobench/internal/logging"
	"github.com/verte-zerg/typobench/internal/model"
	"github.com/verte-zerg/typobench/internal/noise"
	"github.com/verte-zerg/typobench/internal/oracle"
	"github.com/verte-zerg/typobench/internal/report"
	"github.com/verte-zerg/typobench/internal/scorer"
	"github.com/verte-zerg/typobench/internal/store"
	"github.com/verte-zerg/typobench/internal/tui"
	"github.com/verte-zerg/typobench/internal/typos"
)

const (
	defaultCorrector    = "dictionary"
	defaultShowMistakes = 10
	builtinDataset      = "builtin"
)

var (
	evalSeed          uint64
	evalProcs         int
	evalBeta          float64
	evalDataset       string
	evalSentences     int
	evalLayout        string
	evalTasks         []string
	evalTrackMistakes bool
	evalMostCommon    int
	evalMemory        bool
	evalSwipeRate     float64
	evalCommonTypos   bool
	evalTypoFile      string
	evalTypoCorpusURL string
	evalOutput        string
	evalMistakesTSV   string
	evalSlices        bool
	evalShowMistakes  int
	evalNoSave        bool
	evalNoProgress    bool
	evalCacheDir      string
	evalCorrector     string
)

func newEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate [corrector[:key=value,...]]",
		Short: "Evaluate a corrector on the corpus",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEvaluateCmd,
	}
	cmd.Flags().StringVar(&evalCorrector, "corrector", defaultCorrector, "corrector spec used when no argument is given")
	cmd.Flags().Uint64Var(&evalSeed, "seed", bench.DefaultSeed, "random seed")
	cmd.Flags().IntVar(&evalProcs, "procs", 0, "number of workers (default: number of CPUs)")
	cmd.Flags().Float64Var(&evalBeta, "beta", bench.DefaultBeta, "F-beta weight of recall for auto-correction")
	cmd.Flags().StringVar(&evalDataset, "dataset", "", "directory of <domain>.txt files or JSON corpus (default: built-in)")
	cmd.Flags().IntVar(&evalSentences, "sentences", 0, "keep the first N sentences, split across domains (0: all)")
	cmd.Flags().StringVar(&evalLayout, "layout", "", "TOML keyboard layout file (default: en-US QWERTY)")
	cmd.Flags().StringSliceVar(&evalTasks, "tasks", nil, "tasks to evaluate (acr, acp, nwp, swp; default: all)")
	cmd.Flags().BoolVar(&evalTrackMistakes, "track-mistakes", false, "record the most common mistakes")
	cmd.Flags().IntVar(&evalMostCommon, "most-common-mistakes", bench.DefaultMostCommonMistakes, "number of mistakes kept per task")
	cmd.Flags().BoolVar(&evalMemory, "memory-profiling", true, "measure allocated bytes per corrector call")
	cmd.Flags().Float64Var(&evalSwipeRate, "swipe-rate", 1, "share of positions tested with a swipe gesture (0-1)")
	cmd.Flags().BoolVar(&evalCommonTypos, "common-typos", false, "download and use the Twitter common typo corpus")
	cmd.Flags().StringVar(&evalTypoFile, "typo-file", "", "common typo corpus file (TSV or JSON)")
	cmd.Flags().StringVar(&evalTypoCorpusURL, "typo-corpus-url", typos.TweetCorpusURL, "common typo corpus URL")
	cmd.Flags().StringVar(&evalCacheDir, "cache-dir", config.DefaultTypoCacheDir(), "typo corpus cache directory")
	cmd.Flags().StringVarP(&evalOutput, "output", "o", "", "write the JSON report to this file")
	cmd.Flags().StringVar(&evalMistakesTSV, "mistakes-tsv", "", "write the most common mistakes to this TSV file")
	cmd.Flags().BoolVar(&evalSlices, "slices", false, "print per domain, typo and completion slices")
	cmd.Flags().IntVar(&evalShowMistakes, "show-mistakes", defaultShowMistakes, "mistakes printed per task when tracking")
	cmd.Flags().BoolVar(&evalNoSave, "no-save", false, "do not store the run in the history database")
	cmd.Flags().BoolVar(&evalNoProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

func applyEvaluateConfig(cmd *cobra.Command, fileCfg config.FileConfig) {
	ev := fileCfg.Evaluate
	applyStringConfig(cmd, "corrector", &evalCorrector, ev.Corrector)
	applyUintConfig(cmd, "seed", &evalSeed, ev.Seed)
	applyIntConfig(cmd, "procs", &evalProcs, ev.Procs)
	applyFloatConfig(cmd, "beta", &evalBeta, ev.Beta)
	applyStringConfig(cmd, "dataset", &evalDataset, ev.Dataset)
	applyIntConfig(cmd, "sentences", &evalSentences, ev.Sentences)
	applyStringConfig(cmd, "layout", &evalLayout, ev.Layout)
	applyStringsConfig(cmd, "tasks", &evalTasks, ev.Tasks)
	applyBoolConfig(cmd, "track-mistakes", &evalTrackMistakes, ev.TrackMistakes)
	applyIntConfig(cmd, "most-common-mistakes", &evalMostCommon, ev.MostCommonMistakes)
	applyBoolConfig(cmd, "memory-profiling", &evalMemory, ev.MemoryProfiling)
	applyFloatConfig(cmd, "swipe-rate", &evalSwipeRate, fileCfg.Oracle.SwipeRate)
	applyBoolConfig(cmd, "common-typos", &evalCommonTypos, fileCfg.Noise.CommonTypos)
	applyStringConfig(cmd, "typo-file", &evalTypoFile, fileCfg.Noise.TypoFile)
	applyStringConfig(cmd, "typo-corpus-url", &evalTypoCorpusURL, fileCfg.Noise.TypoCorpusURL)
	applyStringConfig(cmd, "cache-dir", &evalCacheDir, fileCfg.Storage.CacheDir)
	if fileCfg.Storage.Save != nil && !cmd.Flags().Changed("no-save") {
		evalNoSave = !*fileCfg.Storage.Save
	}
}

func runEvaluateCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyEvaluateConfig(cmd, fileCfg)

	specText := evalCorrector
	if len(args) == 1 {
		specText = args[0]
	}
	spec, err := corrector.ParseSpec(specText)
	if err != nil {
		return fmt.Errorf("invalid corrector: %w", err)
	}
	if evalMistakesTSV != "" {
		evalTrackMistakes = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	corpus, datasetName, err := loadCorpus()
	if err != nil {
		return err
	}
	l, err := loadLayout()
	if err != nil {
		return err
	}
	noiseCfg, err := buildNoiseConfig(ctx, fileCfg.Noise)
	if err != nil {
		return err
	}
	oracleCfg, err := buildOracleConfig(fileCfg.Oracle)
	if err != nil {
		return err
	}

	var st *store.Store
	if !evalNoSave {
		st, err = openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)
	}

	useProgress := !evalNoProgress && isTerminal(os.Stderr)
	var logs bytes.Buffer
	logger, err := newLogger()
	if err != nil {
		return err
	}
	if useProgress {
		// Log lines would tear the progress bar; they are printed once it
		// is gone.
		level, _ := logging.ParseLevel(rootLogLevel)
		format, _ := logging.ParseFormat(rootLogFormat)
		logger = logging.New(logging.Config{Level: level, Format: format, W: &logs})
	}

	opts := []bench.Option{
		bench.WithSeed(evalSeed),
		bench.WithProcs(evalProcs),
		bench.WithBeta(evalBeta),
		bench.WithTrackMistakes(evalTrackMistakes),
		bench.WithMostCommonMistakes(evalMostCommon),
		bench.WithDataset(corpus),
		bench.WithLayout(l),
		bench.WithNoise(noiseCfg),
		bench.WithOracle(oracleCfg),
		bench.WithMemoryProfiling(evalMemory),
		bench.WithLogger(logger),
	}

	startedAt := time.Now()
	var rep *scorer.Report
	if useProgress {
		title := fmt.Sprintf("Evaluating %s on %d sentences", spec, corpus.Size())
		err = tui.Run(ctx, title, os.Stderr, func(ctx context.Context, progress func(done, total int)) error {
			var evalErr error
			rep, evalErr = bench.Evaluate(ctx, spec, append(opts, bench.WithProgress(progress))...)
			return evalErr
		})
		if _, werr := os.Stderr.Write(logs.Bytes()); werr != nil {
			// Best-effort replay of buffered logs.
			_ = werr
		}
	} else {
		rep, err = bench.Evaluate(ctx, spec, append(opts, bench.WithProgress(logProgress(logger)))...)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("evaluation canceled")
		}
		return fmt.Errorf("evaluation failed: %w", err)
	}
	duration := time.Since(startedAt)

	if err := report.Render(cmd.OutOrStdout(), rep, report.Options{
		Color:    isTerminal(os.Stdout),
		Slices:   evalSlices,
		Mistakes: evalShowMistakes,
	}); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if evalOutput != "" {
		if err := report.SaveJSON(evalOutput, rep); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		logErrf("Wrote %s\n", evalOutput)
	}
	if evalMistakesTSV != "" {
		if err := writeMistakesTSV(evalMistakesTSV, rep); err != nil {
			return fmt.Errorf("failed to write mistakes: %w", err)
		}
		logErrf("Wrote %s\n", evalMistakesTSV)
	}

	if st != nil {
		id, err := st.SaveRun(context.Background(), store.Run{
			StartedAt: startedAt,
			Duration:  duration,
			Corrector: spec.String(),
			Seed:      evalSeed,
			Beta:      evalBeta,
			Dataset:   datasetName,
			Sentences: corpus.Size(),
			Report:    rep,
		})
		if err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		logErrf("Saved run %s\n", id.String()[:8])
	}
	return nil
}

func loadCorpus() (dataset.Corpus, string, error) {
	corpus := dataset.Default()
	name := builtinDataset
	if evalDataset != "" {
		loaded, err := dataset.Load(evalDataset)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load dataset: %w", err)
		}
		corpus, name = loaded, evalDataset
	}
	if evalSentences < 0 {
		return nil, "", fmt.Errorf("--sentences must be >= 0")
	}
	return corpus.Limit(evalSentences), name, nil
}

func loadLayout() (*layout.Layout, error) {
	if evalLayout == "" {
		return layout.Default(), nil
	}
	l, err := layout.Load(evalLayout, layout.IgnoreLayersAfter(layout.LayerNumbers))
	if err != nil {
		return nil, fmt.Errorf("failed to load layout: %w", err)
	}
	return l, nil
}

func buildNoiseConfig(ctx context.Context, fileCfg config.NoiseConfig) (noise.Config, error) {
	cfg := noise.DefaultConfig()
	if fileCfg.TypoCounts != nil {
		cfg.TypoCounts = fileCfg.TypoCounts
	}
	if fileCfg.Weights != nil {
		weights := make(map[model.TypoKind]float64, len(fileCfg.Weights))
		for name, w := range fileCfg.Weights {
			kind, ok := model.ParseTypoKind(strings.ToUpper(name))
			if !ok {
				return noise.Config{}, fmt.Errorf("unknown typo kind %q in [noise.weights]", name)
			}
			weights[kind] = w
		}
		cfg.Weights = weights
	}
	if fileCfg.FrontDeletion != nil {
		cfg.FrontDeletion = *fileCfg.FrontDeletion
	}
	if fileCfg.Jitter != nil {
		cfg.Jitter = *fileCfg.Jitter
	}
	if fileCfg.XRatio != nil {
		cfg.XRatio = *fileCfg.XRatio
	}
	if fileCfg.YRatio != nil {
		cfg.YRatio = *fileCfg.YRatio
	}

	switch {
	case evalTypoFile != "":
		corpus, err := typos.Load(evalTypoFile)
		if err != nil {
			return noise.Config{}, fmt.Errorf("failed to load typo corpus: %w", err)
		}
		cfg.CommonTypos = corpus
	case evalCommonTypos:
		logErrln("Loading common typo corpus...")
		corpus, err := typos.Fetch(ctx, evalTypoCorpusURL, evalCacheDir, "en")
		if err != nil {
			return noise.Config{}, fmt.Errorf("failed to fetch typo corpus: %w", err)
		}
		cfg.CommonTypos = corpus
	}
	return cfg, nil
}

func buildOracleConfig(fileCfg config.OracleConfig) (oracle.Config, error) {
	cfg := oracle.DefaultConfig()
	cfg.SwipeRate = evalSwipeRate
	if len(fileCfg.CompletionWeights) == len(cfg.CompletionWeights) {
		copy(cfg.CompletionWeights[:], fileCfg.CompletionWeights)
	}
	if fileCfg.MaxContextChars != nil {
		cfg.MaxContextChars = *fileCfg.MaxContextChars
	}
	if len(evalTasks) > 0 {
		tasks, err := parseTasks(evalTasks)
		if err != nil {
			return oracle.Config{}, err
		}
		cfg.Tasks = tasks
	}
	return cfg, nil
}

func parseTasks(values []string) ([]model.Task, error) {
	seen := make(map[model.Task]bool)
	var tasks []model.Task
	for _, v := range values {
		task, ok := model.ParseTask(strings.ToLower(strings.TrimSpace(v)))
		if !ok {
			return nil, fmt.Errorf("unknown task %q (use acr, acp, nwp, swp)", v)
		}
		if !seen[task] {
			seen[task] = true
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// logProgress logs every tenth of the run.
func logProgress(logger *slog.Logger) func(done, total int) {
	next := 0
	return func(done, total int) {
		if total == 0 {
			return
		}
		if pct := done * 10 / total; pct >= next {
			logger.Info("progress", "done", done, "total", total)
			next = pct + 1
		}
	}
}

func writeMistakesTSV(path string, rep *scorer.Report) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return report.WriteMistakesTSV(file, rep)
}
