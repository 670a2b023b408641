package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/typobench/internal/bench"
	"github.com/verte-zerg/typobench/internal/config"
	"github.com/verte-zerg/typobench/internal/noise"
	"github.com/verte-zerg/typobench/internal/oracle"
	"github.com/verte-zerg/typobench/internal/typos"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := rootConfigPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	nc := noise.DefaultConfig()
	oc := oracle.DefaultConfig()
	return fmt.Sprintf(`# typobench configuration
# Uncomment a value to enable it. CLI flags override config values.

[evaluate]
# corrector = %q           # Corrector spec: name[:key=value,...]
# seed = %d                       # Random seed
# procs = 0                       # Workers (0: number of CPUs)
# beta = %.1f                     # F-beta weight of recall for auto-correction
# dataset = ""                    # Directory of <domain>.txt files or JSON corpus
# sentences = 0                   # Keep the first N sentences (0: all)
# layout = ""                     # TOML keyboard layout file
# tasks = ["acr", "acp", "nwp", "swp"]
# track-mistakes = false          # Record the most common mistakes
# most-common-mistakes = %d     # Mistakes kept per task
# memory-profiling = true         # Measure allocated bytes per call

[noise]
# typo-counts = [%s]  # Weights of 0, 1, 2, 3+ typos per word
# weights = { SUBSTITUTE_CHAR = 0.30, TRANSPOSE_CHAR = 0.08 }
# front-deletion = %g            # Weight multiplier for deleting the first character
# jitter = true                   # Gaussian tap imprecision
# x-ratio = %.1f                 # Key width over the horizontal tap sigma
# y-ratio = %.1f                 # Key height over the vertical tap sigma
# common-typos = false            # Download the common typo corpus
# typo-corpus-url = %q
# typo-file = ""                  # Local typo corpus (TSV or JSON)

[oracle]
# swipe-rate = %.1f              # Share of positions tested with a swipe
# completion-weights = [0.25, 0.25, 0.25, 0.25]  # <25%%, 25-50%%, 50-75%%, 75%%+ of the word typed
# max-context-chars = %d

[storage]
# db = %q
# cache-dir = %q
# save = true                     # Store runs in the history database

[logging]
# level = "info"                  # debug, info, warn, error
# format = "text"                 # text, json
`,
		defaultCorrector,
		bench.DefaultSeed,
		bench.DefaultBeta,
		bench.DefaultMostCommonMistakes,
		joinFloats(nc.TypoCounts),
		nc.FrontDeletion,
		nc.XRatio,
		nc.YRatio,
		typos.TweetCorpusURL,
		oc.SwipeRate,
		oc.MaxContextChars,
		config.DefaultDBPath(),
		config.DefaultTypoCacheDir(),
	)
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}
