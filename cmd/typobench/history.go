package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/typobench/internal/historyui"
	"github.com/verte-zerg/typobench/internal/report"
	"github.com/verte-zerg/typobench/internal/store"
)

var (
	historyCorrector string
	historySince     string
	historyLast      int
	historyPlain     bool

	showJSON     bool
	showSlices   bool
	showMistakes int
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse stored runs",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyCorrector, "corrector", "", "corrector filter")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N runs")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print a table instead of the interactive view")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	var sinceTime *time.Time
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	filter := store.Filter{
		Corrector: historyCorrector,
		Since:     sinceTime,
		Last:      historyLast,
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if historyPlain || !isTerminal(os.Stdout) {
		runs, err := st.ListRuns(context.Background(), filter)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if err := report.RenderRuns(cmd.OutOrStdout(), runs); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	program := tea.NewProgram(historyui.NewModel(st, filter), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runShowCmd,
	}
	cmd.Flags().BoolVar(&showJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&showSlices, "slices", false, "print per domain, typo and completion slices")
	cmd.Flags().IntVar(&showMistakes, "mistakes", defaultShowMistakes, "mistakes printed per task")
	return cmd
}

func runShowCmd(cmd *cobra.Command, args []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	run, err := st.GetRun(context.Background(), args[0])
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("no run matches %q", args[0])
	case errors.Is(err, store.ErrAmbiguous):
		return fmt.Errorf("run id %q is ambiguous, use more characters", args[0])
	case err != nil:
		return fmt.Errorf("failed to load run: %w", err)
	}

	out := cmd.OutOrStdout()
	if showJSON {
		if err := report.WriteJSON(out, run.Report); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if _, err := fmt.Fprintf(out, "Run %s  %s  %s  seed %d  %s (%d sentences)\n\n",
		run.ID.String()[:8],
		run.StartedAt.Local().Format("2006-01-02 15:04"),
		run.Corrector,
		run.Seed,
		run.Dataset,
		run.Sentences,
	); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := report.Render(out, run.Report, report.Options{
		Color:    isTerminal(os.Stdout),
		Slices:   showSlices,
		Mistakes: showMistakes,
	}); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
