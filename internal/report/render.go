// Package report renders evaluation reports as text, JSON and TSV.
package report

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/typobench/internal/model"
	"github.com/verte-zerg/typobench/internal/scorer"
	"github.com/verte-zerg/typobench/internal/store"
)

// contextWidth bounds the context column of the mistakes table.
const contextWidth = 48

var headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))

// Options selects what Render prints.
type Options struct {
	// Color styles headings for a terminal.
	Color bool
	// Slices prints the per domain, typo and completion tables.
	Slices bool
	// Mistakes is the number of mistakes printed per task.
	Mistakes int
}

type printer struct {
	w     io.Writer
	color bool
	err   error
}

func (p *printer) println(s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, s)
}

func (p *printer) heading(title string) {
	if p.color {
		title = headingStyle.Render(title)
	}
	p.println(title)
}

func (p *printer) table(t *textTable) {
	for _, line := range t.lines() {
		p.println(line)
	}
	p.println("")
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// Render prints a report.
func Render(w io.Writer, r *scorer.Report, opts Options) error {
	p := &printer{w: w, color: opts.Color}
	p.heading(fmt.Sprintf("Overall score: %.2f", r.OverallScore*100))
	p.println("")

	p.heading("Scores")
	scores := newTable(scoreHeaders("Task")...)
	for _, task := range model.AllTasks {
		scores.add(scoreRow(task.String(), r.Task(task).Score)...)
	}
	p.table(scores)

	if opts.Slices {
		for _, task := range model.AllTasks {
			renderSlices(p, task, r.Task(task))
		}
	}

	p.heading("Performances")
	perfs := newTable("Task", "Mean runtime", "Fastest", "Slowest", "Mean memory", "Min memory", "Max memory")
	for _, task := range model.AllTasks {
		perf := r.Task(task).Performances
		perfs.add(
			task.String(),
			formatNanos(perf.MeanRuntime),
			formatNanos(float64(perf.FastestRuntime)),
			formatNanos(float64(perf.SlowestRuntime)),
			formatBytes(perf.MeanMemory),
			formatBytes(float64(perf.MinMemory)),
			formatBytes(float64(perf.MaxMemory)),
		)
	}
	p.table(perfs)

	if opts.Mistakes > 0 {
		for _, task := range model.AllTasks {
			renderMistakes(p, task, r.Task(task).MostCommonMistakes, opts.Mistakes)
		}
	}
	return p.err
}

func scoreHeaders(first string) []string {
	return []string{first, "N", "Accuracy", "Top-3", "Precision", "Recall", "F-score", "Top-3 F"}
}

func scoreRow(name string, s scorer.Score) []string {
	row := []string{name, strconv.FormatInt(s.N, 10), percent(s.Accuracy), percent(s.Top3Accuracy)}
	if s.Kind != scorer.CorrectionScore {
		return append(row, "-", "-", "-", "-")
	}
	return append(row, percent(s.Precision), percent(s.Recall), percent(s.FScore), percent(s.Top3FScore))
}

func renderSlices(p *printer, task model.Task, tr *scorer.TaskReport) {
	section := func(title string, keys []string, scores map[string]scorer.Score) {
		if len(scores) == 0 {
			return
		}
		p.heading(fmt.Sprintf("%s: %s", task, title))
		t := newTable(scoreHeaders("Slice")...)
		for _, k := range keys {
			if s, ok := scores[k]; ok {
				t.add(scoreRow(k, s)...)
			}
		}
		p.table(t)
	}

	section("per domain", sortedKeys(tr.PerDomain), tr.PerDomain)
	section("per typo type", scorer.TypoTypeKeys(), tr.PerTypoType)
	section("per number of typos", scorer.NumberOfTyposKeys, tr.PerNumberOfTypos)
	buckets := make([]string, len(model.CompletionBuckets))
	for i, b := range model.CompletionBuckets {
		buckets[i] = b.String()
	}
	section("per completion rate", buckets, tr.PerCompletionRate)
	section("per other", []string{scorer.WithoutTypo, scorer.WithTypo}, tr.PerOther)
}

func renderMistakes(p *printer, task model.Task, mistakes []scorer.Mistake, n int) {
	if len(mistakes) == 0 {
		return
	}
	p.heading(fmt.Sprintf("%s: most common mistakes", task))
	t := newTable("Count", "Expected", "Predictions", "Context").clip(3, contextWidth)
	for _, m := range mistakes[:min(n, len(mistakes))] {
		t.add(
			strconv.FormatInt(m.Count, 10),
			m.Expected,
			strings.Join(m.Predictions, ", "),
			strconv.Quote(m.Context),
		)
	}
	p.table(t)
}

func sortedKeys(m map[string]scorer.Score) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func formatNanos(ns float64) string {
	if ns <= 0 {
		return "-"
	}
	d := time.Duration(ns)
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Microsecond).String()
	default:
		return d.String()
	}
}

func formatBytes(b float64) string {
	if b < 0 {
		return "-"
	}
	return humanize.Bytes(uint64(math.Round(b)))
}

// RenderRuns prints the run history as a table followed by a sparkline of
// the overall scores.
func RenderRuns(w io.Writer, runs []store.RunSummary) error {
	p := &printer{w: w}
	if len(runs) == 0 {
		p.println("No runs found.")
		return p.err
	}
	headers := []string{"ID", "Started", "Corrector", "Seed", "Overall"}
	for _, task := range model.AllTasks {
		headers = append(headers, task.String())
	}
	t := newTable(append(headers, "Duration")...)

	overall := make([]float64, 0, len(runs))
	for _, r := range runs {
		row := []string{
			r.ID.String()[:8],
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Corrector,
			strconv.FormatUint(r.Seed, 10),
			fmt.Sprintf("%.2f", r.OverallScore*100),
		}
		for _, task := range model.AllTasks {
			row = append(row, percent(headlineScore(task, r.Scores[task])))
		}
		t.add(append(row, r.Duration.Round(time.Second).String())...)
		overall = append(overall, r.OverallScore)
	}
	p.table(t)
	p.println("Overall trend: " + Sparkline(overall))
	return p.err
}

// headlineScore is the metric of a task that enters the overall score.
func headlineScore(task model.Task, s store.TaskScore) float64 {
	switch task {
	case model.TaskAutoCorrection:
		return s.FScore
	case model.TaskSwipeResolution:
		return s.Accuracy
	default:
		return s.Top3Accuracy
	}
}
