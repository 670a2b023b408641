package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/typobench/internal/layout"
	"github.com/verte-zerg/typobench/internal/model"
	"github.com/verte-zerg/typobench/internal/scorer"
	"github.com/verte-zerg/typobench/internal/store"
)

func sampleReport() *scorer.Report {
	r := &scorer.Report{}
	for _, task := range model.AllTasks {
		tr := r.Task(task)
		tr.Score = scorer.Score{Accuracy: 0.5, Top3Accuracy: 0.75, N: 40}
		tr.PerDomain = map[string]scorer.Score{
			"narrative": {Accuracy: 0.25, Top3Accuracy: 0.5, N: 20},
			"dialogue":  {Accuracy: 0.75, Top3Accuracy: 1, N: 20},
		}
		tr.Performances = scorer.Performances{
			MeanRuntime: 1500, FastestRuntime: 1000, SlowestRuntime: 2500,
			MeanMemory: 2048, MinMemory: 0, MaxMemory: 4096,
		}
	}
	r.AutoCorrection.Score = scorer.Score{
		Kind: scorer.CorrectionScore, Accuracy: 0.9, Precision: 0.8, Recall: 0.6, FScore: 0.7,
		Top3Accuracy: 0.95, Top3FScore: 0.85, N: 40, NTypo: 10,
	}
	r.AutoCorrection.MostCommonMistakes = []scorer.Mistake{
		{Count: 3, Expected: "love", Predictions: []string{"live", "lose"}, Context: "I lovw"},
		{Count: 1, Expected: "the", Predictions: nil, Context: "teh"},
	}
	r.OverallScore = scorer.OverallScore(r)
	return r
}

func TestTableAlignsNumericColumnsRight(t *testing.T) {
	tbl := newTable("Task", "Accuracy", "N")
	tbl.add("acr", "97.50%", "12")
	tbl.add("swipe", "8.00%", "3")
	lines := tbl.lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Task   Accuracy   N" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "acr      97.50%  12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "swipe     8.00%   3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestTablePlaceholdersKeepColumnNumeric(t *testing.T) {
	tbl := newTable("Task", "F", "Key")
	tbl.add("acr", "70.00%", "a")
	tbl.add("swipe", "-", "<space>")
	tbl.add("nwp", "", "1")
	lines := tbl.lines()
	want := []string{
		"Task        F  Key",
		"acr    70.00%  a",
		"swipe       -  <space>",
		"nwp            1",
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestTableCountsDisplayWidth(t *testing.T) {
	tbl := newTable("Word", "N")
	tbl.add("café", "1")
	tbl.add("日本", "2")
	lines := tbl.lines()
	if lines[1] != "café  1" {
		t.Fatalf("unexpected accented row: %q", lines[1])
	}
	if lines[2] != "日本  2" {
		t.Fatalf("unexpected wide row: %q", lines[2])
	}
}

func TestTableClipsColumn(t *testing.T) {
	tbl := newTable("N", "Context").clip(1, 6)
	tbl.add("3", "a rather long context")
	lines := tbl.lines()
	if displayWidth(lines[1]) != 9 || !strings.HasSuffix(lines[1], "…") {
		t.Fatalf("unexpected clipped row: %q", lines[1])
	}
	if newTable().lines() != nil {
		t.Fatalf("expected no lines for an empty table")
	}
}

func TestIsNumeric(t *testing.T) {
	for _, s := range []string{"12", "-0.5", "97.50%", "1.5µs", "2.0 kB", "1m30s"} {
		if !isNumeric(s) {
			t.Fatalf("expected %q to be numeric", s)
		}
	}
	for _, s := range []string{"", "-", "acr", "<space>", `"I lovw"`} {
		if isNumeric(s) {
			t.Fatalf("expected %q not to be numeric", s)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	got := truncate("a rather long context string", 10)
	if displayWidth(got) > 10 || !strings.HasSuffix(got, "…") {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
	if got := Sparkline([]float64{0.4, 0.4, 0.4}); got != "+++" {
		t.Fatalf("unexpected flat sparkline: %q", got)
	}
	if got := Sparkline([]float64{0, 0.5, 1}); got != " +@" {
		t.Fatalf("unexpected sparkline: %q", got)
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleReport(), Options{Slices: true, Mistakes: 1}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Overall score: ",
		"Scores",
		"auto_correction",
		"70.00%",
		"Performances",
		"1.5µs",
		"2.0 kB",
		"auto_correction: per domain",
		"narrative",
		"auto_correction: most common mistakes",
		"live, lose",
		`"I lovw"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "teh") {
		t.Fatalf("expected mistakes to be cut to one:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no escape codes without color:\n%s", out)
	}
}

func TestRenderWithoutSlices(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleReport(), Options{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(buf.String(), "per domain") || strings.Contains(buf.String(), "most common mistakes") {
		t.Fatalf("unexpected sections:\n%s", buf.String())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	want := sampleReport()
	if err := SaveJSON(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.OverallScore != want.OverallScore {
		t.Fatalf("overall score changed: %v != %v", got.OverallScore, want.OverallScore)
	}
	if got.AutoCorrection.Score != want.AutoCorrection.Score {
		t.Fatalf("auto-correction score changed: %+v", got.AutoCorrection.Score)
	}
	if got.SwipeResolution.Score.Kind != scorer.AccuracyScore {
		t.Fatalf("expected accuracy score for swipe resolution")
	}
	if len(got.AutoCorrection.MostCommonMistakes) != 2 {
		t.Fatalf("expected mistakes to survive, got %+v", got.AutoCorrection.MostCommonMistakes)
	}
	if _, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestWriteMistakesTSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMistakesTSV(&buf, sampleReport()); err != nil {
		t.Fatalf("write tsv: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := []string{
		"task\tcount\texpected\tpredictions\tcontext",
		"auto_correction\t3\tlove\tlive|lose\tI lovw",
		"auto_correction\t1\tthe\t\tteh",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %q", len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestRenderRuns(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderRuns(&buf, nil); err != nil {
		t.Fatalf("render runs: %v", err)
	}
	if !strings.Contains(buf.String(), "No runs found.") {
		t.Fatalf("unexpected output: %q", buf.String())
	}

	runs := []store.RunSummary{
		{
			ID:           uuid.MustParse("0badcafe-0000-4000-8000-000000000001"),
			StartedAt:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			Duration:     90 * time.Second,
			Corrector:    "noop",
			Seed:         42,
			OverallScore: 0.1,
			Scores: map[model.Task]store.TaskScore{
				model.TaskAutoCorrection: {FScore: 0.25},
			},
		},
		{
			ID:           uuid.MustParse("1badcafe-0000-4000-8000-000000000002"),
			StartedAt:    time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
			Corrector:    "dictionary",
			Seed:         42,
			OverallScore: 0.6,
		},
	}
	buf.Reset()
	if err := RenderRuns(&buf, runs); err != nil {
		t.Fatalf("render runs: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"0badcafe", "1badcafe", "dictionary", "25.00%", "60.00", "1m30s", "Overall trend:  @"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderLayout(&buf, layout.Default(), 0); err != nil {
		t.Fatalf("render layout: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"en-US, layer 0: 29 keys", "<space>", "0.500,0.875", "àáâäæãåā"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if err := RenderLayout(&buf, layout.Default(), 99); err == nil {
		t.Fatalf("expected missing layer error")
	}
}
