// Package store handles SQLite persistence of evaluation runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/typobench/internal/model"
	"github.com/verte-zerg/typobench/internal/scorer"

	_ "modernc.org/sqlite" // SQLite driver.
)

var (
	// ErrNotFound is returned when no run matches an identifier.
	ErrNotFound = errors.New("store: run not found")
	// ErrAmbiguous is returned when an identifier prefix matches several
	// runs.
	ErrAmbiguous = errors.New("store: ambiguous run id")
)

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for run history.
type Store struct {
	db *sql.DB
}

// Run is one stored evaluation with its full report.
type Run struct {
	ID        uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Corrector string
	Seed      uint64
	Beta      float64
	Dataset   string
	Sentences int
	Report    *scorer.Report
}

// TaskScore is the headline score of one task of a run.
type TaskScore struct {
	N            int64
	Accuracy     float64
	Top3Accuracy float64
	FScore       float64
}

// RunSummary is a run without its report.
type RunSummary struct {
	ID           uuid.UUID
	StartedAt    time.Time
	Duration     time.Duration
	Corrector    string
	Seed         uint64
	Beta         float64
	Dataset      string
	Sentences    int
	OverallScore float64
	Scores       map[model.Task]TaskScore
}

// Filter narrows ListRuns.
type Filter struct {
	Corrector string
	Since     *time.Time
	// Last keeps only the most recent runs when positive.
	Last int
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			corrector TEXT NOT NULL,
			seed INTEGER NOT NULL,
			beta REAL NOT NULL,
			dataset TEXT NOT NULL,
			sentences INTEGER NOT NULL,
			overall_score REAL NOT NULL,
			report TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS run_scores (
			run_id TEXT NOT NULL,
			task TEXT NOT NULL,
			n INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			top3_accuracy REAL NOT NULL,
			fscore REAL NOT NULL,
			PRIMARY KEY (run_id, task)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_corrector ON runs(corrector);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores a run and its per task scores. A nil ID is replaced by a
// new random one, which is returned.
func (s *Store) SaveRun(ctx context.Context, run Run) (id uuid.UUID, err error) {
	if run.Report == nil {
		return uuid.Nil, errors.New("store: run has no report")
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	data, err := json.Marshal(run.Report)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ms, corrector, seed, beta, dataset, sentences, overall_score, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(),
		run.StartedAt.UTC().Format(timeLayout),
		run.Duration.Milliseconds(),
		run.Corrector,
		int64(run.Seed),
		run.Beta,
		run.Dataset,
		run.Sentences,
		run.Report.OverallScore,
		string(data),
	)
	if err != nil {
		return uuid.Nil, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_scores (run_id, task, n, accuracy, top3_accuracy, fscore)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, task := range model.AllTasks {
		score := run.Report.Task(task).Score
		if _, err = stmt.ExecContext(ctx, run.ID.String(), task.String(), score.N, score.Accuracy, score.Top3Accuracy, score.FScore); err != nil {
			return uuid.Nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return uuid.Nil, err
	}
	return run.ID, nil
}

// ListRuns returns run summaries, oldest first.
func (s *Store) ListRuns(ctx context.Context, filter Filter) ([]RunSummary, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Corrector != "" {
		clauses = append(clauses, "corrector = ?")
		args = append(args, filter.Corrector)
	}
	if filter.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	query := fmt.Sprintf(`SELECT id, started_at, duration_ms, corrector, seed, beta, dataset, sentences, overall_score
		FROM runs
		WHERE %s
		ORDER BY started_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []RunSummary
	for rows.Next() {
		var (
			r          RunSummary
			id         string
			startedAt  string
			durationMs int64
			seed       int64
		)
		if err := rows.Scan(&id, &startedAt, &durationMs, &r.Corrector, &seed, &r.Beta, &r.Dataset, &r.Sentences, &r.OverallScore); err != nil {
			return nil, err
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if r.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.Seed = uint64(seed)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if filter.Last > 0 && len(runs) > filter.Last {
		runs = runs[len(runs)-filter.Last:]
	}
	if err := s.attachScores(ctx, runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *Store) attachScores(ctx context.Context, runs []RunSummary) error {
	if len(runs) == 0 {
		return nil
	}
	placeholders := make([]string, len(runs))
	args := make([]any, len(runs))
	byID := make(map[string]*RunSummary, len(runs))
	for i := range runs {
		placeholders[i] = "?"
		args[i] = runs[i].ID.String()
		runs[i].Scores = make(map[model.Task]TaskScore, len(model.AllTasks))
		byID[runs[i].ID.String()] = &runs[i]
	}
	query := fmt.Sprintf(`SELECT run_id, task, n, accuracy, top3_accuracy, fscore
		FROM run_scores
		WHERE run_id IN (%s)`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	for rows.Next() {
		var id, taskKey string
		var score TaskScore
		if err := rows.Scan(&id, &taskKey, &score.N, &score.Accuracy, &score.Top3Accuracy, &score.FScore); err != nil {
			return err
		}
		task, ok := model.ParseTask(taskKey)
		if !ok {
			continue
		}
		if r, ok := byID[id]; ok {
			r.Scores[task] = score
		}
	}
	return rows.Err()
}

// GetRun loads a run by id or by a unique prefix of it.
func (s *Store) GetRun(ctx context.Context, idOrPrefix string) (Run, error) {
	prefix := strings.ToLower(strings.TrimSpace(idOrPrefix))
	if prefix == "" {
		return Run{}, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, corrector, seed, beta, dataset, sentences, report
		 FROM runs
		 WHERE substr(id, 1, ?) = ?
		 LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return Run{}, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			id         string
			startedAt  string
			durationMs int64
			seed       int64
			report     string
		)
		if err := rows.Scan(&id, &startedAt, &durationMs, &r.Corrector, &seed, &r.Beta, &r.Dataset, &r.Sentences, &report); err != nil {
			return Run{}, err
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return Run{}, err
		}
		if r.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return Run{}, err
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.Seed = uint64(seed)
		r.Report = &scorer.Report{}
		if err := json.Unmarshal([]byte(report), r.Report); err != nil {
			return Run{}, fmt.Errorf("failed to decode report of run %s: %w", id, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch len(runs) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	case 1:
		return runs[0], nil
	default:
		return Run{}, fmt.Errorf("%w: %s", ErrAmbiguous, idOrPrefix)
	}
}
