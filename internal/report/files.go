package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/verte-zerg/typobench/internal/model"
	"github.com/verte-zerg/typobench/internal/scorer"
)

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *scorer.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// SaveJSON writes the report to path, creating parent directories.
func SaveJSON(path string, r *scorer.Report) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WriteJSON(file, r)
}

// LoadJSON reads a report written by SaveJSON.
func LoadJSON(path string) (*scorer.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := &scorer.Report{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return r, nil
}

// WriteMistakesTSV writes the mistakes tables of every task, one mistake
// per row: task, count, expected, predictions joined by |, context.
func WriteMistakesTSV(w io.Writer, r *scorer.Report) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"task", "count", "expected", "predictions", "context"}); err != nil {
		return err
	}
	for _, task := range model.AllTasks {
		for _, m := range r.Task(task).MostCommonMistakes {
			row := []string{
				task.String(),
				strconv.FormatInt(m.Count, 10),
				m.Expected,
				strings.Join(m.Predictions, "|"),
				m.Context,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
