// Package typos loads common misspelling corpora used by the noise model.
package typos

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// TweetCorpusURL is the Twitter typo corpus: one "typo<TAB>correct" pair
// per line, extra columns ignored.
const TweetCorpusURL = "https://luululu.com/tweet/typo-corpus-r1.txt"

// Corpus maps a correct word to its known misspellings.
type Corpus map[string][]string

// Words returns the correct words, sorted.
func (c Corpus) Words() []string {
	out := make([]string, 0, len(c))
	for w := range c {
		out = append(out, w)
	}
	slices.Sort(out)
	return out
}

// Parse reads the tab separated corpus format.
func Parse(r io.Reader) (Corpus, error) {
	corpus := make(Corpus)
	seen := make(map[[2]string]struct{})
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected typo and correct word", line)
		}
		typo, correct := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		if typo == "" || correct == "" || typo == correct {
			continue
		}
		key := [2]string{correct, typo}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		corpus[correct] = append(corpus[correct], typo)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return corpus, nil
}

// Load reads a corpus from a JSON cache (".json") or the TSV format.
func Load(path string) (Corpus, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only corpus.
			_ = cerr
		}
	}()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var corpus Corpus
		if err := json.NewDecoder(file).Decode(&corpus); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return corpus, nil
	}
	return Parse(file)
}

// Save writes the corpus as JSON.
func Save(path string, corpus Corpus) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(corpus, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// CachePath returns the JSON cache file of a language in cacheDir.
func CachePath(cacheDir, lang string) string {
	base, _, _ := strings.Cut(strings.ToLower(lang), "-")
	return filepath.Join(cacheDir, base+".json")
}

// Fetch returns the corpus of a language, downloading and caching it on
// first use. Only English has a known corpus; other languages get an empty
// corpus.
func Fetch(ctx context.Context, url, cacheDir, lang string) (Corpus, error) {
	if cacheDir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	cachePath := CachePath(cacheDir, lang)
	corpus, err := Load(cachePath)
	if err == nil {
		return corpus, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read cached corpus: %w", err)
	}
	if filepath.Base(cachePath) != "en.json" {
		return Corpus{}, nil
	}

	resp, err := httpRequest(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected corpus status: %s", resp.Status)
	}

	corpus, err = Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse corpus: %w", err)
	}
	if err := Save(cachePath, corpus); err != nil {
		return nil, fmt.Errorf("failed to cache corpus: %w", err)
	}
	return corpus, nil
}

func httpRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
