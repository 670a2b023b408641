// Package dataset provides the domain corpora evaluated by the benchmark.
package dataset

import (
	"bufio"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

//go:embed data/*.txt
var embedded embed.FS

// ErrEmpty is returned when a corpus holds no sentence.
var ErrEmpty = errors.New("dataset: no sentences")

// Corpus maps a domain name to its ordered sentences.
type Corpus map[string][]string

// Domains returns the domain names, sorted.
func (c Corpus) Domains() []string {
	domains := make([]string, 0, len(c))
	for d := range c {
		domains = append(domains, d)
	}
	slices.Sort(domains)
	return domains
}

// Size is the number of sentences over all domains.
func (c Corpus) Size() int {
	n := 0
	for _, sentences := range c {
		n += len(sentences)
	}
	return n
}

// Limit keeps the first n sentences of the corpus, split evenly across
// domains. Leftovers go to domains in name order; a domain with fewer
// sentences than its share gives the rest to the others. n <= 0 keeps
// everything.
func (c Corpus) Limit(n int) Corpus {
	out := make(Corpus, len(c))
	if n <= 0 || n >= c.Size() {
		for d, sentences := range c {
			out[d] = slices.Clone(sentences)
		}
		return out
	}

	quota := make(map[string]int, len(c))
	open := c.Domains()
	for n > 0 && len(open) > 0 {
		share, extra := n/len(open), n%len(open)
		var next []string
		for i, d := range open {
			want := share
			if i < extra {
				want++
			}
			room := len(c[d]) - quota[d]
			take := min(want, room)
			quota[d] += take
			n -= take
			if quota[d] < len(c[d]) {
				next = append(next, d)
			}
		}
		open = next
	}
	for _, d := range c.Domains() {
		out[d] = slices.Clone(c[d][:quota[d]])
	}
	return out
}

// Default returns the built-in corpus with narrative and dialogue domains.
func Default() Corpus {
	c, err := loadDir(embedded, "data")
	if err != nil {
		panic(fmt.Sprintf("dataset: embedded corpus: %v", err))
	}
	return c
}

// Load reads a corpus from a JSON file mapping domains to sentence lists,
// or from a directory holding one <domain>.txt file per domain with one
// sentence per line.
func Load(path string) (Corpus, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	var c Corpus
	if info.IsDir() {
		c, err = loadDir(os.DirFS(path), ".")
	} else {
		c, err = loadJSON(path)
	}
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	if c.Size() == 0 {
		return nil, fmt.Errorf("dataset %s: %w", path, ErrEmpty)
	}
	return c, nil
}

func loadJSON(path string) (Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	c := make(Corpus, len(raw))
	for d, sentences := range raw {
		c[d] = clean(sentences)
	}
	return c, nil
}

func loadDir(fsys fs.FS, dir string) (Corpus, error) {
	matches, err := fs.Glob(fsys, filepath.ToSlash(filepath.Join(dir, "*.txt")))
	if err != nil {
		return nil, err
	}
	c := make(Corpus, len(matches))
	for _, name := range matches {
		sentences, err := readLines(fsys, name)
		if err != nil {
			return nil, err
		}
		domain := strings.TrimSuffix(filepath.Base(name), ".txt")
		c[domain] = sentences
	}
	return c, nil
}

func readLines(fsys fs.FS, name string) ([]string, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			_ = cerr
		}
	}()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return clean(lines), nil
}

func clean(sentences []string) []string {
	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
