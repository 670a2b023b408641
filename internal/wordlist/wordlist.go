// Package wordlist loads vocabulary files for the built-in correctors.
package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrEmpty is returned when a word list holds no usable entry.
var ErrEmpty = errors.New("word list is empty")

// Entry is a word with its frequency count.
type Entry struct {
	Word  string
	Count int
}

// Load reads a word list from path. See Parse for the format.
func Load(path string, keep FilterFunc) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only word list.
			_ = cerr
		}
	}()
	entries, err := Parse(file, keep)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Parse reads one word per line, optionally followed by whitespace and a
// count. When no line carries a count, the order of the file is the rank and
// counts are assigned from the length of the list down to 1. Lines rejected
// by keep are skipped; a nil keep accepts everything.
func Parse(r io.Reader, keep FilterFunc) ([]Entry, error) {
	var entries []Entry
	counted := false
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		entry := Entry{Word: fields[0], Count: -1}
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("line %d: invalid count %q", line, fields[1])
			}
			entry.Count = n
			counted = true
		}
		if keep != nil && !keep(entry.Word) {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	for i := range entries {
		switch {
		case !counted:
			entries[i].Count = len(entries) - i
		case entries[i].Count < 0:
			entries[i].Count = 1
		}
	}
	return entries, nil
}
