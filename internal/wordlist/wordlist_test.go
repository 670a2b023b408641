package wordlist

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseRankOrder(t *testing.T) {
	entries, err := Parse(strings.NewReader("the\n\n# comment\nof\nand\n"), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []Entry{{"the", 3}, {"of", 2}, {"and", 1}}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestParseCounts(t *testing.T) {
	entries, err := Parse(strings.NewReader("the 120\nof\tf 7\nb4 3\n"), FilterForLang("en"))
	if err == nil {
		t.Fatalf("expected invalid count error, got %+v", entries)
	}

	entries, err = Parse(strings.NewReader("the 120\nof\nb4 3\n"), FilterForLang("en"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entries) != 2 || entries[0] != (Entry{"the", 120}) || entries[1] != (Entry{"of", 1}) {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte("hello 3\nworld 2\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	entries, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	empty := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(empty, []byte("\n\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(empty, nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}
