package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, []string{"dialogue", "narrative"}, c.Domains())
	assert.Equal(t, 80, c.Size())
	for _, d := range c.Domains() {
		for _, s := range c[d] {
			assert.NotEmpty(t, s)
		}
	}
}

func TestLimit(t *testing.T) {
	c := Corpus{
		"a": {"a1", "a2", "a3", "a4"},
		"b": {"b1"},
		"c": {"c1", "c2", "c3"},
	}

	tests := []struct {
		name string
		n    int
		want Corpus
	}{
		{"all", 0, c},
		{"more than size", 20, c},
		{"even", 3, Corpus{"a": {"a1"}, "b": {"b1"}, "c": {"c1"}}},
		{"leftover in name order", 4, Corpus{"a": {"a1", "a2"}, "b": {"b1"}, "c": {"c1"}}},
		{"short domain gives way", 6, Corpus{"a": {"a1", "a2", "a3"}, "b": {"b1"}, "c": {"c1", "c2"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Limit(tt.n)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLimitDoesNotAlias(t *testing.T) {
	c := Corpus{"a": {"a1", "a2"}}
	got := c.Limit(1)
	got["a"][0] = "changed"
	assert.Equal(t, "a1", c["a"][0])
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "news.txt"), []byte("First line.\n\n  Second line.  \n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored\n"), 0o600))

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Corpus{"news": {"First line.", "Second line."}}, c)
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"chat": ["hi there", " "], "mail": ["see you"]}`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Corpus{"chat": {"hi there"}, "mail": {"see you"}}, c)
}

func TestLoadEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"chat": []}`), 0o600))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrEmpty)

	_, err = Load(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
