package layout

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
)

// File is the TOML representation of a custom keyboard.
type File struct {
	Name            string      `toml:"name"`
	SpellingSymbols string      `toml:"spelling_symbols"`
	Layers          []FileLayer `toml:"layers"`
}

// FileLayer is one layer of a layout file.
type FileLayer struct {
	ID   int       `toml:"id"`
	Name string    `toml:"name"`
	Keys []FileKey `toml:"keys"`
}

// FileKey is one key of a layout file. Char "space" stands for the space bar.
type FileKey struct {
	Char    string `toml:"char"`
	Accents string `toml:"accents"`
	Rect
}

// Load reads a TOML layout file.
func Load(path string, opts ...Option) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file File
	meta, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse layout %s: unknown key %s", path, undecoded[0])
	}
	return file.Build(opts...)
}

// Build converts the file into a layout.
func (f File) Build(opts ...Option) (*Layout, error) {
	if strings.TrimSpace(f.Name) == "" {
		return nil, errors.New("layout name is required")
	}
	layers := make([]Layer, 0, len(f.Layers))
	for _, fl := range f.Layers {
		layer := Layer{ID: fl.ID, Name: fl.Name}
		for _, fk := range fl.Keys {
			ch, err := parseChar(fk.Char)
			if err != nil {
				return nil, fmt.Errorf("layer %d: %w", fl.ID, err)
			}
			layer.Keys = append(layer.Keys, Key{Char: ch, Bounds: fk.Rect, Accents: []rune(fk.Accents)})
		}
		layers = append(layers, layer)
	}
	return New(f.Name, []rune(f.SpellingSymbols), layers, opts...)
}

func parseChar(s string) (rune, error) {
	if strings.EqualFold(s, "space") || strings.EqualFold(s, "spacebar") {
		return ' ', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("key char %q must be a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
