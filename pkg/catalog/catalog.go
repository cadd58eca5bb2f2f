// Package catalog holds the read-only list of platform size presets.
//
// Presets are addressed by a stable 1-based id: the position of the preset
// in the list. A Catalog never changes after construction and may be shared
// between goroutines.
package catalog

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/menta2k/face-cropper/pkg/types"
)

// Entry pairs a preset with its id
type Entry struct {
	ID   int            `json:"id"`
	Spec types.SizeSpec `json:"spec"`
}

// Catalog is an immutable list of size presets
type Catalog struct {
	specs []types.SizeSpec
}

// New creates a catalog from specs, validating each one
func New(specs []types.SizeSpec) (*Catalog, error) {
	out := make([]types.SizeSpec, 0, len(specs))
	for i, s := range specs {
		normalized, err := types.NewSizeSpec(s.Label, s.Platform, s.Width, s.Height, s.MaxBytes, string(s.Format))
		if err != nil {
			return nil, fmt.Errorf("preset %d: %w", i+1, err)
		}
		out = append(out, normalized)
	}
	return &Catalog{specs: out}, nil
}

// Lookup returns the preset with the given 1-based id
func (c *Catalog) Lookup(id int) (types.SizeSpec, bool) {
	if id < 1 || id > len(c.specs) {
		return types.SizeSpec{}, false
	}
	return c.specs[id-1], true
}

// All returns every preset with its id
func (c *Catalog) All() []Entry {
	entries := make([]Entry, len(c.specs))
	for i, s := range c.specs {
		entries[i] = Entry{ID: i + 1, Spec: s}
	}
	return entries
}

// Len returns the number of presets
func (c *Catalog) Len() int {
	return len(c.specs)
}

const kib = 1024

// defaultSpecs lists the presets in id order. Appending is safe; reordering
// changes ids seen by clients.
var defaultSpecs = []types.SizeSpec{
	{Label: "Ava", Platform: "AppleMusic", Width: 2400, Height: 2400, Format: "jpg"},
	{Label: "Ava", Platform: "Spotify", Width: 2400, Height: 2400, Format: "jpg"},
	{Label: "Header", Platform: "Spotify", Width: 2660, Height: 1440, Format: "jpg"},
	{Label: "Ava", Platform: "YandexMusic", Width: 1000, Height: 1000, MaxBytes: 400 * kib, Format: "jpg"},
	{Label: "Ava", Platform: "Zvuk", Width: 1080, Height: 1080, MaxBytes: 300 * kib, Format: "jpg"},
	{Label: "Ava Web", Platform: "VKMusic", Width: 1820, Height: 458, Format: "jpg"},
	{Label: "Ava Mobile", Platform: "VKMusic", Width: 1500, Height: 1120, Format: "jpg"},
	{Label: "Ava", Platform: "YouTubeMusic", Width: 5120, Height: 2880, Format: "jpg"},
	{Label: "Ava", Platform: "Deezer", Width: 1200, Height: 1200, Format: "jpg"},
	{Label: "Ava", Platform: "VK", Width: 2400, Height: 2400, Format: "jpg"},
	{Label: "Header", Platform: "VK", Width: 1920, Height: 768, Format: "jpg"},
	{Label: "Ava", Platform: "Instagram", Width: 2400, Height: 2400, Format: "jpg"},
	{Label: "Ava", Platform: "Facebook", Width: 196, Height: 196, Format: "jpg"},
	{Label: "Header", Platform: "Facebook", Width: 851, Height: 315, MaxBytes: 100 * kib, Format: "jpg"},
	{Label: "Ava", Platform: "Telegram", Width: 2400, Height: 2400, Format: "jpg"},
	{Label: "Creative", Platform: "VK", Width: 1080, Height: 1080, Format: "jpg"},
	{Label: "Creative", Platform: "VK", Width: 900, Height: 600, Format: "jpg"},
}

// Default returns the built-in catalog
func Default() *Catalog {
	c, err := New(defaultSpecs)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}

// file is the TOML layout of a catalog file:
//
//	[[preset]]
//	label = "Ava"
//	platform = "Spotify"
//	width = 2400
//	height = 2400
//	format = "jpg"
type file struct {
	Presets []types.SizeSpec `toml:"preset"`
}

// LoadFile reads a catalog from a TOML file
func LoadFile(path string) (*Catalog, error) {
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(f.Presets) == 0 {
		return nil, fmt.Errorf("catalog file %s has no presets", path)
	}
	return New(f.Presets)
}
