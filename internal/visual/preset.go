// ABOUTME: Visualizer preset catalogue
// ABOUTME: Loads presets from a directory or built-ins and rotates to a random different one
package visual

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Preset is one named visualizer configuration. The blob is only
// interpreted by the renderer.
type Preset struct {
	Name string
	Blob []byte
}

// ErrNoPresets is returned when a catalogue would be empty
var ErrNoPresets = errors.New("no presets")

var builtins = []Preset{
	{Name: "classic", Blob: []byte("#00ff87 #5fff00 #d7ff00 #ffaf00 #ff5f00 #ff0000")},
	{Name: "ocean", Blob: []byte("#005f87 #0087af #00afd7 #00d7ff #87ffff")},
	{Name: "ember", Blob: []byte("#870000 #af0000 #d75f00 #ff8700 #ffd700")},
	{Name: "violet", Blob: []byte("#5f00af #8700d7 #af00ff #d75fff #ff87ff")},
	{Name: "mono", Blob: []byte("#585858 #8a8a8a #bcbcbc #eeeeee")},
}

// Builtin returns the built-in presets
func Builtin() []Preset {
	return slices.Clone(builtins)
}

// LoadDir reads one preset per regular file in dir, named after the file
// without its extension, in name order.
func LoadDir(dir string) ([]Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets dir: %w", err)
	}

	var presets []Preset
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		blob, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read preset %s: %w", entry.Name(), err)
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		presets = append(presets, Preset{Name: name, Blob: blob})
	}
	return presets, nil
}

// Presets is a non-empty preset list with a current selection
type Presets struct {
	mu      sync.Mutex
	list    []Preset
	current int
	rng     *rand.Rand
}

// NewPresets creates a catalogue starting at the first preset. A nil rng
// uses a randomly seeded source.
func NewPresets(list []Preset, rng *rand.Rand) (*Presets, error) {
	if len(list) == 0 {
		return nil, ErrNoPresets
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Presets{list: slices.Clone(list), rng: rng}, nil
}

// Open loads presets from dir, or the built-ins when dir is empty or
// holds no presets.
func Open(dir string, rng *rand.Rand) (*Presets, error) {
	list := Builtin()
	if dir != "" {
		loaded, err := LoadDir(dir)
		if err != nil {
			return nil, err
		}
		if len(loaded) > 0 {
			list = loaded
		}
	}
	return NewPresets(list, rng)
}

// Current returns the selected preset
func (p *Presets) Current() Preset {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.list[p.current]
}

// Next selects a preset other than the current one, chosen at random, and
// returns it. With a single preset it stays selected.
func (p *Presets) Next() Preset {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.list) > 1 {
		step := 1 + p.rng.IntN(len(p.list)-1)
		p.current = (p.current + step) % len(p.list)
	}
	return p.list[p.current]
}

// Len returns the number of presets
func (p *Presets) Len() int {
	return len(p.list)
}
