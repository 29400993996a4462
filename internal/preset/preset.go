// Package preset holds the typed device-frame registry. Presets are resolved
// once at load time with a single deterministic fallback order: an explicit
// frame-image path wins, then the preset's bundled image, then no frame at
// all (full-canvas screen).
package preset

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/nortelabs/demofyapp/internal/config"
)

// Preset describes one device frame option.
type Preset struct {
	ID           string            `yaml:"id"`
	DisplayLabel string            `yaml:"displayLabel"`
	ImagePath    string            `yaml:"imagePath,omitempty"`
	ScreenRect   config.ScreenRect `yaml:"screenRect"`
}

var (
	mu       sync.Mutex
	registry = make(map[string]Preset)
	order    []string
)

// Register adds a preset. A preset re-registered under an existing ID replaces
// the earlier entry but keeps its original position.
func Register(p Preset) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[p.ID]; !exists {
		order = append(order, p.ID)
	}
	registry[p.ID] = p
}

// Get returns a preset by ID.
func Get(id string) (Preset, error) {
	mu.Lock()
	defer mu.Unlock()
	p, ok := registry[id]
	if !ok {
		return Preset{}, errors.Errorf("unknown frame preset: %s (known: %v)", id, ids())
	}
	return p, nil
}

// All returns every registered preset in registration order.
func All() []Preset {
	mu.Lock()
	defer mu.Unlock()
	out := make([]Preset, 0, len(order))
	for _, id := range order {
		out = append(out, registry[id])
	}
	return out
}

// IDs returns the registered preset IDs sorted alphabetically.
func IDs() []string {
	mu.Lock()
	defer mu.Unlock()
	return ids()
}

func ids() []string {
	out := maps.Keys(registry)
	slices.Sort(out)
	return out
}

// LoadFile registers additional presets from a YAML file. The file holds a
// list of Preset entries; entries with an existing ID override the built-in.
func LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read preset file %s", path)
	}

	var presets []Preset
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return errors.Wrapf(err, "failed to parse preset file %s", path)
	}

	for _, p := range presets {
		if p.ID == "" {
			return errors.Errorf("preset file %s: entry missing id", path)
		}
		if p.ScreenRect == (config.ScreenRect{}) {
			p.ScreenRect = config.FullCanvas
		}
		Register(p)
	}
	return nil
}
