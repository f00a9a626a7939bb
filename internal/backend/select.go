package backend

import (
	"fmt"
	"strings"

	"thumbnailer/internal/logging"
)

// Engine names accepted by New and Candidates
const (
	EngineVips    = "vips"
	EngineImaging = "imaging"
	EngineRaster  = "raster"
)

// DefaultPriority prefers the richer engines and falls back to the pure-Go
// raster engine.
var DefaultPriority = []string{EngineVips, EngineImaging, EngineRaster}

// New returns the engine registered under name.
func New(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case EngineVips:
		return NewVips(), nil
	case EngineImaging:
		return NewImaging(), nil
	case EngineRaster:
		return NewRaster(), nil
	}
	return nil, fmt.Errorf("unknown image engine %q (valid: %s)", name, strings.Join(DefaultPriority, ", "))
}

// Candidates resolves engine names in priority order. An empty list selects
// DefaultPriority. Duplicates are dropped.
func Candidates(names []string) ([]Backend, error) {
	if len(names) == 0 {
		names = DefaultPriority
	}

	seen := make(map[string]bool, len(names))
	cands := make([]Backend, 0, len(names))
	for _, name := range names {
		b, err := New(name)
		if err != nil {
			return nil, err
		}
		if seen[b.Name()] {
			continue
		}
		seen[b.Name()] = true
		cands = append(cands, b)
	}
	return cands, nil
}

// Select returns the first candidate whose Available probe succeeds. When
// none is usable it returns ErrNoEngine.
func Select(cands []Backend) (Backend, error) {
	for _, b := range cands {
		if err := b.Available(); err != nil {
			logging.Debug("Image engine %s unavailable: %v", b.Name(), err)
			continue
		}
		logging.Debug("Selected image engine %s", b.Name())
		return b, nil
	}
	return nil, ErrNoEngine
}

// SelectByName resolves names with Candidates and runs Select.
func SelectByName(names []string) (Backend, error) {
	cands, err := Candidates(names)
	if err != nil {
		return nil, err
	}
	return Select(cands)
}
