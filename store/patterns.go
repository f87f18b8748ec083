package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"go-metronome/debug"
	"go-metronome/metronome"
)

// DefaultPatternFile is the pattern library name inside the config directory
const DefaultPatternFile = "patterns.yaml"

// patternLibrary is the YAML shape of the custom pattern file:
//
//	patterns:
//	  offbeat: [false, true]
//	  shuffle: [true, false, true]
type patternLibrary struct {
	Patterns map[string][]bool `yaml:"patterns"`
}

// LoadPatterns adds every pattern from the YAML library at path, replacing
// same-named entries. A missing file is not an error.
func (s *Store) LoadPatterns(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &PersistenceError{Op: "load", Path: path, Err: err}
	}

	var lib patternLibrary
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return &PersistenceError{Op: "load", Path: path, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}

	s.mu.Lock()
	for name, slots := range lib.Patterns {
		s.patterns[name] = metronome.Pattern(slots).Clone()
	}
	s.mu.Unlock()

	debug.Log("store", "loaded %d patterns from %s", len(lib.Patterns), path)
	return nil
}

// SavePatterns writes every custom pattern to the YAML library at path
func (s *Store) SavePatterns(path string) error {
	s.mu.RLock()
	lib := patternLibrary{Patterns: make(map[string][]bool, len(s.patterns))}
	for name, p := range s.patterns {
		lib.Patterns[name] = []bool(p.Clone())
	}
	s.mu.RUnlock()

	data, err := yaml.Marshal(&lib)
	if err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	return nil
}
