package store

import (
	"context"
	"sort"
	"sync"

	"go-metronome/debug"
	"go-metronome/metronome"
)

// Preset is a named snapshot of the playback settings
type Preset struct {
	Name     string
	Settings metronome.Settings
}

// Backend persists the preset map as one document
type Backend interface {
	// Load returns found=false when no document exists yet
	Load(ctx context.Context) (presets map[string]Preset, found bool, err error)
	// Save replaces the whole document
	Save(ctx context.Context, presets map[string]Preset) error
}

// Store holds the named custom patterns and presets
type Store struct {
	mu       sync.RWMutex
	patterns map[string]metronome.Pattern
	presets  map[string]Preset
	backend  Backend
}

// New creates an empty store. backend may be nil for a memory-only store.
func New(backend Backend) *Store {
	return &Store{
		patterns: make(map[string]metronome.Pattern),
		presets:  make(map[string]Preset),
		backend:  backend,
	}
}

// Open creates a store and loads the presets from backend
func Open(ctx context.Context, backend Backend) (*Store, error) {
	s := New(backend)
	if err := s.LoadPresets(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Custom patterns

// AddPattern stores p under name, replacing any existing pattern. The length
// is not checked against any subdivision.
func (s *Store) AddPattern(name string, p metronome.Pattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[name] = p.Clone()
}

// RemovePattern deletes name; unknown names are ignored
func (s *Store) RemovePattern(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.patterns, name)
}

// Pattern returns the pattern stored under name
func (s *Store) Pattern(name string) (metronome.Pattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[name]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// PatternNames returns all pattern names, sorted
func (s *Store) PatternNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.patterns)
}

// Presets

// AddPreset stores a full settings snapshot under name, replacing any
// existing preset with that name
func (s *Store) AddPreset(name string, tempo, volume, subdivision int, ts metronome.TimeSignature, pattern metronome.Pattern) {
	s.SavePreset(name, metronome.Settings{
		Tempo:         tempo,
		Volume:        volume,
		Subdivision:   subdivision,
		TimeSignature: ts,
		Pattern:       pattern,
	})
}

// SavePreset stores settings under name
func (s *Store) SavePreset(name string, settings metronome.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets[name] = Preset{Name: name, Settings: settings.Clone()}
}

// RemovePreset deletes name; unknown names are ignored
func (s *Store) RemovePreset(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.presets, name)
}

// Preset returns the snapshot stored under name. ok is false if there is none.
func (s *Store) Preset(name string) (Preset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presets[name]
	if !ok {
		return Preset{}, false
	}
	p.Settings = p.Settings.Clone()
	return p, true
}

// PresetNames returns all preset names, sorted
func (s *Store) PresetNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.presets)
}

// Len returns the number of presets and patterns
func (s *Store) Len() (presets, patterns int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.presets), len(s.patterns)
}

// LoadPresets replaces the in-memory presets with the persisted document. A
// missing document leaves them untouched; a broken one returns an error and
// also leaves them untouched.
func (s *Store) LoadPresets(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	loaded, found, err := s.backend.Load(ctx)
	if err != nil {
		debug.Log("store", "load presets failed: %v", err)
		return err
	}
	if !found {
		debug.Log("store", "no preset document yet")
		return nil
	}

	s.mu.Lock()
	s.presets = loaded
	s.mu.Unlock()

	debug.Log("store", "loaded %d presets", len(loaded))
	return nil
}

// SavePresets writes every preset, replacing the previous document
func (s *Store) SavePresets(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	s.mu.RLock()
	snapshot := make(map[string]Preset, len(s.presets))
	for name, p := range s.presets {
		p.Settings = p.Settings.Clone()
		snapshot[name] = p
	}
	s.mu.RUnlock()

	if err := s.backend.Save(ctx, snapshot); err != nil {
		debug.Log("store", "save presets failed: %v", err)
		return err
	}
	debug.Log("store", "saved %d presets", len(snapshot))
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
