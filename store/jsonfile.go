package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go-metronome/metronome"
)

// DefaultPresetFile is the preset document name inside the config directory
const DefaultPresetFile = "presets.json"

// JSONFile keeps presets in a single JSON object keyed by preset name:
//
//	{
//	    "practice": {
//	        "tempo": 90,
//	        "volume": 50,
//	        "subdivision": 2,
//	        "time_signature": [4, 4],
//	        "pattern": [true, true]
//	    }
//	}
type JSONFile struct {
	Path string
}

// NewJSONFile returns a backend for the document at path
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{Path: path}
}

func (j *JSONFile) Load(ctx context.Context) (map[string]Preset, bool, error) {
	data, err := os.ReadFile(j.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, &PersistenceError{Op: "load", Path: j.Path, Err: err}
	}

	var doc map[string]metronome.Settings
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, &PersistenceError{Op: "load", Path: j.Path, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}

	presets := make(map[string]Preset, len(doc))
	for name, settings := range doc {
		presets[name] = Preset{Name: name, Settings: settings}
	}
	return presets, true, nil
}

// Save writes the document pretty-printed with 4-space indent. The file is
// written next to the target and renamed over it, so a failed save leaves the
// previous document intact.
func (j *JSONFile) Save(ctx context.Context, presets map[string]Preset) error {
	doc := make(map[string]metronome.Settings, len(presets))
	for name, p := range presets {
		doc[name] = p.Settings
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return &PersistenceError{Op: "save", Path: j.Path, Err: err}
	}
	data = append(data, '\n')

	if err := writeFileAtomic(j.Path, data); err != nil {
		return &PersistenceError{Op: "save", Path: j.Path, Err: err}
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the same directory, then
// renames it over path
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
