package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-metronome/metronome"
	"go-metronome/store"
)

// Storage drivers for presets
const (
	DriverJSON   = store.DriverJSON
	DriverSQLite = store.DriverSQLite
)

// Environment overrides
const (
	EnvStorageDriver = "STORAGE_DRIVER"
	EnvDebug         = "METRONOME_DEBUG"
)

// StorageConfig selects where presets and patterns live. Empty paths resolve
// inside the config directory.
type StorageConfig struct {
	Driver       string `json:"driver,omitempty"`
	PresetsPath  string `json:"presetsPath,omitempty"`
	DBPath       string `json:"dbPath,omitempty"`
	PatternsPath string `json:"patternsPath,omitempty"`
}

// MIDIOutputConfig sends clicks as notes to a MIDI port
type MIDIOutputConfig struct {
	PortName   string `json:"portName,omitempty"`
	Channel    int    `json:"channel,omitempty"` // 1-16
	AccentNote int    `json:"accentNote,omitempty"`
	NormalNote int    `json:"normalNote,omitempty"`
}

// OutputConfig enables the pulse sinks
type OutputConfig struct {
	Audio     bool             `json:"audio"`
	Launchpad bool             `json:"launchpad"`
	MIDI      MIDIOutputConfig `json:"midi,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	LastSettings *metronome.Settings `json:"lastSettings,omitempty"`
	PalettePath  string              `json:"palettePath,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Storage StorageConfig `json:"storage"`
	Mode    string        `json:"mode,omitempty"` // "slot" or "burst"
	Output  OutputConfig  `json:"output"`
	UI      UIConfig      `json:"ui,omitempty"`
	Debug   bool          `json:"debug,omitempty"`

	// file holds the values environment overrides replaced, so Save writes
	// back what the file said
	file *fileValues
}

type fileValues struct {
	driver string
	debug  bool
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{Driver: DriverJSON},
		Mode:    metronome.ModeSlot.String(),
		Output:  OutputConfig{Audio: true},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-metronome"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Missing fields keep their defaults and
// environment overrides are applied last.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	driver := os.Getenv(EnvStorageDriver)
	v := os.Getenv(EnvDebug)
	debugOn := v == "1" || strings.EqualFold(v, "true")
	if driver == "" && !debugOn {
		return
	}
	if c.file == nil {
		c.file = &fileValues{driver: c.Storage.Driver, debug: c.Debug}
	}
	if driver != "" {
		c.Storage.Driver = strings.ToLower(driver)
	}
	if debugOn {
		c.Debug = true
	}
}

// Validate rejects unknown drivers, modes and out of range MIDI settings
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "", DriverJSON, DriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if _, err := metronome.ParseMode(c.Mode); err != nil {
		return err
	}
	m := c.Output.MIDI
	if m.Channel < 0 || m.Channel > 16 {
		return fmt.Errorf("midi channel %d out of range 1-16", m.Channel)
	}
	if m.AccentNote < 0 || m.AccentNote > 127 || m.NormalNote < 0 || m.NormalNote > 127 {
		return fmt.Errorf("midi notes must be 0-127")
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating the directory if needed.
// Environment overrides are not persisted.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	out := *c
	if c.file != nil {
		out.Storage.Driver = c.file.driver
		out.Debug = c.file.debug
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// StorageDriver returns the effective driver name
func (c *Config) StorageDriver() string {
	if c.Storage.Driver == "" {
		return DriverJSON
	}
	return c.Storage.Driver
}

// PresetsLocation is the preset file or database for the active driver
func (c *Config) PresetsLocation(dir string) string {
	if c.StorageDriver() == DriverSQLite {
		return ResolvePath(dir, c.Storage.DBPath, store.DefaultDBFile)
	}
	return ResolvePath(dir, c.Storage.PresetsPath, store.DefaultPresetFile)
}

// PatternsLocation is the custom pattern library
func (c *Config) PatternsLocation(dir string) string {
	return ResolvePath(dir, c.Storage.PatternsPath, store.DefaultPatternFile)
}

// ResolvePath returns p, or name inside dir when p is empty
func ResolvePath(dir, p, name string) string {
	if p != "" {
		return p
	}
	return filepath.Join(dir, name)
}

// EmissionMode parses the configured mode
func (c *Config) EmissionMode() metronome.Mode {
	m, _ := metronome.ParseMode(c.Mode)
	return m
}

// StartSettings returns the last saved settings if they are valid, otherwise
// the defaults
func (c *Config) StartSettings() metronome.Settings {
	if c.UI.LastSettings != nil && c.UI.LastSettings.Validate() == nil {
		return c.UI.LastSettings.Clone()
	}
	return metronome.DefaultSettings()
}

// RememberSettings stores s as the settings to restore on next start
func (c *Config) RememberSettings(s metronome.Settings) {
	s = s.Clone()
	c.UI.LastSettings = &s
}
