package metronome

import (
	"encoding/json"
	"fmt"
)

// Limits applied by the setters
const (
	MinTempo       = 1
	MaxTempo       = 600
	MinVolume      = 0
	MaxVolume      = 100
	MaxSubdivision = 32 // keeps the integer slot interval above 0ms at MaxTempo
)

// Pattern marks which subdivision slots emit a pulse. Slot 0 is the accent slot.
type Pattern []bool

// AllOn returns a pattern of length n with every slot active
func AllOn(n int) Pattern {
	p := make(Pattern, n)
	for i := range p {
		p[i] = true
	}
	return p
}

// Clone returns an independent copy
func (p Pattern) Clone() Pattern {
	if p == nil {
		return nil
	}
	out := make(Pattern, len(p))
	copy(out, p)
	return out
}

// Equal reports whether both patterns have the same slots
func (p Pattern) Equal(o Pattern) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// String renders the pattern as x/. cells, e.g. "x.xx"
func (p Pattern) String() string {
	b := make([]byte, len(p))
	for i, on := range p {
		if on {
			b[i] = 'x'
		} else {
			b[i] = '.'
		}
	}
	return string(b)
}

// UnmarshalJSON accepts booleans and 0/1 numbers (older preset files stored ints)
func (p *Pattern) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Pattern, len(raw))
	for i, r := range raw {
		var b bool
		if err := json.Unmarshal(r, &b); err == nil {
			out[i] = b
			continue
		}
		var n float64
		if err := json.Unmarshal(r, &n); err != nil {
			return fmt.Errorf("pattern slot %d: expected bool or number, got %s", i, string(r))
		}
		out[i] = n != 0
	}
	*p = out
	return nil
}

// TimeSignature is beats per bar over the beat unit (4/4, 6/8...)
type TimeSignature struct {
	Beats int
	Unit  int
}

// Common time signatures offered by the control surface
var TimeSignatures = []TimeSignature{
	{4, 4},
	{3, 4},
	{2, 4},
	{2, 2},
	{3, 8},
	{6, 8},
	{9, 8},
	{12, 8},
	{5, 4},
	{7, 8},
}

func (ts TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", ts.Beats, ts.Unit)
}

// MarshalJSON writes the signature as a two-integer array
func (ts TimeSignature) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{ts.Beats, ts.Unit})
}

// UnmarshalJSON reads a two-integer array
func (ts *TimeSignature) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("time signature: expected 2 integers, got %d", len(pair))
	}
	ts.Beats, ts.Unit = pair[0], pair[1]
	return nil
}

// Settings is the live playback configuration. The same shape is persisted
// as the value of each preset.
type Settings struct {
	Tempo         int           `json:"tempo"`
	Volume        int           `json:"volume"`
	Subdivision   int           `json:"subdivision"`
	TimeSignature TimeSignature `json:"time_signature"`
	Pattern       Pattern       `json:"pattern"`
}

// DefaultSettings returns the startup configuration
func DefaultSettings() Settings {
	return Settings{
		Tempo:         120,
		Volume:        50,
		Subdivision:   2,
		TimeSignature: TimeSignature{4, 4},
		Pattern:       AllOn(2),
	}
}

// Clone returns a copy that shares no memory with s
func (s Settings) Clone() Settings {
	s.Pattern = s.Pattern.Clone()
	return s
}

// Equal compares every field including the pattern slots
func (s Settings) Equal(o Settings) bool {
	return s.Tempo == o.Tempo &&
		s.Volume == o.Volume &&
		s.Subdivision == o.Subdivision &&
		s.TimeSignature == o.TimeSignature &&
		s.Pattern.Equal(o.Pattern)
}

// Validate checks every field and the pattern length invariant
func (s Settings) Validate() error {
	if err := validateTempo(s.Tempo); err != nil {
		return err
	}
	if err := validateVolume(s.Volume); err != nil {
		return err
	}
	if err := validateSubdivision(s.Subdivision); err != nil {
		return err
	}
	if err := validateTimeSignature(s.TimeSignature); err != nil {
		return err
	}
	return validatePattern(s.Pattern, s.Subdivision)
}
