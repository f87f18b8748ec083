package output

import (
	"fmt"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-metronome/debug"
	"go-metronome/metronome"
)

// Default notes, matching the hi/lo woodblock in the GM percussion map
const (
	DefaultAccentNote uint8 = 76
	DefaultNormalNote uint8 = 77
)

// MIDIConfig selects the channel and notes used for clicks
type MIDIConfig struct {
	Channel    uint8 // 0-15
	AccentNote uint8
	NormalNote uint8
}

// MIDI plays each pulse as a NoteOn, followed by a NoteOff once the pulse
// duration has passed
type MIDI struct {
	cfg  MIDIConfig
	send func(msg gomidi.Message) error

	mu      sync.Mutex
	pending map[uint8]*time.Timer // note -> scheduled NoteOff
	closed  bool
}

// OpenMIDI opens the named output port
func OpenMIDI(portName string, cfg MIDIConfig) (*MIDI, error) {
	out, err := gomidi.FindOutPort(portName)
	if err != nil {
		return nil, fmt.Errorf("find output %q: %w", portName, err)
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open output %q: %w", portName, err)
	}
	debug.Log("midi", "opened output %s (channel %d)", out.String(), cfg.Channel+1)
	return NewMIDI(send, cfg), nil
}

// NewMIDI wraps an already opened send function
func NewMIDI(send func(msg gomidi.Message) error, cfg MIDIConfig) *MIDI {
	if cfg.AccentNote == 0 {
		cfg.AccentNote = DefaultAccentNote
	}
	if cfg.NormalNote == 0 {
		cfg.NormalNote = DefaultNormalNote
	}
	cfg.Channel &= 0x0F
	return &MIDI{
		cfg:     cfg,
		send:    send,
		pending: make(map[uint8]*time.Timer),
	}
}

// Emit sends the NoteOn for audible pulses. Silent pulses send nothing.
func (m *MIDI) Emit(p metronome.Pulse) {
	if p.Kind == metronome.KindSilent {
		return
	}
	vel := Velocity(p.Intensity)
	if vel == 0 {
		return
	}

	note := m.cfg.NormalNote
	if p.IsAccent() {
		note = m.cfg.AccentNote
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	// Retrigger: end the previous hit on the same note first
	if t, ok := m.pending[note]; ok {
		t.Stop()
		m.send(gomidi.NoteOff(m.cfg.Channel, note))
	}

	if err := m.send(gomidi.NoteOn(m.cfg.Channel, note, vel)); err != nil {
		debug.Log("midi", "note on failed: %v", err)
		delete(m.pending, note)
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(p.Duration, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.pending[note] != timer {
			return
		}
		delete(m.pending, note)
		m.send(gomidi.NoteOff(m.cfg.Channel, note))
	})
	m.pending[note] = timer
}

// Close releases any sounding notes. Later pulses are ignored.
func (m *MIDI) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for note, t := range m.pending {
		t.Stop()
		m.send(gomidi.NoteOff(m.cfg.Channel, note))
		delete(m.pending, note)
	}
	return nil
}

// Velocity scales a 0-100 intensity to a MIDI velocity. Any audible
// intensity maps to at least 1, since velocity 0 means NoteOff.
func Velocity(intensity int) uint8 {
	if intensity <= 0 {
		return 0
	}
	if intensity >= metronome.MaxVolume {
		return 127
	}
	v := intensity * 127 / metronome.MaxVolume
	if v < 1 {
		v = 1
	}
	return uint8(v)
}
