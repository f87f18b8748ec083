package metronome

import "time"

// Pulse timing constants
const (
	BaseDuration  = 50 * time.Millisecond // normal pulse length
	BurstInterval = 50 * time.Millisecond // spacing between pulses inside a burst
)

// Kind classifies a pulse
type Kind int

const (
	KindSilent Kind = iota
	KindNormal
	KindAccent
)

func (k Kind) String() string {
	switch k {
	case KindAccent:
		return "accent"
	case KindNormal:
		return "normal"
	default:
		return "silent"
	}
}

// Pulse colors, sent to LED style sinks
var (
	ColorAccent = [3]uint8{255, 0, 0}
	ColorNormal = [3]uint8{255, 255, 255}
	ColorSilent = [3]uint8{0, 0, 0}
)

// Pulse is one scheduled emission handed to a Sink
type Pulse struct {
	Slot      int
	Cycle     int64
	Kind      Kind
	Color     [3]uint8
	Intensity int // volume 0-100, passed through; 0 for silent pulses
	Duration  time.Duration
	At        time.Time
}

// IsAccent reports whether the pulse is the slot 0 accent
func (p Pulse) IsAccent() bool {
	return p.Kind == KindAccent
}

// Sink receives pulses. Emit is called from the engine loop and must not block
// for longer than a pulse.
type Sink interface {
	Emit(p Pulse)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(p Pulse)

func (f SinkFunc) Emit(p Pulse) { f(p) }

// makePulse builds the pulse for a slot given the slot state
func makePulse(slot int, active bool, volume int) Pulse {
	switch {
	case !active:
		return Pulse{Slot: slot, Kind: KindSilent, Color: ColorSilent, Intensity: 0, Duration: BaseDuration}
	case slot == 0:
		return Pulse{Slot: slot, Kind: KindAccent, Color: ColorAccent, Intensity: volume, Duration: 2 * BaseDuration}
	default:
		return Pulse{Slot: slot, Kind: KindNormal, Color: ColorNormal, Intensity: volume, Duration: BaseDuration}
	}
}

// SlotInterval is one subdivision slot at the given tempo: 60000/(bpm*sub) ms,
// truncated to whole milliseconds
func SlotInterval(bpm, subdivision int) time.Duration {
	if bpm <= 0 || subdivision <= 0 {
		return 0
	}
	return time.Duration(60000/(bpm*subdivision)) * time.Millisecond
}

// BeatInterval is one beat at the given tempo: 60000/bpm ms, truncated to
// whole milliseconds
func BeatInterval(bpm int) time.Duration {
	if bpm <= 0 {
		return 0
	}
	return time.Duration(60000/bpm) * time.Millisecond
}
