package metronome

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-metronome/debug"
)

// Mode selects how active slots are turned into pulses
type Mode int

const (
	// ModeSlot emits exactly one pulse per slot per cycle
	ModeSlot Mode = iota
	// ModeBurst replays the whole pattern as a 50ms spaced burst on every
	// active slot, matching the vibration motor driver
	ModeBurst
)

func (m Mode) String() string {
	if m == ModeBurst {
		return "burst"
	}
	return "slot"
}

// ParseMode maps a config string to a Mode
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "slot":
		return ModeSlot, nil
	case "burst":
		return ModeBurst, nil
	}
	return ModeSlot, fmt.Errorf("unknown emission mode %q", s)
}

// Waiter sleeps for d or until ctx is done. It returns false if ctx ended first.
type Waiter func(ctx context.Context, d time.Duration) bool

// Engine owns the live playback settings and drives the pulse loop
type Engine struct {
	mu       sync.RWMutex // guards settings
	settings Settings
	mode     Mode

	sink Sink
	wait Waiter
	now  func() time.Time

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures an Engine
type Option func(*Engine)

// WithMode sets the emission mode
func WithMode(m Mode) Option {
	return func(e *Engine) { e.mode = m }
}

// WithWaiter replaces the timer based sleep (tests)
func WithWaiter(w Waiter) Option {
	return func(e *Engine) { e.wait = w }
}

// WithClock replaces time.Now for pulse timestamps (tests)
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine with default settings that emits into sink
func New(sink Sink, opts ...Option) *Engine {
	e := &Engine{
		settings: DefaultSettings(),
		sink:     sink,
		wait:     sleep,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewWithSettings creates an engine that starts from s instead of
// DefaultSettings. Invalid settings are rejected with a ValidationError.
func NewWithSettings(sink Sink, s Settings, opts ...Option) (*Engine, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	e := New(sink, opts...)
	e.settings = s.Clone()
	return e, nil
}

// sleep blocks for d, returning early with false when ctx is done
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Settings returns a snapshot of the live configuration
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings.Clone()
}

// Mode returns the emission mode
func (e *Engine) Mode() Mode {
	return e.mode
}

// SetTempo sets beats per minute
func (e *Engine) SetTempo(bpm int) error {
	if err := validateTempo(bpm); err != nil {
		return err
	}
	e.mu.Lock()
	e.settings.Tempo = bpm
	e.mu.Unlock()
	return nil
}

// SetVolume sets pulse intensity (0-100)
func (e *Engine) SetVolume(vol int) error {
	if err := validateVolume(vol); err != nil {
		return err
	}
	e.mu.Lock()
	e.settings.Volume = vol
	e.mu.Unlock()
	return nil
}

// SetSubdivision sets slots per beat. The pattern is reset to all slots on;
// a custom pattern has to be applied again afterwards.
func (e *Engine) SetSubdivision(n int) error {
	if err := validateSubdivision(n); err != nil {
		return err
	}
	e.mu.Lock()
	e.settings.Subdivision = n
	e.settings.Pattern = AllOn(n)
	e.mu.Unlock()
	return nil
}

// SetTimeSignature stores the signature. It does not change timing.
func (e *Engine) SetTimeSignature(ts TimeSignature) error {
	if err := validateTimeSignature(ts); err != nil {
		return err
	}
	e.mu.Lock()
	e.settings.TimeSignature = ts
	e.mu.Unlock()
	return nil
}

// SetPattern installs p as the active pattern. Its length must match the
// current subdivision.
func (e *Engine) SetPattern(p Pattern) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := validatePattern(p, e.settings.Subdivision); err != nil {
		return err
	}
	e.settings.Pattern = p.Clone()
	return nil
}

// ToggleSlot flips one slot of the active pattern
func (e *Engine) ToggleSlot(slot int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if slot < 0 || slot >= len(e.settings.Pattern) {
		return invalid("slot", slot, fmt.Sprintf("must be between 0 and %d", len(e.settings.Pattern)-1))
	}
	e.settings.Pattern[slot] = !e.settings.Pattern[slot]
	return nil
}

// Apply replaces the whole configuration in one step (preset recall)
func (e *Engine) Apply(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.settings = s.Clone()
	e.mu.Unlock()
	debug.Log("engine", "apply tempo=%d vol=%d sub=%d sig=%s pattern=%s",
		s.Tempo, s.Volume, s.Subdivision, s.TimeSignature, s.Pattern)
	return nil
}

// Play starts the pulse loop in the background. Calling Play while playing
// does nothing.
func (e *Engine) Play() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	go func() {
		defer close(done)
		e.Run(ctx)
	}()
}

// Stop cancels the background loop and waits for it to exit. No pulse is
// emitted after Stop returns. Must not be called from a Sink.
func (e *Engine) Stop() {
	e.runMu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Playing reports whether the background loop is running
func (e *Engine) Playing() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.done != nil
}
