package metronome

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recorder collects every emitted pulse
type recorder struct {
	mu     sync.Mutex
	pulses []Pulse
	onEmit func(p Pulse)
}

func (r *recorder) Emit(p Pulse) {
	r.mu.Lock()
	r.pulses = append(r.pulses, p)
	r.mu.Unlock()
	if r.onEmit != nil {
		r.onEmit(p)
	}
}

func (r *recorder) snapshot() []Pulse {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Pulse, len(r.pulses))
	copy(out, r.pulses)
	return out
}

// fakeClock replaces sleeping: every wait is recorded and advances the clock
// instantly. After limit waits it cancels the run.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	waits  []time.Duration
	limit  int
	cancel context.CancelFunc
}

func newFakeClock(limit int) *fakeClock {
	return &fakeClock{
		now:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		limit: limit,
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) wait(ctx context.Context, d time.Duration) bool {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	n := len(c.waits)
	c.mu.Unlock()

	if c.limit > 0 && n >= c.limit {
		c.cancel()
		return false
	}
	return ctx.Err() == nil
}

func (c *fakeClock) recordedWaits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.waits))
	copy(out, c.waits)
	return out
}

// runWith runs the engine until the fake clock has seen limit waits
func runWith(t *testing.T, e *Engine, clk *fakeClock) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	clk.cancel = cancel
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func newTestEngine(t *testing.T, clk *fakeClock, mode Mode, s Settings) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	e, err := NewWithSettings(rec, s, WithMode(mode), WithWaiter(clk.wait), WithClock(clk.Now))
	if err != nil {
		t.Fatalf("bad test settings: %v", err)
	}
	return e, rec
}

func TestIntervals(t *testing.T) {
	tests := []struct {
		tempo, sub int
		slot, beat time.Duration
	}{
		{120, 4, 125 * time.Millisecond, 500 * time.Millisecond},
		{120, 2, 250 * time.Millisecond, 500 * time.Millisecond},
		{60, 1, 1000 * time.Millisecond, 1000 * time.Millisecond},
		{90, 3, 222 * time.Millisecond, 666 * time.Millisecond},
		{7, 3, 2857 * time.Millisecond, 8571 * time.Millisecond},
		{600, 32, 3 * time.Millisecond, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := SlotInterval(tt.tempo, tt.sub); got != tt.slot {
			t.Errorf("SlotInterval(%d, %d) = %v, want %v", tt.tempo, tt.sub, got, tt.slot)
		}
		if got := BeatInterval(tt.tempo); got != tt.beat {
			t.Errorf("BeatInterval(%d) = %v, want %v", tt.tempo, got, tt.beat)
		}
	}

	if SlotInterval(0, 4) != 0 || SlotInterval(120, 0) != 0 || BeatInterval(0) != 0 {
		t.Error("non-positive inputs must give a zero interval")
	}
}

func TestSlotIntervalNeverZero(t *testing.T) {
	for sub := 1; sub <= MaxSubdivision; sub++ {
		if d := SlotInterval(MaxTempo, sub); d <= 0 {
			t.Errorf("SlotInterval(%d, %d) = %v", MaxTempo, sub, d)
		}
	}
}

func TestSlotModeCycle(t *testing.T) {
	clk := newFakeClock(5) // 4 slot waits + 1 beat wait
	e, rec := newTestEngine(t, clk, ModeSlot, Settings{
		Tempo:         120,
		Volume:        50,
		Subdivision:   4,
		TimeSignature: TimeSignature{4, 4},
		Pattern:       Pattern{true, false, true, true},
	})
	start := clk.Now()

	runWith(t, e, clk)

	slot := 125 * time.Millisecond
	wantWaits := []time.Duration{slot, slot, slot, slot, 500 * time.Millisecond}
	gotWaits := clk.recordedWaits()
	if len(gotWaits) != len(wantWaits) {
		t.Fatalf("waits = %v, want %v", gotWaits, wantWaits)
	}
	for i := range wantWaits {
		if gotWaits[i] != wantWaits[i] {
			t.Errorf("wait %d = %v, want %v", i, gotWaits[i], wantWaits[i])
		}
	}

	pulses := rec.snapshot()
	if len(pulses) != 4 {
		t.Fatalf("got %d pulses, want 4 (one per slot)", len(pulses))
	}

	want := []struct {
		kind      Kind
		color     [3]uint8
		intensity int
		duration  time.Duration
	}{
		{KindAccent, ColorAccent, 50, 100 * time.Millisecond},
		{KindSilent, ColorSilent, 0, 50 * time.Millisecond},
		{KindNormal, ColorNormal, 50, 50 * time.Millisecond},
		{KindNormal, ColorNormal, 50, 50 * time.Millisecond},
	}
	for i, p := range pulses {
		if p.Slot != i {
			t.Errorf("pulse %d: Slot = %d", i, p.Slot)
		}
		if p.Cycle != 0 {
			t.Errorf("pulse %d: Cycle = %d, want 0", i, p.Cycle)
		}
		if p.Kind != want[i].kind {
			t.Errorf("pulse %d: Kind = %v, want %v", i, p.Kind, want[i].kind)
		}
		if p.Color != want[i].color {
			t.Errorf("pulse %d: Color = %v, want %v", i, p.Color, want[i].color)
		}
		if p.Intensity != want[i].intensity {
			t.Errorf("pulse %d: Intensity = %d, want %d", i, p.Intensity, want[i].intensity)
		}
		if p.Duration != want[i].duration {
			t.Errorf("pulse %d: Duration = %v, want %v", i, p.Duration, want[i].duration)
		}
		if wantAt := start.Add(time.Duration(i) * slot); !p.At.Equal(wantAt) {
			t.Errorf("pulse %d: At = %v, want %v", i, p.At, wantAt)
		}
	}

	if !pulses[0].IsAccent() || pulses[2].IsAccent() {
		t.Error("only slot 0 should be an accent")
	}
	if pulses[0].Duration != 2*pulses[2].Duration {
		t.Errorf("accent duration %v is not double the normal %v", pulses[0].Duration, pulses[2].Duration)
	}
}

func TestSlotModeInactiveAccentSlot(t *testing.T) {
	clk := newFakeClock(3)
	e, rec := newTestEngine(t, clk, ModeSlot, Settings{
		Tempo:         100,
		Volume:        70,
		Subdivision:   2,
		TimeSignature: TimeSignature{4, 4},
		Pattern:       Pattern{false, true},
	})

	runWith(t, e, clk)

	pulses := rec.snapshot()
	if len(pulses) != 2 {
		t.Fatalf("got %d pulses, want 2", len(pulses))
	}
	if pulses[0].Kind != KindSilent || pulses[0].Intensity != 0 {
		t.Errorf("inactive slot 0 should be silent, got %+v", pulses[0])
	}
	if pulses[1].Kind != KindNormal || pulses[1].Intensity != 70 {
		t.Errorf("slot 1 should be normal at volume 70, got %+v", pulses[1])
	}
}

func TestSlotModeMultipleCycles(t *testing.T) {
	// 3 cycles of 2 slots: each cycle is 2 slot waits + 1 beat wait
	clk := newFakeClock(9)
	e, rec := newTestEngine(t, clk, ModeSlot, DefaultSettings())

	runWith(t, e, clk)

	pulses := rec.snapshot()
	if len(pulses) != 6 {
		t.Fatalf("got %d pulses, want 6", len(pulses))
	}
	for i, p := range pulses {
		if p.Cycle != int64(i/2) {
			t.Errorf("pulse %d: Cycle = %d, want %d", i, p.Cycle, i/2)
		}
		if p.Slot != i%2 {
			t.Errorf("pulse %d: Slot = %d, want %d", i, p.Slot, i%2)
		}
		if i > 0 && !p.At.After(pulses[i-1].At) {
			t.Errorf("pulse %d not after pulse %d", i, i-1)
		}
	}
}

func TestBurstModeReplaysPattern(t *testing.T) {
	// slot 0 active: burst of 2 pulses with 2 waits, slot 1 inactive: 1 slot
	// wait, then the beat wait
	clk := newFakeClock(4)
	e, rec := newTestEngine(t, clk, ModeBurst, Settings{
		Tempo:         120,
		Volume:        40,
		Subdivision:   2,
		TimeSignature: TimeSignature{4, 4},
		Pattern:       Pattern{true, false},
	})

	runWith(t, e, clk)

	wantWaits := []time.Duration{BurstInterval, BurstInterval, 250 * time.Millisecond, 500 * time.Millisecond}
	gotWaits := clk.recordedWaits()
	if len(gotWaits) != len(wantWaits) {
		t.Fatalf("waits = %v, want %v", gotWaits, wantWaits)
	}
	for i := range wantWaits {
		if gotWaits[i] != wantWaits[i] {
			t.Errorf("wait %d = %v, want %v", i, gotWaits[i], wantWaits[i])
		}
	}

	pulses := rec.snapshot()
	if len(pulses) != 2 {
		t.Fatalf("got %d pulses, want 2", len(pulses))
	}
	if pulses[0].Kind != KindAccent || pulses[0].Duration != 2*BaseDuration {
		t.Errorf("burst pulse 0 = %+v, want accent", pulses[0])
	}
	if pulses[1].Kind != KindSilent || pulses[1].Intensity != 0 {
		t.Errorf("burst pulse 1 = %+v, want silent", pulses[1])
	}
}

func TestBurstModeEveryActiveSlotBursts(t *testing.T) {
	// 3 active slots x 3 burst waits + beat wait
	clk := newFakeClock(10)
	e, rec := newTestEngine(t, clk, ModeBurst, Settings{
		Tempo:         60,
		Volume:        50,
		Subdivision:   3,
		TimeSignature: TimeSignature{3, 4},
		Pattern:       AllOn(3),
	})

	runWith(t, e, clk)

	pulses := rec.snapshot()
	if len(pulses) != 9 {
		t.Fatalf("got %d pulses, want 9 (pattern replayed for each slot)", len(pulses))
	}
	for i, p := range pulses {
		wantKind := KindNormal
		if i%3 == 0 {
			wantKind = KindAccent
		}
		if p.Kind != wantKind || p.Slot != i%3 {
			t.Errorf("pulse %d = slot %d %v, want slot %d %v", i, p.Slot, p.Kind, i%3, wantKind)
		}
	}
}

func TestTempoChangeSeenAtNextSlot(t *testing.T) {
	clk := newFakeClock(5)
	e, rec := newTestEngine(t, clk, ModeSlot, Settings{
		Tempo:         120,
		Volume:        50,
		Subdivision:   4,
		TimeSignature: TimeSignature{4, 4},
		Pattern:       AllOn(4),
	})
	rec.onEmit = func(p Pulse) {
		if p.Slot == 0 {
			if err := e.SetTempo(60); err != nil {
				t.Errorf("SetTempo: %v", err)
			}
		}
	}

	runWith(t, e, clk)

	want := []time.Duration{
		125 * time.Millisecond, // read before the change
		250 * time.Millisecond,
		250 * time.Millisecond,
		250 * time.Millisecond,
		1000 * time.Millisecond,
	}
	got := clk.recordedWaits()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("wait %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestVolumeChangeSeenAtNextSlot(t *testing.T) {
	clk := newFakeClock(3)
	e, rec := newTestEngine(t, clk, ModeSlot, DefaultSettings())
	rec.onEmit = func(p Pulse) {
		if p.Slot == 0 {
			e.SetVolume(90)
		}
	}

	runWith(t, e, clk)

	pulses := rec.snapshot()
	if pulses[0].Intensity != 50 || pulses[1].Intensity != 90 {
		t.Errorf("intensities = %d, %d, want 50, 90", pulses[0].Intensity, pulses[1].Intensity)
	}
}

func TestSubdivisionShrinkEndsCycleEarly(t *testing.T) {
	// After slot 0 the subdivision drops to 1, so the cycle ends and the beat
	// wait follows; cycle 1 then has a single slot.
	clk := newFakeClock(4)
	e, rec := newTestEngine(t, clk, ModeSlot, Settings{
		Tempo:         120,
		Volume:        50,
		Subdivision:   4,
		TimeSignature: TimeSignature{4, 4},
		Pattern:       AllOn(4),
	})
	rec.onEmit = func(p Pulse) {
		if p.Cycle == 0 && p.Slot == 0 {
			e.SetSubdivision(1)
		}
	}

	runWith(t, e, clk)

	pulses := rec.snapshot()
	if len(pulses) != 2 {
		t.Fatalf("got %d pulses, want 2", len(pulses))
	}
	if pulses[1].Cycle != 1 || pulses[1].Slot != 0 {
		t.Errorf("second pulse = cycle %d slot %d, want cycle 1 slot 0", pulses[1].Cycle, pulses[1].Slot)
	}
}

func TestRunCyclesSilentBurst(t *testing.T) {
	// nothing is ever emitted, the cycle count alone has to end the run
	clk := newFakeClock(0)
	e, rec := newTestEngine(t, clk, ModeBurst, Settings{
		Tempo:         120,
		Volume:        50,
		Subdivision:   2,
		TimeSignature: TimeSignature{4, 4},
		Pattern:       Pattern{false, false},
	})

	done := make(chan error, 1)
	go func() { done <- e.RunCycles(context.Background(), 3) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunCycles = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunCycles did not return")
	}

	if n := len(rec.snapshot()); n != 0 {
		t.Errorf("got %d pulses, want 0", n)
	}
	// two slot waits and a beat wait per cycle
	waits := clk.recordedWaits()
	if len(waits) != 9 {
		t.Fatalf("waits = %v, want 9", waits)
	}
	if waits[8] != 500*time.Millisecond {
		t.Errorf("last wait = %v, want the beat wait", waits[8])
	}
}

func TestRunCyclesSlotMode(t *testing.T) {
	clk := newFakeClock(0)
	e, rec := newTestEngine(t, clk, ModeSlot, DefaultSettings())

	if err := e.RunCycles(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	pulses := rec.snapshot()
	if len(pulses) != 4 {
		t.Fatalf("got %d pulses, want 4", len(pulses))
	}
	if pulses[3].Cycle != 1 || pulses[3].Slot != 1 {
		t.Errorf("last pulse = cycle %d slot %d, want cycle 1 slot 1", pulses[3].Cycle, pulses[3].Slot)
	}

	if err := e.RunCycles(context.Background(), 0); err != nil {
		t.Errorf("RunCycles(0) = %v", err)
	}
	if len(rec.snapshot()) != 4 {
		t.Error("RunCycles(0) emitted pulses")
	}
}

func TestRunCyclesCancelled(t *testing.T) {
	e := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.RunCycles(ctx, 5); !errors.Is(err, context.Canceled) {
		t.Errorf("RunCycles = %v, want context.Canceled", err)
	}
}

func TestRunReturnsImmediatelyWhenCancelled(t *testing.T) {
	rec := &recorder{}
	e := New(rec)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if n := len(rec.snapshot()); n != 0 {
		t.Errorf("got %d pulses from a cancelled run", n)
	}
}

func TestStopMidCycle(t *testing.T) {
	// 60 bpm with one slot: a full second between pulses, so Stop has to
	// interrupt the wait for the test to finish quickly
	first := make(chan struct{}, 1)
	rec := &recorder{onEmit: func(p Pulse) {
		select {
		case first <- struct{}{}:
		default:
		}
	}}
	e := New(rec)
	if err := e.SetTempo(60); err != nil {
		t.Fatal(err)
	}
	if err := e.SetSubdivision(1); err != nil {
		t.Fatal(err)
	}

	e.Play()
	if !e.Playing() {
		t.Fatal("Playing() = false after Play")
	}

	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("no pulse within 1s of Play")
	}

	start := time.Now()
	e.Stop()
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Stop took %v, want well under one slot interval", elapsed)
	}
	if e.Playing() {
		t.Error("Playing() = true after Stop")
	}

	n := len(rec.snapshot())
	time.Sleep(50 * time.Millisecond)
	if after := len(rec.snapshot()); after != n {
		t.Errorf("pulses emitted after Stop: %d -> %d", n, after)
	}
}

func TestPlayTwiceAndStopTwice(t *testing.T) {
	e := New(nil)
	e.Play()
	e.Play()
	e.Stop()
	e.Stop()
	if e.Playing() {
		t.Error("Playing() = true after Stop")
	}

	// Restart after stop
	e.Play()
	if !e.Playing() {
		t.Error("Playing() = false after restart")
	}
	e.Stop()
}
