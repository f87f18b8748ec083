package output

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"

	"go-metronome/debug"
	"go-metronome/metronome"
)

// Click pitches
const (
	AccentFreq = 1760.0
	NormalFreq = 880.0
)

const sampleRate = beep.SampleRate(48000)

// Audio plays a short sine click per pulse through the system speaker
type Audio struct {
	mu          sync.Mutex
	rate        beep.SampleRate
	mixer       *beep.Mixer
	initialized bool
}

// NewAudio creates an audio sink; Start opens the speaker
func NewAudio() *Audio {
	return &Audio{
		rate:  sampleRate,
		mixer: &beep.Mixer{},
	}
}

// Start initializes the speaker and begins playing the click mixer
func (a *Audio) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return nil
	}

	// 20ms buffer keeps click latency well under a slot at max tempo
	if err := speaker.Init(a.rate, a.rate.N(20*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(a.mixer)
	a.initialized = true
	debug.Log("audio", "speaker started at %d Hz", a.rate)
	return nil
}

// Emit queues a click. Silent pulses and zero intensity play nothing.
func (a *Audio) Emit(p metronome.Pulse) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return
	}
	click := Click(p, a.rate)
	if click == nil {
		return
	}

	speaker.Lock()
	a.mixer.Add(click)
	speaker.Unlock()
}

// Close silences pending clicks. beep has no speaker close, so the device
// stays open until the process exits.
func (a *Audio) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return nil
	}
	speaker.Lock()
	a.mixer.Clear()
	speaker.Unlock()
	a.initialized = false
	return nil
}

// Click builds the streamer for a pulse, or nil if the pulse is inaudible
func Click(p metronome.Pulse, rate beep.SampleRate) beep.Streamer {
	if p.Kind == metronome.KindSilent || p.Intensity <= 0 {
		return nil
	}
	freq := NormalFreq
	if p.IsAccent() {
		freq = AccentFreq
	}
	gain := float64(p.Intensity) / float64(metronome.MaxVolume)
	if gain > 1 {
		gain = 1
	}
	return &effects.Volume{
		Streamer: newClick(freq, p.Duration, rate),
		Base:     2,
		Volume:   math.Log2(gain),
	}
}

// click is a sine tone with a linear decay to silence
type click struct {
	freq     float64
	phase    float64
	position int
	total    int
	rate     beep.SampleRate
}

func newClick(freq float64, d time.Duration, rate beep.SampleRate) *click {
	return &click{freq: freq, total: rate.N(d), rate: rate}
}

func (c *click) Stream(samples [][2]float64) (n int, ok bool) {
	if c.position >= c.total {
		return 0, false
	}
	for i := range samples {
		if c.position >= c.total {
			return i, true
		}
		env := 1 - float64(c.position)/float64(c.total)
		val := math.Sin(2*math.Pi*c.phase) * env

		samples[i][0] = val
		samples[i][1] = val

		c.phase += c.freq / float64(c.rate)
		c.phase -= math.Floor(c.phase)
		c.position++
	}
	return len(samples), true
}

func (c *click) Err() error { return nil }
