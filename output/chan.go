package output

import (
	"sync/atomic"

	"go-metronome/metronome"
)

// Chan forwards pulses to a buffered channel. A full buffer drops the pulse
// rather than stalling the engine loop.
type Chan struct {
	ch      chan metronome.Pulse
	dropped atomic.Uint64
}

// NewChan creates a channel sink with the given buffer size
func NewChan(size int) *Chan {
	return &Chan{ch: make(chan metronome.Pulse, size)}
}

func (c *Chan) Emit(p metronome.Pulse) {
	select {
	case c.ch <- p:
	default:
		c.dropped.Add(1)
	}
}

// C returns the receive side
func (c *Chan) C() <-chan metronome.Pulse {
	return c.ch
}

// Dropped counts pulses lost to a full buffer
func (c *Chan) Dropped() uint64 {
	return c.dropped.Load()
}
