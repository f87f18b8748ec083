package output

import (
	"fmt"
	"io"
	"sync"

	"go-metronome/debug"
	"go-metronome/metronome"
)

// Log writes every pulse to the debug log under the "pulse" category
type Log struct{}

func (Log) Emit(p metronome.Pulse) {
	debug.Log("pulse", "%s", FormatPulse(p))
}

// Text prints one line per pulse to w
type Text struct {
	mu sync.Mutex
	w  io.Writer
}

// NewText creates a line printer sink
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

func (t *Text) Emit(p metronome.Pulse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "%s %s\n", p.At.Format("15:04:05.000"), FormatPulse(p))
}

// FormatPulse renders a pulse as "cycle=3 slot=1 accent   intensity=50 dur=100ms"
func FormatPulse(p metronome.Pulse) string {
	return fmt.Sprintf("cycle=%d slot=%d %-6s intensity=%d dur=%s",
		p.Cycle, p.Slot, p.Kind, p.Intensity, p.Duration)
}
