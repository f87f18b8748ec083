package output

import "go-metronome/metronome"

// Fanout hands each pulse to every sink in order
type Fanout []metronome.Sink

func (f Fanout) Emit(p metronome.Pulse) {
	for _, s := range f {
		if s != nil {
			s.Emit(p)
		}
	}
}
