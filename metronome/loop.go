package metronome

import (
	"context"

	"go-metronome/debug"
)

// slotState is what one slot evaluation needs from the live settings
type slotState struct {
	ok          bool // slot index still inside the pattern
	active      bool
	tempo       int
	volume      int
	subdivision int
	burst       Pattern // pattern copy for ModeBurst, nil otherwise
}

// readSlot copies the fields for slot under the read lock. Settings changes
// are therefore seen at the next slot.
func (e *Engine) readSlot(slot int) slotState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := e.settings
	if slot >= s.Subdivision || slot >= len(s.Pattern) {
		return slotState{}
	}
	st := slotState{
		ok:          true,
		active:      s.Pattern[slot],
		tempo:       s.Tempo,
		volume:      s.Volume,
		subdivision: s.Subdivision,
	}
	if e.mode == ModeBurst && st.active {
		st.burst = s.Pattern.Clone()
	}
	return st
}

// Run is the pulse loop. It blocks until ctx is cancelled and returns ctx.Err().
func (e *Engine) Run(ctx context.Context) error {
	return e.run(ctx, -1)
}

// RunCycles plays n whole cycles, each ending with its inter-cycle wait, and
// returns nil. Cycles count even when every slot is silent.
func (e *Engine) RunCycles(ctx context.Context, n int64) error {
	if n <= 0 {
		return nil
	}
	return e.run(ctx, n)
}

// run loops until ctx ends or, when limit >= 0, limit cycles have completed
func (e *Engine) run(ctx context.Context, limit int64) error {
	debug.Log("engine", "run start mode=%s limit=%d", e.mode, limit)
	for cycle := int64(0); limit < 0 || cycle < limit; cycle++ {
		if err := e.runCycle(ctx, cycle); err != nil {
			debug.Log("engine", "run stop cycle=%d: %v", cycle, err)
			return err
		}
	}
	debug.Log("engine", "run done after %d cycles", limit)
	return nil
}

// runCycle evaluates every slot in order, then waits one beat
func (e *Engine) runCycle(ctx context.Context, cycle int64) error {
	for slot := 0; ; slot++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := e.readSlot(slot)
		if !st.ok {
			break
		}

		switch {
		case e.mode == ModeBurst && st.active:
			for i, on := range st.burst {
				if !e.emit(ctx, cycle, makePulse(i, on, st.volume)) {
					return stopped(ctx)
				}
				if !e.wait(ctx, BurstInterval) {
					return stopped(ctx)
				}
			}
		case e.mode == ModeBurst:
			if !e.wait(ctx, SlotInterval(st.tempo, st.subdivision)) {
				return stopped(ctx)
			}
		default:
			if !e.emit(ctx, cycle, makePulse(slot, st.active, st.volume)) {
				return stopped(ctx)
			}
			if !e.wait(ctx, SlotInterval(st.tempo, st.subdivision)) {
				return stopped(ctx)
			}
		}
	}

	e.mu.RLock()
	tempo := e.settings.Tempo
	e.mu.RUnlock()
	if !e.wait(ctx, BeatInterval(tempo)) {
		return stopped(ctx)
	}
	return nil
}

// emit stamps the pulse and hands it to the sink unless ctx is already done
func (e *Engine) emit(ctx context.Context, cycle int64, p Pulse) bool {
	if ctx.Err() != nil {
		return false
	}
	p.Cycle = cycle
	p.At = e.now()
	if e.sink != nil {
		e.sink.Emit(p)
	}
	return true
}

// stopped is the error returned when an emit or wait was refused
func stopped(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return context.Canceled
}
