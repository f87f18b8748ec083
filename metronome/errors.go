package metronome

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every ValidationError
var ErrInvalid = errors.New("invalid parameter")

// ValidationError reports a rejected setter or constructor argument
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

func invalid(field string, value any, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

func validateTempo(bpm int) error {
	if bpm < MinTempo || bpm > MaxTempo {
		return invalid("tempo", bpm, fmt.Sprintf("must be between %d and %d bpm", MinTempo, MaxTempo))
	}
	return nil
}

func validateVolume(vol int) error {
	if vol < MinVolume || vol > MaxVolume {
		return invalid("volume", vol, fmt.Sprintf("must be between %d and %d", MinVolume, MaxVolume))
	}
	return nil
}

func validateSubdivision(n int) error {
	if n < 1 || n > MaxSubdivision {
		return invalid("subdivision", n, fmt.Sprintf("must be between 1 and %d", MaxSubdivision))
	}
	return nil
}

func validateTimeSignature(ts TimeSignature) error {
	if ts.Beats <= 0 || ts.Unit <= 0 {
		return invalid("time signature", ts, "beats and unit must be positive")
	}
	return nil
}

func validatePattern(p Pattern, subdivision int) error {
	if len(p) == 0 {
		return invalid("pattern", p, "must not be empty")
	}
	if len(p) != subdivision {
		return invalid("pattern", p, fmt.Sprintf("length %d does not match subdivision %d", len(p), subdivision))
	}
	return nil
}
