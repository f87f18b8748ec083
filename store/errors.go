package store

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped when a persisted document cannot be decoded
var ErrMalformed = errors.New("malformed document")

// PersistenceError reports a failed load or save
type PersistenceError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
