package md

import (
	"errors"
	"fmt"
)

// Configuration errors, detected before any engine call.
var (
	// ErrMaxPressure indicates a non-positive maximum pressure.
	ErrMaxPressure = errors.New("md: max pressure must be positive")

	// ErrBarostatFrequency indicates a non-positive barostat frequency.
	ErrBarostatFrequency = errors.New("md: barostat frequency must be positive")

	// ErrRunInProgress indicates a second Run was attempted while one is active.
	ErrRunInProgress = errors.New("md: protocol run already in progress")

	// ErrDiverged is the sentinel wrapped by every DivergenceError.
	ErrDiverged = errors.New("md: simulation diverged")
)

// DivergenceError reports that the physical state left the safety envelope
// during a stage. The run is unrecoverable; the simulation context must be
// rebuilt before another attempt.
type DivergenceError struct {
	Stage  int
	Name   string
	Reason string
	State  State
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("stage %d (%s): %s", e.Stage, e.Name, e.Reason)
}

func (e *DivergenceError) Unwrap() error { return ErrDiverged }

// EngineError wraps a failure reported by the engine itself. The underlying
// error is propagated opaquely, never interpreted.
type EngineError struct {
	Stage int
	Name  string
	Op    string
	Err   error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("stage %d (%s): %s: %v", e.Stage, e.Name, e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
