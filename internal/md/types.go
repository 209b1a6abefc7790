package md

import "math"

// State is a cheap scalar snapshot of the simulation, as read back from the
// engine after a stage completes. Pressures are in bar, temperatures in
// kelvin; energies are in the engine's energy unit.
type State struct {
	Temperature     float64
	Pressure        float64
	Volume          float64
	PotentialEnergy float64
	KineticEnergy   float64
}

// Finite reports whether both energy readbacks are real numbers.
func (s State) Finite() bool {
	for _, v := range []float64{s.PotentialEnergy, s.KineticEnergy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Adapter is the full capability set the protocol requires from an engine.
// Integrate blocks until all n steps have been taken; the protocol never
// interrupts it mid-flight.
type Adapter interface {
	SetTemperature(kelvin float64) error
	AttachBarostat(pressureBar float64, frequency int) error
	DetachBarostat() error
	Integrate(steps int) error
	ReadState() (State, error)
}

// Status is the terminal-state machine of one protocol run.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}
