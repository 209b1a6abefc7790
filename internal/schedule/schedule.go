// Package schedule materializes the 21-stage equilibration schedule of
// Larsen, Lin, Hart and Colina (Macromolecules 44:6944-6951, 2011): cycles of
// high-temperature annealing and stepped pressure compression/decompression
// that de-correlate dense amorphous structures far faster than constant-
// condition equilibration.
//
// The table is pure data. Build scales the published pressure fractions by a
// caller-supplied maximum pressure and converts the published stage durations
// to integration steps; two calls with the same maximum pressure return
// identical tables.
package schedule

import (
	"fmt"
	"math"

	"github.com/kvasudev/eqmd/internal/md"
)

// Ensemble is the constraint set applied during a stage.
type Ensemble int

const (
	// NVT holds volume and temperature fixed (no barostat).
	NVT Ensemble = iota
	// NPT holds pressure and temperature fixed (barostat attached).
	NPT
)

func (e Ensemble) String() string {
	if e == NPT {
		return "NPT"
	}
	return "NVT"
}

// Published protocol constants. Pressures in bar, temperatures in kelvin.
const (
	// NumStages is the fixed length of the protocol.
	NumStages = 21

	// MaxTemperature is the annealing temperature of the hot stages.
	MaxTemperature = 600.0

	// BaseTemperature is the working temperature of the cold stages.
	BaseTemperature = 300.0

	// AmbientPressure is the target of the final relaxation stage.
	AmbientPressure = 1.0

	// DefaultMaxPressure is the peak compression pressure used by the
	// reference methodology.
	DefaultMaxPressure = 50_000.0

	// TimestepFs is the integration timestep the published durations assume.
	TimestepFs = 2.0

	stepsPerPicosecond = int(1000.0 / TimestepFs)
)

// Stage is one atomic segment of the protocol. Immutable once built.
type Stage struct {
	Index            int
	Name             string
	Ensemble         Ensemble
	Temperature      float64
	PressureFraction float64 // of max pressure; meaningful only when barostat enabled
	Pressure         float64 // bar, resolved against max pressure at build time
	DurationSteps    int
}

// BarostatEnabled reports whether the stage runs with pressure coupling.
func (s Stage) BarostatEnabled() bool { return s.Ensemble == NPT }

// Picoseconds returns the stage duration in simulated time.
func (s Stage) Picoseconds() float64 {
	return float64(s.DurationSteps) / float64(stepsPerPicosecond)
}

// row is one line of the published table. fraction is a multiple of the
// maximum pressure; ambient marks the final 1 bar relaxation stage.
type row struct {
	name     string
	hot      bool // MaxTemperature instead of BaseTemperature
	npt      bool
	fraction float64
	ambient  bool
	ps       float64
}

// The Larsen et al. schedule: compression cycles at 0.02, 0.6 and 1.0 of the
// maximum pressure, each released through a hot NVT anneal, then three short
// decompression steps (0.5, 0.1, 0.01) and a long ambient NPT relaxation.
var table = [NumStages]row{
	{name: "md1", hot: true, ps: 50},
	{name: "md2", ps: 50},
	{name: "md3", npt: true, fraction: 0.02, ps: 50},
	{name: "md4", hot: true, ps: 50},
	{name: "md5", ps: 100},
	{name: "md6", npt: true, fraction: 0.6, ps: 50},
	{name: "md7", hot: true, ps: 50},
	{name: "md8", ps: 100},
	{name: "md9", npt: true, fraction: 1.0, ps: 50},
	{name: "md10", hot: true, ps: 50},
	{name: "md11", ps: 100},
	{name: "md12", npt: true, fraction: 0.5, ps: 5},
	{name: "md13", hot: true, ps: 5},
	{name: "md14", ps: 10},
	{name: "md15", npt: true, fraction: 0.1, ps: 5},
	{name: "md16", hot: true, ps: 5},
	{name: "md17", ps: 10},
	{name: "md18", npt: true, fraction: 0.01, ps: 5},
	{name: "md19", hot: true, ps: 5},
	{name: "md20", ps: 10},
	{name: "md21", npt: true, ambient: true, ps: 800},
}

// Build materializes the stage table for the given maximum pressure (bar).
// It fails with md.ErrMaxPressure before any simulation interaction if the
// pressure is not positive.
func Build(maxPressureBar float64) ([]Stage, error) {
	if maxPressureBar <= 0 {
		return nil, fmt.Errorf("%w: got %g bar", md.ErrMaxPressure, maxPressureBar)
	}

	stages := make([]Stage, 0, NumStages)
	for i, r := range table {
		s := Stage{
			Index:         i + 1,
			Name:          r.name,
			Temperature:   BaseTemperature,
			DurationSteps: int(r.ps * float64(stepsPerPicosecond)),
		}
		if r.hot {
			s.Temperature = MaxTemperature
		}
		if r.npt {
			s.Ensemble = NPT
			if r.ambient {
				// The final stage targets 1 bar regardless of the maximum;
				// the fraction is capped so it stays a valid fraction even
				// for sub-ambient maximum pressures.
				s.Pressure = AmbientPressure
				s.PressureFraction = math.Min(1, AmbientPressure/maxPressureBar)
			} else {
				s.PressureFraction = r.fraction
				s.Pressure = r.fraction * maxPressureBar
			}
		}
		stages = append(stages, s)
	}
	return stages, nil
}
