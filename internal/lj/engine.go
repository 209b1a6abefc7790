// Package lj is a small periodic Lennard-Jones fluid that implements the
// md.Adapter capability set: velocity-Verlet integration, a velocity-rescale
// thermostat, and a Monte Carlo volume-move barostat with virial pressure
// readback. It exists to drive the equilibration protocol end to end without
// an external engine; it is a toy, not a production force field.
//
// Units: nm, ps, kelvin, bar. Energies are in bar*nm^3 (1e-22 J).
package lj

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/kvasudev/eqmd/internal/md"
)

// kB in bar*nm^3 per kelvin.
const kB = 0.1380649

// ErrSteps indicates a non-positive integration step count.
var ErrSteps = errors.New("lj: step count must be positive")

// Config sets the fluid and integrator parameters. Zero fields take the
// defaults below (an argon-like fluid of 108 particles).
type Config struct {
	Particles  int
	Density    float64 // particles per nm^3
	Sigma      float64 // nm
	Epsilon    float64 // bar*nm^3
	Mass       float64 // bar*nm^3*ps^2/nm^2
	Cutoff     float64 // nm; 0 means 2.5*Sigma
	TimestepPs float64
	TauPs      float64 // thermostat relaxation time
	Seed       int64
}

func (c Config) withDefaults() Config {
	if c.Particles <= 0 {
		c.Particles = 108
	}
	if c.Density <= 0 {
		c.Density = 0.6
	}
	if c.Sigma <= 0 {
		c.Sigma = 0.34
	}
	if c.Epsilon <= 0 {
		c.Epsilon = 16.5
	}
	if c.Mass <= 0 {
		// Gives argon-like thermal velocities (~0.35 nm/ps at 300 K).
		c.Mass = 340.0
	}
	if c.Cutoff <= 0 {
		c.Cutoff = 2.5 * c.Sigma
	}
	if c.TimestepPs <= 0 {
		c.TimestepPs = 0.002
	}
	if c.TauPs <= 0 {
		c.TauPs = 0.1
	}
	return c
}

type barostat struct {
	enabled   bool
	pressure  float64
	frequency int
}

// Engine holds the particle system. Not safe for concurrent use; the
// protocol runner owns it for the duration of a run.
type Engine struct {
	cfg     Config
	n       int
	box     float64 // cubic side, nm
	pos     []float64
	vel     []float64
	force   []float64
	pe      float64
	virial  float64
	targetT float64
	bstat   barostat
	steps   int
	rng     *rand.Rand
}

// New builds the fluid on a cubic lattice with Maxwell velocities at 300 K.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:     cfg,
		n:       cfg.Particles,
		box:     math.Cbrt(float64(cfg.Particles) / cfg.Density),
		pos:     make([]float64, cfg.Particles*3),
		vel:     make([]float64, cfg.Particles*3),
		force:   make([]float64, cfg.Particles*3),
		targetT: 300.0,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}

	cells := int(math.Ceil(math.Cbrt(float64(e.n))))
	spacing := e.box / float64(cells)
	i := 0
	for x := 0; x < cells && i < e.n; x++ {
		for y := 0; y < cells && i < e.n; y++ {
			for z := 0; z < cells && i < e.n; z++ {
				e.pos[i*3] = (float64(x) + 0.5) * spacing
				e.pos[i*3+1] = (float64(y) + 0.5) * spacing
				e.pos[i*3+2] = (float64(z) + 0.5) * spacing
				i++
			}
		}
	}

	e.drawVelocities(e.targetT)
	e.computeForces()
	return e
}

// SetTemperature retargets the thermostat and re-draws velocities from the
// Maxwell distribution at the new temperature, taking effect before the next
// Integrate call.
func (e *Engine) SetTemperature(kelvin float64) error {
	if kelvin <= 0 {
		return fmt.Errorf("lj: temperature must be positive, got %g", kelvin)
	}
	e.targetT = kelvin
	e.drawVelocities(kelvin)
	return nil
}

// AttachBarostat enables Monte Carlo volume moves toward the given pressure,
// attempted every frequency integration steps.
func (e *Engine) AttachBarostat(pressureBar float64, frequency int) error {
	if frequency <= 0 {
		return fmt.Errorf("%w: got %d", md.ErrBarostatFrequency, frequency)
	}
	e.bstat = barostat{enabled: true, pressure: pressureBar, frequency: frequency}
	return nil
}

// DetachBarostat disables pressure coupling.
func (e *Engine) DetachBarostat() error {
	e.bstat = barostat{}
	return nil
}

// Integrate advances exactly steps velocity-Verlet steps, interleaving
// barostat volume moves when attached. Blocking.
func (e *Engine) Integrate(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("%w: got %d", ErrSteps, steps)
	}
	for i := 0; i < steps; i++ {
		e.step()
		e.steps++
		if e.bstat.enabled && e.steps%e.bstat.frequency == 0 {
			e.volumeMove()
		}
	}
	return nil
}

// ReadState returns a scalar snapshot. Non-mutating.
func (e *Engine) ReadState() (md.State, error) {
	ke := e.kineticEnergy()
	t := e.temperature(ke)
	p := (float64(e.n)*kB*t + e.virial/3.0) / e.volume()
	return md.State{
		Temperature:     t,
		Pressure:        p,
		Volume:          e.volume(),
		PotentialEnergy: e.pe,
		KineticEnergy:   ke,
	}, nil
}

func (e *Engine) volume() float64 { return e.box * e.box * e.box }

func (e *Engine) kineticEnergy() float64 {
	sum := 0.0
	for _, v := range e.vel {
		sum += v * v
	}
	return 0.5 * e.cfg.Mass * sum
}

func (e *Engine) temperature(ke float64) float64 {
	return 2.0 * ke / (3.0 * float64(e.n) * kB)
}

func (e *Engine) drawVelocities(kelvin float64) {
	sigma := math.Sqrt(kB * kelvin / e.cfg.Mass)
	for i := range e.vel {
		e.vel[i] = e.rng.NormFloat64() * sigma
	}
	// Remove center-of-mass drift.
	for d := 0; d < 3; d++ {
		mean := 0.0
		for i := 0; i < e.n; i++ {
			mean += e.vel[i*3+d]
		}
		mean /= float64(e.n)
		for i := 0; i < e.n; i++ {
			e.vel[i*3+d] -= mean
		}
	}
}

// computeForces evaluates Lennard-Jones forces with minimum-image
// convention, refreshing the potential energy and virial accumulators.
func (e *Engine) computeForces() {
	for i := range e.force {
		e.force[i] = 0
	}
	e.pe = 0
	e.virial = 0

	rc2 := e.cfg.Cutoff * e.cfg.Cutoff
	s2 := e.cfg.Sigma * e.cfg.Sigma
	var dr [3]float64

	for i := 0; i < e.n-1; i++ {
		for j := i + 1; j < e.n; j++ {
			r2 := 0.0
			for d := 0; d < 3; d++ {
				x := e.pos[i*3+d] - e.pos[j*3+d]
				x -= e.box * math.Round(x/e.box)
				dr[d] = x
				r2 += x * x
			}
			if r2 >= rc2 || r2 == 0 {
				continue
			}
			sr2 := s2 / r2
			sr6 := sr2 * sr2 * sr2
			sr12 := sr6 * sr6
			e.pe += 4 * e.cfg.Epsilon * (sr12 - sr6)
			// f = -dU/dr / r
			f := 24 * e.cfg.Epsilon * (2*sr12 - sr6) / r2
			e.virial += f * r2
			for d := 0; d < 3; d++ {
				e.force[i*3+d] += f * dr[d]
				e.force[j*3+d] -= f * dr[d]
			}
		}
	}
}

// step advances one velocity-Verlet step followed by a weak velocity
// rescale toward the thermostat target.
func (e *Engine) step() {
	dt := e.cfg.TimestepPs
	halfDt := 0.5 * dt / e.cfg.Mass

	for i := range e.pos {
		e.vel[i] += halfDt * e.force[i]
		e.pos[i] += dt * e.vel[i]
		e.pos[i] -= e.box * math.Floor(e.pos[i]/e.box)
	}

	e.computeForces()

	for i := range e.vel {
		e.vel[i] += halfDt * e.force[i]
	}

	ke := e.kineticEnergy()
	t := e.temperature(ke)
	if t > 0 {
		lambda := math.Sqrt(1 + (dt/e.cfg.TauPs)*(e.targetT/t-1))
		for i := range e.vel {
			e.vel[i] *= lambda
		}
	}
}

// volumeMove attempts one isotropic Metropolis volume move at the barostat
// target pressure.
func (e *Engine) volumeMove() {
	oldBox := e.box
	oldPE := e.pe
	oldV := e.volume()

	newV := oldV * math.Exp(0.02*(2*e.rng.Float64()-1))
	scale := math.Cbrt(newV / oldV)

	for i := range e.pos {
		e.pos[i] *= scale
	}
	e.box = oldBox * scale
	e.computeForces()

	kT := kB * e.targetT
	dH := (e.pe - oldPE) + e.bstat.pressure*(newV-oldV) -
		float64(e.n)*kT*math.Log(newV/oldV)

	if dH > 0 && e.rng.Float64() >= math.Exp(-dH/kT) {
		// Reject: undo the scaling and refresh the accumulators.
		inv := 1 / scale
		for i := range e.pos {
			e.pos[i] *= inv
		}
		e.box = oldBox
		e.computeForces()
	}
}
