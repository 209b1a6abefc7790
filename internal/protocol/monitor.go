package protocol

import (
	"fmt"
	"math"

	"github.com/kvasudev/eqmd/internal/md"
	"github.com/kvasudev/eqmd/internal/schedule"
)

// MonitorConfig bounds the physical safety envelope. Zero values take the
// defaults below.
type MonitorConfig struct {
	// MaxVolumeRatio caps the box volume as a multiple of the volume seen at
	// the first check of a run. Exceeding it (or a non-positive volume) is a
	// hard failure.
	MaxVolumeRatio float64

	// TemperatureTol is the relative deviation from the stage's thermostat
	// target above which a convergence warning is emitted.
	TemperatureTol float64

	// PressureTol is the absolute deviation (bar) from the stage's barostat
	// target above which a convergence warning is emitted. Instantaneous
	// virial pressure fluctuates heavily in small systems, so this band is
	// advisory only.
	PressureTol float64
}

const (
	defaultMaxVolumeRatio = 5.0
	defaultTemperatureTol = 0.25
	defaultPressureTol    = 500.0
)

// Monitor validates post-stage state. Non-finite energies and volume
// collapse/explosion are hard failures; slow thermostat or barostat
// convergence only produces warnings. The only state a Monitor keeps is the
// initial-volume reference, captured at the first check of each run.
type Monitor struct {
	cfg           MonitorConfig
	initialVolume float64
	primed        bool
}

// NewMonitor builds a monitor, filling zero config fields with defaults.
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.MaxVolumeRatio <= 0 {
		cfg.MaxVolumeRatio = defaultMaxVolumeRatio
	}
	if cfg.TemperatureTol <= 0 {
		cfg.TemperatureTol = defaultTemperatureTol
	}
	if cfg.PressureTol <= 0 {
		cfg.PressureTol = defaultPressureTol
	}
	return &Monitor{cfg: cfg}
}

// Reset drops the initial-volume reference ahead of a new run.
func (m *Monitor) Reset() {
	m.initialVolume = 0
	m.primed = false
}

// Check validates the readback taken after a stage completed. It returns
// advisory warnings and, on a hard violation, a *md.DivergenceError.
func (m *Monitor) Check(stage schedule.Stage, s md.State) ([]string, error) {
	if !s.Finite() {
		return nil, &md.DivergenceError{
			Stage:  stage.Index,
			Name:   stage.Name,
			Reason: fmt.Sprintf("non-finite energy (potential=%g, kinetic=%g)", s.PotentialEnergy, s.KineticEnergy),
			State:  s,
		}
	}

	if s.Volume <= 0 || math.IsNaN(s.Volume) || math.IsInf(s.Volume, 0) {
		return nil, &md.DivergenceError{
			Stage:  stage.Index,
			Name:   stage.Name,
			Reason: fmt.Sprintf("non-finite or non-positive volume %g", s.Volume),
			State:  s,
		}
	}

	if !m.primed {
		m.initialVolume = s.Volume
		m.primed = true
	} else if s.Volume > m.cfg.MaxVolumeRatio*m.initialVolume {
		return nil, &md.DivergenceError{
			Stage:  stage.Index,
			Name:   stage.Name,
			Reason: fmt.Sprintf("volume %g exceeds %gx initial volume %g", s.Volume, m.cfg.MaxVolumeRatio, m.initialVolume),
			State:  s,
		}
	}

	var warnings []string
	if dev := math.Abs(s.Temperature-stage.Temperature) / stage.Temperature; dev > m.cfg.TemperatureTol {
		warnings = append(warnings, fmt.Sprintf(
			"temperature %.1f K is %.0f%% off target %.1f K", s.Temperature, dev*100, stage.Temperature))
	}
	if stage.BarostatEnabled() {
		if dev := math.Abs(s.Pressure - stage.Pressure); dev > m.cfg.PressureTol {
			warnings = append(warnings, fmt.Sprintf(
				"pressure %.1f bar is %.1f bar off target %.1f bar", s.Pressure, dev, stage.Pressure))
		}
	}
	return warnings, nil
}
