package protocol

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kvasudev/eqmd/internal/md"
	"github.com/kvasudev/eqmd/internal/schedule"
)

// DefaultBarostatFrequency is the conventional number of integration steps
// between barostat volume-move attempts.
const DefaultBarostatFrequency = 50

// StageReport captures the engine readback at the end of one stage, plus any
// advisory convergence warnings from the monitor.
type StageReport struct {
	Stage    schedule.Stage
	State    md.State
	Warnings []string
}

// Result is the terminal record of one protocol run. CurrentStage is the
// index of the last stage that completed (0 if none did).
type Result struct {
	Status            md.Status
	CurrentStage      int
	MaxPressure       float64
	BarostatFrequency int
	Reports           []StageReport
}

// Runner executes the protocol against one engine binding. A Runner admits
// one Run at a time; a failed or cancelled run is never resumed. Restarting
// means a fresh simulation context and a fresh Runner.
type Runner struct {
	adapter     md.Adapter
	maxPressure float64
	stages      []schedule.Stage
	monitor     *Monitor
	observers   []Observer
	running     atomic.Bool
}

// Option configures a Runner at construction.
type Option func(*Runner)

// WithStages supplies a pre-built stage table instead of generating one.
func WithStages(stages []schedule.Stage) Option {
	return func(r *Runner) { r.stages = stages }
}

// WithMonitor replaces the default divergence monitor.
func WithMonitor(m *Monitor) Option {
	return func(r *Runner) { r.monitor = m }
}

// WithObserver registers an observer for stage and failure events.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, o) }
}

// New builds a Runner for the given engine binding and maximum pressure
// (bar). A non-positive maximum pressure is rejected before any engine
// interaction.
func New(adapter md.Adapter, maxPressureBar float64, opts ...Option) (*Runner, error) {
	if maxPressureBar <= 0 {
		return nil, fmt.Errorf("%w: got %g bar", md.ErrMaxPressure, maxPressureBar)
	}
	r := &Runner{
		adapter:     adapter,
		maxPressure: maxPressureBar,
		monitor:     NewMonitor(MonitorConfig{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes all 21 stages in order and returns the terminal result. The
// result is non-nil whenever execution started, including failed and
// cancelled runs. Cancellation is checked only between stages.
func (r *Runner) Run(ctx context.Context, barostatFrequency int) (*Result, error) {
	if barostatFrequency <= 0 {
		return nil, fmt.Errorf("%w: got %d", md.ErrBarostatFrequency, barostatFrequency)
	}
	if !r.running.CompareAndSwap(false, true) {
		return nil, md.ErrRunInProgress
	}
	defer r.running.Store(false)

	stages := r.stages
	if stages == nil {
		var err error
		stages, err = schedule.Build(r.maxPressure)
		if err != nil {
			return nil, err
		}
	}

	r.monitor.Reset()

	result := &Result{
		Status:            md.StatusRunning,
		MaxPressure:       r.maxPressure,
		BarostatFrequency: barostatFrequency,
		Reports:           make([]StageReport, 0, len(stages)),
	}

	for _, stage := range stages {
		select {
		case <-ctx.Done():
			result.Status = md.StatusCancelled
			return result, fmt.Errorf("protocol cancelled before stage %d (%s): %w",
				stage.Index, stage.Name, ctx.Err())
		default:
		}

		for _, o := range r.observers {
			o.OnStageStart(stage)
		}

		if err := r.adapter.SetTemperature(stage.Temperature); err != nil {
			return result, r.fail(result, stage, "set temperature", err)
		}

		if stage.BarostatEnabled() {
			if err := r.adapter.AttachBarostat(stage.Pressure, barostatFrequency); err != nil {
				return result, r.fail(result, stage, "attach barostat", err)
			}
		} else {
			if err := r.adapter.DetachBarostat(); err != nil {
				return result, r.fail(result, stage, "detach barostat", err)
			}
		}

		if err := r.adapter.Integrate(stage.DurationSteps); err != nil {
			return result, r.fail(result, stage, "integrate", err)
		}

		state, err := r.adapter.ReadState()
		if err != nil {
			return result, r.fail(result, stage, "read state", err)
		}

		warnings, err := r.monitor.Check(stage, state)
		if err != nil {
			result.Status = md.StatusFailed
			for _, o := range r.observers {
				o.OnFailure(stage.Index, err)
			}
			return result, err
		}

		result.Reports = append(result.Reports, StageReport{
			Stage:    stage,
			State:    state,
			Warnings: warnings,
		})
		result.CurrentStage = stage.Index

		for _, o := range r.observers {
			o.OnStageEnd(stage, state)
		}
	}

	result.Status = md.StatusCompleted
	return result, nil
}

// fail marks the run failed after an engine error and notifies observers.
func (r *Runner) fail(result *Result, stage schedule.Stage, op string, err error) error {
	result.Status = md.StatusFailed
	werr := &md.EngineError{Stage: stage.Index, Name: stage.Name, Op: op, Err: err}
	for _, o := range r.observers {
		o.OnFailure(stage.Index, werr)
	}
	return werr
}
