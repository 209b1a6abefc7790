package protocol

import (
	"log/slog"

	"github.com/kvasudev/eqmd/internal/md"
	"github.com/kvasudev/eqmd/internal/schedule"
)

// Observer receives stage boundary and failure events. Callbacks run on the
// Run goroutine between engine calls; implementations must not block.
type Observer interface {
	OnStageStart(stage schedule.Stage)
	OnStageEnd(stage schedule.Stage, state md.State)
	OnFailure(stageIndex int, err error)
}

// LogObserver reports protocol progress through a structured logger.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) OnStageStart(stage schedule.Stage) {
	attrs := []any{
		"stage", stage.Index,
		"name", stage.Name,
		"ensemble", stage.Ensemble.String(),
		"temperature_k", stage.Temperature,
		"steps", stage.DurationSteps,
	}
	if stage.BarostatEnabled() {
		attrs = append(attrs, "pressure_bar", stage.Pressure)
	}
	o.Logger.Info("stage start", attrs...)
}

func (o LogObserver) OnStageEnd(stage schedule.Stage, state md.State) {
	o.Logger.Info("stage end",
		"stage", stage.Index,
		"name", stage.Name,
		"temperature_k", state.Temperature,
		"pressure_bar", state.Pressure,
		"volume", state.Volume,
		"potential_energy", state.PotentialEnergy,
		"kinetic_energy", state.KineticEnergy,
	)
}

func (o LogObserver) OnFailure(stageIndex int, err error) {
	o.Logger.Error("protocol failed", "stage", stageIndex, "err", err)
}
