package config

import "sort"

var Presets = map[string]*Config{
	// The published protocol parameters.
	"reference": {
		MaxPressure: 50_000, BarostatFrequency: 50, StepScale: 1,
		Engine: EngineConfig{Particles: DefaultParticles, Density: DefaultDensity},
	},
	// Lower peak pressure and slower barostat for fragile structures.
	"gentle": {
		MaxPressure: 10_000, BarostatFrequency: 100, StepScale: 1,
		Monitor: MonitorConfig{TemperatureTol: 0.4},
		Engine:  EngineConfig{Particles: DefaultParticles, Density: DefaultDensity},
	},
	// Harder compression, more frequent volume moves.
	"aggressive": {
		MaxPressure: 100_000, BarostatFrequency: 25, StepScale: 1,
		Engine: EngineConfig{Particles: DefaultParticles, Density: DefaultDensity},
	},
	// Heavily shortened stages on a small box, for quick demos.
	"smoke": {
		MaxPressure: 5_000, BarostatFrequency: 10, StepScale: 500,
		Engine: EngineConfig{Particles: 32, Density: DefaultDensity, Seed: 42},
	},
}

func GetPreset(name string) *Config {
	return Presets[name]
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
