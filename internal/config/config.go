package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxPressure       = 50_000.0
	DefaultBarostatFrequency = 50
	DefaultParticles         = 108
	DefaultDensity           = 0.6
)

// Config gathers everything a protocol run needs: the driving parameters,
// the divergence monitor bands, and the built-in engine setup.
type Config struct {
	MaxPressure       float64       `yaml:"max_pressure"`
	BarostatFrequency int           `yaml:"barostat_frequency"`
	StepScale         int           `yaml:"step_scale"`
	Monitor           MonitorConfig `yaml:"monitor"`
	Engine            EngineConfig  `yaml:"engine"`
}

// MonitorConfig mirrors protocol.MonitorConfig; zero fields fall back to the
// monitor defaults.
type MonitorConfig struct {
	MaxVolumeRatio float64 `yaml:"max_volume_ratio"`
	TemperatureTol float64 `yaml:"temperature_tol"`
	PressureTol    float64 `yaml:"pressure_tol"`
}

// EngineConfig parameterizes the built-in Lennard-Jones engine.
type EngineConfig struct {
	Particles  int     `yaml:"particles"`
	Density    float64 `yaml:"density"`
	Sigma      float64 `yaml:"sigma"`
	Epsilon    float64 `yaml:"epsilon"`
	Cutoff     float64 `yaml:"cutoff"`
	TimestepPs float64 `yaml:"timestep_ps"`
	TauPs      float64 `yaml:"tau_ps"`
	Seed       int64   `yaml:"seed"`
}

func DefaultConfig() *Config {
	return &Config{
		MaxPressure:       DefaultMaxPressure,
		BarostatFrequency: DefaultBarostatFrequency,
		StepScale:         1,
		Engine: EngineConfig{
			Particles: DefaultParticles,
			Density:   DefaultDensity,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
