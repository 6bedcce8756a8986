package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParameterSetConfig describes one [parameters] block of altar.yaml:
// a named, contiguous column range governed by one prior distribution.
type ParameterSetConfig struct {
	Name   string         `yaml:"name"`
	Count  int            `yaml:"count"`
	Prior  string         `yaml:"prior"`
	Prep   string         `yaml:"prep"`
	Bounds map[string]any `yaml:"bounds"`
}

// ModelConfig selects the concrete Model and its parameter sets.
// Observed/Sigma configure a "gaussian1d" model; Data names a CSV file
// of "y,x1,x2,...,sigma" rows for a "linear" model.
type ModelConfig struct {
	Kind       string               `yaml:"kind"`
	Parameters []ParameterSetConfig `yaml:"parameters"`
	Observed   float64              `yaml:"observed"`
	Sigma      float64              `yaml:"sigma"`
	Data       string               `yaml:"data"`
}

// SamplerConfig configures the Metropolis sampler.
type SamplerConfig struct {
	Kind             string  `yaml:"kind"`
	Steps            int     `yaml:"steps"`
	Scaling          float64 `yaml:"scaling"`
	AcceptanceWeight float64 `yaml:"acceptance_weight"`
	RejectionWeight  float64 `yaml:"rejection_weight"`
}

// SchedulerConfig configures the COV scheduler.
type SchedulerConfig struct {
	Kind      string  `yaml:"kind"`
	Target    float64 `yaml:"target"`
	Tolerance float64 `yaml:"tolerance"`
	MaxIter   int     `yaml:"maxiter"`
}

// JobConfig mirrors AlTar's job.mode/hosts/tasks/gpus machine-layout
// parameters, which select the worker hierarchy.
type JobConfig struct {
	Mode  string `yaml:"mode"`
	Hosts int    `yaml:"hosts"`
	Tasks int    `yaml:"tasks"`
	Gpus  int    `yaml:"gpus"`
}

// ArchiverConfig configures persisted output.
type ArchiverConfig struct {
	Dir         string `yaml:"dir"`
	Checkpoints bool   `yaml:"checkpoints"`
}

// Config is the top-level altar.yaml structure. Every section must be
// listed here to satisfy strict-field YAML decoding: a typo'd key is a
// configuration error, not a silently ignored one.
type Config struct {
	Seed      int64           `yaml:"seed"`
	Samples   int             `yaml:"samples"`
	Tolerance float64         `yaml:"tolerance"`
	LogLevel  string          `yaml:"log"`
	Model     ModelConfig     `yaml:"model"`
	Sampler   SamplerConfig   `yaml:"sampler"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Job       JobConfig       `yaml:"job"`
	Archiver  ArchiverConfig  `yaml:"archiver"`
}

// defaultConfig uses the same values the sampler/scheduler packages
// fall back to when an option is absent from their options map.
func defaultConfig() Config {
	return Config{
		Seed:      1,
		Samples:   1000,
		Tolerance: 1e-3,
		LogLevel:  "info",
		Sampler: SamplerConfig{
			Kind: "metropolis", Steps: 20, Scaling: 0.1,
			AcceptanceWeight: 8, RejectionWeight: 1,
		},
		Scheduler: SchedulerConfig{Kind: "cov", Target: 1.0, Tolerance: 0.01, MaxIter: 1000},
		Job:       JobConfig{Mode: "", Hosts: 1, Tasks: 1, Gpus: 0},
		Archiver:  ArchiverConfig{Dir: "results"},
	}
}

// loadConfig reads and strictly parses path into Config, starting from
// defaultConfig() so unset sections keep their defaults. A stray
// top-level key in the YAML is a Configuration error: strict field
// checking means a typo'd key fails loudly instead of being silently
// ignored.
func loadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cmd: reading %s: %w", path, err)
	}
	cfg := defaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("cmd: parsing %s: %w", path, err)
	}
	return cfg, nil
}
