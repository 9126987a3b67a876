package app

import (
	"errors"
	"fmt"
)

// Phase values accepted by Config.Phase.
const (
	PhaseAll        = "all"
	PhaseInitialize = "initialize"
	PhaseRuntime    = "runtime"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // launcher .hcl file or directory
	ParamsPath string // parameter values, .hcl or .json

	Phase  string
	Volume string // storage claim for PhaseRuntime

	PrintSchema    bool
	InitParamsPath string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Phase == "" {
		cfg.Phase = PhaseAll
	}

	// Schema and template output need nothing else.
	if cfg.PrintSchema || cfg.InitParamsPath != "" {
		return &cfg, nil
	}

	switch cfg.Phase {
	case PhaseAll, PhaseRuntime:
		if cfg.ParamsPath == "" {
			return nil, errors.New("a parameters file is required")
		}
	case PhaseInitialize:
	default:
		return nil, fmt.Errorf("invalid phase %q: must be 'all', 'initialize' or 'runtime'", cfg.Phase)
	}

	if cfg.Phase == PhaseRuntime && cfg.Volume == "" {
		return nil, errors.New("-volume is required for the runtime phase")
	}
	if cfg.Phase != PhaseRuntime && cfg.Volume != "" {
		return nil, errors.New("-volume is only valid for the runtime phase")
	}
	if cfg.HealthcheckPort < 0 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
