package app

import "errors"

// Config holds everything an App instance needs to run one pipeline.
type Config struct {
	PipelinePath string

	// Event and Ref describe the trigger the run is reacting to.
	Event string
	Ref   string

	// Params are externally supplied key=value parameters, e.g. a split
	// fraction handed to sharded test jobs.
	Params map[string]string

	LogFormat string
	LogLevel  string
	Workers   int

	// DryRun builds and reports the execution plan without running leaves.
	DryRun bool
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.Event == "" {
		cfg.Event = "push"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &cfg, nil
}
