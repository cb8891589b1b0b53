package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// InputPath is an .hcl file or a directory of .hcl and .yaml files.
	InputPath string
	// OutputPath is the script file to write; empty writes to stdout.
	OutputPath string

	LogFormat string
	LogLevel  string
}

// NewConfig validates a configuration and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.InputPath == "" {
		return nil, errors.New("InputPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
