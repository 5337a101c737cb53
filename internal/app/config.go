package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // hcl file with the client block

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	PrintEvents     []string
	// ConnectTimeout overrides the timeout option of the client block when
	// positive.
	ConnectTimeout time.Duration
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.ConnectTimeout < 0 {
		return nil, errors.New("ConnectTimeout must not be negative")
	}
	return &cfg, nil
}
