package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds process-level settings read from the environment. Command-line
// flags override these; the tuning file is separate (see Tuning).
type Env struct {
	Listen   string `env:"MUDRA_LISTEN" envDefault:":8090"`
	DBPath   string `env:"MUDRA_DB"`
	Tuning   string `env:"MUDRA_CONFIG"`
	Tracker  string `env:"MUDRA_TRACKER"`
	Injector string `env:"MUDRA_INJECTOR"`
	Verbose  bool   `env:"MUDRA_VERBOSE"`
}

// ParseEnv loads Env from environment variables.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}
