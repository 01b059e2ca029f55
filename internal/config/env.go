// internal/config/env.go
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Env holds settings taken from the process environment.
type Env struct {
	ConfigPath string `env:"SIMPLY_CONFIG" envDefault:"simply.yaml"`
	LogLevel   string `env:"SIMPLY_LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"SIMPLY_LOG_FORMAT" envDefault:"text"`
}

// LoadEnv parses the environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("config: env: %w", err)
	}
	return e, nil
}
