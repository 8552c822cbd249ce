package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Env holds the settings read from the process environment. They take
// precedence over command-line defaults but not over explicit flags.
type Env struct {
	ConfigPath   string `env:"MODGATE_CONFIG"`
	DataDir      string `env:"MODGATE_DATA_DIR"`
	LogLevel     string `env:"MODGATE_LOG_LEVEL"     envDefault:"info"`
	LogFormat    string `env:"MODGATE_LOG_FORMAT"    envDefault:"text"`
	OTelEndpoint string `env:"MODGATE_OTEL_ENDPOINT"`
}

// LoadEnv parses Env from the environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("config: parse env: %w", err)
	}
	return e, nil
}

// Level returns the slog level named by LogLevel.
func (e Env) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: MODGATE_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// JSONLogs reports whether LogFormat selects the JSON handler.
func (e Env) JSONLogs() bool {
	return strings.EqualFold(e.LogFormat, "json")
}
