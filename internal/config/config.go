// Package config reads the runtime configuration of the Lambda binaries from
// the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jacentio/docpointer/store"
)

// DefaultTimeout bounds each DynamoDB request when DYNAMODB_TIMEOUT is unset.
const DefaultTimeout = 3 * time.Second

var ErrInvalid = errors.New("docpointer: invalid configuration")

// Config is the process configuration.
type Config struct {
	Region      string
	Prefix      string
	Timeout     time.Duration
	Endpoint    string
	Environment string
	Source      string
	LogLevel    slog.Level
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := Config{
		Region:      get("AWS_REGION"),
		Prefix:      get("PREFIX"),
		Timeout:     DefaultTimeout,
		Endpoint:    get("DYNAMODB_ENDPOINT"),
		Environment: get("ENVIRONMENT"),
		Source:      get("SOURCE"),
		LogLevel:    slog.LevelInfo,
	}
	if cfg.Source == "" {
		cfg.Source = "NRLF"
	}

	if raw := get("DYNAMODB_TIMEOUT"); raw != "" {
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("%w: DYNAMODB_TIMEOUT %q must be a positive number of seconds", ErrInvalid, raw)
		}
		cfg.Timeout = time.Duration(seconds * float64(time.Second))
	}

	if raw := get("LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return Config{}, fmt.Errorf("%w: LOG_LEVEL %q: %w", ErrInvalid, raw, err)
		}
	}

	return cfg, nil
}

// Store returns the repository configuration, with the table name prefixed.
func (c Config) Store() store.Config {
	return store.WithPrefix(c.Prefix)
}

// Logger returns a JSON logger at the configured level, tagged with the
// environment.
func (c Config) Logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: c.LogLevel}))
	if c.Environment != "" {
		logger = logger.With("environment", c.Environment)
	}
	return logger
}
