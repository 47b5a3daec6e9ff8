// Package logging is rune's structured logging layer: zap with a JSON
// or console encoder, an optional OpenTelemetry bridge, and automatic
// injection of the engine's correlation fields (workspace, repository,
// request_id, trace ids) from the context. The Qdrant API key and
// similar credentials are redacted at the encoder so they cannot leak
// through a carelessly logged config struct.
package logging

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below Debug for wire-level noise: per-file pipeline
// steps, FTS query strings, raw watcher events. Filtered out everywhere
// but deep debugging sessions.
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a level name, accepting "trace" on top of
// zap's standard set.
func LevelFromString(level string) (zapcore.Level, error) {
	if level == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// Config controls the logger's level, encoding, sinks, sampling, and
// redaction.
type Config struct {
	Level  zapcore.Level `koanf:"level"`
	Format string        `koanf:"format"` // "json" or "console"

	// Output selects sinks. Stderr exists for stdio-transport
	// deployments, where stdout carries the protocol frames and must
	// stay clean.
	Output struct {
		Stdout bool `koanf:"stdout"`
		Stderr bool `koanf:"stderr"`
		OTEL   bool `koanf:"otel"`
	} `koanf:"output"`

	// Sampling caps repeated entries per second. It applies to entries
	// of every level; warnings and errors are not exempt.
	Sampling struct {
		Enabled    bool `koanf:"enabled"`
		Initial    int  `koanf:"initial"`
		Thereafter int  `koanf:"thereafter"`
	} `koanf:"sampling"`

	// Redaction drops secret values before encoding: any field whose
	// name matches Fields is replaced, and Patterns are scrubbed out of
	// string values.
	Redaction struct {
		Enabled  bool     `koanf:"enabled"`
		Fields   []string `koanf:"fields"`
		Patterns []string `koanf:"patterns"`
	} `koanf:"redaction"`
}

// NewDefaultConfig returns production defaults: JSON to stdout at Info,
// sampling on, redaction covering the credential field names rune's
// config can carry.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
	}
	cfg.Output.Stdout = true
	cfg.Sampling.Enabled = true
	cfg.Sampling.Initial = 100
	cfg.Sampling.Thereafter = 10
	cfg.Redaction.Enabled = true
	cfg.Redaction.Fields = []string{"api_key", "authorization", "token", "secret", "password"}
	cfg.Redaction.Patterns = []string{`(?i)bearer\s+\S+`, `(?i)api[_-]?key[=:]\s*\S+`}
	return cfg
}

// Validate rejects configs that would produce no output or fail at
// encode time.
func (c *Config) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("logging: format must be json or console, got %q", c.Format)
	}
	if !c.Output.Stdout && !c.Output.Stderr && !c.Output.OTEL {
		return fmt.Errorf("logging: no output sink enabled")
	}
	if c.Sampling.Enabled && c.Sampling.Initial <= 0 {
		return fmt.Errorf("logging: sampling.initial must be positive when sampling is enabled")
	}
	return nil
}
