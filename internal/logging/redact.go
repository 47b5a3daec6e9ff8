package logging

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const redactedValue = "[REDACTED]"

// redactingEncoder wraps a zapcore.Encoder and scrubs credentials
// before they reach a sink: fields whose (lowercased) name is on the
// deny list are replaced wholesale, and deny patterns are cut out of
// every string value. config.Secret already self-redacts through its
// marshalers; this layer catches raw strings that bypass it.
type redactingEncoder struct {
	zapcore.Encoder
	denyFields   map[string]bool
	denyPatterns []*regexp.Regexp
}

func newRedactingEncoder(base zapcore.Encoder, cfg *Config) (zapcore.Encoder, error) {
	if !cfg.Redaction.Enabled {
		return base, nil
	}

	deny := make(map[string]bool, len(cfg.Redaction.Fields))
	for _, name := range cfg.Redaction.Fields {
		deny[strings.ToLower(name)] = true
	}

	patterns := make([]*regexp.Regexp, 0, len(cfg.Redaction.Patterns))
	for _, p := range cfg.Redaction.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("logging: redaction pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}

	return &redactingEncoder{Encoder: base, denyFields: deny, denyPatterns: patterns}, nil
}

// Clone must propagate the redaction rules; zap clones encoders when
// building child loggers.
func (r *redactingEncoder) Clone() zapcore.Encoder {
	return &redactingEncoder{
		Encoder:      r.Encoder.Clone(),
		denyFields:   r.denyFields,
		denyPatterns: r.denyPatterns,
	}
}

func (r *redactingEncoder) redactField(f zapcore.Field) zapcore.Field {
	if r.denyFields[strings.ToLower(f.Key)] {
		return zapcore.Field{Key: f.Key, Type: zapcore.StringType, String: redactedValue}
	}
	if f.Type == zapcore.StringType {
		scrubbed := f.String
		for _, re := range r.denyPatterns {
			scrubbed = re.ReplaceAllString(scrubbed, redactedValue)
		}
		if scrubbed != f.String {
			return zapcore.Field{Key: f.Key, Type: zapcore.StringType, String: scrubbed}
		}
	}
	return f
}

// EncodeEntry applies the redaction rules to every field of the entry.
func (r *redactingEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	clean := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		clean[i] = r.redactField(f)
	}
	return r.Encoder.EncodeEntry(entry, clean)
}
