package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	level, err := LevelFromString("trace")
	require.NoError(t, err)
	require.Equal(t, TraceLevel, level)

	level, err = LevelFromString("warn")
	require.NoError(t, err)
	require.Equal(t, zapcore.WarnLevel, level)

	_, err = LevelFromString("shouting")
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Format = "xml"
	require.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Output.Stdout = false
	require.Error(t, cfg.Validate(), "no sink enabled")

	cfg.Output.Stderr = true
	require.NoError(t, cfg.Validate())
}

func TestContextFields_CarryCorrelation(t *testing.T) {
	ctx := WithWorkspace(context.Background(), "/src/project")
	ctx = WithRepository(ctx, "project")
	ctx = WithRequestID(ctx, "req-42")

	tl := NewTestLogger()
	tl.Info(ctx, "search completed")

	entries := tl.FilterMessage("search completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "/src/project", fields["workspace"])
	require.Equal(t, "project", fields["repository"])
	require.Equal(t, "req-42", fields["request_id"])
}

func TestContextFields_EmptyContext(t *testing.T) {
	require.Empty(t, ContextFields(context.Background()))
}

func TestRedactingEncoder_DenyField(t *testing.T) {
	cfg := NewDefaultConfig()
	base := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	enc, err := newRedactingEncoder(base, cfg)
	require.NoError(t, err)

	buf, err := enc.(*redactingEncoder).EncodeEntry(zapcore.Entry{Message: "connecting"}, []zapcore.Field{
		zap.String("api_key", "qdrant-secret-123"),
		zap.String("host", "localhost"),
	})
	require.NoError(t, err)
	out := buf.String()
	require.NotContains(t, out, "qdrant-secret-123")
	require.Contains(t, out, redactedValue)
	require.Contains(t, out, "localhost")
}

func TestRedactingEncoder_PatternInValue(t *testing.T) {
	cfg := NewDefaultConfig()
	base := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	enc, err := newRedactingEncoder(base, cfg)
	require.NoError(t, err)

	buf, err := enc.(*redactingEncoder).EncodeEntry(zapcore.Entry{Message: "request"}, []zapcore.Field{
		zap.String("header", "Bearer abc123token"),
	})
	require.NoError(t, err)
	require.NotContains(t, buf.String(), "abc123token")
}

func TestRedactingEncoder_BadPattern(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Redaction.Patterns = []string{"(unclosed"}
	base := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	_, err := newRedactingEncoder(base, cfg)
	require.Error(t, err)
}

func TestLogger_NamedAndWith(t *testing.T) {
	tl := NewTestLogger()
	child := tl.Named("engine").With(zap.String("repository", "ws"))
	child.Warn(context.Background(), "vector store write failed")

	entries := tl.All()
	require.Len(t, entries, 1)
	require.Equal(t, "engine", entries[0].LoggerName)
	require.Equal(t, "ws", entries[0].ContextMap()["repository"])
}
