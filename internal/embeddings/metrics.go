package embeddings

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/coderune/rune/internal/embeddings"

// Metrics instruments a Provider: per-call latency split by path
// (chunks vs query), batch sizes, and failures. Wrap the innermost
// provider so queue wait time is excluded from inference latency.
type Metrics struct {
	provider Provider

	duration metric.Float64Histogram
	batch    metric.Int64Histogram
	failures metric.Int64Counter
}

// NewMetrics wraps provider with OpenTelemetry instrumentation.
func NewMetrics(provider Provider) (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram("rune.embeddings.duration_seconds",
		metric.WithDescription("Embedding inference latency"))
	if err != nil {
		return nil, err
	}
	batch, err := meter.Int64Histogram("rune.embeddings.batch_size",
		metric.WithDescription("Chunk texts per EmbedDocuments call"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("rune.embeddings.failures_total",
		metric.WithDescription("Embedding calls that returned an error"))
	if err != nil {
		return nil, err
	}

	return &Metrics{provider: provider, duration: duration, batch: batch, failures: failures}, nil
}

func (m *Metrics) record(ctx context.Context, path string, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("path", path))
	m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.failures.Add(ctx, 1, attrs)
	}
}

func (m *Metrics) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	m.batch.Record(ctx, int64(len(texts)))
	vectors, err := m.provider.EmbedDocuments(ctx, texts)
	m.record(ctx, "chunks", start, err)
	return vectors, err
}

func (m *Metrics) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vector, err := m.provider.EmbedQuery(ctx, text)
	m.record(ctx, "query", start, err)
	return vector, err
}

func (m *Metrics) Dimension() int {
	return m.provider.Dimension()
}

func (m *Metrics) Close() error {
	return m.provider.Close()
}

var _ Provider = (*Metrics)(nil)
