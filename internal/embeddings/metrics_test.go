package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// staticProvider returns fixed vectors, failing on demand.
type staticProvider struct {
	fail bool
}

func (s staticProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if s.fail {
		return nil, ErrEmbedFailed
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, 384)
	}
	return out, nil
}

func (s staticProvider) EmbedQuery(context.Context, string) ([]float32, error) {
	if s.fail {
		return nil, ErrEmbedFailed
	}
	return make([]float32, 384), nil
}

func (staticProvider) Dimension() int { return 384 }
func (staticProvider) Close() error   { return nil }

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestMetrics_RecordsBatchesAndDuration(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	m, err := NewMetrics(staticProvider{})
	require.NoError(t, err)

	_, err = m.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	_, err = m.EmbedQuery(context.Background(), "pool")
	require.NoError(t, err)

	collected := collectMetrics(t, reader)
	require.Contains(t, collected, "rune.embeddings.duration_seconds")

	batch, ok := collected["rune.embeddings.batch_size"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, batch.DataPoints, 1)
	require.EqualValues(t, 3, batch.DataPoints[0].Sum)
}

func TestMetrics_CountsFailures(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	m, err := NewMetrics(staticProvider{fail: true})
	require.NoError(t, err)

	_, err = m.EmbedQuery(context.Background(), "pool")
	require.ErrorIs(t, err, ErrEmbedFailed)

	collected := collectMetrics(t, reader)
	failures, ok := collected["rune.embeddings.failures_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, failures.DataPoints, 1)
	require.EqualValues(t, 1, failures.DataPoints[0].Value)
}
