package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// embedServer fakes the embedding server: it returns one zero vector of
// the requested width per input and records batch sizes.
func embedServer(t *testing.T, dim int, batches *[]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if batches != nil {
			*batches = append(*batches, len(req.Inputs))
		}
		vectors := make([][]float32, len(req.Inputs))
		for i := range vectors {
			vectors[i] = make([]float32, dim)
		}
		require.NoError(t, json.NewEncoder(w).Encode(vectors))
	}))
}

func TestRemoteProvider_EmbedDocuments(t *testing.T) {
	srv := embedServer(t, 384, nil)
	defer srv.Close()

	p, err := NewProvider(Config{Provider: "remote", BaseURL: srv.URL})
	require.NoError(t, err)
	defer p.Close()

	vectors, err := p.EmbedDocuments(context.Background(), []string{"func a() {}", "func b() {}"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	require.Len(t, vectors[0], 384)
}

func TestRemoteProvider_SplitsLargeBatches(t *testing.T) {
	var batches []int
	srv := embedServer(t, 384, &batches)
	defer srv.Close()

	p, err := NewProvider(Config{Provider: "remote", BaseURL: srv.URL})
	require.NoError(t, err)
	defer p.Close()

	texts := make([]string, remoteBatchSize+5)
	for i := range texts {
		texts[i] = "chunk"
	}
	vectors, err := p.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, remoteBatchSize+5)
	require.Equal(t, []int{remoteBatchSize, 5}, batches)
}

func TestRemoteProvider_DimensionMismatch(t *testing.T) {
	srv := embedServer(t, 768, nil)
	defer srv.Close()

	p, err := NewProvider(Config{Provider: "remote", BaseURL: srv.URL})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.EmbedQuery(context.Background(), "connection pooling")
	require.ErrorIs(t, err, ErrEmbedFailed)
}

func TestRemoteProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := NewProvider(Config{Provider: "remote", BaseURL: srv.URL})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.EmbedQuery(context.Background(), "anything")
	require.ErrorIs(t, err, ErrEmbedFailed)
}

func TestRemoteProvider_EmptyInput(t *testing.T) {
	p, err := NewProvider(Config{Provider: "remote", BaseURL: "http://localhost:9"})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.EmbedDocuments(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyInput)
	_, err = p.EmbedQuery(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyInput)
}
