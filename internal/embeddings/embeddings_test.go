package embeddings

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModelDimension(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"BAAI/bge-small-en-v1.5", 384},
		{"BAAI/bge-base-en-v1.5", 768},
		{"sentence-transformers/all-MiniLM-L6-v2", 384},
		{"some-unknown-model", 384},
		{"", 384},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ModelDimension(tt.model), "model %q", tt.model)
	}
}

func TestNewProvider_UnknownProvider(t *testing.T) {
	_, err := NewProvider(Config{Provider: "onprem-gpu-farm"})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewProvider_RemoteRequiresBaseURL(t *testing.T) {
	_, err := NewProvider(Config{Provider: "remote"})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewProvider_RemoteDefaults(t *testing.T) {
	p, err := NewProvider(Config{Provider: "remote", BaseURL: "http://localhost:8080"})
	require.NoError(t, err)
	defer p.Close()
	require.Equal(t, 384, p.Dimension(), "default model is 384-dim")
}
