package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// remoteBatchSize bounds how many chunk texts go into one HTTP request
// so a large file doesn't produce a single multi-megabyte call.
const remoteBatchSize = 64

// remoteProvider calls an HTTP embedding server (the
// text-embeddings-inference wire shape: POST /embed with {"inputs":
// [...]}, response [[f32...]...]). Rune uses it when inference is
// centralized instead of running the model in-process.
type remoteProvider struct {
	base      *url.URL
	client    *http.Client
	dimension int
}

func newRemoteProvider(cfg Config) (Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: remote provider requires base_url", ErrInvalidConfig)
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base_url: %v", ErrInvalidConfig, err)
	}

	return &remoteProvider{
		base:      base,
		client:    &http.Client{Timeout: 30 * time.Second},
		dimension: ModelDimension(cfg.Model),
	}, nil
}

type embedRequest struct {
	Inputs []string `json:"inputs"`
}

// EmbedDocuments embeds chunk contents in bounded batches, preserving
// input order across batches.
func (p *remoteProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += remoteBatchSize {
		end := start + remoteBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := p.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (p *remoteProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	vectors, err := p.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *remoteProvider) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Inputs: inputs})
	if err != nil {
		return nil, err
	}

	endpoint := p.base.JoinPath("embed").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: server returned %s: %s", ErrEmbedFailed, resp.Status, bytes.TrimSpace(detail))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrEmbedFailed, err)
	}
	if len(vectors) != len(inputs) {
		return nil, fmt.Errorf("%w: got %d vectors for %d inputs", ErrEmbedFailed, len(vectors), len(inputs))
	}
	for _, v := range vectors {
		if len(v) != p.dimension {
			return nil, fmt.Errorf("%w: got %d-dim vector, expected %d", ErrEmbedFailed, len(v), p.dimension)
		}
	}
	return vectors, nil
}

func (p *remoteProvider) Dimension() int {
	return p.dimension
}

// Close is a no-op; the HTTP client holds no per-provider resources.
func (p *remoteProvider) Close() error {
	return nil
}

var _ Provider = (*remoteProvider)(nil)
