package embeddings

import "context"

// Throttled wraps a Provider with a bounded worker queue: at most
// capacity embedding calls run at once, and callers past capacity block
// until a slot frees rather than being dropped. The indexing pipeline's
// workers all funnel through one Throttled instance so a wide walk
// can't oversubscribe the model.
type Throttled struct {
	provider Provider
	slots    chan struct{}
}

// NewThrottled wraps provider with a queue of the given capacity.
func NewThrottled(provider Provider, capacity int) *Throttled {
	if capacity <= 0 {
		capacity = 1
	}
	return &Throttled{
		provider: provider,
		slots:    make(chan struct{}, capacity),
	}
}

func (t *Throttled) acquire(ctx context.Context) error {
	select {
	case t.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Throttled) release() {
	<-t.slots
}

// EmbedDocuments runs the wrapped call under a queue slot.
func (t *Throttled) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := t.acquire(ctx); err != nil {
		return nil, err
	}
	defer t.release()
	return t.provider.EmbedDocuments(ctx, texts)
}

// EmbedQuery runs the wrapped call under a queue slot. Search-path
// embeds share the same budget as indexing so a reindex storm can't
// starve queries of the model entirely, just delay them.
func (t *Throttled) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := t.acquire(ctx); err != nil {
		return nil, err
	}
	defer t.release()
	return t.provider.EmbedQuery(ctx, text)
}

func (t *Throttled) Dimension() int {
	return t.provider.Dimension()
}

func (t *Throttled) Close() error {
	return t.provider.Close()
}

var _ Provider = (*Throttled)(nil)
