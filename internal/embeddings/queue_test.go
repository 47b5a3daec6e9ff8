package embeddings

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// gateProvider counts concurrent calls and blocks each one until
// released, so tests can observe the queue's concurrency ceiling.
type gateProvider struct {
	release chan struct{}
	active  atomic.Int32
	peak    atomic.Int32
}

func newGateProvider() *gateProvider {
	return &gateProvider{release: make(chan struct{})}
}

func (g *gateProvider) enter(ctx context.Context) error {
	n := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gateProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := g.enter(ctx); err != nil {
		return nil, err
	}
	return make([][]float32, len(texts)), nil
}

func (g *gateProvider) EmbedQuery(ctx context.Context, _ string) ([]float32, error) {
	if err := g.enter(ctx); err != nil {
		return nil, err
	}
	return make([]float32, 384), nil
}

func (g *gateProvider) Dimension() int { return 384 }
func (g *gateProvider) Close() error   { return nil }

func TestThrottled_CapsConcurrency(t *testing.T) {
	gate := newGateProvider()
	throttled := NewThrottled(gate, 2)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := throttled.EmbedDocuments(context.Background(), []string{"x"}); err != nil {
				t.Error(err)
			}
		}()
	}

	// Let the callers pile up, then open the gate for everyone.
	time.Sleep(50 * time.Millisecond)
	close(gate.release)
	wg.Wait()

	require.LessOrEqual(t, gate.peak.Load(), int32(2), "no more than capacity calls may run at once")
}

func TestThrottled_BlockedCallerHonorsContext(t *testing.T) {
	gate := newGateProvider()
	throttled := NewThrottled(gate, 1)

	// Occupy the only slot.
	go func() {
		_, _ = throttled.EmbedQuery(context.Background(), "holder")
	}()
	require.Eventually(t, func() bool { return gate.active.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := throttled.EmbedQuery(ctx, "waiter")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(gate.release)
}

func TestThrottled_PassesThrough(t *testing.T) {
	gate := newGateProvider()
	close(gate.release)
	throttled := NewThrottled(gate, 4)

	vectors, err := throttled.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	require.Equal(t, 384, throttled.Dimension())
	require.NoError(t, throttled.Close())
}
