package watcher

import (
	"context"
	"sync"
)

// Dispatch fans Events out to a fixed pool of workers calling handle,
// bounding how many reindex/remove operations run concurrently
// regardless of how fast the filesystem produces notifications. It
// blocks until events is closed and every in-flight handle call returns,
// or ctx is canceled.
func Dispatch(ctx context.Context, events <-chan Event, workers int, handle func(context.Context, Event)) {
	if workers <= 0 {
		workers = 4
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-events:
					if !ok {
						return
					}
					handle(ctx, ev)
				}
			}
		}()
	}
	wg.Wait()
}
