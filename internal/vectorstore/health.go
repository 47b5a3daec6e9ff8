package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// HealthMonitor periodically pings the vector store and notifies
// subscribers when its health status changes. The Engine uses this to
// drive the `degraded` flag surfaced by `stats` and to
// trigger reconnection attempts in the background.
type HealthMonitor struct {
	ping          func(ctx context.Context) error
	healthy       atomic.Bool
	lastCheck     atomic.Value // time.Time
	checkInterval time.Duration

	mu        sync.RWMutex
	callbacks []func(healthy bool)

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewHealthMonitor creates a monitor that calls ping on checkInterval.
func NewHealthMonitor(ctx context.Context, ping func(ctx context.Context) error, checkInterval time.Duration, logger *zap.Logger) *HealthMonitor {
	ctx, cancel := context.WithCancel(ctx)
	hm := &HealthMonitor{
		ping:          ping,
		checkInterval: checkInterval,
		ctx:           ctx,
		cancel:        cancel,
		logger:        logger,
	}
	hm.healthy.Store(ping(ctx) == nil)
	hm.lastCheck.Store(time.Now())
	return hm
}

// Start begins periodic health checking in the background.
func (hm *HealthMonitor) Start() {
	go hm.loop()
}

func (hm *HealthMonitor) loop() {
	ticker := time.NewTicker(hm.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-hm.ctx.Done():
			return
		case <-ticker.C:
			hm.check()
		}
	}
}

func (hm *HealthMonitor) check() {
	err := hm.ping(hm.ctx)
	healthy := err == nil
	was := hm.healthy.Swap(healthy)
	hm.lastCheck.Store(time.Now())
	if was != healthy {
		hm.logger.Info("vector store health changed", zap.Bool("healthy", healthy), zap.Bool("previous", was))
		hm.notify(healthy)
	}
}

// IsHealthy returns the most recently observed health status.
func (hm *HealthMonitor) IsHealthy() bool {
	return hm.healthy.Load()
}

// LastCheck returns the time of the last health check.
func (hm *HealthMonitor) LastCheck() time.Time {
	v := hm.lastCheck.Load()
	if v == nil {
		return time.Time{}
	}
	return v.(time.Time)
}

// RegisterCallback adds a callback invoked whenever health status flips.
func (hm *HealthMonitor) RegisterCallback(cb func(healthy bool)) error {
	if cb == nil {
		return fmt.Errorf("health: callback cannot be nil")
	}
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.callbacks = append(hm.callbacks, cb)
	return nil
}

func (hm *HealthMonitor) notify(healthy bool) {
	hm.mu.RLock()
	callbacks := make([]func(bool), len(hm.callbacks))
	copy(callbacks, hm.callbacks)
	hm.mu.RUnlock()

	for _, cb := range callbacks {
		go func(callback func(bool)) {
			defer func() {
				if r := recover(); r != nil {
					hm.logger.Error("health callback panic", zap.Any("panic", r))
				}
			}()
			callback(healthy)
		}(cb)
	}
}

// Stop shuts down the monitor.
func (hm *HealthMonitor) Stop() {
	hm.cancel()
}
