package vectorstore

import (
	"github.com/coderune/rune/internal/config"
)

// NewStoreFromConfig builds a QdrantStore from the engine's configuration.
func NewStoreFromConfig(cfg config.QdrantConfig) (*QdrantStore, error) {
	return NewQdrantStore(QdrantConfig{
		Host:                    cfg.Host,
		Port:                    cfg.Port,
		APIKey:                  cfg.APIKey.Value(),
		UseTLS:                  cfg.UseTLS,
		MaxRetries:              cfg.MaxRetries,
		RetryBackoff:            cfg.RetryBackoff.Duration(),
		CircuitBreakerThreshold: int32(cfg.CircuitBreaker),
	})
}
