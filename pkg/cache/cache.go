// Package cache stores prediction results keyed by model and query.
//
// Predictions are pure functions of the model and the sample, so a cached
// result never goes stale while the model fingerprint is part of the key.
package cache

import (
	"context"
	"fmt"

	"github.com/zpam/playtennis/pkg/bayes"
	"github.com/zpam/playtennis/pkg/config"
)

// PredictionCache stores predictions by key
type PredictionCache interface {
	Get(ctx context.Context, key string) (bayes.Prediction, bool, error)
	Set(ctx context.Context, key string, pred bayes.Prediction) error
	Close() error
}

// New creates the cache selected by cfg.Backend; "none" returns nil
func New(cfg config.CacheConfig) (PredictionCache, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		m, err := NewMemory(cfg.Size)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "redis":
		ttl, err := cfg.TTLDuration()
		if err != nil {
			return nil, err
		}
		r, err := NewRedis(&RedisConfig{
			RedisURL:    cfg.Redis.RedisURL,
			KeyPrefix:   cfg.Redis.KeyPrefix,
			DatabaseNum: cfg.Redis.DatabaseNum,
			TTL:         ttl,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
