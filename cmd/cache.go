package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zpam/playtennis/pkg/cache"
	"github.com/zpam/playtennis/pkg/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Prediction cache management",
	Long:  `Inspect and clear the shared prediction cache`,
}

var cacheResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every cached prediction",
	Long: `Delete every prediction stored under the configured Redis key prefix.

Only the redis backend outlives the process; the memory backend is empty
on every start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		r, err := openRedisCache(cfg.Cache)
		if err != nil {
			return err
		}
		defer r.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset cache: %w", err)
		}

		fmt.Printf("🗑️  Cleared cached predictions under %s:*\n", cfg.Cache.Redis.KeyPrefix)
		return nil
	},
}

// openRedisCache connects to the configured Redis cache, refusing other backends
func openRedisCache(cfg config.CacheConfig) (*cache.Redis, error) {
	if cfg.Backend != "redis" {
		return nil, fmt.Errorf("cache backend is %q: only the redis backend persists predictions", cfg.Backend)
	}

	ttl, err := cfg.TTLDuration()
	if err != nil {
		return nil, err
	}
	return cache.NewRedis(&cache.RedisConfig{
		RedisURL:    cfg.Redis.RedisURL,
		KeyPrefix:   cfg.Redis.KeyPrefix,
		DatabaseNum: cfg.Redis.DatabaseNum,
		TTL:         ttl,
	})
}

func init() {
	cacheCmd.AddCommand(cacheResetCmd)
}
