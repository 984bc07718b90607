package cache

import (
	"context"
	"crypto/sha1"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zpam/playtennis/pkg/bayes"
)

const (
	fieldLabel  = "label"
	fieldLabels = "labels"
	scorePrefix = "score:"
	labelSep    = "\x1f"
)

// RedisConfig holds Redis cache configuration
type RedisConfig struct {
	RedisURL    string        `json:"redis_url" yaml:"redis_url"`
	KeyPrefix   string        `json:"key_prefix" yaml:"key_prefix"`
	DatabaseNum int           `json:"database_num" yaml:"database_num"`
	TTL         time.Duration `json:"ttl" yaml:"ttl"`
}

// DefaultRedisConfig returns default Redis configuration
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		RedisURL:    "redis://localhost:6379",
		KeyPrefix:   "playtennis:predict",
		DatabaseNum: 0,
		TTL:         10 * time.Minute,
	}
}

// Redis shares cached predictions between processes. Each entry is a hash
// holding the predicted label, the label order and one score per label.
type Redis struct {
	client *redis.Client
	config *RedisConfig
}

// NewRedis connects to Redis and verifies the connection
func NewRedis(config *RedisConfig) (*Redis, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	opt, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	opt.DB = config.DatabaseNum
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Redis{client: client, config: config}, nil
}

// Get returns a cached prediction
func (r *Redis) Get(ctx context.Context, key string) (bayes.Prediction, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.entryKey(key)).Result()
	if err != nil {
		return bayes.Prediction{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if len(fields) == 0 {
		return bayes.Prediction{}, false, nil
	}

	labels := strings.Split(fields[fieldLabels], labelSep)
	scores := make(map[string]float64, len(labels))
	for _, l := range labels {
		raw, ok := fields[scorePrefix+l]
		if !ok {
			return bayes.Prediction{}, false, fmt.Errorf("corrupt cache entry %s: no score for %q", key, l)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return bayes.Prediction{}, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
		}
		scores[l] = v
	}

	return bayes.Prediction{
		Label:      fields[fieldLabel],
		Posteriors: bayes.NewPosterior(labels, scores),
	}, true, nil
}

// Set stores a prediction with the configured TTL
func (r *Redis) Set(ctx context.Context, key string, pred bayes.Prediction) error {
	labels := pred.Posteriors.Labels()
	values := make([]interface{}, 0, 4+2*len(labels))
	values = append(values, fieldLabel, pred.Label, fieldLabels, strings.Join(labels, labelSep))
	for _, l := range labels {
		s, _ := pred.Posteriors.Score(l)
		values = append(values, scorePrefix+l, strconv.FormatFloat(s, 'g', -1, 64))
	}

	entryKey := r.entryKey(key)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, entryKey)
	pipe.HSet(ctx, entryKey, values...)
	if r.config.TTL > 0 {
		pipe.Expire(ctx, entryKey, r.config.TTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Reset deletes every entry under the key prefix
func (r *Redis) Reset(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.config.KeyPrefix+":*", 1000).Iterator()

	pipe := r.client.Pipeline()
	count := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		count++
		if count >= 100 {
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
			pipe = r.client.Pipeline()
			count = 0
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if count > 0 {
		_, err := pipe.Exec(ctx)
		return err
	}
	return nil
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) entryKey(key string) string {
	// Hash long keys to keep key size manageable
	if len(key) > 64 {
		h := sha1.Sum([]byte(key))
		key = fmt.Sprintf("hash_%x", h)
	}
	return fmt.Sprintf("%s:%s", r.config.KeyPrefix, key)
}

var _ PredictionCache = (*Redis)(nil)
