// Package predictor ties the dataset, the trained model and the optional
// result cache together behind one Predict call.
package predictor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zpam/playtennis/pkg/bayes"
	"github.com/zpam/playtennis/pkg/cache"
	"github.com/zpam/playtennis/pkg/config"
	"github.com/zpam/playtennis/pkg/dataset"
)

// Predictor answers queries against an immutable model
type Predictor struct {
	model       *bayes.Model
	dataset     *dataset.Dataset
	cache       cache.PredictionCache
	logger      *zap.Logger
	fingerprint string
}

// New creates a predictor. c may be nil to disable caching.
func New(model *bayes.Model, ds *dataset.Dataset, c cache.PredictionCache, logger *zap.Logger) *Predictor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Predictor{
		model:       model,
		dataset:     ds,
		cache:       c,
		logger:      logger,
		fingerprint: ds.Fingerprint(),
	}
}

// Load reads the dataset named by cfg, builds the model and opens the
// configured cache
func Load(cfg *config.Config, logger *zap.Logger) (*Predictor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	start := time.Now()
	ds, err := dataset.Load(cfg.Dataset.Path, cfg.Dataset.Label, cfg.Dataset.Features)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	model, err := bayes.NewModel(ds, bayes.WithFloor(cfg.Model.Floor))
	if err != nil {
		return nil, fmt.Errorf("failed to build model: %w", err)
	}

	c, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	logger.Info("model built",
		zap.String("dataset", cfg.Dataset.Path),
		zap.Int("rows", ds.Len()),
		zap.Strings("features", model.Features()),
		zap.Strings("labels", model.Labels()),
		zap.Float64("floor", model.Floor()),
		zap.String("cache", cfg.Cache.Backend),
		zap.Duration("elapsed", time.Since(start)),
	)

	return New(model, ds, c, logger), nil
}

// Predict classifies sample, consulting the cache first when one is set.
// Cache failures are logged and the engine result is returned regardless.
func (p *Predictor) Predict(ctx context.Context, sample bayes.Sample) (bayes.Prediction, error) {
	if p.cache == nil {
		return p.model.Predict(sample)
	}

	// Only well-formed samples reach the cache
	if err := p.model.Check(sample); err != nil {
		return bayes.Prediction{}, err
	}

	key := p.cacheKey(sample)
	if pred, ok, err := p.cache.Get(ctx, key); err != nil {
		p.logger.Warn("cache read failed", zap.Error(err))
	} else if ok {
		p.logger.Debug("cache hit", zap.String("key", key))
		return pred, nil
	}

	pred, err := p.model.Predict(sample)
	if err != nil {
		return bayes.Prediction{}, err
	}

	if err := p.cache.Set(ctx, key, pred); err != nil {
		p.logger.Warn("cache write failed", zap.Error(err))
	}
	return pred, nil
}

// Model returns the trained model
func (p *Predictor) Model() *bayes.Model {
	return p.model
}

// Dataset returns the training data
func (p *Predictor) Dataset() *dataset.Dataset {
	return p.dataset
}

// Close releases the cache
func (p *Predictor) Close() error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Close()
}

// cacheKey encodes a checked sample. Values are length-prefixed so no
// value can forge another feature's entry.
func (p *Predictor) cacheKey(sample bayes.Sample) string {
	var b strings.Builder
	b.WriteString(p.fingerprint)
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(p.model.Floor(), 'g', -1, 64))
	for _, f := range p.model.Features() {
		v := sample[f]
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}
