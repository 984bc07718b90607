package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/zpam/playtennis/pkg/bayes"
)

// Memory is an in-process LRU cache
type Memory struct {
	entries *lru.Cache[string, bayes.Prediction]
}

// NewMemory creates an LRU cache holding up to size predictions
func NewMemory(size int) (*Memory, error) {
	entries, err := lru.New[string, bayes.Prediction](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &Memory{entries: entries}, nil
}

// Get returns a cached prediction
func (m *Memory) Get(_ context.Context, key string) (bayes.Prediction, bool, error) {
	pred, ok := m.entries.Get(key)
	return pred, ok, nil
}

// Set stores a prediction, evicting the least recently used entry when full
func (m *Memory) Set(_ context.Context, key string, pred bayes.Prediction) error {
	m.entries.Add(key, pred)
	return nil
}

// Len returns the number of cached predictions
func (m *Memory) Len() int {
	return m.entries.Len()
}

// Close drops every entry
func (m *Memory) Close() error {
	m.entries.Purge()
	return nil
}

var _ PredictionCache = (*Memory)(nil)
