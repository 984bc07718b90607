// Package bayes estimates categorical Naive Bayes tables from a dataset and
// scores queries against them.
//
// Tables are built once and never mutated, so a Model may be shared by any
// number of goroutines without locking.
package bayes

import (
	"github.com/zpam/playtennis/pkg/dataset"
)

// DefaultFloor is the pseudo-probability used for unseen (value, label) pairs
const DefaultFloor = 1e-6

// PriorTable holds P(label) in label enumeration order
type PriorTable struct {
	labels []string
	probs  map[string]float64
}

// Labels returns the labels in enumeration order
func (p PriorTable) Labels() []string {
	return append([]string(nil), p.labels...)
}

// Prob returns the prior of a label
func (p PriorTable) Prob(label string) (float64, bool) {
	v, ok := p.probs[label]
	return v, ok
}

// Len returns the number of labels
func (p PriorTable) Len() int {
	return len(p.labels)
}

// Pair is a (feature value, label) key of a conditional table
type Pair struct {
	Value string
	Label string
}

// ConditionalTable maps (value, label) to P(feature=value | label).
// Pairs never observed are absent.
type ConditionalTable map[Pair]float64

// Conditionals holds one ConditionalTable per feature
type Conditionals map[string]ConditionalTable

// BuildPriors computes the relative frequency of every label
func BuildPriors(ds *dataset.Dataset) (PriorTable, error) {
	if ds == nil || ds.Len() == 0 {
		return PriorTable{}, &EmptyDatasetError{}
	}

	counts := make(map[string]int)
	var labels []string
	for i, row := range ds.Rows {
		if row.Label == "" {
			return PriorTable{}, &dataset.MalformedRowError{Row: i, Field: ds.LabelField}
		}
		if counts[row.Label] == 0 {
			labels = append(labels, row.Label)
		}
		counts[row.Label]++
	}

	total := float64(ds.Len())
	probs := make(map[string]float64, len(labels))
	for _, label := range labels {
		probs[label] = float64(counts[label]) / total
	}

	return PriorTable{labels: labels, probs: probs}, nil
}

// BuildConditionals computes P(value | label) for each feature, estimated
// within each label partition
func BuildConditionals(ds *dataset.Dataset, features []string) (Conditionals, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, &EmptyDatasetError{}
	}

	labelCounts := make(map[string]int)
	pairCounts := make(map[string]map[Pair]int, len(features))
	for _, f := range features {
		pairCounts[f] = make(map[Pair]int)
	}

	for i, row := range ds.Rows {
		if row.Label == "" {
			return nil, &dataset.MalformedRowError{Row: i, Field: ds.LabelField}
		}
		for _, f := range features {
			v, ok := row.Value(f)
			if !ok {
				return nil, &dataset.MalformedRowError{Row: i, Field: f}
			}
			pairCounts[f][Pair{Value: v, Label: row.Label}]++
		}
		labelCounts[row.Label]++
	}

	conds := make(Conditionals, len(features))
	for _, f := range features {
		table := make(ConditionalTable, len(pairCounts[f]))
		for pair, n := range pairCounts[f] {
			table[pair] = float64(n) / float64(labelCounts[pair.Label])
		}
		conds[f] = table
	}
	return conds, nil
}

// Option configures a Model
type Option func(*Model)

// WithFloor sets the probability substituted for unseen pairs
func WithFloor(floor float64) Option {
	return func(m *Model) {
		m.floor = floor
	}
}

// Model is an immutable prior and conditional table pair
type Model struct {
	features     []string
	priors       PriorTable
	conditionals Conditionals
	floor        float64

	rows        int
	labelCounts map[string]int
	domains     map[string][]string
}

// NewModel builds the tables for every feature of ds
func NewModel(ds *dataset.Dataset, opts ...Option) (*Model, error) {
	m := &Model{floor: DefaultFloor}
	for _, opt := range opts {
		opt(m)
	}
	if err := checkFloor(m.floor); err != nil {
		return nil, err
	}

	priors, err := BuildPriors(ds)
	if err != nil {
		return nil, err
	}
	conds, err := BuildConditionals(ds, ds.Features)
	if err != nil {
		return nil, err
	}

	m.features = append([]string(nil), ds.Features...)
	m.priors = priors
	m.conditionals = conds
	m.rows = ds.Len()
	m.labelCounts = make(map[string]int)
	for _, row := range ds.Rows {
		m.labelCounts[row.Label]++
	}
	m.domains = make(map[string][]string, len(m.features))
	for _, f := range m.features {
		m.domains[f] = ds.Domain(f)
	}
	return m, nil
}

// Features returns the feature names in dataset order
func (m *Model) Features() []string {
	return append([]string(nil), m.features...)
}

// Labels returns the class labels in enumeration order
func (m *Model) Labels() []string {
	return m.priors.Labels()
}

// Priors returns the prior table
func (m *Model) Priors() PriorTable {
	return m.priors
}

// Conditionals returns the conditional tables. Callers must not modify them.
func (m *Model) Conditionals() Conditionals {
	return m.conditionals
}

// Conditional looks up P(feature=value | label)
func (m *Model) Conditional(feature, value, label string) (float64, bool) {
	p, ok := m.conditionals[feature][Pair{Value: value, Label: label}]
	return p, ok
}

// Domain returns the observed values of a feature in first-seen order
func (m *Model) Domain(feature string) []string {
	return append([]string(nil), m.domains[feature]...)
}

// Floor returns the probability used for unseen pairs
func (m *Model) Floor() float64 {
	return m.floor
}

// Check reports the first schema mismatch between sample and the model,
// the same error Predict would return
func (m *Model) Check(sample Sample) error {
	_, err := checkSample(sample, m.conditionals)
	return err
}

// Predict scores sample with the model's own floor
func (m *Model) Predict(sample Sample) (Prediction, error) {
	return Predict(sample, m.priors, m.conditionals, m.floor)
}
