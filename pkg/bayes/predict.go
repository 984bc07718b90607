package bayes

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Sample maps each feature name to the value being classified
type Sample map[string]string

// Posterior holds unnormalized class scores in label enumeration order.
// Scores are prior times conditional evidence and do not sum to 1.
type Posterior struct {
	labels []string
	scores map[string]float64
}

// NewPosterior builds a Posterior from labels in enumeration order
func NewPosterior(labels []string, scores map[string]float64) Posterior {
	p := Posterior{
		labels: append([]string(nil), labels...),
		scores: make(map[string]float64, len(labels)),
	}
	for _, l := range labels {
		p.scores[l] = scores[l]
	}
	return p
}

// Labels returns the scored labels in enumeration order
func (p Posterior) Labels() []string {
	return append([]string(nil), p.labels...)
}

// Score returns the unnormalized score of a label
func (p Posterior) Score(label string) (float64, bool) {
	v, ok := p.scores[label]
	return v, ok
}

// Map returns a copy of the scores
func (p Posterior) Map() map[string]float64 {
	out := make(map[string]float64, len(p.scores))
	for k, v := range p.scores {
		out[k] = v
	}
	return out
}

// Normalized returns the scores divided by their sum. The raw scores remain
// the contract of Predict; this is a view for display only.
func (p Posterior) Normalized() Posterior {
	var sum float64
	for _, l := range p.labels {
		sum += p.scores[l]
	}
	out := NewPosterior(p.labels, nil)
	if sum == 0 {
		return out
	}
	for _, l := range p.labels {
		out.scores[l] = p.scores[l] / sum
	}
	return out
}

// MarshalJSON writes an object whose keys follow label order
func (p Posterior) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range p.labels {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p.scores[l])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Prediction is the argmax label and the full posterior
type Prediction struct {
	Label      string    `json:"label"`
	Posteriors Posterior `json:"posteriors"`
}

// Predict scores sample against every label of priors and returns the
// highest scoring one. Unseen (value, label) pairs contribute floor.
// Equal maxima resolve to the label enumerated first.
func Predict(sample Sample, priors PriorTable, conds Conditionals, floor float64) (Prediction, error) {
	if err := checkFloor(floor); err != nil {
		return Prediction{}, err
	}
	features, err := checkSample(sample, conds)
	if err != nil {
		return Prediction{}, err
	}

	scores := make(map[string]float64, priors.Len())
	best := ""
	bestScore := 0.0
	for i, label := range priors.labels {
		score := priors.probs[label]
		for _, f := range features {
			p, ok := conds[f][Pair{Value: sample[f], Label: label}]
			if !ok {
				p = floor
			}
			score *= p
		}
		scores[label] = score

		if i == 0 || score > bestScore {
			best = label
			bestScore = score
		}
	}

	return Prediction{
		Label:      best,
		Posteriors: Posterior{labels: append([]string(nil), priors.labels...), scores: scores},
	}, nil
}

// checkSample returns the required features in sorted order, or the first
// schema mismatch between sample and conds
func checkSample(sample Sample, conds Conditionals) ([]string, error) {
	features := make([]string, 0, len(conds))
	for f := range conds {
		features = append(features, f)
	}
	sort.Strings(features)

	for _, f := range features {
		if sample[f] == "" {
			return nil, &MissingFeatureError{Feature: f}
		}
	}

	var unknown []string
	for f := range sample {
		if _, ok := conds[f]; !ok {
			unknown = append(unknown, f)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &UnknownFeatureError{Feature: unknown[0]}
	}

	return features, nil
}
