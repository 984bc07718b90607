package bayes

import (
	"fmt"
	"io"
	"sort"
)

// ModelInfo contains model information
type ModelInfo struct {
	Rows        int                 `json:"rows"`
	Features    []string            `json:"features"`
	Labels      []string            `json:"labels"`
	LabelCounts map[string]int      `json:"label_counts"`
	Domains     map[string][]string `json:"domains"`
	Floor       float64             `json:"floor"`
}

// Info returns information about the built model
func (m *Model) Info() *ModelInfo {
	counts := make(map[string]int, len(m.labelCounts))
	for k, v := range m.labelCounts {
		counts[k] = v
	}
	domains := make(map[string][]string, len(m.domains))
	for _, f := range m.features {
		domains[f] = m.Domain(f)
	}

	return &ModelInfo{
		Rows:        m.rows,
		Features:    m.Features(),
		Labels:      m.Labels(),
		LabelCounts: counts,
		Domains:     domains,
		Floor:       m.floor,
	}
}

// ConditionalEntry is one row of a conditional table, for display
type ConditionalEntry struct {
	Value string  `json:"value"`
	Label string  `json:"label"`
	Prob  float64 `json:"prob"`
}

// Entries lists the observed pairs of a feature ordered by label
// enumeration, then by value domain order
func (m *Model) Entries(feature string) []ConditionalEntry {
	table := m.conditionals[feature]
	rank := make(map[string]int, len(m.domains[feature]))
	for i, v := range m.domains[feature] {
		rank[v] = i
	}

	var entries []ConditionalEntry
	for _, label := range m.priors.labels {
		var values []string
		for pair := range table {
			if pair.Label == label {
				values = append(values, pair.Value)
			}
		}
		sort.Slice(values, func(i, j int) bool {
			return rank[values[i]] < rank[values[j]]
		})
		for _, v := range values {
			entries = append(entries, ConditionalEntry{Value: v, Label: label, Prob: table[Pair{Value: v, Label: label}]})
		}
	}
	return entries
}

// PrintStats prints model statistics
func (m *Model) PrintStats(w io.Writer) {
	info := m.Info()

	fmt.Fprintf(w, "🎾 Naive Bayes Model\n")
	fmt.Fprintf(w, "════════════════════════════════════════\n")
	fmt.Fprintf(w, "Training Data:\n")
	fmt.Fprintf(w, "  Rows: %d\n", info.Rows)
	fmt.Fprintf(w, "  Features: %d\n", len(info.Features))
	fmt.Fprintf(w, "  Classes: %d\n", len(info.Labels))
	fmt.Fprintf(w, "  Floor: %g\n", info.Floor)

	fmt.Fprintf(w, "\n📊 Priors:\n")
	for _, label := range info.Labels {
		p, _ := m.priors.Prob(label)
		fmt.Fprintf(w, "  %-15s %.4f (%d/%d)\n", label, p, info.LabelCounts[label], info.Rows)
	}

	for _, f := range info.Features {
		fmt.Fprintf(w, "\n📈 P(%s | class):\n", f)
		for _, e := range m.Entries(f) {
			fmt.Fprintf(w, "  %-15s %-10s %.4f\n", e.Value, e.Label, e.Prob)
		}
	}

	fmt.Fprintf(w, "\n")
}
