// Package profiler records operation timings for the benchmark command.
package profiler

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"
)

// Well-known operation names
const (
	OpLoadDataset = "load_dataset"
	OpBuildModel  = "build_model"
	OpPredict     = "predict"
)

// Profiler tracks execution times per operation
type Profiler struct {
	mu    sync.Mutex
	times map[string][]time.Duration
}

// NewProfiler creates an empty profiler
func NewProfiler() *Profiler {
	return &Profiler{
		times: make(map[string][]time.Duration),
	}
}

// Timer measures one operation
type Timer struct {
	profiler *Profiler
	name     string
	start    time.Time
}

// Start begins timing an operation
func (p *Profiler) Start(name string) *Timer {
	return &Timer{
		profiler: p,
		name:     name,
		start:    time.Now(),
	}
}

// Stop records the elapsed time
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	t.profiler.Record(t.name, d)
	return d
}

// Record adds a measured duration
func (p *Profiler) Record(name string, d time.Duration) {
	p.mu.Lock()
	p.times[name] = append(p.times[name], d)
	p.mu.Unlock()
}

// Time runs fn and records its duration under name. The duration is
// recorded even when fn fails.
func (p *Profiler) Time(name string, fn func() error) error {
	t := p.Start(name)
	err := fn()
	t.Stop()
	return err
}

// Stats summarizes the timings of one operation
type Stats struct {
	Name    string
	Count   int
	Total   time.Duration
	Average time.Duration
	Min     time.Duration
	Max     time.Duration
	Median  time.Duration
	P95     time.Duration
	P99     time.Duration
}

// Throughput returns operations per second
func (s *Stats) Throughput() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Count) / s.Total.Seconds()
}

// GetStats returns statistics for an operation
func (p *Profiler) GetStats(name string) *Stats {
	p.mu.Lock()
	sorted := append([]time.Duration(nil), p.times[name]...)
	p.mu.Unlock()

	if len(sorted) == 0 {
		return &Stats{Name: name}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	return &Stats{
		Name:    name,
		Count:   len(sorted),
		Total:   total,
		Average: total / time.Duration(len(sorted)),
		Min:     sorted[0],
		Max:     sorted[len(sorted)-1],
		Median:  percentile(sorted, 50),
		P95:     percentile(sorted, 95),
		P99:     percentile(sorted, 99),
	}
}

// percentile uses the nearest-rank method on a sorted slice
func percentile(sorted []time.Duration, pct float64) time.Duration {
	rank := int(math.Ceil(pct / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

// GetAllStats returns statistics for every operation, sorted by name
func (p *Profiler) GetAllStats() []*Stats {
	p.mu.Lock()
	names := make([]string, 0, len(p.times))
	for name := range p.times {
		names = append(names, name)
	}
	p.mu.Unlock()

	sort.Strings(names)
	stats := make([]*Stats, 0, len(names))
	for _, name := range names {
		stats = append(stats, p.GetStats(name))
	}
	return stats
}

// PrintReport writes a timing table to w
func (p *Profiler) PrintReport(w io.Writer) {
	stats := p.GetAllStats()
	if len(stats) == 0 {
		fmt.Fprintln(w, "No timing data available")
		return
	}

	fmt.Fprintf(w, "⏱️  Performance Profile Report\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "%-14s %8s %10s %8s %8s %8s %8s %8s %8s\n",
		"Operation", "Count", "Total", "Avg", "Min", "Median", "Max", "P95", "P99")
	fmt.Fprintf(w, "───────────────────────────────────────────────────────────────────────\n")

	for _, s := range stats {
		if s.Count == 0 {
			continue
		}
		fmt.Fprintf(w, "%-14s %8d %10s %8s %8s %8s %8s %8s %8s\n",
			truncate(s.Name, 14),
			s.Count,
			formatDuration(s.Total),
			formatDuration(s.Average),
			formatDuration(s.Min),
			formatDuration(s.Median),
			formatDuration(s.Max),
			formatDuration(s.P95),
			formatDuration(s.P99),
		)
	}

	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════════════════\n")
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
	default:
		return fmt.Sprintf("%.3fs", d.Seconds())
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
