package statsd

import (
	"sync"
	"time"
)

// Sample is one metric captured by Memory.
type Sample struct {
	Kind  string
	Name  string
	Value float64
	Tags  map[string]string
}

// Memory is a Sink that keeps every metric in memory, for tests and the
// CLI's verbose mode.
type Memory struct {
	mu      sync.Mutex
	samples []Sample
}

var _ Sink = (*Memory)(nil)

func (m *Memory) Count(name string, value int64, tags map[string]string) {
	m.add(Sample{Kind: "c", Name: name, Value: float64(value), Tags: cleanTags(tags)})
}

func (m *Memory) Gauge(name string, value float64, tags map[string]string) {
	m.add(Sample{Kind: "g", Name: name, Value: value, Tags: cleanTags(tags)})
}

func (m *Memory) Timing(name string, value time.Duration, tags map[string]string) {
	m.add(Sample{Kind: "ms", Name: name, Value: float64(value) / float64(time.Millisecond), Tags: cleanTags(tags)})
}

// Samples returns a copy of everything recorded so far.
func (m *Memory) Samples() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sample(nil), m.samples...)
}

// Named returns the samples recorded under name.
func (m *Memory) Named(name string) []Sample {
	var out []Sample
	for _, s := range m.Samples() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

func (m *Memory) add(s Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, s)
}
