package utils

import "sync"

// Counters is the per-run statistics structure from spec.md §3. Each
// worker owns one instance on its hot path (no locking); at shutdown the
// per-worker snapshots are merged into a single run total under one mutex,
// following the "per-worker accumulators with late merge" design note in
// spec.md §9.
type Counters struct {
	RecordsIn               uint64
	RecordsClassified       uint64
	RecordsRejectedShort    uint64
	RecordsRejectedUnmatched uint64
	PerSample               map[string]uint64
}

// NewCounters returns a zeroed Counters ready for hot-path use.
func NewCounters() *Counters {
	return &Counters{PerSample: make(map[string]uint64)}
}

// AddSample increments the per-sample count for key.
func (c *Counters) AddSample(key string) {
	c.PerSample[key]++
}

// Merger accumulates Counters from many workers under a single mutex,
// never touched on any worker's hot path.
type Merger struct {
	mu    sync.Mutex
	total Counters
}

// NewMerger returns a Merger ready to accept worker snapshots.
func NewMerger() *Merger {
	return &Merger{total: Counters{PerSample: make(map[string]uint64)}}
}

// Merge folds one worker's local Counters into the running total. Called
// once per worker at shutdown, never on the per-record path.
func (m *Merger) Merge(c *Counters) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total.RecordsIn += c.RecordsIn
	m.total.RecordsClassified += c.RecordsClassified
	m.total.RecordsRejectedShort += c.RecordsRejectedShort
	m.total.RecordsRejectedUnmatched += c.RecordsRejectedUnmatched
	for k, v := range c.PerSample {
		m.total.PerSample[k] += v
	}
}

// Total returns a copy of the merged totals.
func (m *Merger) Total() Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := Counters{
		RecordsIn:               m.total.RecordsIn,
		RecordsClassified:       m.total.RecordsClassified,
		RecordsRejectedShort:    m.total.RecordsRejectedShort,
		RecordsRejectedUnmatched: m.total.RecordsRejectedUnmatched,
		PerSample:               make(map[string]uint64, len(m.total.PerSample)),
	}
	for k, v := range m.total.PerSample {
		out.PerSample[k] = v
	}
	return out
}
