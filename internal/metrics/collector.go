package metrics

import (
	"sort"
	"sync"
	"time"
)

// Collector aggregates anonymous counters for the polling loop.
type Collector struct {
	mu      sync.RWMutex
	enabled bool
	started time.Time
	totals  Totals
	conds   map[string]*ConditionMetrics
}

// ConditionMetrics captures per-condition counters tracked by the collector.
type ConditionMetrics struct {
	Condition   string    `json:"condition"`
	Matched     uint64    `json:"matched"`
	LastMatched time.Time `json:"lastMatched,omitempty"`
}

// Totals aggregates loop-level counters.
type Totals struct {
	Ticks         uint64 `json:"ticks"`
	SkippedTicks  uint64 `json:"skippedTicks"`
	SampleErrors  uint64 `json:"sampleErrors"`
	Matches       uint64 `json:"matches"`
	Activations   uint64 `json:"activations"`
	Deactivations uint64 `json:"deactivations"`
}

// Snapshot is the serializable view of the current metrics state.
type Snapshot struct {
	Enabled    bool               `json:"enabled"`
	Started    time.Time          `json:"started,omitempty"`
	Totals     Totals             `json:"totals"`
	Conditions []ConditionMetrics `json:"conditions,omitempty"`
}

// NewCollector returns a collector with the provided opt-in state.
func NewCollector(enabled bool) *Collector {
	c := &Collector{}
	c.SetEnabled(enabled)
	return c
}

// Enabled reports whether collection is currently active.
func (c *Collector) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled toggles collection, resetting counters when enabling.
func (c *Collector) SetEnabled(enabled bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled == enabled {
		return
	}
	c.enabled = enabled
	if !enabled {
		c.conds = nil
		c.totals = Totals{}
		c.started = time.Time{}
		return
	}
	c.started = time.Now()
	c.conds = make(map[string]*ConditionMetrics)
}

func (c *Collector) update(mutate func(*Collector, time.Time)) {
	if c == nil || mutate == nil {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	mutate(c, now)
}

// RecordTick counts one executed tick and whether it matched.
func (c *Collector) RecordTick(matched bool) {
	c.update(func(c *Collector, now time.Time) {
		c.totals.Ticks++
		if matched {
			c.totals.Matches++
		}
	})
}

// RecordSkippedTick counts a tick dropped because the worker was busy.
func (c *Collector) RecordSkippedTick() {
	c.update(func(c *Collector, now time.Time) {
		c.totals.SkippedTicks++
	})
}

// RecordSampleError counts a tick skipped due to a sampling failure.
func (c *Collector) RecordSampleError() {
	c.update(func(c *Collector, now time.Time) {
		c.totals.SampleErrors++
	})
}

// RecordActivation counts an off-to-on transition.
func (c *Collector) RecordActivation() {
	c.update(func(c *Collector, now time.Time) {
		c.totals.Activations++
	})
}

// RecordDeactivation counts an on-to-off transition.
func (c *Collector) RecordDeactivation() {
	c.update(func(c *Collector, now time.Time) {
		c.totals.Deactivations++
	})
}

// RecordConditionMatch increments the counter for one condition.
func (c *Collector) RecordConditionMatch(condition string) {
	c.update(func(c *Collector, now time.Time) {
		if c.conds == nil {
			c.conds = make(map[string]*ConditionMetrics)
		}
		m, ok := c.conds[condition]
		if !ok {
			m = &ConditionMetrics{Condition: condition}
			c.conds[condition] = m
		}
		m.Matched++
		m.LastMatched = now
	})
}

// Snapshot returns the current counters for serialization or display.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{Enabled: c.enabled}
	if !c.enabled {
		return snap
	}
	snap.Started = c.started
	snap.Totals = c.totals
	if len(c.conds) == 0 {
		return snap
	}
	snap.Conditions = make([]ConditionMetrics, 0, len(c.conds))
	for _, m := range c.conds {
		if m == nil {
			continue
		}
		snap.Conditions = append(snap.Conditions, *m)
	}
	sort.Slice(snap.Conditions, func(i, j int) bool {
		return snap.Conditions[i].Condition < snap.Conditions[j].Condition
	})
	return snap
}
