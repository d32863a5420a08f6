package engine

import "time"

const defaultTickHistoryLimit = 128

// TickRecord captures the outcome of a single polling tick.
type TickRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Matched      bool      `json:"matched"`
	Counter      int       `json:"counter"`
	Transition   string    `json:"transition,omitempty"`
	Reasons      []string  `json:"reasons,omitempty"`
	TriggerTitle string    `json:"triggerTitle,omitempty"`
	// Held marks ticks observed while the mode was forced manually; those
	// ticks do not advance the counter.
	Held bool `json:"held,omitempty"`
	// Error is set when the tick was skipped due to a sampling failure.
	Error string `json:"error,omitempty"`
}

type tickHistory struct {
	buf      []TickRecord
	start    int
	count    int
	capacity int
}

func newTickHistory(capacity int) *tickHistory {
	if capacity <= 0 {
		capacity = defaultTickHistoryLimit
	}
	return &tickHistory{
		buf:      make([]TickRecord, capacity),
		capacity: capacity,
	}
}

func (h *tickHistory) append(record TickRecord) {
	idx := (h.start + h.count) % h.capacity
	h.buf[idx] = record
	if h.count < h.capacity {
		h.count++
		return
	}
	h.start = (h.start + 1) % h.capacity
}

// snapshot returns the records oldest first.
func (h *tickHistory) snapshot() []TickRecord {
	if h.count == 0 {
		return nil
	}
	out := make([]TickRecord, 0, h.count)
	for i := 0; i < h.count; i++ {
		out = append(out, h.buf[(h.start+i)%h.capacity])
	}
	return out
}
