package metrics

import (
	"sync"
	"time"
)

// IterationSample summarises one finished master iteration.
type IterationSample struct {
	IterationID int64         `json:"iteration_id"`
	FinishedAt  time.Time     `json:"finished_at"`
	Duration    time.Duration `json:"duration"`
	Sessions    int           `json:"sessions"`
	Reported    int           `json:"reported"`
	Findings    int           `json:"findings"`
	Forced      bool          `json:"forced"`
}

// History is a fixed-size ring of the most recent iteration samples.
type History struct {
	mu      sync.RWMutex
	samples []IterationSample
	pos     int
	count   int
}

// NewHistory creates a History holding at most size samples.
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}

	return &History{samples: make([]IterationSample, size)}
}

// Add records s, overwriting the oldest sample once the ring is full.
func (h *History) Add(s IterationSample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples[h.pos] = s
	h.pos = (h.pos + 1) % len(h.samples)

	if h.count < len(h.samples) {
		h.count++
	}
}

// Samples returns the recorded samples, newest first.
func (h *History) Samples() []IterationSample {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]IterationSample, 0, h.count)
	size := len(h.samples)

	for i := 0; i < h.count; i++ {
		idx := (h.pos - i - 1 + size) % size
		out = append(out, h.samples[idx])
	}

	return out
}

// Last returns the newest sample, or nil when nothing was recorded.
func (h *History) Last() *IterationSample {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return nil
	}

	s := h.samples[(h.pos-1+len(h.samples))%len(h.samples)]

	return &s
}
