package application

import (
	"sync"

	"voice-phone/internal/domain"
)

// History is the append-only log of executed commands for the lifetime of
// the process.
type History struct {
	mu      sync.RWMutex
	records []domain.CommandRecord
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Append(rec domain.CommandRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Records returns a copy in the order commands were received.
func (h *History) Records() []domain.CommandRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.CommandRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Newest returns a copy with the most recent command first.
func (h *History) Newest() []domain.CommandRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.CommandRecord, len(h.records))
	for i, rec := range h.records {
		out[len(h.records)-1-i] = rec
	}
	return out
}
