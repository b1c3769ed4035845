package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"querypilot/observability"
)

// Holder owns the process-wide Assistant and recreates it once it is older
// than the TTL. Each creation starts a new generation; onRecreate runs with
// the lock held, before any caller sees the new Assistant.
type Holder struct {
	factory    Factory
	ttl        time.Duration
	onRecreate func()

	mu         sync.Mutex
	current    Assistant
	createdAt  time.Time
	generation uint64
}

// NewHolder returns a Holder. A ttl <= 0 keeps the first Assistant forever.
func NewHolder(factory Factory, ttl time.Duration, onRecreate func()) *Holder {
	return &Holder{factory: factory, ttl: ttl, onRecreate: onRecreate}
}

// GetOrCreate returns the current Assistant and its generation, creating a
// new one when there is none or the current one expired at now. A failed
// creation is returned to the caller; the next call tries again.
func (h *Holder) GetOrCreate(ctx context.Context, now time.Time) (Assistant, uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current != nil && (h.ttl <= 0 || now.Sub(h.createdAt) < h.ttl) {
		return h.current, h.generation, nil
	}

	expired := h.current != nil
	a, err := h.factory(ctx)
	if err != nil {
		return nil, 0, err
	}

	h.current = a
	h.createdAt = now
	h.generation++
	if h.onRecreate != nil {
		h.onRecreate()
	}
	observability.RecordAssistantRecreation()
	slog.Info("assistant created", "generation", h.generation, "replaced_expired", expired)
	return a, h.generation, nil
}

func (h *Holder) Generation() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.generation
}

// CreatedAt reports when the current Assistant was created, zero if none.
func (h *Holder) CreatedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.createdAt
}
