package telegram

import (
	"sync"
	"time"
)

const (
	staleAfter = 5 * time.Minute
	maxErrors  = 5
)

// Health tracks inbound updates and handler errors of the bot
type Health struct {
	mu                sync.Mutex
	startedAt         time.Time
	lastUpdate        time.Time
	consecutiveErrors int
	lastError         string
	now               func() time.Time
}

// HealthStatus is a point-in-time view of Health
type HealthStatus struct {
	Healthy           bool      `json:"healthy"`
	LastUpdate        time.Time `json:"last_update"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
	LastError         string    `json:"last_error,omitempty"`
	Uptime            string    `json:"uptime"`
}

// NewHealth starts tracking from now
func NewHealth() *Health {
	return newHealthAt(time.Now)
}

func newHealthAt(now func() time.Time) *Health {
	t := now()
	return &Health{startedAt: t, lastUpdate: t, now: now}
}

// RecordUpdate notes a processed update and clears the error run. A nil
// receiver is a no-op, as for RecordError.
func (h *Health) RecordUpdate() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastUpdate = h.now()
	h.consecutiveErrors = 0
}

// RecordError counts a failed update
func (h *Health) RecordError(err error) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveErrors++
	if err != nil {
		h.lastError = err.Error()
	}
}

// Status reports healthy while an update arrived in the last five minutes
// and fewer than five updates in a row failed
func (h *Health) Status() HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	return HealthStatus{
		Healthy:           now.Sub(h.lastUpdate) < staleAfter && h.consecutiveErrors < maxErrors,
		LastUpdate:        h.lastUpdate,
		ConsecutiveErrors: h.consecutiveErrors,
		LastError:         h.lastError,
		Uptime:            now.Sub(h.startedAt).Round(time.Second).String(),
	}
}
