package scheduler

import (
	"sync"
	"time"

	"stockwatch/internal/types"
)

// HotWindow is the process-wide flag marking a predicted window of elevated
// restock likelihood. The predictions refresh job writes it; the escalation
// check job reads it. The flag self-expires at its until instant.
type HotWindow struct {
	mu     sync.RWMutex
	active bool
	until  time.Time
	clock  types.Clock
}

var _ types.HotWindowFlag = (*HotWindow)(nil)

// NewHotWindow creates an inactive flag.
func NewHotWindow(clock types.Clock) *HotWindow {
	return &HotWindow{clock: clock}
}

// Active reports whether a hot window is open right now.
func (h *HotWindow) Active() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active && h.clock.Now().Before(h.until)
}

// Set replaces the flag state.
func (h *HotWindow) Set(active bool, until time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = active
	h.until = until
}
