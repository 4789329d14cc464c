// Package stats tracks rolling traded-volume history per symbol.
package stats

import (
	"sync"
)

// WindowSize is the number of daily volume observations kept per symbol.
const WindowSize = 30

// VolumeTracker keeps a bounded, insertion-ordered window of the most recent
// daily volumes for each symbol and exposes their moving average. Safe for
// concurrent use.
type VolumeTracker struct {
	mu      sync.RWMutex
	volumes map[string][]uint64
}

func NewVolumeTracker() *VolumeTracker {
	return &VolumeTracker{
		volumes: make(map[string][]uint64),
	}
}

// Record appends an observed daily volume for symbol, evicting the oldest
// entry once the window exceeds WindowSize.
func (t *VolumeTracker) Record(symbol string, volume uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	window := append(t.volumes[symbol], volume)
	if len(window) > WindowSize {
		window = window[len(window)-WindowSize:]
	}
	t.volumes[symbol] = window
}

// Average returns the arithmetic mean of the symbol's current window, or 0
// when no volume has been observed.
func (t *VolumeTracker) Average(symbol string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	window := t.volumes[symbol]
	if len(window) == 0 {
		return 0
	}

	var sum uint64
	for _, v := range window {
		sum += v
	}
	return float64(sum) / float64(len(window))
}

// Len reports how many observations are currently held for symbol.
func (t *VolumeTracker) Len(symbol string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.volumes[symbol])
}
