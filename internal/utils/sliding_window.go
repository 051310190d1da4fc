package utils

import (
	"sync"
	"time"
)

// SlidingWindow counts hits per key over a trailing window.
// Keys that stop hitting are swept once per window.
type SlidingWindow struct {
	mu        sync.Mutex
	window    time.Duration
	limit     int
	hits      map[string][]time.Time
	lastSweep time.Time
}

func NewSlidingWindow(window time.Duration, limit int) *SlidingWindow {
	return &SlidingWindow{window: window, limit: limit, hits: make(map[string][]time.Time)}
}

// Allow records a hit for key unless the key already has limit hits inside the
// window. When refused, retryAfter is the time until the oldest hit expires.
func (w *SlidingWindow) Allow(key string, now time.Time) (allowed bool, retryAfter time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if now.Sub(w.lastSweep) >= w.window {
		w.sweep(now)
	}
	hits := w.prune(key, now)
	if w.limit > 0 && len(hits) >= w.limit {
		return false, hits[0].Add(w.window).Sub(now)
	}
	w.hits[key] = append(hits, now)
	return true, 0
}

func (w *SlidingWindow) Count(key string, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.prune(key, now))
}

// Sweep drops every key without a hit inside the window and reports how many
// keys remain.
func (w *SlidingWindow) Sweep(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sweep(now)
	return len(w.hits)
}

func (w *SlidingWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.hits)
}

func (w *SlidingWindow) sweep(now time.Time) {
	for key := range w.hits {
		w.prune(key, now)
	}
	w.lastSweep = now
}

func (w *SlidingWindow) prune(key string, now time.Time) []time.Time {
	hits := w.hits[key]
	cutoff := now.Add(-w.window)
	idx := 0
	for _, hit := range hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	hits = hits[idx:]
	if len(hits) == 0 {
		delete(w.hits, key)
		return nil
	}
	w.hits[key] = hits
	return hits
}
