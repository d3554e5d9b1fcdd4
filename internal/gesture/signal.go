// Package gesture implements the facial gesture detection engine that turns
// per-frame face landmarks into discrete page-turn triggers.
package gesture

import (
	"math"
	"sort"
)

// history is a bounded rolling window of recent signal values.
// The oldest value is evicted once the window is full.
type history struct {
	values []float64
	size   int
}

// newHistory creates a history holding at most size values.
func newHistory(size int) *history {
	if size < 1 {
		size = 1
	}
	return &history{
		values: make([]float64, 0, size),
		size:   size,
	}
}

// push appends a value, evicting the oldest when the window is full.
func (h *history) push(v float64) {
	if len(h.values) >= h.size {
		copy(h.values, h.values[1:])
		h.values = h.values[:h.size-1]
	}
	h.values = append(h.values, v)
}

// mean returns the arithmetic mean of the window, or 0 when empty.
func (h *history) mean() float64 {
	return mean(h.values)
}

// median returns the median of the window, or 0 when empty.
// The median is robust to single-frame landmark spikes.
func (h *history) median() float64 {
	return median(h.values)
}

// len returns the number of values currently in the window.
func (h *history) len() int {
	return len(h.values)
}

// reset discards all values.
func (h *history) reset() {
	h.values = h.values[:0]
}

// mean returns the arithmetic mean of values, or 0 for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// median returns the median of values, or 0 for an empty slice.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stddev returns the sample standard deviation of values.
// Returns 0 for fewer than two samples.
func stddev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(n-1))
}
