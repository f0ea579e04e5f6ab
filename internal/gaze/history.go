package gaze

import "time"

// GazeHistoryCap bounds the gaze ring so arbitrarily long sessions hold
// constant memory.
const GazeHistoryCap = 100

// TimedGazeVector pairs a fused gaze vector with its frame timestamp.
type TimedGazeVector struct {
	Vector    GazeVector
	Timestamp time.Time
}

// GazeHistory maintains a sliding window of fused gaze vectors. It is a
// fixed-capacity ring: once full, the oldest sample is silently evicted.
type GazeHistory struct {
	samples  []TimedGazeVector
	capacity int
	head     int // next write position
	size     int
}

// NewGazeHistory creates a history ring with the given capacity,
// defaulting to GazeHistoryCap for non-positive values.
func NewGazeHistory(capacity int) *GazeHistory {
	if capacity < 1 {
		capacity = GazeHistoryCap
	}
	return &GazeHistory{
		samples:  make([]TimedGazeVector, capacity),
		capacity: capacity,
	}
}

// Add stores a new sample, overwriting the oldest if at capacity.
func (h *GazeHistory) Add(v GazeVector, ts time.Time) {
	h.samples[h.head] = TimedGazeVector{Vector: v, Timestamp: ts}
	h.head = (h.head + 1) % h.capacity
	if h.size < h.capacity {
		h.size++
	}
}

// Previous returns the sample N steps back from the most recent.
// Previous(1) is the most recently added sample. Returns nil if the
// requested sample does not exist.
func (h *GazeHistory) Previous(n int) *TimedGazeVector {
	if n < 1 || n > h.size {
		return nil
	}
	idx := (h.head - n + h.capacity) % h.capacity
	return &h.samples[idx]
}

// Size returns the current number of samples in the ring.
func (h *GazeHistory) Size() int {
	return h.size
}

// Capacity returns the maximum number of samples the ring can hold.
func (h *GazeHistory) Capacity() int {
	return h.capacity
}

// Clear removes all samples.
func (h *GazeHistory) Clear() {
	h.head = 0
	h.size = 0
}

// All returns the stored samples from oldest to newest.
func (h *GazeHistory) All() []TimedGazeVector {
	if h.size == 0 {
		return nil
	}
	out := make([]TimedGazeVector, h.size)
	for i := 0; i < h.size; i++ {
		idx := (h.head - h.size + i + h.capacity) % h.capacity
		out[i] = h.samples[idx]
	}
	return out
}
