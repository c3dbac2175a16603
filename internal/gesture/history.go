package gesture

import "sync"

// MaxHistory is the default number of samples kept for the charts.
const MaxHistory = 200

// History holds two time-aligned bounded series: radius in pixels and
// angle in degrees. When full, the oldest entry of both is dropped before
// a new one is appended.
type History struct {
	mu       sync.RWMutex
	capacity int
	radius   []float64
	angle    []float64
}

// NewHistory creates a History holding at most capacity samples.
// A non-positive capacity falls back to MaxHistory.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = MaxHistory
	}
	return &History{
		capacity: capacity,
		radius:   make([]float64, 0, capacity),
		angle:    make([]float64, 0, capacity),
	}
}

// Push appends one sample to both series.
func (h *History) Push(radius, angleDegrees float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.radius) >= h.capacity {
		// Shift left by 1, removing the oldest sample
		copy(h.radius, h.radius[1:])
		copy(h.angle, h.angle[1:])
		h.radius = h.radius[:h.capacity-1]
		h.angle = h.angle[:h.capacity-1]
	}
	h.radius = append(h.radius, radius)
	h.angle = append(h.angle, angleDegrees)
}

// Len returns the number of samples held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.radius)
}

// Radius returns a copy of the radius series, oldest first.
func (h *History) Radius() []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]float64(nil), h.radius...)
}

// Angle returns a copy of the angle series in degrees, oldest first.
func (h *History) Angle() []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]float64(nil), h.angle...)
}

// Series returns copies of both series taken under one lock, so they are
// guaranteed to have equal length.
func (h *History) Series() (radius, angle []float64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]float64(nil), h.radius...), append([]float64(nil), h.angle...)
}
