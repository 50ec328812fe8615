// Package monitor samples a device on a fixed cadence and publishes snapshots.
package monitor

// DefaultHistoryCapacity is the number of points kept per metric.
const DefaultHistoryCapacity = 120

// History is a fixed-capacity series of metric values. Once full, each push
// evicts the oldest value. It is not safe for concurrent use; the sampler owns
// it and publishes copies.
type History struct {
	buf   []float64
	start int
	n     int
}

// NewHistory returns an empty history holding at most capacity values.
// A capacity below 1 uses DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]float64, capacity)}
}

// Push appends v, dropping the oldest value when full.
func (h *History) Push(v float64) {
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = v
		h.n++
		return
	}
	h.buf[h.start] = v
	h.start = (h.start + 1) % len(h.buf)
}

// Values returns the stored values oldest first. The slice is a copy.
func (h *History) Values() []float64 {
	out := make([]float64, h.n)
	for i := range out {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Last returns the most recent value, or false when empty.
func (h *History) Last() (float64, bool) {
	if h.n == 0 {
		return 0, false
	}
	return h.buf[(h.start+h.n-1)%len(h.buf)], true
}

// Len returns the number of stored values.
func (h *History) Len() int { return h.n }

// Cap returns the maximum number of stored values.
func (h *History) Cap() int { return len(h.buf) }
