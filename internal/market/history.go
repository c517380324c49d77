package market

import "github.com/grubstreet/papertrader/internal/domain"

// History is a fixed-capacity ring of price points for one asset.
// Appends are O(1); once full, the oldest point is overwritten
// silently. Not safe for concurrent use — the market engine is the
// single writer.
type History struct {
	buf   []domain.PricePoint
	start int
	size  int
}

// NewHistory creates a ring with the given capacity. A non-positive
// capacity is a programmer error and panics.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		panic("market: history capacity must be positive")
	}
	return &History{buf: make([]domain.PricePoint, capacity)}
}

// Push appends a point, evicting the oldest one when full.
func (h *History) Push(p domain.PricePoint) {
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = p
		h.size++
		return
	}
	h.buf[h.start] = p
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of points currently stored.
func (h *History) Len() int { return h.size }

// Cap returns the configured capacity.
func (h *History) Cap() int { return len(h.buf) }

// Points returns a copy of the stored points, oldest first.
func (h *History) Points() []domain.PricePoint {
	out := make([]domain.PricePoint, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Prices returns just the stored prices, oldest first. Used as the
// recent-price window for the momentum component.
func (h *History) Prices() []float64 {
	out := make([]float64, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)].Price
	}
	return out
}

// Last returns the most recent point, if any.
func (h *History) Last() (domain.PricePoint, bool) {
	if h.size == 0 {
		return domain.PricePoint{}, false
	}
	return h.buf[(h.start+h.size-1)%len(h.buf)], true
}

// Reset drops all points and re-seeds the ring with a single one.
func (h *History) Reset(p domain.PricePoint) {
	h.start = 0
	h.size = 0
	h.Push(p)
}
