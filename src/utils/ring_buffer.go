package utils

import (
	"price-stream/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of candles.
// Holds the in-memory working set for the active session: seeded history
// plus the live candle. True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []models.MCandle
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 100 // Default reasonable size
	}

	return &RingBuffer{
		data:     make([]models.MCandle, capacity),
		capacity: capacity,
		index:    0,
		size:     0,
	}
}

// -----------------------------------------------------------------------------

// Append adds a candle as the newest entry.
func (rb *RingBuffer) Append(c models.MCandle) {
	rb.data[rb.index] = c
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// ReplaceLast overwrites the newest entry in place (the update-candle path).
// Appends instead when the buffer is empty.
func (rb *RingBuffer) ReplaceLast(c models.MCandle) {
	if rb.size == 0 {
		rb.Append(c)
		return
	}
	lastIdx := (rb.index - 1 + rb.capacity) % rb.capacity
	rb.data[lastIdx] = c
}

// -----------------------------------------------------------------------------

// Last returns the newest candle, or false when empty.
func (rb *RingBuffer) Last() (models.MCandle, bool) {
	if rb.size == 0 {
		return models.MCandle{}, false
	}
	lastIdx := (rb.index - 1 + rb.capacity) % rb.capacity
	return rb.data[lastIdx], true
}

// -----------------------------------------------------------------------------

// GetAll returns all candles in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll() []models.MCandle {
	if rb.size == 0 {
		return []models.MCandle{}
	}

	result := make([]models.MCandle, rb.size)

	// Calculate start index (oldest element)
	var startIdx int
	if rb.size == rb.capacity {
		// Buffer is full, oldest is at current index (wrap-around)
		startIdx = rb.index
	} else {
		// Buffer not full, oldest is at index 0
		startIdx = 0
	}

	// Extract in order
	for i := 0; i < rb.size; i++ {
		idx := (startIdx + i) % rb.capacity
		result[i] = rb.data[idx]
	}

	return result
}

// -----------------------------------------------------------------------------

// Size returns the current number of elements.
func (rb *RingBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Clear resets the buffer without reallocating.
func (rb *RingBuffer) Clear() {
	rb.index = 0
	rb.size = 0
}
