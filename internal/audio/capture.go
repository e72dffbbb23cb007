package audio

import (
	"errors"
	"sync"
)

// Errors
var (
	ErrAlreadyCapturing = errors.New("audio capture already started")
	ErrNotCapturing     = errors.New("audio capture not started")
	ErrNoInputDevice    = errors.New("no audio input device available")
	ErrNotInitialized   = errors.New("audio engine not initialized")
)

// Source exposes a circular capture buffer and its write cursor
type Source interface {
	// Position returns the index the next sample will be written to.
	// It wraps back to 0 at Capacity.
	Position() int

	// Capacity returns the length of the circular buffer in samples
	Capacity() int

	// ReadAt copies len(dst) samples starting at offset into dst, wrapping
	// around the end of the buffer. It returns the number of samples copied.
	ReadAt(dst []float32, offset int) int
}

// Capturer defines the interface for audio capture
type Capturer interface {
	Source

	// Start begins audio capture
	Start() error

	// Stop ends audio capture
	Stop() error

	// IsCapturing returns true if currently capturing audio
	IsCapturing() bool
}

// RingBuffer is a fixed-size circular sample buffer. Writes overwrite the
// oldest samples. It is safe for one writer and any number of readers.
type RingBuffer struct {
	mu   sync.Mutex
	data []float32
	pos  int
}

// NewRingBuffer creates a ring buffer holding capacity samples
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{data: make([]float32, capacity)}
}

// Write appends samples at the cursor, wrapping at the end of the buffer
func (r *RingBuffer) Write(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.data) == 0 {
		return
	}

	// Only the last len(data) samples survive a write larger than the buffer
	if len(samples) > len(r.data) {
		skipped := len(samples) - len(r.data)
		r.pos = (r.pos + skipped) % len(r.data)
		samples = samples[skipped:]
	}

	for len(samples) > 0 {
		n := copy(r.data[r.pos:], samples)
		samples = samples[n:]
		r.pos = (r.pos + n) % len(r.data)
	}
}

// Position returns the write cursor
func (r *RingBuffer) Position() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

// Capacity returns the buffer length in samples
func (r *RingBuffer) Capacity() int {
	return len(r.data)
}

// ReadAt copies samples starting at offset into dst, wrapping around
func (r *RingBuffer) ReadAt(dst []float32, offset int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.data) == 0 {
		return 0
	}

	want := min(len(dst), len(r.data))
	offset %= len(r.data)
	if offset < 0 {
		offset += len(r.data)
	}

	n := copy(dst[:want], r.data[offset:])
	if n < want {
		n += copy(dst[n:want], r.data)
	}
	return n
}
