package audio

// SamplesAvailable returns how many samples were written between the last
// and the current cursor positions of a circular buffer of the given capacity.
func SamplesAvailable(last, current, capacity int) int {
	n := current - last
	if n < 0 {
		// The cursor wrapped past the end of the buffer
		n += capacity
	}
	return n
}

// Window pulls the samples written since the previous poll out of a Source
// into a contiguous analysis window.
type Window struct {
	src      Source
	samples  []float32
	analysis []float64
	last     int
}

// NewWindow creates a window holding at most size samples
func NewWindow(src Source, size int) *Window {
	return &Window{
		src:      src,
		samples:  make([]float32, size),
		analysis: make([]float64, size),
	}
}

// Poll copies the new samples into the analysis window. It returns the filled
// part of the window and how many samples became available since the last
// poll; 0 means the cursor has not moved. When more samples are available
// than the window holds, only the most recent ones are kept. The returned
// slice is reused by the next call.
func (w *Window) Poll() ([]float64, int) {
	capacity := w.src.Capacity()
	current := w.src.Position()
	available := SamplesAvailable(w.last, current, capacity)

	start := w.last
	w.last = current

	if available == 0 {
		return nil, 0
	}

	count := min(available, len(w.samples))
	if available > count {
		start = (current - count + capacity) % capacity
	}

	copied := w.src.ReadAt(w.samples[:count], start)
	for i, sample := range w.samples[:copied] {
		w.analysis[i] = float64(sample)
	}

	return w.analysis[:copied], available
}

// Sync moves the last read position to the current cursor, discarding
// everything written in between.
func (w *Window) Sync() {
	w.last = w.src.Position()
}

// Size returns the analysis window capacity
func (w *Window) Size() int {
	return len(w.samples)
}
