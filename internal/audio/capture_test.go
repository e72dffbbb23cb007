package audio_test

import (
	"testing"

	"github.com/0xlemi/notetracker/internal/audio"
)

func TestRingBufferWriteWraps(t *testing.T) {
	rb := audio.NewRingBuffer(8)

	rb.Write([]float32{1, 2, 3, 4, 5, 6})
	if got := rb.Position(); got != 6 {
		t.Fatalf("Position() = %d, want 6", got)
	}

	rb.Write([]float32{7, 8, 9, 10})
	if got := rb.Position(); got != 2 {
		t.Fatalf("Position() = %d, want 2", got)
	}

	dst := make([]float32, 8)
	if n := rb.ReadAt(dst, 0); n != 8 {
		t.Fatalf("ReadAt copied %d, want 8", n)
	}
	want := []float32{9, 10, 3, 4, 5, 6, 7, 8}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestRingBufferReadAtWraps(t *testing.T) {
	rb := audio.NewRingBuffer(5)
	rb.Write([]float32{1, 2, 3, 4, 5})

	dst := make([]float32, 3)
	if n := rb.ReadAt(dst, 4); n != 3 {
		t.Fatalf("ReadAt copied %d, want 3", n)
	}
	want := []float32{5, 1, 2}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestRingBufferOversizedWrite(t *testing.T) {
	rb := audio.NewRingBuffer(4)
	rb.Write([]float32{1, 2, 3, 4, 5, 6})

	if got := rb.Position(); got != 2 {
		t.Fatalf("Position() = %d, want 2", got)
	}

	dst := make([]float32, 4)
	rb.ReadAt(dst, 2)
	want := []float32{3, 4, 5, 6}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestRingBufferReadLargerThanCapacity(t *testing.T) {
	rb := audio.NewRingBuffer(4)
	rb.Write([]float32{1, 2, 3, 4})
	if n := rb.ReadAt(make([]float32, 10), 0); n != 4 {
		t.Errorf("ReadAt copied %d, want 4", n)
	}
}
