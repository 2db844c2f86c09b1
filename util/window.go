package util

import (
	"github.com/gammazero/deque"
)

// SlidingWindow is a fixed capacity history of the most recent values.
//
// values are kept in arrival order. once the window holds capacity values,
// each Append evicts the oldest one first, so the backing deque never grows
// past its initial allocation.
type SlidingWindow struct {
	values   *deque.Deque[float64]
	capacity int
}

// NewSlidingWindow returns an empty window holding at most size values.
// sizes below 1 are treated as 1.
func NewSlidingWindow(size int) *SlidingWindow {
	if size < 1 {
		size = 1
	}

	return &SlidingWindow{
		values:   deque.New[float64](size),
		capacity: size,
	}
}

// Append adds value as the newest element, evicting the oldest if full.
func (sw *SlidingWindow) Append(value float64) {
	if sw.values.Len() >= sw.capacity {
		sw.values.PopFront()
	}
	sw.values.PushBack(value)
}

// Snapshot copies the contents, oldest first. The window is not modified.
func (sw *SlidingWindow) Snapshot() []float64 {
	return sw.SnapshotInto(nil)
}

// SnapshotInto copies the contents into dst, reusing its storage when large
// enough, and returns the filled slice.
func (sw *SlidingWindow) SnapshotInto(dst []float64) []float64 {
	n := sw.values.Len()
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]

	for i := 0; i < n; i++ {
		dst[i] = sw.values.At(i)
	}

	return dst
}

// Newest returns the most recent value, or false if the window is empty.
func (sw *SlidingWindow) Newest() (float64, bool) {
	if sw.values.Len() == 0 {
		return 0, false
	}
	return sw.values.Back(), true
}

// Len returns how many values are in the window
func (sw *SlidingWindow) Len() int {
	return sw.values.Len()
}

// Cap returns max size of window
func (sw *SlidingWindow) Cap() int {
	return sw.capacity
}

// Full reports whether the window holds Cap values.
func (sw *SlidingWindow) Full() bool {
	return sw.values.Len() >= sw.capacity
}

// Reset empties the window.
func (sw *SlidingWindow) Reset() {
	sw.values.Clear()
}
