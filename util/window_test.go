package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowKeepsMostRecent(t *testing.T) {
	const capacity = 5

	for _, total := range []int{0, 1, 4, 5, 6, 12, 101} {
		sw := NewSlidingWindow(capacity)

		for i := 0; i < total; i++ {
			sw.Append(float64(i))
		}

		want := total
		if want > capacity {
			want = capacity
		}

		snap := sw.Snapshot()
		require.Len(t, snap, want, "after %d appends", total)
		assert.Equal(t, want, sw.Len())
		assert.Equal(t, total >= capacity, sw.Full())

		for i, v := range snap {
			assert.Equal(t, float64(total-want+i), v, "after %d appends", total)
		}
	}
}

func TestSlidingWindowSnapshotDoesNotMutate(t *testing.T) {
	sw := NewSlidingWindow(3)
	sw.Append(1)
	sw.Append(2)

	snap := sw.Snapshot()
	snap[0] = 42

	assert.Equal(t, []float64{1, 2}, sw.Snapshot())

	newest, ok := sw.Newest()
	require.True(t, ok)
	assert.Equal(t, 2.0, newest)
}

func TestSlidingWindowSnapshotInto(t *testing.T) {
	sw := NewSlidingWindow(4)
	for i := 0; i < 6; i++ {
		sw.Append(float64(i))
	}

	buf := make([]float64, 0, 8)
	out := sw.SnapshotInto(buf)

	assert.Equal(t, []float64{2, 3, 4, 5}, out)
	assert.Equal(t, 8, cap(out))
}

func TestSlidingWindowReset(t *testing.T) {
	sw := NewSlidingWindow(0)
	assert.Equal(t, 1, sw.Cap())

	sw.Append(3)
	sw.Append(4)
	assert.Equal(t, []float64{4}, sw.Snapshot())

	sw.Reset()
	assert.Equal(t, 0, sw.Len())
	_, ok := sw.Newest()
	assert.False(t, ok)
	assert.Empty(t, sw.Snapshot())
}
