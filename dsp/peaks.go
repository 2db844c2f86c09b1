package dsp

import (
	"sort"
)

// Peak is a local maximum of a window.
type Peak struct {
	Index      int     // position in the window
	Prominence float64 // height above the lower of its two bounding minima
}

// FindPeaks returns the local maxima of x that are at least minDistance
// samples apart and at least minProminence high, ordered by index.
//
// When two maxima are closer than minDistance the higher one is kept (the
// earlier one on a tie). Flat runs count as one maximum at their middle
// sample, and the first and last samples are never peaks.
func FindPeaks(x []float64, minDistance int, minProminence float64) []Peak {
	candidates := localMaxima(x)
	if len(candidates) == 0 {
		return nil
	}

	if minDistance > 1 {
		candidates = selectByDistance(x, candidates, minDistance)
	}

	peaks := make([]Peak, 0, len(candidates))
	for _, idx := range candidates {
		prom := prominence(x, idx)
		if prom >= minProminence {
			peaks = append(peaks, Peak{Index: idx, Prominence: prom})
		}
	}

	return peaks
}

// localMaxima finds samples higher than both neighbours, treating a plateau
// with lower samples on both sides as a single maximum.
func localMaxima(x []float64) []int {
	var out []int

	last := len(x) - 1

	for i := 1; i < last; i++ {
		if x[i-1] >= x[i] {
			continue
		}

		ahead := i + 1
		for ahead < last && x[ahead] == x[i] {
			ahead++
		}

		if x[ahead] < x[i] {
			out = append(out, (i+ahead-1)/2)
			i = ahead
		}
	}

	return out
}

// selectByDistance drops every candidate closer than distance to a higher
// one. candidates must be sorted by index; the result is too.
func selectByDistance(x []float64, candidates []int, distance int) []int {
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(i, j int) bool {
		return x[candidates[order[i]]] > x[candidates[order[j]]]
	})

	keep := make([]bool, len(candidates))
	for i := range keep {
		keep[i] = true
	}

	for _, ci := range order {
		if !keep[ci] {
			continue
		}

		idx := candidates[ci]

		for k := ci - 1; k >= 0 && idx-candidates[k] < distance; k-- {
			keep[k] = false
		}

		for k := ci + 1; k < len(candidates) && candidates[k]-idx < distance; k++ {
			keep[k] = false
		}
	}

	out := candidates[:0]
	for ci, idx := range candidates {
		if keep[ci] {
			out = append(out, idx)
		}
	}

	return out
}

// prominence walks outward from peak on both sides until a strictly higher
// sample or the edge, and measures the peak against the lower of the two
// minima it passed.
func prominence(x []float64, peak int) float64 {
	height := x[peak]

	leftMin := height
	for i := peak - 1; i >= 0 && x[i] <= height; i-- {
		if x[i] < leftMin {
			leftMin = x[i]
		}
	}

	rightMin := height
	for i := peak + 1; i < len(x) && x[i] <= height; i++ {
		if x[i] < rightMin {
			rightMin = x[i]
		}
	}

	base := leftMin
	if rightMin < base {
		base = rightMin
	}

	return height - base
}
