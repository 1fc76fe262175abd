package sample

import (
	"math"
	"slices"
)

// Condition reduces one channel's readings to a single value with an
// averaging median filter: the samples are sorted and the mean is taken over
// a window of radius 1 + round(ln(n)) around the middle element. The window
// is truncated at both ends of the sorted slice, so short inputs average
// whatever is available.
//
// Rounding is half-to-even. Condition panics on an empty slice.
func Condition(samples []uint16) float64 {
	n := len(samples)
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	mid := int(math.RoundToEven(float64(n) * 0.5))
	radius := 1 + int(math.RoundToEven(math.Log(float64(n))))

	// Clamped, not wrapped: a negative start averages from the first element
	lo := max(mid-radius, 0)
	hi := min(mid+radius+1, n)

	var sum float64
	for _, v := range sorted[lo:hi] {
		sum += float64(v)
	}

	return sum / float64(hi-lo)
}
