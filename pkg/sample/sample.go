package sample

import (
	"fmt"

	"github.com/itohio/thermod/pkg/adc"
)

// Set holds the raw readings of one sampling cycle, one slice per channel in
// acquisition order.
type Set [adc.Channels][]uint16

// Acquire reads n samples from every channel. Channels are interleaved so
// that each pass touches all inputs once. The first transport error aborts
// the acquisition.
func Acquire(t adc.Transport, n int) (Set, error) {
	var set Set
	if n <= 0 {
		return set, fmt.Errorf("invalid sample count %d", n)
	}

	for ch := range set {
		set[ch] = make([]uint16, 0, n)
	}

	for i := 0; i < n; i++ {
		for ch := range set {
			v, err := t.ReadChannel(ch)
			if err != nil {
				return Set{}, fmt.Errorf("sample %d: %w", i, err)
			}
			set[ch] = append(set[ch], v)
		}
	}

	return set, nil
}
