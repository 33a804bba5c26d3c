package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
)

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0x746f7069))
}

/*
RandomSubset splits the set into a random subset of the given size and the
rest of its examples, both keeping the original order of examples. The
same seed yields the same split. It panics if size is not between 0 and the
number of examples.
*/
func (s *Set) RandomSubset(size int, seed int64) (*Set, *Set) {
	n := s.N()
	if size < 0 || size > n {
		panic(fmt.Sprintf("subset size %d out of range for a set of %d examples", size, n))
	}
	subset, rest := New(s.Features, size), New(s.Features, n-size)
	r := newRand(seed)
	remaining := size
	for e := range n {
		if r.IntN(math.MaxInt32)%(n-e) < remaining {
			subset.Values = append(subset.Values, s.Values[e])
			subset.Labels = append(subset.Labels, s.Labels[e])
			remaining--
		} else {
			rest.Values = append(rest.Values, s.Values[e])
			rest.Labels = append(rest.Labels, s.Labels[e])
		}
	}
	return subset, rest
}

/*
SubsetSize returns the number of examples of a subset taking the given ratio
of n examples, rounded to the nearest integer and clamped to [0, n].
*/
func SubsetSize(n int, ratio float64) int {
	return min(max(int(math.Round(float64(n)*ratio)), 0), n)
}
