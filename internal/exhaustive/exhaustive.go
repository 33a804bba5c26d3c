/*
Package exhaustive finds minimum-size decision trees by trying every cut on
every subset of examples. It is only usable on tiny datasets and serves as a
reference to check the search against.
*/
package exhaustive

import "github.com/pbanos/topiary/dataset"

// MaxExamples is the largest number of examples MinSize accepts
const MaxExamples = 16

/*
MinSize returns the minimum number of inner vertices of a decision tree
classifying every example of data correctly, and false if there is none
because two examples with the same values have different labels. It panics if
data has more than MaxExamples examples.
*/
func MinSize(data *dataset.Normalized) (int, bool) {
	n := data.N()
	if n > MaxExamples {
		panic("exhaustive: too many examples")
	}
	s := &solver{data: data, memo: make(map[uint32]int)}
	size := s.minSize(uint32(1)<<n - 1)
	return size, size >= 0
}

type solver struct {
	data *dataset.Normalized
	memo map[uint32]int
}

func (s *solver) minSize(set uint32) int {
	if size, ok := s.memo[set]; ok {
		return size
	}
	best := -1
	if s.pure(set) {
		best = 0
	} else {
		for dim := range s.data.D() {
			for thr := 0; thr < s.data.DSizes[dim]-1; thr++ {
				var left, right uint32
				for e := range s.data.N() {
					if set&(1<<e) == 0 {
						continue
					}
					if s.data.Values[e][dim] <= thr {
						left |= 1 << e
					} else {
						right |= 1 << e
					}
				}
				if left == 0 || right == 0 {
					continue
				}
				l := s.minSize(left)
				if l < 0 {
					continue
				}
				r := s.minSize(right)
				if r < 0 {
					continue
				}
				if best < 0 || l+r+1 < best {
					best = l + r + 1
				}
			}
		}
	}
	s.memo[set] = best
	return best
}

func (s *solver) pure(set uint32) bool {
	seen := [2]bool{}
	for e := range s.data.N() {
		if set&(1<<e) == 0 {
			continue
		}
		if s.data.Labels[e] {
			seen[1] = true
		} else {
			seen[0] = true
		}
	}
	return !seen[0] || !seen[1]
}
