package dataset

import (
	"fmt"
	"slices"
	"strings"
)

/*
Cut is a split of examples in a dimension into those with value less than or
equal to the threshold and those above it.
*/
type Cut struct {
	Dim       int
	Threshold float64
}

/*
Normalized is a dataset whose values have been replaced by their rank among
the distinct values of their dimension.

Conversion[i][t] is the cut of the original set corresponding to the
normalized cut "value in dimension i <= t", and ExampleMap[e] the row of the
original set example e comes from. A Normalized dataset must not be modified
once built.
*/
type Normalized struct {
	Values     [][]int
	Labels     []bool
	DSizes     []int
	Conversion [][]Cut
	ExampleMap []int
}

// N returns the number of examples
func (n *Normalized) N() int {
	return len(n.Values)
}

// D returns the number of dimensions
func (n *Normalized) D() int {
	return len(n.DSizes)
}

/*
Normalize returns the normalized version of the set: every value is replaced
by its rank among the distinct values of its dimension.
*/
func (s *Set) Normalize() *Normalized {
	d := s.D()
	if d == 0 && len(s.Values) > 0 {
		d = len(s.Values[0])
	}
	columns := make([][]float64, d)
	for dim := range columns {
		columns[dim] = make([]float64, len(s.Values))
		for e, values := range s.Values {
			columns[dim][e] = values[dim]
		}
	}
	dims := make([]int, d)
	exampleMap := make([]int, len(s.Values))
	for i := range dims {
		dims[i] = i
	}
	for e := range exampleMap {
		exampleMap[e] = e
	}
	return rank(columns, dims, s.Labels, exampleMap, func(dim int, v float64) Cut {
		return Cut{Dim: dim, Threshold: v}
	})
}

/*
rank builds a Normalized dataset from the columns indexed by dims, keeping
only the examples listed in exampleMap. cut resolves a column and one of its
values to the original cut.
*/
func rank(columns [][]float64, dims []int, labels []bool, exampleMap []int, cut func(int, float64) Cut) *Normalized {
	n := &Normalized{
		Values:     make([][]int, len(exampleMap)),
		Labels:     make([]bool, len(exampleMap)),
		DSizes:     make([]int, len(dims)),
		Conversion: make([][]Cut, len(dims)),
		ExampleMap: exampleMap,
	}
	ranks := make([]map[float64]int, len(dims))
	for i, dim := range dims {
		levels := distinct(columns[dim])
		ranks[i] = make(map[float64]int, len(levels))
		for r, v := range levels {
			ranks[i][v] = r
		}
		n.DSizes[i] = len(levels)
		n.Conversion[i] = make([]Cut, max(len(levels)-1, 0))
		for t := range n.Conversion[i] {
			n.Conversion[i][t] = cut(dim, levels[t])
		}
	}
	for e, old := range exampleMap {
		n.Values[e] = make([]int, len(dims))
		for i, dim := range dims {
			n.Values[e][i] = ranks[i][columns[dim][old]]
		}
		n.Labels[e] = labels[old]
	}
	return n
}

// distinct returns the sorted distinct values of a column
func distinct(column []float64) []float64 {
	levels := slices.Clone(column)
	slices.Sort(levels)
	return slices.Compact(levels)
}

// NumberOfCuts returns the number of distinct cuts over all dimensions
func (n *Normalized) NumberOfCuts() int {
	var count int
	for _, s := range n.DSizes {
		count += s - 1
	}
	return count
}

// Delta returns the largest number of dimensions in which two examples differ
func (n *Normalized) Delta() int {
	var delta int
	for e1 := range n.Values {
		for e2 := e1 + 1; e2 < len(n.Values); e2++ {
			var diff int
			for i, v := range n.Values[e1] {
				if v != n.Values[e2][i] {
					diff++
				}
			}
			delta = max(delta, diff)
		}
	}
	return delta
}

// MaxCuts returns the largest number of cuts separating two examples
func (n *Normalized) MaxCuts() int {
	var maxCuts int
	for e1 := range n.Values {
		for e2 := e1 + 1; e2 < len(n.Values); e2++ {
			maxCuts = max(maxCuts, n.Distance(e1, e2))
		}
	}
	return maxCuts
}

// BigD returns the largest number of levels of a dimension
func (n *Normalized) BigD() int {
	var bigD int
	for _, s := range n.DSizes {
		bigD = max(bigD, s)
	}
	return bigD
}

// Distance returns the L1 distance between examples e1 and e2
func (n *Normalized) Distance(e1, e2 int) int {
	var dist int
	for i, v := range n.Values[e1] {
		if v > n.Values[e2][i] {
			dist += v - n.Values[e2][i]
		} else {
			dist += n.Values[e2][i] - v
		}
	}
	return dist
}

/*
Pure returns whether all examples carry the same label. Empty datasets are
pure.
*/
func (n *Normalized) Pure() bool {
	for _, l := range n.Labels {
		if l != n.Labels[0] {
			return false
		}
	}
	return true
}

/*
Realizable returns whether no two examples share all their values while
carrying different labels.
*/
func (n *Normalized) Realizable() bool {
	order := make([]int, n.N())
	for e := range order {
		order[e] = e
	}
	slices.SortFunc(order, func(a, b int) int {
		return slices.Compare(n.Values[a], n.Values[b])
	})
	for i := 1; i < len(order); i++ {
		a, b := order[i-1], order[i]
		if n.Labels[a] != n.Labels[b] && slices.Equal(n.Values[a], n.Values[b]) {
			return false
		}
	}
	return true
}

func (n *Normalized) String() string {
	var sb strings.Builder
	for e, values := range n.Values {
		fmt.Fprintf(&sb, "E%d %v: %v\n", e, n.Labels[e], values)
	}
	return sb.String()
}
