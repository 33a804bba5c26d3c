package dataset

import (
	"slices"
)

/*
ReduceAndNormalize shrinks the set before normalizing it, without changing
the size of the smallest zero-error tree for it:

  - levels at either end of a dimension that only hold examples of one class
    are folded into their neighbour;
  - a cut is dropped when a cut of a later dimension separates exactly the
    same examples;
  - pairs of dimensions ordering the examples the same way are merged into a
    single new dimension;
  - dimensions left with a single level are dropped;
  - duplicated examples are removed, keeping the last occurrence.

The conversion of the result maps every cut back to a cut of the original set
and its example map points to original rows.
*/
func (s *Set) ReduceAndNormalize() *Normalized {
	n, d := s.N(), s.D()
	r := &reducer{
		labels:  s.Labels,
		columns: make([][]float64, d),
		levels:  make([][]float64, d),
		origin:  make(map[Cut]Cut),
		order:   make([]int, n),
		d:       d,
	}
	for dim := range d {
		r.columns[dim] = make([]float64, n)
		for e, values := range s.Values {
			r.columns[dim][e] = values[dim]
		}
		r.levels[dim] = distinct(r.columns[dim])
	}
	for e := range r.order {
		r.order[e] = e
	}
	for dim := range d {
		r.cutDominatedEdges(dim)
	}
	r.removeEqualCuts()
	dims := r.mergeDimensions()
	dims = slices.DeleteFunc(dims, func(dim int) bool {
		return len(r.levels[dim]) < 2
	})
	exampleMap := r.withoutDuplicates(dims)
	return rank(r.columns, dims, s.Labels, exampleMap, r.originalCut)
}

/*
reducer holds the working copy of the columns of a set being reduced. Columns
beyond d are dimensions built by merging others, their cuts resolved through
origin.
*/
type reducer struct {
	labels  []bool
	columns [][]float64
	// levels[dim] holds the sorted distinct values still present in a column;
	// its cuts are all of them but the last.
	levels [][]float64
	origin map[Cut]Cut
	order  []int
	d      int
}

func (r *reducer) sortBy(dim int, desc bool) {
	column := r.columns[dim]
	slices.SortStableFunc(r.order, func(a, b int) int {
		switch {
		case column[a] < column[b]:
			return boolSign(!desc)
		case column[a] > column[b]:
			return boolSign(desc)
		}
		return 0
	})
}

func boolSign(negative bool) int {
	if negative {
		return -1
	}
	return 1
}

/*
cutDominatedEdges folds the lowest levels of a dimension into the highest of
them that still leaves only one class below it, and the same for the highest
levels.
*/
func (r *reducer) cutDominatedEdges(dim int) {
	column := r.columns[dim]
	levels := r.levels[dim]
	if len(levels) < 2 {
		return
	}
	r.sortBy(dim, false)
	best := r.lastSingleClass(column, levels, 1, len(levels)-2, 1, func(v, thr float64) bool { return v <= thr })
	for _, e := range r.order {
		if column[e] >= levels[best] {
			break
		}
		column[e] = levels[best]
	}
	levels = levels[best:]

	r.sortBy(dim, true)
	best = r.lastSingleClass(column, levels, len(levels)-2, 1, -1, func(v, thr float64) bool { return v >= thr })
	for _, e := range r.order {
		if column[e] <= levels[best] {
			break
		}
		column[e] = levels[best]
	}
	r.levels[dim] = levels[:best+1]
}

/*
lastSingleClass walks levels from index from to index to in steps of step,
counting the examples of r.order reached by each of them, and returns the
index of the last level reached before both classes were seen. When no level
is reached it returns from-step.
*/
func (r *reducer) lastSingleClass(column, levels []float64, from, to, step int, reached func(float64, float64) bool) int {
	best := from - step
	var next, trues, falses int
	for i := from; (step > 0 && i <= to) || (step < 0 && i >= to); i += step {
		for next < len(r.order) && reached(column[r.order[next]], levels[i]) {
			if r.labels[r.order[next]] {
				trues++
			} else {
				falses++
			}
			next++
		}
		if trues != 0 && falses != 0 {
			break
		}
		best = i
	}
	return best
}

/*
removeEqualCuts drops every cut that separates the same examples as a cut of
a later dimension, moving the examples on its level to the next one.
*/
func (r *reducer) removeEqualCuts() {
	n := len(r.order)
	left := make([]bool, n)
	for dim1 := 0; dim1 < r.d-1; dim1++ {
		column := r.columns[dim1]
		for k := 0; k < len(r.levels[dim1])-1; {
			thr, next := r.levels[dim1][k], r.levels[dim1][k+1]
			for e := range n {
				left[e] = column[e] <= thr
			}
			if !r.laterCutEquals(dim1, left) {
				k++
				continue
			}
			for e := range n {
				if column[e] == thr {
					column[e] = next
				}
			}
			r.levels[dim1] = slices.Delete(r.levels[dim1], k, k+1)
		}
	}
}

func (r *reducer) laterCutEquals(dim1 int, left []bool) bool {
	for dim2 := dim1 + 1; dim2 < r.d; dim2++ {
		column := r.columns[dim2]
		levels := r.levels[dim2]
	cuts:
		for _, thr := range levels[:max(len(levels)-1, 0)] {
			for e, l := range left {
				if l != (column[e] <= thr) {
					continue cuts
				}
			}
			return true
		}
	}
	return false
}

/*
mergeDimensions looks, from the dimension with fewest cuts on, for pairs of
dimensions in which the examples can be sorted consistently, and replaces them
with a new dimension holding the combined order. It returns the dimensions
left.
*/
func (r *reducer) mergeDimensions() []int {
	pending := make([]int, r.d)
	for dim := range pending {
		pending[dim] = dim
	}
	slices.SortStableFunc(pending, func(a, b int) int {
		return len(r.levels[a]) - len(r.levels[b])
	})
	var final []int
	for len(pending) > 0 {
		dim1 := pending[0]
		pending = pending[1:]
		merged := false
		for i, dim2 := range pending {
			if !r.monotone(dim1, dim2) {
				continue
			}
			pending = slices.Delete(pending, i, i+1)
			pending = append(pending, r.merge(dim1, dim2))
			merged = true
			break
		}
		if !merged {
			final = append(final, dim1)
		}
	}
	slices.Sort(final)
	return final
}

// monotone sorts r.order by dim1 then dim2 and checks both columns are sorted
func (r *reducer) monotone(dim1, dim2 int) bool {
	c1, c2 := r.columns[dim1], r.columns[dim2]
	slices.SortStableFunc(r.order, func(a, b int) int {
		switch {
		case c1[a] < c1[b]:
			return -1
		case c1[a] > c1[b]:
			return 1
		case c2[a] < c2[b]:
			return -1
		case c2[a] > c2[b]:
			return 1
		}
		return 0
	})
	for i := 1; i < len(r.order); i++ {
		a, b := r.order[i-1], r.order[i]
		if c1[a] > c1[b] || c2[a] > c2[b] {
			return false
		}
	}
	return true
}

// merge builds a new column from two columns r.order sorts consistently
func (r *reducer) merge(dim1, dim2 int) int {
	c1, c2 := r.columns[dim1], r.columns[dim2]
	newDim := len(r.columns)
	merged := make([]float64, len(c1))
	if len(r.order) > 0 {
		var cur float64
		prev1, prev2 := c1[r.order[0]], c2[r.order[0]]
		for _, e := range r.order {
			switch {
			case c1[e] != prev1:
				r.origin[Cut{newDim, cur}] = r.resolve(Cut{dim1, prev1})
				cur++
			case c2[e] != prev2:
				r.origin[Cut{newDim, cur}] = r.resolve(Cut{dim2, prev2})
				cur++
			}
			prev1, prev2 = c1[e], c2[e]
			merged[e] = cur
		}
	}
	r.columns = append(r.columns, merged)
	r.levels = append(r.levels, distinct(merged))
	return newDim
}

func (r *reducer) resolve(c Cut) Cut {
	for c.Dim >= r.d {
		c = r.origin[c]
	}
	return c
}

func (r *reducer) originalCut(dim int, v float64) Cut {
	return r.resolve(Cut{Dim: dim, Threshold: v})
}

// withoutDuplicates returns the examples that do not reappear later in dims
func (r *reducer) withoutDuplicates(dims []int) []int {
	n := len(r.order)
	var kept []int
examples:
	for e1 := range n {
		for e2 := e1 + 1; e2 < n; e2++ {
			same := true
			for _, dim := range dims {
				if r.columns[dim][e1] != r.columns[dim][e2] {
					same = false
					break
				}
			}
			if same {
				continue examples
			}
		}
		kept = append(kept, e1)
	}
	if kept == nil {
		kept = []int{}
	}
	return kept
}
