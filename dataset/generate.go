package dataset

import (
	"fmt"
	"math"

	"github.com/pbanos/topiary/feature"
	"github.com/pbanos/topiary/tree"
)

/*
Generate returns a set of n examples with values drawn uniformly from the
range of each feature, [min, max) for continuous features and the integers
in [min, max) for integer ones, and uniformly random labels. Every feature
must have a finite range.
*/
func Generate(n int, features []feature.Feature, seed int64) (*Set, error) {
	if err := checkRanges(features); err != nil {
		return nil, err
	}
	r := newRand(seed)
	s := New(features, n)
	for range n {
		values := make([]float64, len(features))
		for i, f := range features {
			lo, hi := f.Range()
			values[i] = draw(f, lo, hi, r.Float64, r.IntN)
		}
		s.Values = append(s.Values, values)
		s.Labels = append(s.Labels, r.IntN(2) == 1)
	}
	return s, nil
}

/*
GenerateFromTree returns a set of n examples labeled by the given tree. Each
example follows a uniformly random root-to-leaf path of the tree, its values
drawn from the region of the feature ranges the path leads to, that is
(lo, hi] for each feature after narrowing its range with every split on the
path, and takes the class of the leaf. The splits of the tree must refer to
the given features, which must have finite ranges. An error is returned if a
path leads to an empty region.
*/
func GenerateFromTree(n int, features []feature.Feature, seed int64, t *tree.DecisionTree) (*Set, error) {
	if err := checkRanges(features); err != nil {
		return nil, err
	}
	r := newRand(seed)
	s := New(features, n)
	lo, hi := make([]float64, len(features)), make([]float64, len(features))
	for range n {
		for i, f := range features {
			lo[i], hi[i] = f.Range()
		}
		v := t.Root
		for !t.IsLeaf(v) {
			dim := t.Dim[v]
			if dim >= len(features) {
				return nil, fmt.Errorf("tree splits on dimension %d but only %d features are given", dim, len(features))
			}
			if r.IntN(2) == 0 {
				hi[dim] = math.Min(hi[dim], t.Threshold[v])
				v = t.Left[v]
			} else {
				lo[dim] = math.Max(lo[dim], t.Threshold[v])
				v = t.Right[v]
			}
		}
		values := make([]float64, len(features))
		for i, f := range features {
			if hi[i] <= lo[i] || (isInteger(f) && math.Floor(hi[i]) <= lo[i]) {
				return nil, fmt.Errorf("tree leaf %d reaches an empty region of feature %s", v, f.Name())
			}
			// drawing downwards from hi yields values in (lo, hi]
			values[i] = -draw(f, -hi[i], -lo[i], r.Float64, r.IntN)
		}
		s.Values = append(s.Values, values)
		s.Labels = append(s.Labels, t.Class[v])
	}
	return s, nil
}

func checkRanges(features []feature.Feature) error {
	for _, f := range features {
		lo, hi := f.Range()
		if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			return fmt.Errorf("feature %s has an unbounded range", f.Name())
		}
		if hi <= lo {
			return fmt.Errorf("feature %s has an empty range", f.Name())
		}
	}
	return nil
}

func isInteger(f feature.Feature) bool {
	_, ok := f.(*feature.IntegerFeature)
	return ok
}

// draw returns a value of f's kind in [lo, hi)
func draw(f feature.Feature, lo, hi float64, float func() float64, intn func(int) int) float64 {
	if isInteger(f) {
		from := math.Ceil(lo)
		span := int(math.Ceil(hi) - from)
		if span <= 0 {
			return from
		}
		return from + float64(intn(span))
	}
	return lo + float()*(hi-lo)
}
