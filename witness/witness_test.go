package witness

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbanos/topiary/dataset"
	"github.com/pbanos/topiary/feature"
	"github.com/pbanos/topiary/seq"
)

func setOf(t *testing.T, values [][]float64, labels []bool) *dataset.Set {
	t.Helper()
	s := dataset.New(feature.Anonymous(len(values[0])), len(values))
	for e, v := range values {
		require.NoError(t, s.Add(v, labels[e]))
	}
	return s
}

func line(t *testing.T, labels ...bool) *dataset.Set {
	t.Helper()
	values := make([][]float64, len(labels))
	for i := range values {
		values[i] = []float64{float64(i)}
	}
	return setOf(t, values, labels)
}

func randomSet(t *testing.T, r *rand.Rand, n, d, levels int) *dataset.Set {
	t.Helper()
	values := make([][]float64, n)
	labels := make([]bool, n)
	for e := range values {
		values[e] = make([]float64, d)
		for i := range values[e] {
			values[e][i] = float64(r.IntN(levels))
		}
		labels[e] = r.IntN(2) == 0
	}
	return setOf(t, values, labels)
}

// checkPartition verifies every example sits in the leaf its values lead
// to, with the right dirtiness, and that derived state is consistent.
func checkPartition(t *testing.T, w *Tree) {
	t.Helper()
	d := w.Data()
	require.Equal(t, -1, w.Parent(w.Root()))
	require.Equal(t, w.InnerCount(), w.Size(w.Root()))
	require.Equal(t, w.InnerCount()+1, w.LeafCount())
	lowest := -1
	for e := range d.N() {
		if w.LeafOf(e) == -1 {
			continue
		}
		v := w.Root()
		for !w.IsLeaf(v) {
			if d.Values[e][w.Dim(v)] <= w.Threshold(v) {
				v = w.Left(v)
			} else {
				v = w.Right(v)
			}
		}
		require.Equal(t, v, w.LeafOf(e), "leaf of example %d", e)
		require.Equal(t, d.Labels[e] != w.Class(v), w.IsDirty(e), "dirtiness of example %d", e)
		if w.IsDirty(e) && (lowest == -1 || w.before(e, lowest)) {
			lowest = e
		}
	}
	for i := range w.LeafCount() {
		l := w.Leaf(i)
		require.Equal(t, w.DirtyCount(l) == 0, w.IsCorrect(l))
		require.Equal(t, w.Depth(l), w.MaxDepth(l))
	}
	e, ok := w.LowestDirtyExample(w.Root())
	require.Equal(t, lowest != -1, ok)
	require.Equal(t, lowest, e)
	require.Equal(t, lowest == -1, w.IsCorrect(w.Root()))
}

func leaves(w *Tree) []int {
	out := make([]int, w.Data().N())
	for e := range out {
		out[e] = w.LeafOf(e)
	}
	return out
}

func TestNewSingleLeaf(t *testing.T) {
	s := line(t, false, true, false, true, true)
	n := s.Normalize()
	w := New(n, 3, Options{}, 1)
	checkPartition(t, w)
	assert.Equal(t, 3, w.Root())
	assert.True(t, w.IsLeaf(w.Root()))
	assert.True(t, w.Class(w.Root()))
	assert.Equal(t, 1, w.Witness(w.Root()))
	assert.Equal(t, 5, w.LeafExampleCount(w.Root()))
	assert.Equal(t, 2, w.DirtyCount(w.Root()))
	assert.Equal(t, -1, w.LastAddedInner())
	e, ok := w.LowestDirtyExample(w.Root())
	assert.True(t, ok)
	assert.Equal(t, 0, e)

	dt := w.DecisionTree()
	require.NoError(t, dt.Validate())
	assert.Equal(t, 0, dt.Inner())
	assert.InDelta(t, 0.6, dt.Accuracy(s.Values, s.Labels), 1e-9)
}

func TestRefineSeparates(t *testing.T) {
	s := line(t, false, false, false, true, true, true)
	n := s.Normalize()
	w := New(n, 2, Options{}, 0)
	w.Refine(w.Root(), 0, 2, 3)
	checkPartition(t, w)
	assert.Equal(t, 0, w.Root())
	assert.Equal(t, 1, w.InnerCount())
	assert.Equal(t, 3, w.LastAddedLeaf())
	assert.Equal(t, 2, w.Left(0))
	assert.Equal(t, 3, w.Right(0))
	assert.True(t, w.IsCorrect(w.Root()))
	assert.Equal(t, 1, w.Depth(3))
	assert.Equal(t, 1, w.MaxDepth(w.Root()))
	assert.True(t, w.Modified(2))
	assert.True(t, w.Modified(3))
	assert.False(t, w.Modified(0))

	dt := w.DecisionTree()
	require.NoError(t, dt.Validate())
	assert.Equal(t, 1, dt.Inner())
	assert.Equal(t, 0, dt.Dim[0])
	assert.InDelta(t, 2.0, dt.Threshold[0], 1e-9)
	assert.Equal(t, 1.0, dt.Accuracy(s.Values, s.Labels))
}

func TestUpdateLastRefinementSwapsSides(t *testing.T) {
	s := setOf(t, [][]float64{{0, 3}, {1, 2}, {2, 1}, {3, 0}}, []bool{false, false, true, true})
	w := New(s.Normalize(), 2, Options{}, 0)
	w.Refine(w.Root(), 0, 1, 3)
	checkPartition(t, w)
	assert.Equal(t, 3, w.Right(0))

	// witness 3 has the lowest value of dimension 1
	w.UpdateLastRefinement(1, 1)
	checkPartition(t, w)
	assert.Equal(t, 3, w.Left(0))
	assert.Equal(t, 1, w.Dim(0))
	assert.True(t, w.IsCorrect(w.Root()))
}

func TestUpdateLastThreshold(t *testing.T) {
	s := line(t, false, false, true, true, true)
	w := New(s.Normalize(), 2, Options{}, 0)
	w.Refine(w.Root(), 0, 3, 4)
	checkPartition(t, w)
	assert.Equal(t, 1, w.LeafExampleCount(3))

	assert.Equal(t, 2, w.UpdateLastThreshold(1))
	checkPartition(t, w)
	assert.Equal(t, 3, w.LeafExampleCount(3))
	assert.True(t, w.IsCorrect(w.Root()))

	assert.Equal(t, 0, w.UpdateLastThreshold(1))
	assert.Equal(t, 1, w.UpdateLastThreshold(2))
	checkPartition(t, w)
	assert.Equal(t, 2, w.LeafExampleCount(3))
}

func TestRandomEditsKeepPartitionAndRevertExactly(t *testing.T) {
	for _, opts := range []Options{{}, {DirtyPriority: true}, {SubsetConstraints: true}, {true, true}} {
		r := rand.New(rand.NewPCG(7, 11))
		s := randomSet(t, r, 40, 3, 5)
		n := s.Normalize()
		w := New(n, 6, opts, r.IntN(n.N()))
		var snapshots [][]int
		var roots []int
		for step := 0; step < 300; step++ {
			switch op := r.IntN(4); {
			case op == 0 && w.InnerCount() < w.MaxSize():
				dim := r.IntN(n.D())
				if n.DSizes[dim] < 2 {
					continue
				}
				var v int
				if k := r.IntN(2*w.InnerCount() + 1); k < w.InnerCount() {
					v = k
				} else {
					v = w.Leaf(k - w.InnerCount())
				}
				snapshots = append(snapshots, leaves(w))
				roots = append(roots, w.Root())
				w.Refine(v, dim, r.IntN(n.DSizes[dim]-1), r.IntN(n.N()))
			case op == 1 && w.InnerCount() > 0:
				dim := r.IntN(n.D())
				if n.DSizes[dim] < 2 {
					continue
				}
				w.UpdateLastRefinement(dim, r.IntN(n.DSizes[dim]-1))
			case op == 2 && w.InnerCount() > 0:
				inner, leaf := w.LastAddedInner(), w.LastAddedLeaf()
				lo, hi := 0, n.DSizes[w.Dim(inner)]-2
				if value := n.Values[w.Witness(leaf)][w.Dim(inner)]; w.Left(inner) == leaf {
					lo = value
				} else {
					hi = min(hi, value-1)
				}
				if lo > hi {
					continue
				}
				w.UpdateLastThreshold(lo + r.IntN(hi-lo+1))
			case op == 3 && w.InnerCount() > 0:
				w.RevertLastRefinement()
				last := len(snapshots) - 1
				require.Equal(t, snapshots[last], leaves(w), "step %d", step)
				require.Equal(t, roots[last], w.Root(), "step %d", step)
				snapshots, roots = snapshots[:last], roots[:last]
			}
			checkPartition(t, w)
			if !opts.SubsetConstraints {
				require.False(t, w.ConstraintBroken())
			}
			dt := w.DecisionTree()
			require.NoError(t, dt.Validate())
			for e := range s.N() {
				require.Equal(t, w.Class(w.LeafOf(e)), dt.Classify(s.Values[e]))
			}
		}
	}
}

func TestEnvelopes(t *testing.T) {
	s := setOf(t, [][]float64{{0, 5}, {1, 4}, {2, 3}, {3, 2}, {4, 1}}, []bool{false, true, false, true, true})
	w := New(s.Normalize(), 2, Options{}, 0)
	w.Refine(w.Root(), 0, 2, 4)
	w.UpdateWitnessThresholds(w.Root())
	w.UpdateDirtyThresholds(w.Root())

	lo, hi := w.WitnessEnvelope(0, w.Root())
	assert.Equal(t, []int{0, 4}, []int{lo, hi})
	lo, hi = w.WitnessEnvelope(1, 3)
	assert.Equal(t, []int{0, 0}, []int{lo, hi})

	// example 1 is the only dirty one
	lo, hi = w.DirtyEnvelope(true, 0, w.Root())
	assert.Equal(t, []int{1, 1}, []int{lo, hi})
	lo, hi = w.DirtyEnvelope(false, 0, w.Root())
	assert.Greater(t, lo, hi)
	lo, hi = w.DirtyEnvelope(true, 1, 3)
	assert.Greater(t, lo, hi)
}

func TestDirtyPriorityFollowsWitnessDistance(t *testing.T) {
	s := line(t, true, false, false, false, true)
	w := New(s.Normalize(), 1, Options{DirtyPriority: true}, 0)
	// dirty examples are ranked by their distance to witness 0
	e, ok := w.LowestDirtyExample(w.Root())
	require.True(t, ok)
	assert.Equal(t, 1, e)
	assert.Equal(t, 1, w.Priority(1))
	assert.Equal(t, 3, w.Priority(3))
}

func TestDirtyPriorityStopsAtEnclosingEnvelope(t *testing.T) {
	s := line(t, false, true, false, false, true)
	w := New(s.Normalize(), 2, Options{DirtyPriority: true}, 0)
	w.Refine(w.Root(), 0, 2, 4)
	checkPartition(t, w)
	// the envelope of the root holds both witnesses, so only the distance
	// to the witness of the leaf counts
	assert.Equal(t, 1, w.Priority(1))
	assert.Equal(t, 1, w.Priority(3))
	e, ok := w.LowestDirtyExample(w.Root())
	require.True(t, ok)
	assert.Equal(t, 1, e)
}

func TestReduceToSubset(t *testing.T) {
	s := line(t, false, true, false, true, false)
	w := New(s.Normalize(), 2, Options{}, 0)
	subset := seq.New(5)
	subset.Add(0)
	subset.Add(2)
	subset.Add(3)
	w.ReduceToSubset(subset)
	checkPartition(t, w)
	assert.Equal(t, 3, w.LeafExampleCount(w.Root()))
	assert.Equal(t, -1, w.LeafOf(1))
	assert.Equal(t, -1, w.LeafOf(4))
	assert.Equal(t, 1, w.DirtyCount(w.Root()))

	got := seq.New(5)
	w.AppendLeafExamples(w.Root(), got)
	got.Sort()
	assert.Equal(t, []int{0, 2, 3}, got.Values())

	w.Refine(w.Root(), 0, 2, 3)
	checkPartition(t, w)
	assert.True(t, w.IsCorrect(w.Root()))
	assert.Panics(t, func() { w.ReduceToSubset(subset) })
}

func TestSubsetConstraints(t *testing.T) {
	s := line(t, false, false, true, true)
	w := New(s.Normalize(), 3, Options{SubsetConstraints: true}, 0)
	w.Refine(w.Root(), 0, 1, 3)
	assert.False(t, w.ConstraintBroken())

	// example 1 joins the leaf of witness 3 and becomes its constraint
	assert.Equal(t, 1, w.UpdateLastThreshold(0))
	assert.False(t, w.ConstraintBroken())

	// a new leaf above vertex 0 takes example 1 out of its subtree
	w.Refine(0, 0, 0, 1)
	checkPartition(t, w)
	assert.True(t, w.ConstraintBroken())
	assert.Equal(t, 1, w.thresholdSC.Broken())

	w.RevertLastRefinement()
	checkPartition(t, w)
	assert.False(t, w.ConstraintBroken())
	assert.Equal(t, 0, w.thresholdSC.Broken())

	// moving the threshold back removes the constraint
	w.UpdateLastThreshold(1)
	w.Refine(0, 0, 0, 1)
	w.RevertLastRefinement()
	assert.False(t, w.ConstraintBroken())
}

func TestHeightConstraint(t *testing.T) {
	s := line(t, false, true, false, true)
	w := New(s.Normalize(), 3, Options{SubsetConstraints: true}, 0)
	w.Refine(w.Root(), 0, 0, 1)
	assert.False(t, w.ConstraintBroken())
	// the right child of vertex 0 keeps dirty example 2, tracked by the
	// height constraint of the new vertex above 0
	w.Refine(0, 0, 0, 0)
	checkPartition(t, w)
	assert.False(t, w.ConstraintBroken())
	assert.Equal(t, 1, w.heightSC.Members(1))
	w.RevertLastRefinement()

	// the left child of vertex 0 has no dirty example
	w.Refine(0, 0, 2, 3)
	checkPartition(t, w)
	assert.True(t, w.ConstraintBroken())
	w.RevertLastRefinement()
	assert.False(t, w.ConstraintBroken())
}

func TestPreconditionsPanic(t *testing.T) {
	s := line(t, false, true)
	w := New(s.Normalize(), 1, Options{}, 0)
	assert.Panics(t, func() { w.RevertLastRefinement() })
	assert.Panics(t, func() { w.UpdateLastRefinement(0, 0) })
	assert.Panics(t, func() { w.UpdateLastThreshold(0) })
	assert.Panics(t, func() { w.Refine(0, 0, 0, 1) })
	assert.Panics(t, func() { New(s.Normalize(), 1, Options{}, 5) })

	w.Refine(w.Root(), 0, 0, 1)
	assert.Panics(t, func() { w.Refine(w.Root(), 0, 0, 1) })
}

func TestUpdateLastThresholdKeepsWitnessSide(t *testing.T) {
	s := line(t, false, false, true, true, true)
	w := New(s.Normalize(), 2, Options{}, 0)
	w.Refine(w.Root(), 0, 2, 3)
	before := leaves(w)

	// witness 3 sits on the right of the split, so the threshold may not
	// reach its value
	require.Panics(t, func() { w.UpdateLastThreshold(3) })
	assert.Equal(t, before, leaves(w))
	assert.Equal(t, 2, w.Threshold(w.LastAddedInner()))

	assert.Equal(t, 1, w.UpdateLastThreshold(1))
	checkPartition(t, w)
	assert.Equal(t, 1, w.UpdateLastThreshold(2))
	checkPartition(t, w)
	assert.Equal(t, before, leaves(w))
}
