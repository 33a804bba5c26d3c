/*
Package bound computes lower bounds on the number of refinements still needed
to classify every example correctly, used to prune a search for minimum-size
decision trees.
*/
package bound

import (
	"container/heap"

	"github.com/pbanos/topiary/witness"
)

/*
Estimator computes a combinatorial lower bound on the number of further
refinements a witness tree needs, from the misclassified examples lying
beyond the witness envelopes of its vertices.

An Estimator is bound to one tree and keeps per-vertex work queues sized for
it. It is not safe for concurrent use.
*/
type Estimator struct {
	w     *witness.Tree
	queue []improvements
	sum   []int
}

// New returns an Estimator for the witness tree w
func New(w *witness.Tree) *Estimator {
	vertices := 2*w.MaxSize() + 1
	return &Estimator{
		w:     w,
		queue: make([]improvements, vertices),
		sum:   make([]int, vertices),
	}
}

/*
LowerBound returns a lower bound on the number of refinements needed to
correctly classify every example in the subtree of root. The computation stops
once the bound exceeds budget, so the value returned is only exact up to
budget+1.
*/
func (est *Estimator) LowerBound(root, budget int) int {
	est.w.UpdateDirtyThresholds(root)
	est.w.UpdateWitnessThresholds(root)
	est.collect(root, root, true, budget+1)
	lbTrue := est.queue[root].Len()
	if lbTrue > budget {
		return lbTrue
	}
	est.collect(root, root, false, budget-lbTrue+1)
	return lbTrue + est.queue[root].Len()
}

// collect fills the queue of sub with the sizes of the refinements needed for
// the misclassified examples labelled label in its subtree, keeping at most
// limit of them. It returns the number of those examples.
func (est *Estimator) collect(root, sub int, label bool, limit int) int {
	w := est.w
	est.queue[sub] = est.queue[sub][:0]
	est.sum[sub] = 0

	count := 0
	if w.IsLeaf(sub) {
		if w.Class(sub) != label {
			count = w.DirtyCount(sub)
		}
	} else {
		count += est.collect(root, w.Left(sub), label, limit)
		count += est.collect(root, w.Right(sub), label, limit)
	}
	if count == 0 {
		return 0
	}

	parent := w.Parent(sub)
	for dim := range w.Data().D() {
		witLo, witHi := w.WitnessEnvelope(dim, sub)
		dirtyLo, dirtyHi := w.DirtyEnvelope(label, dim, sub)
		var parentLo, parentHi int
		if sub != root {
			parentLo, parentHi = w.WitnessEnvelope(dim, parent)
		}
		if (sub == root || witLo != parentLo) && dirtyLo < witLo {
			est.add(sub, est.beyond(sub, dim, witLo, true, label), limit)
		}
		if (sub == root || witHi != parentHi) && dirtyHi > witHi {
			est.add(sub, est.beyond(sub, dim, witHi, false, label), limit)
		}
	}

	if !w.IsLeaf(sub) {
		for _, child := range []int{w.Left(sub), w.Right(sub)} {
			for _, imp := range est.queue[child] {
				est.add(sub, imp, limit)
			}
			est.queue[child] = est.queue[child][:0]
			est.sum[child] = 0
		}
	}

	q := &est.queue[sub]
	for q.Len() > 0 && est.sum[sub]-(*q)[0] >= count {
		est.sum[sub] -= heap.Pop(q).(int)
	}
	if excess := est.sum[sub] - count; excess > 0 {
		(*q)[0] -= excess
		heap.Fix(q, 0)
		est.sum[sub] = count
	}
	return count
}

func (est *Estimator) add(sub, imp, limit int) {
	q := &est.queue[sub]
	heap.Push(q, imp)
	est.sum[sub] += imp
	if q.Len() > limit {
		est.sum[sub] -= heap.Pop(q).(int)
	}
}

// beyond counts the misclassified examples labelled label in the subtree of
// sub whose value of dim is strictly below edge if below holds, strictly
// above it otherwise.
func (est *Estimator) beyond(sub, dim, edge int, below, label bool) int {
	w := est.w
	if !w.IsLeaf(sub) {
		return est.beyond(w.Left(sub), dim, edge, below, label) +
			est.beyond(w.Right(sub), dim, edge, below, label)
	}
	if w.Class(sub) == label {
		return 0
	}
	values := w.Data().Values
	n := 0
	w.ForEachDirty(sub, func(e int) {
		if below && values[e][dim] < edge || !below && values[e][dim] > edge {
			n++
		}
	})
	return n
}

// improvements is a min-heap of refinement sizes
type improvements []int

func (h improvements) Len() int           { return len(h) }
func (h improvements) Less(i, j int) bool { return h[i] < h[j] }
func (h improvements) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *improvements) Push(x any) {
	*h = append(*h, x.(int))
}

func (h *improvements) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
