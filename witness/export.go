package witness

import "github.com/pbanos/topiary/tree"

/*
DecisionTree returns the decision tree currently built, with its inner
vertices first and its leaves right after them, splitting on the original
dimensions and thresholds of the dataset.
*/
func (t *Tree) DecisionTree() *tree.DecisionTree {
	inner := t.nextInner
	shift := t.maxSize - inner
	renumber := func(v int) int {
		if t.IsLeaf(v) {
			return v - shift
		}
		return v
	}
	dt := tree.New(inner)
	dt.Root = renumber(t.root)
	for v := range inner {
		dt.Parent[v] = t.parent[v]
		dt.Left[v] = renumber(t.left[v])
		dt.Right[v] = renumber(t.right[v])
		cut := t.data.Conversion[t.dim[v]][t.thr[v]]
		dt.Dim[v] = cut.Dim
		dt.Threshold[v] = cut.Threshold
	}
	for i := range t.LeafCount() {
		l := t.maxSize + i
		dt.Parent[inner+i] = t.parent[l]
		dt.Class[inner+i] = t.class[l]
	}
	return dt
}
