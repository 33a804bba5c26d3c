package witness

import "math"

const (
	noLeft  = math.MaxInt
	noRight = -1
)

func labelIndex(label bool) int {
	if label {
		return 1
	}
	return 0
}

// UpdateWitnessThresholds refreshes, bottom-up over the subtree of sub, the
// smallest and largest witness value of every dimension.
func (t *Tree) UpdateWitnessThresholds(sub int) {
	values := t.data.Values
	if t.IsLeaf(sub) {
		w := values[t.wit[sub]]
		for dim := range t.leftWit {
			t.leftWit[dim][sub] = w[dim]
			t.rightWit[dim][sub] = w[dim]
		}
		return
	}
	l, r := t.left[sub], t.right[sub]
	t.UpdateWitnessThresholds(l)
	t.UpdateWitnessThresholds(r)
	for dim := range t.leftWit {
		t.leftWit[dim][sub] = min(t.leftWit[dim][l], t.leftWit[dim][r])
		t.rightWit[dim][sub] = max(t.rightWit[dim][l], t.rightWit[dim][r])
	}
}

// UpdateDirtyThresholds refreshes, bottom-up over the subtree of sub, the
// smallest and largest value of every dimension among the misclassified
// examples of each label.
func (t *Tree) UpdateDirtyThresholds(sub int) {
	if t.IsLeaf(sub) {
		for label := range 2 {
			for dim := range t.leftDirty[label] {
				t.leftDirty[label][dim][sub] = noLeft
				t.rightDirt[label][dim][sub] = noRight
			}
		}
		t.ForEachDirty(sub, func(e int) {
			label := labelIndex(t.data.Labels[e])
			for dim, x := range t.data.Values[e] {
				if x < t.leftDirty[label][dim][sub] {
					t.leftDirty[label][dim][sub] = x
				}
				if x > t.rightDirt[label][dim][sub] {
					t.rightDirt[label][dim][sub] = x
				}
			}
		})
		return
	}
	l, r := t.left[sub], t.right[sub]
	t.UpdateDirtyThresholds(l)
	t.UpdateDirtyThresholds(r)
	for label := range 2 {
		lo, hi := t.leftDirty[label], t.rightDirt[label]
		for dim := range lo {
			lo[dim][sub] = min(lo[dim][l], lo[dim][r])
			hi[dim][sub] = max(hi[dim][l], hi[dim][r])
		}
	}
}

// WitnessEnvelope returns the range of the witness values of dimension dim
// in the subtree of v, as of the last UpdateWitnessThresholds.
func (t *Tree) WitnessEnvelope(dim, v int) (lo, hi int) {
	return t.leftWit[dim][v], t.rightWit[dim][v]
}

/*
DirtyEnvelope returns the range of the values of dimension dim among the
misclassified examples labelled label in the subtree of v, as of the last
UpdateDirtyThresholds. An empty range is reported as lo = math.MaxInt and
hi = -1.
*/
func (t *Tree) DirtyEnvelope(label bool, dim, v int) (lo, hi int) {
	i := labelIndex(label)
	return t.leftDirty[i][dim][v], t.rightDirt[i][dim][v]
}

// priority computes the key of e, misclassified by leaf l.
func (t *Tree) priority(e, l int) int {
	if !t.opts.DirtyPriority {
		return e
	}
	sum := 0
	for dim, x := range t.data.Values[e] {
	walk:
		for v := l; v != -1; v = t.parent[v] {
			switch lo, hi := t.leftWit[dim][v], t.rightWit[dim][v]; {
			case x < lo:
				sum += lo - x
			case x > hi:
				sum += x - hi
			default:
				break walk
			}
		}
	}
	return sum
}
