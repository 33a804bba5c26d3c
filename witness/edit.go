package witness

import (
	"fmt"

	"github.com/pbanos/topiary/seq"
)

/*
Refine inserts a new inner vertex splitting dimension dim at normalized
threshold thr above vertex v, together with a new leaf whose witness is
newWitness. The new leaf goes on the side of the split newWitness falls on,
and every example of the subtree of v on that side moves to it.

When subset constraints are enabled and v is an inner vertex, the new inner
vertex gets a height constraint tracking the misclassified examples of the
child of v opposite to newWitness.
*/
func (t *Tree) Refine(v, dim, thr, newWitness int) {
	if t.nextInner >= t.maxSize {
		panic(fmt.Sprintf("witness: cannot refine a tree of %d inner vertices beyond its capacity", t.nextInner))
	}
	if !t.live(v) {
		panic(fmt.Sprintf("witness: cannot refine vertex %d, it is not in the tree", v))
	}
	t.beforeEdit()
	inner, leaf := t.nextInner, t.nextLeaf
	left := t.data.Values[newWitness][dim] <= thr

	if v == t.root {
		t.root = inner
		t.parent[inner] = -1
	} else {
		p := t.parent[v]
		if t.left[p] == v {
			t.left[p] = inner
		} else {
			t.right[p] = inner
		}
		t.parent[inner] = p
	}
	t.parent[v] = inner
	t.parent[leaf] = inner
	if left {
		t.left[inner], t.right[inner] = leaf, v
	} else {
		t.left[inner], t.right[inner] = v, leaf
	}
	t.dim[inner] = dim
	t.thr[inner] = thr
	t.class[leaf] = t.data.Labels[newWitness]
	t.wit[leaf] = newWitness

	if t.opts.SubsetConstraints && !t.IsLeaf(v) {
		other := t.left[v]
		if t.data.Values[newWitness][t.dim[v]] <= t.thr[v] {
			other = t.right[v]
		}
		t.heightSC.Create(inner)
		t.trackDirty(inner, other)
	}

	t.moveOut(v, t.extra1, t.side(dim, thr, left))
	t.moveIn(t.extra1, leaf)
	t.nextInner++
	t.nextLeaf++
	t.afterEdit()
}

/*
UpdateLastRefinement makes the last inner vertex split dimension dim at
threshold thr instead, keeping the witness of the last added leaf. The leaf
and its sibling swap sides when the witness of the leaf falls on the other
side of the new split.
*/
func (t *Tree) UpdateLastRefinement(dim, thr int) {
	inner, leaf := t.lastRefinement("update")
	t.beforeEdit()
	if t.opts.SubsetConstraints {
		t.thresholdSC.Remove(inner)
	}
	left := t.left[inner] == leaf
	sibling := t.left[inner]
	if left {
		sibling = t.right[inner]
	}
	if (t.data.Values[t.wit[leaf]][dim] <= thr) != left {
		t.left[inner], t.right[inner] = t.right[inner], t.left[inner]
		left = !left
	}
	t.dim[inner] = dim
	t.thr[inner] = thr

	t.moveOut(sibling, t.extra1, t.side(dim, thr, left))
	t.moveOut(leaf, t.extra2, t.side(dim, thr, !left))
	t.moveIn(t.extra1, leaf)
	t.moveIn(t.extra2, sibling)
	t.afterEdit()
}

/*
UpdateLastThreshold moves the threshold of the last inner vertex to thr and
returns the number of examples that changed side. When subset constraints are
enabled and examples moved into the last added leaf, they become the
threshold constraint of the last inner vertex. It panics if the witness of the
last added leaf would fall on the other side of the split.
*/
func (t *Tree) UpdateLastThreshold(thr int) int {
	inner, leaf := t.lastRefinement("update the threshold of")
	old, dim := t.thr[inner], t.dim[inner]
	leafLeft := t.left[inner] == leaf
	if (t.data.Values[t.wit[leaf]][dim] <= thr) != leafLeft {
		panic(fmt.Sprintf("witness: threshold %d moves witness %d of leaf %d across the split of vertex %d", thr, t.wit[leaf], leaf, inner))
	}
	t.beforeEdit()
	if t.opts.SubsetConstraints {
		t.thresholdSC.Remove(inner)
	}
	sibling := t.left[inner]
	if leafLeft {
		sibling = t.right[inner]
	}
	t.thr[inner] = thr

	// a threshold moving away from the witness grows the leaf and one
	// moving towards it shrinks it
	grows := (thr < old) != leafLeft
	var moved int
	if grows {
		t.moveOut(sibling, t.extra1, t.side(dim, thr, leafLeft))
		moved = t.lists.Size(t.extra1)
		if moved > 0 && t.opts.SubsetConstraints {
			t.thresholdSC.Create(inner)
			t.lists.ForEach(t.extra1, func(e int) {
				t.thresholdSC.AddExample(inner, e)
			})
		}
		t.moveIn(t.extra1, leaf)
	} else {
		t.moveOut(leaf, t.extra1, t.side(dim, thr, !leafLeft))
		moved = t.lists.Size(t.extra1)
		t.moveIn(t.extra1, sibling)
	}
	t.afterEdit()
	return moved
}

// RevertLastRefinement undoes the last refinement that has not been
// reverted yet.
func (t *Tree) RevertLastRefinement() {
	inner, leaf := t.lastRefinement("revert")
	t.beforeEdit()
	t.nextInner--
	t.nextLeaf--
	if t.opts.SubsetConstraints {
		t.thresholdSC.Remove(inner)
		t.heightSC.Remove(inner)
	}
	v := t.left[inner]
	if v == leaf {
		v = t.right[inner]
	}
	if inner == t.root {
		t.root = v
		t.parent[v] = -1
	} else {
		p := t.parent[inner]
		if t.left[p] == inner {
			t.left[p] = v
		} else {
			t.right[p] = v
		}
		t.parent[v] = p
	}
	t.parent[inner] = -1
	t.parent[leaf] = -1
	t.moveOut(leaf, t.extra1, all)
	t.moveIn(t.extra1, v)
	t.afterEdit()
}

/*
ReduceToSubset discards every example not in subset, so that the tree only
partitions the examples of subset. It may only be called on a tree made of a
single leaf, whose witness must belong to subset.
*/
func (t *Tree) ReduceToSubset(subset *seq.Seq) {
	if t.nextInner != 0 {
		panic(fmt.Sprintf("witness: cannot reduce a tree of %d inner vertices to a subset", t.nextInner))
	}
	t.beforeEdit()
	t.moveOut(t.root, t.removed, all)
	for _, e := range subset.Values() {
		t.lists.Move(e, t.extra1)
	}
	t.moveIn(t.extra1, t.root)
	t.afterEdit()
}

func (t *Tree) lastRefinement(op string) (inner, leaf int) {
	if t.nextInner == 0 {
		panic(fmt.Sprintf("witness: cannot %s the last refinement of a tree without refinements", op))
	}
	return t.nextInner - 1, t.nextLeaf - 1
}

func (t *Tree) live(v int) bool {
	if t.IsLeaf(v) {
		return v < t.nextLeaf
	}
	return v >= 0 && v < t.nextInner
}

func all(int) bool { return true }

// side returns the condition of the examples on the left of the split if
// left holds, on its right otherwise.
func (t *Tree) side(dim, thr int, left bool) func(e int) bool {
	values := t.data.Values
	if left {
		return func(e int) bool { return values[e][dim] <= thr }
	}
	return func(e int) bool { return values[e][dim] > thr }
}

func (t *Tree) beforeEdit() {
	t.touched.Clear()
	clear(t.modified)
}

func (t *Tree) afterEdit() {
	t.refresh(t.root, 0)
	if t.touched.Len() == 0 {
		return
	}
	if t.opts.DirtyPriority {
		t.UpdateWitnessThresholds(t.root)
	}
	for _, e := range t.touched.Values() {
		l := t.LeafOf(e)
		h := t.heaps[l]
		h.remove(e)
		t.key[e] = t.priority(e, l)
		h.push(e)
	}
}

func (t *Tree) refresh(v, depth int) {
	t.depth[v] = depth
	if t.IsLeaf(v) {
		t.size[v] = 0
		t.maxDepth[v] = depth
		t.correct[v] = t.lists.Size(t.dirtyList(v)) == 0
		return
	}
	l, r := t.left[v], t.right[v]
	t.refresh(l, depth+1)
	t.refresh(r, depth+1)
	t.size[v] = t.size[l] + t.size[r] + 1
	t.maxDepth[v] = max(t.maxDepth[l], t.maxDepth[r])
	t.correct[v] = t.correct[l] && t.correct[r]
}

// moveOut moves the examples of the subtree of sub satisfying cond to list.
func (t *Tree) moveOut(sub, list int, cond func(e int) bool) {
	t.path.Add(sub)
	if t.IsLeaf(sub) {
		t.moveOutOf(t.cleanList(sub), list, cond)
		t.moveOutOf(t.dirtyList(sub), list, cond)
	} else {
		t.moveOut(t.left[sub], list, cond)
		t.moveOut(t.right[sub], list, cond)
	}
	t.path.RemoveLast()
}

func (t *Tree) moveOutOf(from, to int, cond func(e int) bool) {
	it := t.lists.Iterate(from)
	for it.Next() {
		e := it.Elem()
		if !cond(e) {
			continue
		}
		it.Move(to)
		for _, v := range t.path.Values() {
			t.leave(e, v)
		}
	}
}

// moveIn moves every example of list to its leaf in the subtree of sub.
func (t *Tree) moveIn(list, sub int) {
	values, labels := t.data.Values, t.data.Labels
	it := t.lists.Iterate(list)
	for it.Next() {
		e := it.Elem()
		v := sub
		t.path.Add(v)
		for !t.IsLeaf(v) {
			if values[e][t.dim[v]] <= t.thr[v] {
				v = t.left[v]
			} else {
				v = t.right[v]
			}
			t.path.Add(v)
		}
		if labels[e] != t.class[v] {
			it.Move(t.dirtyList(v))
		} else {
			it.Move(t.cleanList(v))
		}
		for _, u := range t.path.Values() {
			t.enter(e, u)
		}
		t.path.Clear()
	}
}

func (t *Tree) leave(e, v int) {
	t.modified[v] = true
	if t.IsLeaf(v) {
		if t.data.Labels[e] != t.class[v] {
			t.heaps[v].remove(e)
		}
	} else if t.opts.SubsetConstraints {
		t.thresholdSC.OnLeave(v, e)
		t.heightSC.OnLeave(v, e)
	}
}

func (t *Tree) enter(e, v int) {
	t.modified[v] = true
	if t.IsLeaf(v) {
		if t.data.Labels[e] != t.class[v] {
			t.touched.Add(e)
		}
	} else if t.opts.SubsetConstraints {
		t.thresholdSC.OnEnter(v, e)
		t.heightSC.OnEnter(v, e)
	}
}

// trackDirty adds the misclassified examples of the subtree of sub to the
// height constraint of v.
func (t *Tree) trackDirty(v, sub int) {
	if t.IsLeaf(sub) {
		t.ForEachDirty(sub, func(e int) {
			t.heightSC.AddExample(v, e)
		})
		return
	}
	t.trackDirty(v, t.left[sub])
	t.trackDirty(v, t.right[sub])
}
