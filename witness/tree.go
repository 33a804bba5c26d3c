/*
Package witness implements witness trees: decision trees under construction
whose leaves each keep a witness example, together with the partition of the
examples of a normalized dataset over the leaves. Trees are grown by one-step
refinements that can be re-targeted and reverted exactly, the way a
backtracking search needs them to.

Vertices are small integers. For a tree of capacity maxSize, vertices
0..maxSize-1 are inner vertices and maxSize..2*maxSize are leaves; a vertex
is live when it is below the corresponding frontier counter.
*/
package witness

import (
	"fmt"

	"github.com/pbanos/topiary/constraint"
	"github.com/pbanos/topiary/dataset"
	"github.com/pbanos/topiary/multilist"
	"github.com/pbanos/topiary/seq"
)

// Options selects the optional behaviour of a Tree.
type Options struct {
	// DirtyPriority orders dirty examples by how far they are from the
	// witness envelopes on their path instead of by id.
	DirtyPriority bool
	// SubsetConstraints tracks the height and threshold constraints of
	// refinements.
	SubsetConstraints bool
}

// Tree is a witness tree over a normalized dataset. It is not safe for
// concurrent use.
type Tree struct {
	data    *dataset.Normalized
	opts    Options
	maxSize int

	root      int
	nextInner int
	nextLeaf  int
	parent    []int
	left      []int
	right     []int
	dim       []int
	thr       []int
	class     []bool
	wit       []int

	depth    []int
	maxDepth []int
	size     []int
	correct  []bool
	modified []bool

	lists   *multilist.List
	extra1  int
	extra2  int
	removed int
	path    *seq.Seq
	touched *seq.Seq

	key   []int
	pos   []int
	heaps []*dirtyHeap

	leftWit   [][]int
	rightWit  [][]int
	leftDirty [2][][]int
	rightDirt [2][][]int

	thresholdSC *constraint.Tracker
	heightSC    *constraint.Tracker
}

/*
New returns a tree able to hold up to maxSize inner vertices, made of a single
leaf holding every example of data, with rootWitness as its witness. The class
of the leaf is the label of its witness.
*/
func New(data *dataset.Normalized, maxSize int, opts Options, rootWitness int) *Tree {
	if maxSize < 0 {
		panic(fmt.Sprintf("witness: negative capacity %d", maxSize))
	}
	n, d := data.N(), data.D()
	if rootWitness < 0 || rootWitness >= n {
		panic(fmt.Sprintf("witness: root witness %d out of range for %d examples", rootWitness, n))
	}
	vertices := 2*maxSize + 1
	leaves := maxSize + 1
	t := &Tree{
		data:      data,
		opts:      opts,
		maxSize:   maxSize,
		root:      maxSize,
		nextInner: 0,
		nextLeaf:  maxSize + 1,
		parent:    make([]int, vertices),
		left:      make([]int, maxSize),
		right:     make([]int, maxSize),
		dim:       make([]int, maxSize),
		thr:       make([]int, maxSize),
		class:     make([]bool, vertices),
		wit:       make([]int, vertices),
		depth:     make([]int, vertices),
		maxDepth:  make([]int, vertices),
		size:      make([]int, vertices),
		correct:   make([]bool, vertices),
		modified:  make([]bool, vertices),
		extra1:    2 * leaves,
		extra2:    2*leaves + 1,
		removed:   2*leaves + 2,
		path:      seq.New(vertices),
		touched:   seq.New(n),
		key:       make([]int, n),
		pos:       make([]int, n),
		heaps:     make([]*dirtyHeap, vertices),
		leftWit:   newEnvelope(d, vertices),
		rightWit:  newEnvelope(d, vertices),
	}
	for label := range 2 {
		t.leftDirty[label] = newEnvelope(d, vertices)
		t.rightDirt[label] = newEnvelope(d, vertices)
	}
	for v := range t.parent {
		t.parent[v] = -1
		t.wit[v] = -1
	}
	for e := range t.pos {
		t.pos[e] = -1
	}
	for l := maxSize; l < vertices; l++ {
		t.heaps[l] = newDirtyHeap(t.key, t.pos)
	}
	t.lists = multilist.New(2*leaves+3, n, t.extra1)
	if opts.SubsetConstraints {
		t.thresholdSC = constraint.New(n, vertices)
		t.heightSC = constraint.New(n, vertices)
	}

	t.class[t.root] = data.Labels[rootWitness]
	t.wit[t.root] = rootWitness
	t.beforeEdit()
	t.moveIn(t.extra1, t.root)
	t.afterEdit()
	return t
}

func newEnvelope(d, vertices int) [][]int {
	env := make([][]int, d)
	for i := range env {
		env[i] = make([]int, vertices)
	}
	return env
}

// Data returns the dataset the tree partitions
func (t *Tree) Data() *dataset.Normalized {
	return t.data
}

// Options returns the options the tree was built with
func (t *Tree) Options() Options {
	return t.opts
}

// MaxSize returns the maximum number of inner vertices of the tree
func (t *Tree) MaxSize() int {
	return t.maxSize
}

// Root returns the root vertex
func (t *Tree) Root() int {
	return t.root
}

// IsLeaf returns whether v is a leaf vertex
func (t *Tree) IsLeaf(v int) bool {
	return v >= t.maxSize
}

// Parent returns the parent of v, -1 for the root
func (t *Tree) Parent(v int) int {
	return t.parent[v]
}

// Left returns the left child of inner vertex v
func (t *Tree) Left(v int) int {
	return t.left[v]
}

// Right returns the right child of inner vertex v
func (t *Tree) Right(v int) int {
	return t.right[v]
}

// Dim returns the dimension inner vertex v splits on
func (t *Tree) Dim(v int) int {
	return t.dim[v]
}

// Threshold returns the normalized threshold of inner vertex v
func (t *Tree) Threshold(v int) int {
	return t.thr[v]
}

// Class returns the class of leaf l
func (t *Tree) Class(l int) bool {
	return t.class[l]
}

// Witness returns the witness example of leaf l
func (t *Tree) Witness(l int) int {
	return t.wit[l]
}

// Depth returns the number of edges between v and the root
func (t *Tree) Depth(v int) int {
	return t.depth[v]
}

// MaxDepth returns the largest depth of a vertex in the subtree of v
func (t *Tree) MaxDepth(v int) int {
	return t.maxDepth[v]
}

// Size returns the number of inner vertices in the subtree of v
func (t *Tree) Size(v int) int {
	return t.size[v]
}

// IsCorrect returns whether every example in the subtree of v is correctly
// classified
func (t *Tree) IsCorrect(v int) bool {
	return t.correct[v]
}

// Modified returns whether the last edit added or removed an example from
// the subtree of v
func (t *Tree) Modified(v int) bool {
	return t.modified[v]
}

// InnerCount returns the number of live inner vertices
func (t *Tree) InnerCount() int {
	return t.nextInner
}

// LeafCount returns the number of live leaves
func (t *Tree) LeafCount() int {
	return t.nextLeaf - t.maxSize
}

// Leaf returns the i-th live leaf, in order of creation
func (t *Tree) Leaf(i int) int {
	return t.maxSize + i
}

// LastAddedInner returns the inner vertex of the last live refinement, -1
// if there is none
func (t *Tree) LastAddedInner() int {
	return t.nextInner - 1
}

// LastAddedLeaf returns the leaf added by the last live refinement, or the
// first leaf if there is none
func (t *Tree) LastAddedLeaf() int {
	return t.nextLeaf - 1
}

func (t *Tree) cleanList(l int) int {
	return l - t.maxSize
}

func (t *Tree) dirtyList(l int) int {
	return l + 1
}

// LeafOf returns the leaf example e is assigned to, -1 if e has been
// discarded by ReduceToSubset
func (t *Tree) LeafOf(e int) int {
	list := t.lists.ListOf(e)
	switch {
	case list <= t.maxSize:
		return list + t.maxSize
	case list < t.extra1:
		return list - 1
	}
	return -1
}

// IsDirty returns whether e is misclassified by its leaf
func (t *Tree) IsDirty(e int) bool {
	list := t.lists.ListOf(e)
	return list > t.maxSize && list < t.extra1
}

// LeafExampleCount returns the number of examples assigned to leaf l
func (t *Tree) LeafExampleCount(l int) int {
	return t.lists.Size(t.cleanList(l)) + t.lists.Size(t.dirtyList(l))
}

// DirtyCount returns the number of examples misclassified by leaf l
func (t *Tree) DirtyCount(l int) int {
	return t.lists.Size(t.dirtyList(l))
}

// ForEachDirty calls f with every example misclassified by leaf l
func (t *Tree) ForEachDirty(l int, f func(e int)) {
	t.lists.ForEach(t.dirtyList(l), f)
}

// ForEachClean calls f with every example correctly classified by leaf l
func (t *Tree) ForEachClean(l int, f func(e int)) {
	t.lists.ForEach(t.cleanList(l), f)
}

// AppendLeafExamples adds the examples of leaf l to s, the misclassified
// ones first
func (t *Tree) AppendLeafExamples(l int, s *seq.Seq) {
	t.ForEachDirty(l, s.Add)
	t.ForEachClean(l, s.Add)
}

// ConstraintBroken returns whether a subset constraint of the tree has no
// member left
func (t *Tree) ConstraintBroken() bool {
	if !t.opts.SubsetConstraints {
		return false
	}
	return t.thresholdSC.AnyBroken() || t.heightSC.AnyBroken()
}

// LowestDirtyExample returns the misclassified example of the subtree of
// sub with the lowest priority, ties broken by the lowest id. ok is false if
// the subtree is correct.
func (t *Tree) LowestDirtyExample(sub int) (e int, ok bool) {
	if t.correct[sub] {
		return -1, false
	}
	if t.IsLeaf(sub) {
		return t.heaps[sub].peek()
	}
	l, lok := t.LowestDirtyExample(t.left[sub])
	r, rok := t.LowestDirtyExample(t.right[sub])
	switch {
	case !lok:
		return r, rok
	case !rok:
		return l, true
	case t.before(r, l):
		return r, true
	}
	return l, true
}

// Priority returns the priority key of a misclassified example
func (t *Tree) Priority(e int) int {
	return t.key[e]
}

func (t *Tree) before(a, b int) bool {
	if t.key[a] != t.key[b] {
		return t.key[a] < t.key[b]
	}
	return a < b
}
