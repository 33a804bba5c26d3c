/*
Package tree holds binary decision trees over numeric features, the way to
classify examples with them and stores to keep them in.
*/
package tree

import (
	"context"
	"fmt"
	"strings"

	"github.com/pbanos/topiary/feature"
)

/*
DecisionTree is a full binary tree of threshold splits. Vertices 0 to
Inner()-1 are inner vertices, the rest are leaves. An example goes to the
left child of an inner vertex v when its value in dimension Dim[v] is less
than or equal to Threshold[v], to the right child otherwise. Leaves classify
the examples reaching them as Class[leaf].

Parent of the root, children of leaves and splits of leaves are -1.
*/
type DecisionTree struct {
	Root      int
	Parent    []int
	Left      []int
	Right     []int
	Dim       []int
	Threshold []float64
	Class     []bool
}

/*
New returns a tree with inner inner vertices and inner+1 leaves, none of them
connected.
*/
func New(inner int) *DecisionTree {
	vertices := 2*inner + 1
	t := &DecisionTree{
		Root:      -1,
		Parent:    make([]int, vertices),
		Left:      make([]int, vertices),
		Right:     make([]int, vertices),
		Dim:       make([]int, vertices),
		Threshold: make([]float64, vertices),
		Class:     make([]bool, vertices),
	}
	for v := range vertices {
		t.Parent[v], t.Left[v], t.Right[v], t.Dim[v] = -1, -1, -1, -1
		t.Threshold[v] = -1
	}
	return t
}

// NewLeaf returns a tree made of a single leaf of the given class
func NewLeaf(class bool) *DecisionTree {
	t := New(0)
	t.Root = 0
	t.Class[0] = class
	return t
}

// Inner returns the number of inner vertices of the tree, that is its size
func (t *DecisionTree) Inner() int {
	return len(t.Parent) / 2
}

// Vertices returns the number of vertices of the tree
func (t *DecisionTree) Vertices() int {
	return len(t.Parent)
}

// IsLeaf returns whether the vertex is a leaf
func (t *DecisionTree) IsLeaf(v int) bool {
	return v >= t.Inner()
}

// Criterion returns the split of inner vertex v with the features named
func (t *DecisionTree) Criterion(v int, features []feature.Feature) feature.Criterion {
	c := feature.Criterion{Dim: t.Dim[v], Threshold: t.Threshold[v]}
	if c.Dim >= 0 && c.Dim < len(features) {
		c.Feature = features[c.Dim]
	}
	return c
}

// LeafOf returns the leaf an example with values x reaches
func (t *DecisionTree) LeafOf(x []float64) int {
	v := t.Root
	for !t.IsLeaf(v) {
		if x[t.Dim[v]] <= t.Threshold[v] {
			v = t.Left[v]
		} else {
			v = t.Right[v]
		}
	}
	return v
}

// Classify returns the class the tree assigns to an example with values x
func (t *DecisionTree) Classify(x []float64) bool {
	return t.Class[t.LeafOf(x)]
}

/*
Accuracy returns the ratio of the examples with the given values that the
tree classifies as their label. An empty set of examples yields 1.
*/
func (t *DecisionTree) Accuracy(values [][]float64, labels []bool) float64 {
	if len(values) == 0 {
		return 1
	}
	var correct int
	for e, x := range values {
		if t.Classify(x) == labels[e] {
			correct++
		}
	}
	return float64(correct) / float64(len(values))
}

// Depth returns the number of inner vertices on the longest root-to-leaf path
func (t *DecisionTree) Depth() int {
	var depth func(v int) int
	depth = func(v int) int {
		if t.IsLeaf(v) {
			return 0
		}
		return 1 + max(depth(t.Left[v]), depth(t.Right[v]))
	}
	return depth(t.Root)
}

/*
Validate checks that the tree is a full binary tree whose inner vertices come
before its leaves, every vertex reachable from the root exactly once.
*/
func (t *DecisionTree) Validate() error {
	n := len(t.Parent)
	if n%2 == 0 {
		return fmt.Errorf("tree has an even number of vertices: %d", n)
	}
	for _, s := range [][]int{t.Left, t.Right, t.Dim} {
		if len(s) != n {
			return fmt.Errorf("tree arrays have mismatching lengths")
		}
	}
	if len(t.Threshold) != n || len(t.Class) != n {
		return fmt.Errorf("tree arrays have mismatching lengths")
	}
	if t.Root < 0 || t.Root >= n {
		return fmt.Errorf("tree root %d out of range", t.Root)
	}
	if t.Parent[t.Root] != -1 {
		return fmt.Errorf("tree root %d has parent %d", t.Root, t.Parent[t.Root])
	}
	seen := make([]bool, n)
	var visit func(v, parent int) error
	visit = func(v, parent int) error {
		if v < 0 || v >= n {
			return fmt.Errorf("vertex %d out of range", v)
		}
		if seen[v] {
			return fmt.Errorf("vertex %d reached twice", v)
		}
		seen[v] = true
		if t.Parent[v] != parent {
			return fmt.Errorf("vertex %d has parent %d, expected %d", v, t.Parent[v], parent)
		}
		if t.IsLeaf(v) {
			return nil
		}
		if t.Dim[v] < 0 {
			return fmt.Errorf("inner vertex %d has no split", v)
		}
		if err := visit(t.Left[v], v); err != nil {
			return err
		}
		return visit(t.Right[v], v)
	}
	if err := visit(t.Root, -1); err != nil {
		return err
	}
	for v, ok := range seen {
		if !ok {
			return fmt.Errorf("vertex %d is not reachable from the root", v)
		}
	}
	return nil
}

/*
Traverse takes a context, bottomup boolean and an error-returning function
that takes a context and a vertex as parameters, and goes through the tree
running the function with every vertex. The function is called for a parent
before its children if bottomup is false, after them if bottomup is true.
If the given context times out or is cancelled, the context error is
returned. If the call to the function returns an error, the traversing is
aborted and the error is returned.
*/
func (t *DecisionTree) Traverse(ctx context.Context, bottomup bool, f func(context.Context, int) error) error {
	return t.traverse(ctx, t.Root, bottomup, f)
}

func (t *DecisionTree) traverse(ctx context.Context, v int, bottomup bool, f func(context.Context, int) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !bottomup {
		if err := f(ctx, v); err != nil {
			return err
		}
	}
	if !t.IsLeaf(v) {
		if err := t.traverse(ctx, t.Left[v], bottomup, f); err != nil {
			return err
		}
		if err := t.traverse(ctx, t.Right[v], bottomup, f); err != nil {
			return err
		}
	}
	if bottomup {
		return f(ctx, v)
	}
	return nil
}

func (t *DecisionTree) String() string {
	return t.Format(nil)
}

/*
Format returns a drawing of the tree using the names of the given features
for its splits. Dimensions without a feature are printed by index.
*/
func (t *DecisionTree) Format(features []feature.Feature) string {
	if t.Root < 0 {
		return ""
	}
	return t.subtreeString(t.Root, features)
}

func (t *DecisionTree) subtreeString(v int, features []feature.Feature) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d]\n", v)
	if t.IsLeaf(v) {
		fmt.Fprintf(&sb, "{ class: %v }\n", t.Class[v])
		return sb.String()
	}
	fmt.Fprintf(&sb, "{ %v }\n|\n", t.Criterion(v, features))
	children := []int{t.Left[v], t.Right[v]}
	for i, child := range children {
		for j, line := range strings.Split(t.subtreeString(child, features), "\n") {
			if len(line) == 0 {
				continue
			}
			switch {
			case j == 0:
				fmt.Fprintf(&sb, "|__%s\n", line)
			case i == len(children)-1:
				fmt.Fprintf(&sb, "   %s\n", line)
			default:
				fmt.Fprintf(&sb, "|  %s\n", line)
			}
		}
	}
	return sb.String()
}
