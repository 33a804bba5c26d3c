package topiary

import (
	"time"

	"github.com/pbanos/topiary/tree"
)

// Stats counts the work done and the prunes applied by a search
type Stats struct {
	// SearchTreeNodes is the number of recursive calls of the search
	SearchTreeNodes int
	// LowerBoundEffect is the number of branches cut by the lower bound
	LowerBoundEffect int
	// SubsetConstraintEffect is the number of refinements discarded because
	// they broke a subset constraint
	SubsetConstraintEffect int
	// UniqueSets is the number of example sets in the subset cache when the
	// last probe ended, SetTrieSize the number of nodes of its trie
	UniqueSets  int
	SetTrieSize int
	// CopiedSets is the number of branches cut by the subset cache
	CopiedSets int
}

/*
Result is the outcome of a Solve call.

Tree is the smallest tree found, its cuts expressed in the values of the
original dataset, or nil if Found is false. Optimal is true when Size is
proven to be the minimum. A timed out search still returns the best tree it
found before the timeout.
*/
type Result struct {
	Tree     *tree.DecisionTree
	Found    bool
	Optimal  bool
	TimedOut bool
	// Size is the number of inner vertices of Tree
	Size int
	// Accuracy is the ratio of examples of the solved set Tree classifies
	// correctly
	Accuracy float64
	Stats    Stats
	Duration time.Duration
}
