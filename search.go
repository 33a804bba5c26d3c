package topiary

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pbanos/topiary/bound"
	"github.com/pbanos/topiary/dataset"
	"github.com/pbanos/topiary/seq"
	"github.com/pbanos/topiary/settrie"
	"github.com/pbanos/topiary/tree"
	"github.com/pbanos/topiary/witness"
)

/*
search holds the state of one Solve call over a normalized dataset: the
probes run so far, their counters and the smallest tree found.

A search runs on a single goroutine. The only concurrent access is the
timeout callback setting expired.
*/
type search struct {
	ctx    context.Context
	config *Config
	oracle bound.Oracle
	logger *zap.Logger
	data   *dataset.Normalized

	expired     atomic.Bool
	interrupted bool

	// main is the witness tree of the running probe and cache the subsets
	// of examples proven to need more refinements than some budget
	main       *witness.Tree
	cache      *settrie.Trie
	firstDirty int
	// word and small are the buffers of pruneByCache, which never runs
	// nested
	word  *seq.Seq
	small []int

	lowerBound int
	stats      Stats
	best       *tree.DecisionTree
	bestSize   int
	optimal    bool
}

func newSearch(ctx context.Context, s *Solver, data *dataset.Normalized) *search {
	return &search{
		ctx:    ctx,
		config: &s.config,
		oracle: s.oracle,
		logger: s.logger,
		data:   data,
		word:   seq.New(data.N()),
		small:  make([]int, 0, data.N()),
	}
}

// timedOut returns whether the search must stop, polling the context when
// the callback has not fired yet
func (sr *search) timedOut() bool {
	if sr.expired.Load() {
		return true
	}
	if sr.ctx.Err() != nil {
		sr.expired.Store(true)
		return true
	}
	return false
}

func (sr *search) witnessOptions() witness.Options {
	return witness.Options{
		DirtyPriority:     sr.config.DirtyPriority,
		SubsetConstraints: sr.config.SubsetConstraints,
	}
}

// probe searches a tree of at most maxSize inner vertices and keeps it as
// the best one if found
func (sr *search) probe(maxSize int) bool {
	start := time.Now()
	root, first := 0, -1
	if sr.config.DirtyPriority {
		root, first = startingPair(sr.data)
	}
	w := witness.New(sr.data, maxSize, sr.witnessOptions(), root)
	sr.main = w
	sr.firstDirty = first
	var est *bound.Estimator
	if sr.config.LowerBounds {
		est = bound.New(w)
	}
	if sr.config.SubsetCaching {
		sr.cache = settrie.New()
	}
	found := sr.refine(w, est, w.Root(), maxSize)
	if sr.cache != nil {
		sr.stats.UniqueSets = sr.cache.Words()
		sr.stats.SetTrieSize = sr.cache.Nodes()
	}
	if found {
		sr.best = w.DecisionTree()
		sr.bestSize = w.Size(w.Root())
	}
	sr.logger.Debug("probed size",
		zap.Int("size", maxSize),
		zap.Bool("found", found),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("searchNodes", sr.stats.SearchTreeNodes),
	)
	return found
}

/*
refine searches refinements of the subtree of curRoot of w that classify all
its examples correctly with at most maxSize inner vertices. On success the
tree is left in the state found, otherwise every refinement applied by the
call is reverted, unless the search timed out.
*/
func (sr *search) refine(w *witness.Tree, est *bound.Estimator, curRoot, maxSize int) bool {
	sr.stats.SearchTreeNodes++
	if sr.expired.Load() {
		return false
	}
	if w.IsCorrect(curRoot) {
		return true
	}
	remaining := maxSize - w.Size(curRoot)
	if remaining <= 0 {
		return false
	}
	if est != nil && est.LowerBound(curRoot, remaining) > remaining {
		sr.stats.LowerBoundEffect++
		return false
	}
	if sr.cache != nil && w == sr.main && sr.pruneByCache(w, est, remaining) {
		return false
	}

	var e int
	if w == sr.main && sr.config.DirtyPriority && w.InnerCount() == 0 {
		e = sr.firstDirty
	} else {
		e, _ = w.LowestDirtyExample(curRoot)
	}
	for v := w.LeafOf(e); ; v = w.Parent(v) {
		if sr.refineAt(w, est, curRoot, maxSize, v, e) {
			return true
		}
		if sr.expired.Load() || v == curRoot {
			return false
		}
	}
}

/*
refineAt tries every cut separating example e from the witnesses of the
subtree of v, inserting it above v with e as the witness of the new leaf,
and recurses on each.
*/
func (sr *search) refineAt(w *witness.Tree, est *bound.Estimator, curRoot, maxSize, v, e int) bool {
	refined := false
	x := sr.data.Values[e]
	for dim := range sr.data.D() {
		w.UpdateWitnessThresholds(v)
		lo, hi := w.WitnessEnvelope(dim, v)
		var from, to, step int
		switch {
		case x[dim] < lo:
			from, to, step = x[dim], lo-1, 1
		case x[dim] > hi:
			from, to, step = x[dim]-1, hi, -1
		default:
			continue
		}
		first := true
		for thr := from; step*(to-thr) >= 0; thr += step {
			switch {
			case !refined:
				w.Refine(v, dim, thr, e)
				refined = true
			case first:
				w.UpdateLastRefinement(dim, thr)
			default:
				// same partition as the previous threshold
				if w.UpdateLastThreshold(thr) == 0 {
					continue
				}
			}
			first = false
			if w.ConstraintBroken() {
				sr.stats.SubsetConstraintEffect++
				break
			}
			next := curRoot
			if v == curRoot {
				next = w.LastAddedInner()
			}
			if sr.refine(w, est, next, maxSize) {
				return true
			}
			if sr.expired.Load() {
				return false
			}
		}
	}
	if refined {
		w.RevertLastRefinement()
	}
	return false
}

/*
pruneByCache returns whether some leaf of w holds a set of examples known to
need more than remaining refinements. Small leaves not found in the cache
are solved on their own with that budget, and recorded in the cache when
they cannot be.
*/
func (sr *search) pruneByCache(w *witness.Tree, est *bound.Estimator, remaining int) bool {
	word, small := sr.word, sr.small[:0]
	for i := range w.LeafCount() {
		l := w.Leaf(i)
		if w.IsCorrect(l) {
			continue
		}
		word.Clear()
		w.AppendLeafExamples(l, word)
		if _, ok := sr.cache.ExistsSubsetAtLeast(word, remaining+1); ok {
			sr.stats.CopiedSets++
			return true
		}
		if word.Len() <= sr.config.CacheMaxSetSize {
			small = append(small, l)
		}
	}
	for _, l := range small {
		word.Clear()
		w.AppendLeafExamples(l, word)
		aux := witness.New(sr.data, w.MaxSize(), w.Options(), word.At(0))
		aux.ReduceToSubset(word)
		var auxEst *bound.Estimator
		if est != nil {
			auxEst = bound.New(aux)
		}
		if sr.refine(aux, auxEst, aux.Root(), remaining) {
			continue
		}
		if !sr.expired.Load() {
			sr.cache.Insert(word, remaining+1)
		}
		return true
	}
	return false
}

// startingPair returns the example labelled true and the one labelled false
// closest to each other, the lowest ids breaking ties. The dataset must hold
// both labels.
func startingPair(data *dataset.Normalized) (int, int) {
	e1, e2, best := -1, -1, -1
	for a := range data.N() {
		if !data.Labels[a] {
			continue
		}
		for b := range data.N() {
			if data.Labels[b] {
				continue
			}
			if d := data.Distance(a, b); best < 0 || d < best {
				e1, e2, best = a, b, d
			}
		}
	}
	return e1, e2
}
