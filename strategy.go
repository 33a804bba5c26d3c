package topiary

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pbanos/topiary/bound"
	"github.com/pbanos/topiary/witness"
)

// run probes sizes in the order of the configured strategy
func (sr *search) run() error {
	if sr.config.LowerBounds {
		lb, err := sr.initialLowerBound()
		if err != nil {
			return err
		}
		if sr.interrupted {
			return nil
		}
		sr.lowerBound = max(lb, 1)
	} else {
		sr.lowerBound = 1
	}
	switch sr.config.Strategy {
	case Decision:
		sr.decision(sr.config.MaxSize)
	case Increasing:
		sr.increasing(sr.lowerBound)
	case Decreasing:
		sr.decreasing(sr.upperBound())
	case Bisection:
		sr.bisection(sr.upperBound())
	default:
		return fmt.Errorf("running strategy: invalid strategy %d", int(sr.config.Strategy))
	}
	return nil
}

/*
initialLowerBound asks the oracle for a lower bound on the size of any tree
for the dataset. When the oracle fails the combinatorial bound of a fresh
witness tree is used instead, unless the configuration asks to abort. An
oracle cut short by the timeout interrupts the search instead.
*/
func (sr *search) initialLowerBound() (int, error) {
	if sr.oracle != nil {
		lb, err := sr.oracle.LowerBound(sr.ctx, sr.data)
		if err == nil {
			sr.logger.Debug("computed initial lower bound", zap.Int("lowerBound", lb))
			return lb, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || sr.timedOut() {
			sr.interrupted = true
			return 0, nil
		}
		if sr.config.OracleFailure == OracleAbort {
			return 0, fmt.Errorf("computing initial lower bound: %w", err)
		}
		sr.logger.Warn("lower bound oracle failed, falling back to the combinatorial bound", zap.Error(err))
	}
	root := 0
	if sr.config.DirtyPriority {
		root, _ = startingPair(sr.data)
	}
	w := witness.New(sr.data, 1, sr.witnessOptions(), root)
	lb := bound.New(w).LowerBound(w.Root(), sr.data.N())
	sr.logger.Debug("computed initial lower bound", zap.Int("lowerBound", lb), zap.Bool("combinatorial", true))
	return lb, nil
}

// upperBound returns the configured upper bound, or the largest size a
// tree may need
func (sr *search) upperBound() int {
	limit := sr.data.N() - 1
	if sr.config.UpperBound <= 0 || sr.config.UpperBound > limit {
		return limit
	}
	return sr.config.UpperBound
}

// stop checks for a timeout between probes
func (sr *search) stop() bool {
	if sr.timedOut() {
		sr.interrupted = true
		return true
	}
	return false
}

// failed tells a probe that found nothing apart from one cut short by the
// timeout
func (sr *search) failed() bool {
	if sr.expired.Load() {
		sr.interrupted = true
		return false
	}
	return true
}

func (sr *search) decision(maxSize int) {
	if sr.stop() {
		return
	}
	if sr.config.LowerBounds && maxSize < sr.lowerBound {
		return
	}
	if !sr.probe(maxSize) {
		sr.failed()
	}
}

func (sr *search) increasing(from int) {
	for size := from; size <= sr.data.N()-1; size++ {
		if sr.stop() {
			return
		}
		if sr.probe(size) {
			sr.optimal = true
			return
		}
		if !sr.failed() {
			return
		}
	}
}

func (sr *search) decreasing(ub int) {
	if sr.stop() {
		return
	}
	if !sr.probe(ub) {
		if sr.failed() {
			sr.increasing(ub + 1)
		}
		return
	}
	for sr.bestSize-1 >= sr.lowerBound {
		if sr.stop() {
			return
		}
		if !sr.probe(sr.bestSize - 1) {
			sr.optimal = sr.failed()
			return
		}
	}
	sr.optimal = true
}

func (sr *search) bisection(ub int) {
	lb := sr.lowerBound - 1
	if sr.stop() {
		return
	}
	if !sr.probe(ub) {
		if sr.failed() {
			sr.increasing(ub + 1)
		}
		return
	}
	ub = sr.bestSize
	for ub-lb > 1 {
		if sr.stop() {
			return
		}
		mid := lb + (ub-lb)/2
		if sr.probe(mid) {
			ub = sr.bestSize
			continue
		}
		if !sr.failed() {
			return
		}
		lb = mid
	}
	sr.optimal = true
}
