/*
Package topiary searches for minimum-size binary decision trees classifying
a labeled dataset without error.

A Solver probes size limits following a Strategy, and for every limit runs an
exact branch-and-bound search over witness trees, pruned by lower bounds,
subset constraints and a cache of example subsets known to need many
refinements. Work and Enqueue run experiments taken from a queue.
*/
package topiary

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pbanos/topiary/bound"
	"github.com/pbanos/topiary/dataset"
	"github.com/pbanos/topiary/tree"
)

// Solver searches minimum-size trees with a fixed configuration. Each Solve
// call is independent, so a Solver may be used by several goroutines.
type Solver struct {
	config Config
	logger *zap.Logger
	oracle bound.Oracle
}

// Option configures a Solver
type Option func(*Solver)

// WithLogger makes the Solver log its probes and results on l
func WithLogger(l *zap.Logger) Option {
	return func(s *Solver) {
		s.logger = l
	}
}

/*
WithOracle replaces the oracle asked for the initial lower bound when lower
bounds are enabled. A nil oracle makes the Solver use the combinatorial bound
only.
*/
func WithOracle(o bound.Oracle) Option {
	return func(s *Solver) {
		s.oracle = o
	}
}

// NewSolver takes a configuration and options and returns a Solver, or an
// error if the configuration is not valid
func NewSolver(config *Config, opts ...Option) (*Solver, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating solver config: %w", err)
	}
	s := &Solver{
		config: *config,
		logger: zap.NewNop(),
		oracle: bound.PairLP{},
	}
	if s.config.OracleFailure == "" {
		s.config.OracleFailure = OracleFallback
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// Config returns a copy of the configuration of the solver
func (s *Solver) Config() Config {
	return s.config
}

/*
Solve searches the smallest tree classifying every example of set correctly.

Datasets with two identical examples carrying different labels have no such
tree, and yield a Result with Found set to false. When ctx is done or the
configured timeout expires the search stops and returns the smallest tree
found so far, if any, with TimedOut set. An error is only returned when the
lower bound oracle fails and the configuration asks to abort on it.
*/
func (s *Solver) Solve(ctx context.Context, set *dataset.Set) (*Result, error) {
	start := time.Now()
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}
	logger := s.logger.With(zap.Stringer("strategy", s.config.Strategy), zap.Int("examples", set.N()))
	res := &Result{}
	if !set.Realizable() {
		res.Duration = time.Since(start)
		logger.Info("dataset is not realizable", zap.Duration("elapsed", res.Duration))
		return res, nil
	}
	var data *dataset.Normalized
	if s.config.Preprocess {
		data = set.ReduceAndNormalize()
	} else {
		data = set.Normalize()
	}
	if data.Pure() {
		res.Tree = tree.NewLeaf(set.N() > 0 && set.Labels[0])
		res.Found, res.Optimal = true, true
		res.Accuracy = res.Tree.Accuracy(set.Values, set.Labels)
		res.Duration = time.Since(start)
		logger.Info("dataset is pure", zap.Duration("elapsed", res.Duration))
		return res, nil
	}

	sr := newSearch(ctx, s, data)
	sr.logger = logger
	stop := context.AfterFunc(ctx, func() {
		sr.expired.Store(true)
	})
	defer stop()
	if err := sr.run(); err != nil {
		return nil, err
	}

	res.Found = sr.best != nil
	res.Optimal = sr.optimal
	res.TimedOut = sr.interrupted
	res.Stats = sr.stats
	if res.Found {
		res.Tree = sr.best
		res.Size = sr.bestSize
		res.Accuracy = res.Tree.Accuracy(set.Values, set.Labels)
	}
	res.Duration = time.Since(start)
	logger.Info("search finished",
		zap.Bool("found", res.Found),
		zap.Int("size", res.Size),
		zap.Bool("optimal", res.Optimal),
		zap.Bool("timedOut", res.TimedOut),
		zap.Int("searchNodes", res.Stats.SearchTreeNodes),
		zap.Duration("elapsed", res.Duration),
	)
	return res, nil
}
