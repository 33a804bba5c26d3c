package topiary

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pbanos/topiary/dataset"
	"github.com/pbanos/topiary/metrics"
	"github.com/pbanos/topiary/queue"
	"github.com/pbanos/topiary/results"
	"github.com/pbanos/topiary/tree"
)

const (
	// DefaultEmptyQueueSleep is how long a worker waits before pulling again
	// from a queue with no pending problems but some running
	DefaultEmptyQueueSleep = time.Second
	memorySamplePeriod     = 50 * time.Millisecond
)

type worker struct {
	q       queue.Queue
	loader  Loader
	store   tree.Store
	sink    *results.Writer
	logger  *zap.Logger
	metrics *metrics.Metrics
	sleep   time.Duration
	solver  []Option
}

// WorkOption configures Work
type WorkOption func(*worker)

// WorkLogger makes Work log the problems it handles on l. Solvers log on
// it too unless SolverOptions sets another logger.
func WorkLogger(l *zap.Logger) WorkOption {
	return func(w *worker) {
		w.logger = l
	}
}

// WorkMetrics makes Work report every problem it solves on m
func WorkMetrics(m *metrics.Metrics) WorkOption {
	return func(w *worker) {
		w.metrics = m
	}
}

// EmptyQueueSleep sets how long Work waits when no problem can be pulled
// but some are still running
func EmptyQueueSleep(d time.Duration) WorkOption {
	return func(w *worker) {
		w.sleep = d
	}
}

// SolverOptions sets options for the solvers built by Work
func SolverOptions(opts ...Option) WorkOption {
	return func(w *worker) {
		w.solver = append(w.solver, opts...)
	}
}

/*
Enqueue takes a context, a queue and problems and pushes the problems to the
queue, stopping at the first one that cannot be pushed.
*/
func Enqueue(ctx context.Context, q queue.Queue, problems ...*queue.Problem) error {
	for _, p := range problems {
		if err := q.Push(ctx, p); err != nil {
			return fmt.Errorf("enqueuing problem %s: %w", p.ID, err)
		}
	}
	return nil
}

// Work takes a context, a queue, a loader, a tree store, a results writer
// and options, and enters a loop in which it:
//   - pulls a problem from the queue,
//   - loads its dataset with the loader and takes the requested subset,
//   - solves it with a Solver configured from the preset of the problem,
//   - stores the tree found on the store, if not nil,
//   - writes the result record on the writer, if not nil,
//   - marks the problem as completed on the queue.
//
// If at some point no problem can be pulled from the queue and the sum of
// problems running and pending on the queue is 0, the worker ends returning
// nil. If no problem can be pulled but the sum is not 0, then the worker
// sleeps and then retries.
//
// Work returns a non-nil error if the given context times out or is
// cancelled, if a problem cannot be loaded, solved or recorded, or if an
// operation with the given queue returns a non-nil error. The problem being
// worked on when the error happens is dropped back to the queue.
func Work(ctx context.Context, q queue.Queue, loader Loader, store tree.Store, sink *results.Writer, opts ...WorkOption) error {
	w := &worker{
		q:      q,
		loader: loader,
		store:  store,
		sink:   sink,
		logger: zap.NewNop(),
		sleep:  DefaultEmptyQueueSleep,
	}
	for _, opt := range opts {
		opt(w)
	}
	for {
		p, pctx, pcf, err := q.Pull(ctx)
		if err != nil {
			return err
		}
		if p == nil {
			pending, running, err := q.Count(ctx)
			if err != nil {
				return err
			}
			if pending+running == 0 {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.sleep):
			}
			continue
		}
		w.logger.Info("pulled problem", zap.String("problem", p.ID), zap.String("algorithm", p.Algorithm))
		mctx, cancel := mergeCtxCancel(pctx, ctx)
		err = w.workProblem(mctx, p)
		cancel()
		pcf()
		if err != nil {
			w.metrics.Failed(p.Algorithm)
			w.logger.Error("dropped problem", zap.String("problem", p.ID), zap.Error(err))
			return err
		}
		err = ctx.Err()
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *worker) workProblem(ctx context.Context, p *queue.Problem) error {
	defer func() {
		w.q.Drop(context.WithoutCancel(ctx), p.ID)
	}()
	config, err := problemConfig(p)
	if err != nil {
		return err
	}
	solver, err := NewSolver(config, append([]Option{WithLogger(w.logger.With(zap.String("problem", p.ID)))}, w.solver...)...)
	if err != nil {
		return fmt.Errorf("solving problem %s: %w", p.ID, err)
	}
	full, err := w.loader.Load(ctx, p)
	if err != nil {
		return fmt.Errorf("loading dataset of problem %s: %w", p.ID, err)
	}
	set := full
	if p.SubsetRatio > 0 && p.SubsetRatio < 1 {
		set, _ = full.RandomSubset(dataset.SubsetSize(full.N(), p.SubsetRatio), p.SubsetSeed)
	}

	done := w.metrics.Start()
	sampler := results.SampleMemory(memorySamplePeriod)
	res, err := solver.Solve(ctx, set)
	peak := sampler.Stop()
	done()
	if err != nil {
		return fmt.Errorf("solving problem %s: %w", p.ID, err)
	}
	w.metrics.Observe(p.Algorithm, metrics.Solve{
		Found:                  res.Found,
		TimedOut:               res.TimedOut,
		Duration:               res.Duration,
		SearchNodes:            res.Stats.SearchTreeNodes,
		LowerBoundEffect:       res.Stats.LowerBoundEffect,
		SubsetConstraintEffect: res.Stats.SubsetConstraintEffect,
		CopiedSets:             res.Stats.CopiedSets,
	})

	if w.store != nil && res.Found {
		if err = w.store.Store(ctx, p.ID, res.Tree); err != nil {
			return fmt.Errorf("storing tree of problem %s: %w", p.ID, err)
		}
	}
	if w.sink != nil {
		if err = w.sink.Write(ResultRecord(p, config, full, set, res, peak)); err != nil {
			return fmt.Errorf("writing result of problem %s: %w", p.ID, err)
		}
	}
	w.logger.Info("completed problem",
		zap.String("problem", p.ID),
		zap.Bool("found", res.Found),
		zap.Int("size", res.Size),
		zap.Duration("elapsed", res.Duration),
	)
	return w.q.Complete(ctx, p.ID)
}

// problemConfig returns the configuration of the preset of p with its limits
func problemConfig(p *queue.Problem) (*Config, error) {
	config, err := Preset(p.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("configuring problem %s: %w", p.ID, err)
	}
	config.MaxSize = p.MaxSize
	config.UpperBound = p.UpperBound
	config.Timeout = p.Timeout
	return config, nil
}

/*
ResultRecord returns the record of the result of solving problem p with the
given configuration. full is the dataset of the problem and set the subset
actually solved, peak the peak memory use in MiB.
*/
func ResultRecord(p *queue.Problem, config *Config, full, set *dataset.Set, res *Result, peak uint64) *results.Record {
	limit := config.UpperBound
	if config.Strategy == Decision {
		limit = config.MaxSize
	}
	return &results.Record{
		ProblemID:              p.ID,
		AlgorithmID:            PresetID(p.Algorithm),
		Dataset:                DatasetName(p),
		DatasetSize:            full.N(),
		SubsetRatio:            p.SubsetRatio,
		SubsetSeed:             p.SubsetSeed,
		Dimensions:             set.D(),
		MaxSize:                limit,
		TimeoutSeconds:         int64(config.Timeout / time.Second),
		Time:                   res.Duration,
		MemoryMiB:              peak,
		TimedOut:               res.TimedOut,
		Found:                  res.Found,
		TreeSize:               res.Size,
		CorrectRatio:           res.Accuracy,
		SearchNodes:            res.Stats.SearchTreeNodes,
		LowerBoundEffect:       res.Stats.LowerBoundEffect,
		SubsetConstraintEffect: res.Stats.SubsetConstraintEffect,
		UniqueSets:             res.Stats.UniqueSets,
		CopiedSets:             res.Stats.CopiedSets,
		SetTrieSize:            res.Stats.SetTrieSize,
	}
}

func mergeCtxCancel(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	mctx, cancel := context.WithCancel(ctx1)
	go func() {
		select {
		case <-mctx.Done():
		case <-ctx2.Done():
			cancel()
		}
	}()
	return mctx, cancel
}
