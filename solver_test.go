package topiary

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pbanos/topiary/dataset"
	"github.com/pbanos/topiary/feature"
	"github.com/pbanos/topiary/internal/exhaustive"
)

func setOf(t *testing.T, values [][]float64, labels []bool) *dataset.Set {
	t.Helper()
	s := dataset.New(feature.Anonymous(len(values[0])), len(values))
	for e, v := range values {
		require.NoError(t, s.Add(v, labels[e]))
	}
	return s
}

// randomSets returns small random realizable sets with both labels
func randomSets(t *testing.T, seed uint64, count int) []*dataset.Set {
	t.Helper()
	r := rand.New(rand.NewPCG(seed, 11))
	var sets []*dataset.Set
	for len(sets) < count {
		n, d := 2+r.IntN(7), 1+r.IntN(3)
		values := make([][]float64, n)
		labels := make([]bool, n)
		for e := range values {
			values[e] = make([]float64, d)
			for i := range values[e] {
				values[e][i] = float64(r.IntN(4))
			}
			labels[e] = r.IntN(2) == 0
		}
		s := setOf(t, values, labels)
		if s.Realizable() && !s.Normalize().Pure() {
			sets = append(sets, s)
		}
	}
	return sets
}

func solver(t *testing.T, config *Config, opts ...Option) *Solver {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t, zaptest.Level(zapcore.InfoLevel)))}, opts...)
	s, err := NewSolver(config, opts...)
	require.NoError(t, err)
	return s
}

func presetConfig(t *testing.T, name string) *Config {
	t.Helper()
	c, err := Preset(name)
	require.NoError(t, err)
	return c
}

func TestSolveSingleCut(t *testing.T) {
	set := setOf(t, [][]float64{{1}, {2}, {3}, {4}}, []bool{false, false, true, true})
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			c := presetConfig(t, name)
			c.MaxSize = 1
			res, err := solver(t, c).Solve(context.Background(), set)
			require.NoError(t, err)
			require.True(t, res.Found)
			assert.Equal(t, 1, res.Size)
			assert.Equal(t, 1.0, res.Accuracy)
			assert.False(t, res.TimedOut)
			assert.Equal(t, c.Strategy != Decision, res.Optimal)
			require.NoError(t, res.Tree.Validate())
			assert.Equal(t, 1, res.Tree.Inner())
			assert.False(t, res.Tree.Classify([]float64{2}))
			assert.True(t, res.Tree.Classify([]float64{3}))
		})
	}
}

func TestSolveContradiction(t *testing.T) {
	set := setOf(t, [][]float64{{1, 2}, {3, 4}, {1, 2}}, []bool{false, true, true})
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			res, err := solver(t, presetConfig(t, name)).Solve(context.Background(), set)
			require.NoError(t, err)
			assert.False(t, res.Found)
			assert.False(t, res.Optimal)
			assert.Nil(t, res.Tree)
		})
	}
}

func TestSolvePure(t *testing.T) {
	set := setOf(t, [][]float64{{1}, {5}, {3}}, []bool{true, true, true})
	res, err := solver(t, presetConfig(t, "strategy1")).Solve(context.Background(), set)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.True(t, res.Optimal)
	assert.Equal(t, 0, res.Size)
	assert.Equal(t, 1.0, res.Accuracy)
	assert.True(t, res.Tree.Classify([]float64{7}))

	empty := dataset.New(feature.Anonymous(2), 0)
	res, err = solver(t, presetConfig(t, "basic")).Solve(context.Background(), empty)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, 0, res.Size)
}

// configs returns every preset searching for the minimum, and variants
// stressing the subset cache
func configs(t *testing.T) map[string]*Config {
	t.Helper()
	out := make(map[string]*Config)
	for _, name := range PresetNames() {
		c := presetConfig(t, name)
		if c.Strategy != Decision {
			out[name] = c
		}
	}
	small := presetConfig(t, "strategy1")
	small.CacheMaxSetSize = 2
	out["strategy1 small cache"] = small
	noPreprocess := presetConfig(t, "strategy3")
	noPreprocess.Preprocess = false
	out["strategy3 raw"] = noPreprocess
	noOracle := presetConfig(t, "strategy2")
	out["strategy2 no oracle"] = noOracle
	return out
}

func TestSolveFindsMinimum(t *testing.T) {
	sets := randomSets(t, 1, 40)
	for name, c := range configs(t) {
		var opts []Option
		if name == "strategy2 no oracle" {
			opts = append(opts, WithOracle(nil))
		}
		s := solver(t, c, opts...)
		t.Run(name, func(t *testing.T) {
			for i, set := range sets {
				opt, found := exhaustive.MinSize(set.Normalize())
				require.True(t, found)
				res, err := s.Solve(context.Background(), set)
				require.NoError(t, err)
				require.True(t, res.Found, "set %d:\n%v", i, set)
				assert.Equal(t, opt, res.Size, "set %d:\n%v", i, set)
				assert.True(t, res.Optimal)
				assert.Equal(t, 1.0, res.Accuracy, "set %d:\n%v", i, set)
				assert.Equal(t, opt, res.Tree.Inner())
			}
		})
	}
}

func TestDecision(t *testing.T) {
	for i, set := range randomSets(t, 2, 25) {
		opt, _ := exhaustive.MinSize(set.Normalize())
		for _, name := range []string{"decision", "basic"} {
			c := presetConfig(t, name)
			c.Strategy = Decision
			c.MaxSize = opt
			res, err := solver(t, c).Solve(context.Background(), set)
			require.NoError(t, err)
			assert.True(t, res.Found, "%s set %d with %d:\n%v", name, i, opt, set)
			assert.LessOrEqual(t, res.Size, opt)
			assert.False(t, res.Optimal)

			c.MaxSize = opt - 1
			res, err = solver(t, c).Solve(context.Background(), set)
			require.NoError(t, err)
			assert.False(t, res.Found, "%s set %d with %d:\n%v", name, i, opt-1, set)
		}
	}
}

func TestUpperBoundTooLow(t *testing.T) {
	set := setOf(t, [][]float64{{1}, {2}, {3}, {4}}, []bool{false, true, false, true})
	for _, name := range []string{"strategy2", "strategy3"} {
		t.Run(name, func(t *testing.T) {
			c := presetConfig(t, name)
			c.UpperBound = 1
			res, err := solver(t, c, WithOracle(nil)).Solve(context.Background(), set)
			require.NoError(t, err)
			require.True(t, res.Found)
			assert.Equal(t, 3, res.Size)
			assert.True(t, res.Optimal)
		})
	}
}

func TestSolveCancelled(t *testing.T) {
	set := setOf(t, [][]float64{{1}, {2}, {3}, {4}}, []bool{false, true, false, true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			c := presetConfig(t, name)
			c.MaxSize = 3
			res, err := solver(t, c).Solve(ctx, set)
			require.NoError(t, err)
			assert.True(t, res.TimedOut)
			assert.False(t, res.Found)
			assert.False(t, res.Optimal)
		})
	}
}

type failingOracle struct{}

var errOracle = errors.New("oracle unavailable")

func (failingOracle) LowerBound(context.Context, *dataset.Normalized) (int, error) {
	return 0, errOracle
}

func TestOracleFailure(t *testing.T) {
	set := setOf(t, [][]float64{{0, 0}, {1, 1}, {0, 1}, {1, 0}}, []bool{false, false, true, true})

	c := presetConfig(t, "strategy1")
	res, err := solver(t, c, WithOracle(failingOracle{})).Solve(context.Background(), set)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, 3, res.Size)

	c.OracleFailure = OracleAbort
	_, err = solver(t, c, WithOracle(failingOracle{})).Solve(context.Background(), set)
	assert.ErrorIs(t, err, errOracle)
}

// blockingOracle waits for the search to be cancelled
type blockingOracle struct{}

func (blockingOracle) LowerBound(ctx context.Context, _ *dataset.Normalized) (int, error) {
	<-ctx.Done()
	return 0, fmt.Errorf("solving relaxation: %w", ctx.Err())
}

func TestOracleTimeout(t *testing.T) {
	set := setOf(t, [][]float64{{0, 0}, {1, 1}, {0, 1}, {1, 0}}, []bool{false, false, true, true})
	for _, policy := range []OracleFailure{OracleFallback, OracleAbort} {
		t.Run(string(policy), func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			c := presetConfig(t, "strategy1")
			c.OracleFailure = policy
			c.Timeout = 50 * time.Millisecond
			s, err := NewSolver(c, WithLogger(zap.New(core)), WithOracle(blockingOracle{}))
			require.NoError(t, err)
			res, err := s.Solve(context.Background(), set)
			require.NoError(t, err)
			assert.True(t, res.TimedOut)
			assert.False(t, res.Found)
			assert.False(t, res.Optimal)
			assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
		})
	}

	c := presetConfig(t, "strategy1")
	c.OracleFailure = OracleAbort
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := solver(t, c).Solve(ctx, set)
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
}

func TestSolveTimeoutStopsSearch(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	values := make([][]float64, 60)
	labels := make([]bool, len(values))
	for e := range values {
		values[e] = []float64{r.Float64(), r.Float64(), r.Float64(), r.Float64()}
		labels[e] = r.IntN(2) == 0
	}
	set := setOf(t, values, labels)
	require.True(t, set.Realizable())

	c := presetConfig(t, "basic")
	c.Timeout = 200 * time.Millisecond
	start := time.Now()
	res, err := solver(t, c).Solve(context.Background(), set)
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.False(t, res.Optimal)
	assert.Positive(t, res.Stats.SearchTreeNodes)
	assert.GreaterOrEqual(t, elapsed, c.Timeout)
	assert.Less(t, elapsed, c.Timeout+time.Second)
}

func TestSolveStats(t *testing.T) {
	set := setOf(t, [][]float64{{1, 3}, {2, 1}, {3, 4}, {4, 2}, {5, 5}, {6, 0}}, []bool{true, false, true, false, true, false})
	res, err := solver(t, presetConfig(t, "basic")).Solve(context.Background(), set)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Positive(t, res.Stats.SearchTreeNodes)
	assert.Zero(t, res.Stats.LowerBoundEffect)
	assert.Zero(t, res.Stats.SubsetConstraintEffect)
	assert.Zero(t, res.Stats.CopiedSets)
	assert.Zero(t, res.Stats.UniqueSets)
}

func TestSolveLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	set := setOf(t, [][]float64{{1}, {2}, {3}, {4}}, []bool{false, true, false, true})
	s, err := NewSolver(presetConfig(t, "basic"), WithLogger(zap.New(core)))
	require.NoError(t, err)
	_, err = s.Solve(context.Background(), set)
	require.NoError(t, err)

	probes := logs.FilterMessage("probed size").AllUntimed()
	require.Len(t, probes, 3)
	for i, entry := range probes {
		assert.Equal(t, zapcore.DebugLevel, entry.Level)
		fields := entry.ContextMap()
		assert.Equal(t, int64(i+1), fields["size"])
		assert.Equal(t, i == 2, fields["found"])
	}
	finished := logs.FilterMessage("search finished").AllUntimed()
	require.Len(t, finished, 1)
	assert.Equal(t, zapcore.InfoLevel, finished[0].Level)
	assert.Equal(t, true, finished[0].ContextMap()["optimal"])
	assert.Equal(t, "increasing", finished[0].ContextMap()["strategy"])
}

func TestNewSolverValidates(t *testing.T) {
	c := presetConfig(t, "basic")
	c.UpperBound = -1
	_, err := NewSolver(c)
	assert.Error(t, err)
}

func ExampleSolver_Solve() {
	set := dataset.New(feature.Anonymous(1), 4)
	for i, label := range []bool{false, false, true, true} {
		set.Add([]float64{float64(i)}, label)
	}
	config, _ := Preset("strategy1")
	s, _ := NewSolver(config)
	res, _ := s.Solve(context.Background(), set)
	fmt.Println(res.Found, res.Size, res.Optimal)
	// Output: true 1 true
}
