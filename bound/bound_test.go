package bound

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbanos/topiary/dataset"
	"github.com/pbanos/topiary/feature"
	"github.com/pbanos/topiary/internal/exhaustive"
	"github.com/pbanos/topiary/witness"
)

func normalized(t *testing.T, values [][]float64, labels []bool) *dataset.Normalized {
	t.Helper()
	s := dataset.New(feature.Anonymous(len(values[0])), len(values))
	for e, v := range values {
		require.NoError(t, s.Add(v, labels[e]))
	}
	return s.Normalize()
}

// randomRealizable returns small random datasets with distinct examples
func randomRealizable(t *testing.T, seed uint64, count int) []*dataset.Normalized {
	t.Helper()
	r := rand.New(rand.NewPCG(seed, 3))
	var out []*dataset.Normalized
	for len(out) < count {
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
		data := normalized(t, values, labels)
		if data.Realizable() {
			out = append(out, data)
		}
	}
	return out
}

func TestLowerBoundSimple(t *testing.T) {
	tests := []struct {
		name   string
		values [][]float64
		labels []bool
		bound  int
	}{
		{"pure", [][]float64{{1}, {2}}, []bool{true, true}, 0},
		{"one cut", [][]float64{{1}, {2}, {3}, {4}}, []bool{false, false, true, true}, 1},
		{"alternating", [][]float64{{1}, {2}, {3}, {4}}, []bool{false, true, false, true}, 1},
		{"witness inside", [][]float64{{1}, {2}, {3}, {4}, {5}}, []bool{true, true, false, true, true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := normalized(t, tt.values, tt.labels)
			w := witness.New(data, 4, witness.Options{}, 0)
			assert.Equal(t, tt.bound, New(w).LowerBound(w.Root(), 4))
		})
	}
}

func TestLowerBoundStopsAboveBudget(t *testing.T) {
	data := normalized(t, [][]float64{{1}, {2}, {3}, {4}, {5}}, []bool{true, true, false, true, true})
	w := witness.New(data, 4, witness.Options{}, 2)
	est := New(w)
	assert.Equal(t, 2, est.LowerBound(w.Root(), 10))
	assert.Equal(t, 2, est.LowerBound(w.Root(), 1))
	assert.Equal(t, 1, est.LowerBound(w.Root(), 0))
}

func TestLowerBoundIsSound(t *testing.T) {
	for i, data := range randomRealizable(t, 1, 60) {
		opt, found := exhaustive.MinSize(data)
		require.True(t, found)
		for root := range data.N() {
			w := witness.New(data, max(opt, 1), witness.Options{}, root)
			lb := New(w).LowerBound(w.Root(), data.N())
			assert.LessOrEqual(t, lb, opt, "dataset %d with root witness %d:\n%v", i, root, data)
		}
	}
}

func TestLowerBoundAfterRefinement(t *testing.T) {
	data := normalized(t, [][]float64{{1}, {2}, {3}, {4}}, []bool{false, true, false, true})
	w := witness.New(data, 3, witness.Options{}, 0)
	est := New(w)
	w.Refine(w.Root(), 0, 0, 1)
	// the leaf of witness 1 still holds example 2
	assert.Equal(t, 1, est.LowerBound(w.Root(), 3))
	w.Refine(w.Right(w.Root()), 0, 1, 2)
	assert.Equal(t, 1, est.LowerBound(w.Root(), 3))
	w.Refine(w.LastAddedLeaf(), 0, 2, 3)
	assert.True(t, w.IsCorrect(w.Root()))
	assert.Equal(t, 0, est.LowerBound(w.Root(), 3))
}

func TestPairLP(t *testing.T) {
	tests := []struct {
		name   string
		values [][]float64
		labels []bool
		bound  int
	}{
		{"pure", [][]float64{{1}, {2}}, []bool{true, true}, 0},
		{"one cut", [][]float64{{1}, {2}, {3}, {4}}, []bool{false, false, true, true}, 1},
		{"alternating", [][]float64{{1}, {2}, {3}, {4}}, []bool{false, true, false, true}, 3},
		{"xor", [][]float64{{0, 0}, {1, 1}, {0, 1}, {1, 0}}, []bool{false, false, true, true}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lb, err := PairLP{}.LowerBound(context.Background(), normalized(t, tt.values, tt.labels))
			require.NoError(t, err)
			assert.Equal(t, tt.bound, lb)
		})
	}
}

func TestPairLPIsSound(t *testing.T) {
	for i, data := range randomRealizable(t, 2, 40) {
		opt, found := exhaustive.MinSize(data)
		require.True(t, found)
		lb, err := PairLP{}.LowerBound(context.Background(), data)
		require.NoError(t, err)
		assert.LessOrEqual(t, lb, opt, "dataset %d:\n%v", i, data)
	}
}

func TestPairLPErrors(t *testing.T) {
	data := normalized(t, [][]float64{{1}, {1}}, []bool{false, true})
	_, err := PairLP{}.LowerBound(context.Background(), data)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = PairLP{}.LowerBound(ctx, normalized(t, [][]float64{{1}, {2}}, []bool{false, true}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPairLPRowLimit(t *testing.T) {
	data := normalized(t, [][]float64{{1}, {2}, {3}, {4}}, []bool{false, true, false, true})
	_, err := PairLP{MaxRows: 2}.LowerBound(context.Background(), data)
	assert.ErrorIs(t, err, ErrTooManyRows)

	lb, err := PairLP{MaxRows: 4}.LowerBound(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 3, lb)
}
