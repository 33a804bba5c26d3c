package tree

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbanos/topiary/feature"
)

// stump splits dimension 0 at 2.5, false on the left, true on the right
func stump() *DecisionTree {
	t := New(1)
	t.Root = 0
	t.Dim[0], t.Threshold[0] = 0, 2.5
	t.Left[0], t.Right[0] = 1, 2
	t.Parent[1], t.Parent[2] = 0, 0
	t.Class[1], t.Class[2] = false, true
	return t
}

func TestNewLeaf(t *testing.T) {
	leaf := NewLeaf(true)
	assert.Equal(t, 0, leaf.Inner())
	assert.True(t, leaf.IsLeaf(leaf.Root))
	assert.True(t, leaf.Classify([]float64{42}))
	assert.NoError(t, leaf.Validate())
	assert.Equal(t, 0, leaf.Depth())
}

func TestClassify(t *testing.T) {
	s := stump()
	require.NoError(t, s.Validate())
	assert.Equal(t, 1, s.Inner())
	assert.Equal(t, 3, s.Vertices())
	assert.Equal(t, 1, s.LeafOf([]float64{2.5}))
	assert.Equal(t, 2, s.LeafOf([]float64{2.6}))
	assert.False(t, s.Classify([]float64{1}))
	assert.True(t, s.Classify([]float64{4}))
	assert.Equal(t, 1, s.Depth())
}

func TestAccuracy(t *testing.T) {
	s := stump()
	values := [][]float64{{1}, {2}, {3}, {4}}
	assert.Equal(t, 1.0, s.Accuracy(values, []bool{false, false, true, true}))
	assert.Equal(t, 0.75, s.Accuracy(values, []bool{false, true, true, true}))
	assert.Equal(t, 1.0, s.Accuracy(nil, nil))
}

func TestValidate(t *testing.T) {
	broken := stump()
	broken.Parent[2] = 1
	assert.Error(t, broken.Validate())

	unreachable := stump()
	unreachable.Right[0] = 1
	assert.Error(t, unreachable.Validate())

	nosplit := stump()
	nosplit.Dim[0] = -1
	assert.Error(t, nosplit.Validate())
}

func TestTraverse(t *testing.T) {
	s := stump()
	var topdown, bottomup []int
	require.NoError(t, s.Traverse(context.Background(), false, func(_ context.Context, v int) error {
		topdown = append(topdown, v)
		return nil
	}))
	require.NoError(t, s.Traverse(context.Background(), true, func(_ context.Context, v int) error {
		bottomup = append(bottomup, v)
		return nil
	}))
	assert.Equal(t, []int{0, 1, 2}, topdown)
	assert.Equal(t, []int{1, 2, 0}, bottomup)

	stop := errors.New("stop")
	err := s.Traverse(context.Background(), false, func(context.Context, int) error { return stop })
	assert.ErrorIs(t, err, stop)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Traverse(ctx, false, func(context.Context, int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormat(t *testing.T) {
	s := stump()
	expected := "[0]\n{ x[0] <= 2.5 }\n|\n|__[1]\n|  { class: false }\n|__[2]\n   { class: true }\n"
	assert.Equal(t, expected, s.String())
	named := s.Format([]feature.Feature{feature.NewContinuousFeature("width")})
	assert.Contains(t, named, "{ width <= 2.5 }")
	assert.Equal(t, "[0]\n{ class: true }\n", NewLeaf(true).String())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)

	s := stump()
	require.NoError(t, store.Store(ctx, "p1", s))
	got, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, store.Delete(ctx, "p1"))
	_, err = store.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Close(ctx))
}
