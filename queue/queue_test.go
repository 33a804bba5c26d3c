package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func problem(id string) *Problem {
	return &Problem{ID: id, Dataset: "data.csv", Algorithm: "imp3", Timeout: time.Minute}
}

func TestMemQueueOrderAndStates(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Stop(ctx)

	for i := range 5 {
		require.NoError(t, q.Push(ctx, problem(fmt.Sprint(i))))
	}
	assert.Error(t, q.Push(ctx, problem("3")))
	assert.Error(t, q.Push(ctx, &Problem{ID: "x"}))

	p, pctx, cancel, err := q.Pull(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "0", p.ID)
	assert.NoError(t, pctx.Err())
	cancel()

	pending, running, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, pending)
	assert.Equal(t, 1, running)

	require.NoError(t, q.Drop(ctx, "0"))
	require.NoError(t, q.Push(ctx, problem("5")))
	var order []string
	for {
		p, _, cancel, err := q.Pull(ctx)
		require.NoError(t, err)
		if p == nil {
			break
		}
		cancel()
		order = append(order, p.ID)
		require.NoError(t, q.Complete(ctx, p.ID))
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "0", "5"}, order)

	pending, running, err = q.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Zero(t, running)
	assert.NoError(t, WaitFor(ctx, q, time.Millisecond))
}

func TestMemQueueStopCancelsPulled(t *testing.T) {
	ctx := context.Background()
	q := New()
	require.NoError(t, q.Push(ctx, problem("a")))
	_, pctx, cancel, err := q.Pull(ctx)
	require.NoError(t, err)
	defer cancel()
	require.NoError(t, q.Stop(ctx))
	assert.ErrorIs(t, pctx.Err(), context.Canceled)
}

func TestWaitForTimesOut(t *testing.T) {
	q := New()
	require.NoError(t, q.Push(context.Background(), problem("a")))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, WaitFor(ctx, q, time.Millisecond), context.DeadlineExceeded)
}

func TestProblemValidate(t *testing.T) {
	assert.NoError(t, problem("a").Validate())
	p := problem("a")
	p.SubsetRatio = 1.5
	assert.Error(t, p.Validate())
	p = problem("a")
	p.Dataset = ""
	assert.Error(t, p.Validate())
}
