package redisq

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbanos/topiary/queue"
	"github.com/pbanos/topiary/queue/json"
)

func openQueue(t *testing.T, maxRun time.Duration) queue.Queue {
	url := os.Getenv("TOPIARY_REDIS_URL")
	if url == "" {
		t.Skip("TOPIARY_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rc := redis.NewClient(opts)
	ctx := context.Background()
	id := fmt.Sprintf("topiary-test-%d", time.Now().UnixNano())
	q := New(id, rc, maxRun, time.Second, json.New())
	t.Cleanup(func() {
		q.Stop(ctx)
		keys, _ := rc.Keys(ctx, id+":*").Result()
		if len(keys) > 0 {
			rc.Del(ctx, keys...)
		}
		rc.Close()
	})
	return q
}

func problem(id string) *queue.Problem {
	return &queue.Problem{ID: id, Dataset: "data.csv", Algorithm: "imp3"}
}

func TestRedisQueue(t *testing.T) {
	q := openQueue(t, 0)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, problem("a")))
	require.NoError(t, q.Push(ctx, problem("b")))
	assert.Error(t, q.Push(ctx, problem("a")))
	assert.Error(t, q.Push(ctx, problem("a:b")))

	pending, running, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
	assert.Zero(t, running)

	p, pctx, cancel, err := q.Pull(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	defer cancel()
	assert.NoError(t, pctx.Err())

	pending, running, err = q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
	assert.Equal(t, 1, running)

	require.NoError(t, q.Drop(ctx, p.ID))
	pending, running, err = q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
	assert.Zero(t, running)

	for range 2 {
		p, _, cancel, err := q.Pull(ctx)
		require.NoError(t, err)
		require.NotNil(t, p)
		cancel()
		require.NoError(t, q.Complete(ctx, p.ID))
	}
	p, _, _, err = q.Pull(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, queue.WaitFor(ctx, q, 10*time.Millisecond))
}

func TestRedisQueueRecoversTimedOutProblems(t *testing.T) {
	q := openQueue(t, 200*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, problem("slow")))
	p, pctx, cancel, err := q.Pull(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	defer cancel()
	<-pctx.Done()

	assert.Eventually(t, func() bool {
		pending, running, err := q.Count(ctx)
		return err == nil && pending == 1 && running == 0
	}, 2*time.Second, 20*time.Millisecond)
}
