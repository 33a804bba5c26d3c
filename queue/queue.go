package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Queue represents a queue of experiment problems
// to be solved. The idea is a worker will use the
// Pull method to obtain a problem. It will start
// solving it and will then either complete it or
// drop it halfway.
//
// All its methods have a context.Context as first
// parameter that implementations may use to allow
// timeouts and cancellations on the Queue operations.
type Queue interface {
	// Push takes a problem and stores it in the queue or
	// returns an error. The problem will count as pending.
	Push(context.Context, *Problem) error
	// Pull returns a problem and a context that may have
	// a timeout or allow its cancellation, together with
	// the function to release that context, or an error.
	// The pulled problem will be counted as running from
	// then on.
	// If there are no problems to pull, implementations
	// should not return an error, but 4 nil values.
	// In case of cancellation, workers should still
	// drop the problem.
	Pull(context.Context) (*Problem, context.Context, context.CancelFunc, error)
	// Drop takes the ID of a problem and makes it available
	// for pulling from the Queue again. The dropped problem
	// should be counted by implementations as pending
	// again, unless it has been previously completed.
	// Workers should use this to return to the queue
	// problems they have not completed.
	Drop(context.Context, string) error
	// Complete takes the ID of a problem. Implementations
	// should remove the problem from the running state.
	Complete(context.Context, string) error
	// Count returns the number of
	// pending and running problems in the queue
	// or an error
	Count(context.Context) (int, int, error)
	// Stop stops the queue. Implementations should use
	// the call to free resources and even cancel pulled
	// contexts.
	Stop(context.Context) error
}

type memQueue struct {
	pendingProblems []*Problem
	head            int
	tail            int
	pending         int
	running         map[string]*Problem
	lock            *sync.RWMutex
	ctx             context.Context
	ctxCancel       context.CancelFunc
}

// New returns a queue backed only by the process memory
func New() Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &memQueue{
		running:   make(map[string]*Problem),
		lock:      &sync.RWMutex{},
		ctx:       ctx,
		ctxCancel: cancel,
	}
}

// WaitFor takes a context and a queue and waits for
// all its problems to have been processed, that is,
// for the given queue's Count method to return 0, 0, nil.
// It will return a non-nil error if the given context
// times out or is cancelled, or if the queue's Count
// operation returns an error.
// Use this function to wait for a batch of enqueued
// experiments once workers are processing them.
func WaitFor(ctx context.Context, q Queue, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
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
		case <-ticker.C:
		}
	}
	return nil
}

func (mq *memQueue) Push(ctx context.Context, p *Problem) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("pushing problem: %w", err)
	}
	return mq.withLock(ctx, func(ctx context.Context) error {
		if _, ok := mq.running[p.ID]; ok || mq.isPending(p.ID) {
			return fmt.Errorf("pushing problem %s: already in queue", p.ID)
		}
		mq.push(p)
		return nil
	})
}

func (mq *memQueue) Pull(ctx context.Context) (*Problem, context.Context, context.CancelFunc, error) {
	var problem *Problem
	err := mq.withLock(ctx, func(ctx context.Context) error {
		if mq.pending == 0 {
			return nil
		}
		mq.pending--
		problem = mq.pendingProblems[mq.head]
		mq.pendingProblems[mq.head] = nil
		mq.head = (mq.head + 1) % len(mq.pendingProblems)
		mq.running[problem.ID] = problem
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if problem == nil {
		return nil, nil, nil, nil
	}
	pctx, cancel := context.WithCancel(mq.ctx)
	return problem, pctx, cancel, nil
}

func (mq *memQueue) Drop(ctx context.Context, id string) error {
	return mq.withLock(ctx, func(ctx context.Context) error {
		p, ok := mq.running[id]
		if !ok {
			return nil
		}
		delete(mq.running, id)
		mq.push(p)
		return nil
	})
}

func (mq *memQueue) Complete(ctx context.Context, id string) error {
	return mq.withLock(ctx, func(ctx context.Context) error {
		delete(mq.running, id)
		return nil
	})
}

func (mq *memQueue) Count(ctx context.Context) (int, int, error) {
	var pending, running int
	err := mq.withRLock(ctx, func(ctx context.Context) error {
		pending = mq.pending
		running = len(mq.running)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return pending, running, nil
}

func (mq *memQueue) Stop(ctx context.Context) error {
	mq.ctxCancel()
	return nil
}

func (mq *memQueue) String() string {
	return fmt.Sprintf("{Queue pending: %d running: %d head:%d tail:%d}", mq.pending, len(mq.running), mq.head, mq.tail)
}

func (mq *memQueue) isPending(id string) bool {
	for i := range mq.pending {
		if mq.pendingProblems[(mq.head+i)%len(mq.pendingProblems)].ID == id {
			return true
		}
	}
	return false
}

func (mq *memQueue) push(p *Problem) {
	if mq.pending == len(mq.pendingProblems) {
		mq.reorder()
		mq.pendingProblems = append(mq.pendingProblems, p)
		mq.tail = 0
	} else {
		mq.pendingProblems[mq.tail] = p
		mq.tail = (mq.tail + 1) % len(mq.pendingProblems)
	}
	mq.pending++
}

func (mq *memQueue) reorder() {
	if mq.head == 0 {
		return
	}
	mq.pendingProblems = append(mq.pendingProblems[mq.head:], mq.pendingProblems[0:mq.head]...)
	mq.head = 0
}

func (mq *memQueue) withLock(ctx context.Context, f func(ctx context.Context) error) error {
	gotLock := make(chan struct{})
	go func() {
		mq.lock.Lock()
		select {
		case <-ctx.Done():
			mq.lock.Unlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer mq.lock.Unlock()
	}
	return f(ctx)
}

func (mq *memQueue) withRLock(ctx context.Context, f func(ctx context.Context) error) error {
	gotLock := make(chan struct{})
	go func() {
		mq.lock.RLock()
		select {
		case <-ctx.Done():
			mq.lock.RUnlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer mq.lock.RUnlock()
	}
	return f(ctx)
}
