package tree

import (
	"context"
	"sync"
)

// Error represents an error related with trees
type Error string

// ErrNotFound is returned by stores when no tree is stored under an id
const ErrNotFound = Error("tree not found")

func (e Error) Error() string {
	return string(e)
}

/*
Store is an interface to manage a store where trees can be stored, retrieved
and deleted under an id.

All it methods take a context that may allow cancelling the operation (thus
forcing the return of an error) if the implementation allows it.
*/
type Store interface {
	// Get takes an id and returns the tree in the store with that id,
	// ErrNotFound if there is none or another error if the store cannot
	// be queried
	Get(ctx context.Context, id string) (*DecisionTree, error)
	// Store takes an id and a tree and stores the tree under it, replacing
	// any tree stored with that id. It returns an error if the tree cannot
	// be stored.
	Store(ctx context.Context, id string, t *DecisionTree) error
	// Delete removes the tree stored under the id, if any. It returns an
	// error if the deletion cannot be performed.
	Delete(ctx context.Context, id string) error
	// Close closes the store, implementations should free any resources in
	// use as well as ensure any pending changes are applied before returning
	// (unless the context expires).
	Close(ctx context.Context) error
}

type memoryStore struct {
	trees map[string]*DecisionTree
	lock  *sync.RWMutex
}

// NewMemoryStore returns an implementation of Store with the process memory
// space as underlying backend
func NewMemoryStore() Store {
	return &memoryStore{
		trees: make(map[string]*DecisionTree),
		lock:  &sync.RWMutex{},
	}
}

func (ms *memoryStore) Get(ctx context.Context, id string) (*DecisionTree, error) {
	var t *DecisionTree
	err := ms.withRLock(ctx, func(ctx context.Context) error {
		var ok bool
		t, ok = ms.trees[id]
		if !ok {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (ms *memoryStore) Store(ctx context.Context, id string, t *DecisionTree) error {
	return ms.withLock(ctx, func(ctx context.Context) error {
		ms.trees[id] = t
		return nil
	})
}

func (ms *memoryStore) Delete(ctx context.Context, id string) error {
	return ms.withLock(ctx, func(ctx context.Context) error {
		delete(ms.trees, id)
		return nil
	})
}

func (ms *memoryStore) Close(ctx context.Context) error {
	return nil
}

func (ms *memoryStore) withLock(ctx context.Context, f func(ctx context.Context) error) error {
	gotLock := make(chan struct{})
	go func() {
		ms.lock.Lock()
		select {
		case <-ctx.Done():
			ms.lock.Unlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer ms.lock.Unlock()
	}
	return f(ctx)
}

func (ms *memoryStore) withRLock(ctx context.Context, f func(ctx context.Context) error) error {
	gotLock := make(chan struct{})
	go func() {
		ms.lock.RLock()
		select {
		case <-ctx.Done():
			ms.lock.RUnlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer ms.lock.RUnlock()
	}
	return f(ctx)
}
