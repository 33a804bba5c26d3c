package witness

import "container/heap"

// dirtyHeap is a min-heap of the misclassified examples of a leaf by
// priority key. key and pos are shared by every heap of a tree: an example
// is in at most one heap at a time.
type dirtyHeap struct {
	items []int
	key   []int
	pos   []int
}

func newDirtyHeap(key, pos []int) *dirtyHeap {
	return &dirtyHeap{key: key, pos: pos}
}

func (h *dirtyHeap) Len() int { return len(h.items) }

func (h *dirtyHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if h.key[a] != h.key[b] {
		return h.key[a] < h.key[b]
	}
	return a < b
}

func (h *dirtyHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.pos[h.items[i]] = i
	h.pos[h.items[j]] = j
}

func (h *dirtyHeap) Push(x any) {
	e := x.(int)
	h.pos[e] = len(h.items)
	h.items = append(h.items, e)
}

func (h *dirtyHeap) Pop() any {
	last := len(h.items) - 1
	e := h.items[last]
	h.items = h.items[:last]
	h.pos[e] = -1
	return e
}

func (h *dirtyHeap) push(e int) {
	heap.Push(h, e)
}

func (h *dirtyHeap) remove(e int) {
	if i := h.pos[e]; i >= 0 && i < len(h.items) && h.items[i] == e {
		heap.Remove(h, i)
	}
}

func (h *dirtyHeap) peek() (int, bool) {
	if len(h.items) == 0 {
		return -1, false
	}
	return h.items[0], true
}
