/*
Package multilist provides a partitioned list: a fixed set of elements
0..n-1 distributed over a fixed number of doubly linked lists. Every
element belongs to exactly one list at any time. Moving an element and
splicing a whole list onto another are O(1).
*/
package multilist

import "fmt"

const none = -1

// List holds elements 0..n-1 distributed over lists 0..m-1.
type List struct {
	prev  []int
	next  []int
	heads []int
	tails []int
	owner []int
	sizes []int
}

// New returns a List with lists lists and elements elements, all of them
// placed in order in the initial list.
func New(lists, elements, initial int) *List {
	l := &List{
		prev:  make([]int, elements),
		next:  make([]int, elements),
		heads: make([]int, lists),
		tails: make([]int, lists),
		owner: make([]int, elements),
		sizes: make([]int, lists),
	}
	for i := range l.heads {
		l.heads[i] = none
		l.tails[i] = none
	}
	for e := 0; e < elements; e++ {
		l.prev[e] = e - 1
		l.next[e] = e + 1
		l.owner[e] = initial
	}
	if elements > 0 {
		l.next[elements-1] = none
		l.heads[initial] = 0
		l.tails[initial] = elements - 1
		l.sizes[initial] = elements
	}
	return l
}

// Head returns the first element of list or -1 if it is empty.
func (l *List) Head(list int) int {
	return l.heads[list]
}

// Next returns the element after e in its list or -1.
func (l *List) Next(e int) int {
	return l.next[e]
}

// Size returns the number of elements in list.
func (l *List) Size(list int) int {
	return l.sizes[list]
}

// ListOf returns the list e currently belongs to.
func (l *List) ListOf(e int) int {
	return l.owner[e]
}

// Move unlinks e from its list and appends it to list.
func (l *List) Move(e, list int) {
	if l.prev[e] != none {
		l.next[l.prev[e]] = l.next[e]
	} else {
		l.heads[l.owner[e]] = l.next[e]
	}
	if l.next[e] != none {
		l.prev[l.next[e]] = l.prev[e]
	} else {
		l.tails[l.owner[e]] = l.prev[e]
	}
	l.sizes[l.owner[e]]--

	l.owner[e] = list
	l.sizes[list]++
	if l.tails[list] == none {
		l.heads[list] = e
		l.prev[e] = none
	} else {
		l.next[l.tails[list]] = e
		l.prev[e] = l.tails[list]
	}
	l.tails[list] = e
	l.next[e] = none
}

// MoveAll appends every element of src to dst, leaving src empty.
func (l *List) MoveAll(src, dst int) {
	if l.sizes[src] == 0 || src == dst {
		return
	}
	for e := l.heads[src]; e != none; e = l.next[e] {
		l.owner[e] = dst
	}
	if l.sizes[dst] == 0 {
		l.heads[dst] = l.heads[src]
		l.tails[dst] = l.tails[src]
	} else {
		l.next[l.tails[dst]] = l.heads[src]
		l.prev[l.heads[src]] = l.tails[dst]
		l.tails[dst] = l.tails[src]
	}
	l.sizes[dst] += l.sizes[src]
	l.heads[src] = none
	l.tails[src] = none
	l.sizes[src] = 0
}

// ForEach calls f for every element of list in order. f must not move
// elements; use an Iterator for that.
func (l *List) ForEach(list int, f func(e int)) {
	for e := l.heads[list]; e != none; e = l.next[e] {
		f(e)
	}
}

// Elements returns the elements of list in order in a new slice.
func (l *List) Elements(list int) []int {
	result := make([]int, 0, l.sizes[list])
	l.ForEach(list, func(e int) {
		result = append(result, e)
	})
	return result
}

// Iterator traverses a list and allows relocating the element it is
// positioned on without disturbing the traversal.
type Iterator struct {
	l    *List
	cur  int
	next int
}

// Iterate returns an Iterator positioned before the first element of list.
func (l *List) Iterate(list int) *Iterator {
	return &Iterator{l: l, cur: none, next: l.heads[list]}
}

// Next advances the iterator and reports whether there is a current element.
func (it *Iterator) Next() bool {
	if it.next == none {
		it.cur = none
		return false
	}
	it.cur = it.next
	it.next = it.l.next[it.cur]
	return true
}

// Elem returns the current element.
func (it *Iterator) Elem() int {
	return it.cur
}

// Move relocates the current element to list. It panics if Next has not
// returned an element since the previous Move.
func (it *Iterator) Move(list int) {
	if it.cur == none {
		panic(fmt.Sprintf("multilist: move to list %d without a current element", list))
	}
	it.l.Move(it.cur, list)
	it.cur = none
}
