/*
Package constraint tracks subset constraints: per vertex, a set of examples
of which at least one must stay inside the vertex's subtree. A constraint
whose tracked set has no member left in the subtree is broken, and the
Tracker answers in O(1) whether any constraint is broken.
*/
package constraint

import "math/bits"

const inactive = -1

// Tracker keeps at most one constraint per vertex.
type Tracker struct {
	member  [][]uint64
	members [][]int
	size    []int
	broken  int
}

// New returns a Tracker for examples 0..examples-1 and vertices
// 0..vertices-1, with no active constraint.
func New(examples, vertices int) *Tracker {
	words := (examples + 63) / 64
	t := &Tracker{
		member:  make([][]uint64, vertices),
		members: make([][]int, vertices),
		size:    make([]int, vertices),
	}
	bitsets := make([]uint64, vertices*words)
	lists := make([]int, vertices*examples)
	for v := range t.size {
		t.member[v] = bitsets[v*words : (v+1)*words : (v+1)*words]
		t.members[v] = lists[v*examples : v*examples : (v+1)*examples]
		t.size[v] = inactive
	}
	return t
}

// Active reports whether v has a constraint.
func (t *Tracker) Active(v int) bool {
	return t.size[v] != inactive
}

// Size returns the number of tracked members of v's constraint that are
// currently in v's subtree, or -1 if v has no constraint.
func (t *Tracker) Size(v int) int {
	return t.size[v]
}

// Tracked reports whether e is a member of v's constraint.
func (t *Tracker) Tracked(v, e int) bool {
	return t.member[v][e/64]&(1<<(uint(e)%64)) != 0
}

// Create activates an empty constraint for v. An empty constraint is
// broken. Creating an existing constraint does nothing.
func (t *Tracker) Create(v int) {
	if t.size[v] != inactive {
		return
	}
	t.size[v] = 0
	t.broken++
}

// Remove deactivates v's constraint and forgets its members.
func (t *Tracker) Remove(v int) {
	if t.size[v] == inactive {
		return
	}
	for _, e := range t.members[v] {
		t.member[v][e/64] &^= 1 << (uint(e) % 64)
	}
	t.members[v] = t.members[v][:0]
	if t.size[v] == 0 {
		t.broken--
	}
	t.size[v] = inactive
}

// AddExample tracks e in v's constraint, creating the constraint if
// needed. e is assumed to be in v's subtree. Adding a tracked example
// does nothing.
func (t *Tracker) AddExample(v, e int) {
	if t.Tracked(v, e) {
		return
	}
	t.Create(v)
	t.member[v][e/64] |= 1 << (uint(e) % 64)
	t.members[v] = append(t.members[v], e)
	t.OnEnter(v, e)
}

// OnLeave must be called when e leaves v's subtree.
func (t *Tracker) OnLeave(v, e int) {
	if !t.Tracked(v, e) {
		return
	}
	t.size[v]--
	if t.size[v] == 0 {
		t.broken++
	}
}

// OnEnter must be called when e enters v's subtree.
func (t *Tracker) OnEnter(v, e int) {
	if !t.Tracked(v, e) {
		return
	}
	t.size[v]++
	if t.size[v] == 1 {
		t.broken--
	}
}

// AnyBroken reports whether some active constraint has no member left.
func (t *Tracker) AnyBroken() bool {
	return t.broken > 0
}

// Broken returns the number of broken constraints.
func (t *Tracker) Broken() int {
	return t.broken
}

// Members returns how many examples v's constraint tracks, in or out of
// the subtree.
func (t *Tracker) Members(v int) int {
	n := 0
	for _, w := range t.member[v] {
		n += bits.OnesCount64(w)
	}
	return n
}
