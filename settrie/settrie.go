/*
Package settrie stores sets of example ids, each with an integer value,
and answers whether some stored subset of a given set has a value of at
least a given minimum without visiting every stored set.
*/
package settrie

import (
	"github.com/pbanos/topiary/seq"
)

type node struct {
	children map[int]*node
	terminal bool
	value    int
	maxValue int
}

func newNode() *node {
	return &node{value: -1, maxValue: -1}
}

func (n *node) child(label int) *node {
	if n.children == nil {
		return nil
	}
	return n.children[label]
}

// Trie is a set trie. The zero value is not usable, use New.
type Trie struct {
	root  *node
	words int
	nodes int
}

// New returns an empty Trie.
func New() *Trie {
	return &Trie{root: newNode(), nodes: 1}
}

// Words returns the number of distinct sets stored.
func (t *Trie) Words() int {
	return t.words
}

// Nodes returns the number of nodes in the trie, root included.
func (t *Trie) Nodes() int {
	return t.nodes
}

// Insert stores set with value, overwriting the value of an equal set
// stored before. set is sorted in place.
func (t *Trie) Insert(set *seq.Seq, value int) {
	set.Sort()
	cur := t.root
	for _, label := range set.Values() {
		cur.maxValue = max(cur.maxValue, value)
		next := cur.child(label)
		if next == nil {
			if cur.children == nil {
				cur.children = make(map[int]*node)
			}
			next = newNode()
			cur.children[label] = next
			t.nodes++
		}
		cur = next
	}
	if !cur.terminal {
		cur.terminal = true
		t.words++
	}
	cur.value = value
	cur.maxValue = max(cur.maxValue, value)
}

// ExistsSubsetAtLeast returns the value of the first stored subset of set
// whose value is at least minValue. set is sorted in place.
func (t *Trie) ExistsSubsetAtLeast(set *seq.Seq, minValue int) (int, bool) {
	set.Sort()
	return existsSubset(set.Values(), minValue, t.root)
}

func existsSubset(word []int, minValue int, cur *node) (int, bool) {
	if cur.terminal && cur.value >= minValue {
		return cur.value, true
	}
	for i, label := range word {
		if cur.maxValue < minValue {
			return 0, false
		}
		if next := cur.child(label); next != nil {
			if v, ok := existsSubset(word[i+1:], minValue, next); ok {
				return v, true
			}
		}
	}
	return 0, false
}
