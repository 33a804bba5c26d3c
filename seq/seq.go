/*
Package seq provides a fixed-capacity integer sequence used as a scratch
stack, as a path buffer and as the ordered "word" of an example set.
*/
package seq

import (
	"fmt"
	"iter"
	"slices"
)

// Seq is an appendable and truncatable sequence of ints whose capacity
// is fixed at construction. Its zero value has capacity 0.
type Seq struct {
	values []int
}

// New returns an empty Seq able to hold up to capacity values.
func New(capacity int) *Seq {
	return &Seq{values: make([]int, 0, capacity)}
}

// Len returns the number of values in the sequence.
func (s *Seq) Len() int {
	return len(s.values)
}

// Cap returns the maximum number of values the sequence can hold.
func (s *Seq) Cap() int {
	return cap(s.values)
}

// Add appends v. It panics if the sequence is full.
func (s *Seq) Add(v int) {
	if len(s.values) == cap(s.values) {
		panic(fmt.Sprintf("seq: add beyond capacity %d", cap(s.values)))
	}
	s.values = append(s.values, v)
}

// At returns the i-th value.
func (s *Seq) At(i int) int {
	return s.values[i]
}

// Set replaces the i-th value.
func (s *Seq) Set(i, v int) {
	s.values[i] = v
}

// Last returns the last value. It panics on an empty sequence.
func (s *Seq) Last() int {
	if len(s.values) == 0 {
		panic("seq: last of empty sequence")
	}
	return s.values[len(s.values)-1]
}

// RemoveLast drops the last value and returns it. It panics on an
// empty sequence.
func (s *Seq) RemoveLast() int {
	v := s.Last()
	s.values = s.values[:len(s.values)-1]
	return v
}

// Truncate keeps only the first n values.
func (s *Seq) Truncate(n int) {
	if n < 0 || n > len(s.values) {
		panic(fmt.Sprintf("seq: truncate to %d of sequence with %d values", n, len(s.values)))
	}
	s.values = s.values[:n]
}

// Clear empties the sequence without releasing its storage.
func (s *Seq) Clear() {
	s.values = s.values[:0]
}

// Sort sorts the values in ascending order in place.
func (s *Seq) Sort() {
	slices.Sort(s.values)
}

// Contains reports whether v is in the sequence.
func (s *Seq) Contains(v int) bool {
	return slices.Contains(s.values, v)
}

// Values returns the current values. The returned slice aliases the
// sequence storage and must not be modified or retained across edits.
func (s *Seq) Values() []int {
	return s.values
}

// All iterates over the values in order.
func (s *Seq) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, v := range s.values {
			if !yield(v) {
				return
			}
		}
	}
}

func (s *Seq) String() string {
	return fmt.Sprint(s.values)
}
