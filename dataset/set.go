/*
Package dataset holds labeled sets of examples, their normalization into the
integer-ranked form the solver works on, the preprocessing that shrinks them,
and generators for synthetic sets.
*/
package dataset

import (
	"fmt"
	"strings"

	"github.com/pbanos/topiary/feature"
)

// Error represents an error with a dataset
type Error string

const (
	// ErrEmptyHeader is returned when a set source has no column names
	ErrEmptyHeader = Error("dataset has no header")
	// ErrNoFeatures is returned when a set source has no feature columns
	ErrNoFeatures = Error("dataset has no features")
	// ErrInvalidLabel is returned when a label cannot be read as a class
	ErrInvalidLabel = Error("invalid label")
)

func (e Error) Error() string {
	return string(e)
}

/*
Set is a collection of examples, each of them a vector of values, one for
each of the set's features, with a boolean label.
*/
type Set struct {
	Features []feature.Feature
	Values   [][]float64
	Labels   []bool
}

/*
New takes a slice of features and returns an empty set for them with room
for capacity examples.
*/
func New(features []feature.Feature, capacity int) *Set {
	return &Set{
		Features: features,
		Values:   make([][]float64, 0, capacity),
		Labels:   make([]bool, 0, capacity),
	}
}

// N returns the number of examples in the set
func (s *Set) N() int {
	return len(s.Values)
}

// D returns the number of dimensions of the set
func (s *Set) D() int {
	return len(s.Features)
}

/*
Add appends an example to the set. It returns an error if the example does
not have a value for each feature or any of them is not valid for its feature.
*/
func (s *Set) Add(values []float64, label bool) error {
	if err := s.validateExample(len(s.Values), values); err != nil {
		return err
	}
	s.Values = append(s.Values, values)
	s.Labels = append(s.Labels, label)
	return nil
}

/*
Validate checks that the set has as many labels as examples and that every
example has a valid value for each feature.
*/
func (s *Set) Validate() error {
	if len(s.Features) == 0 {
		return ErrNoFeatures
	}
	if len(s.Values) != len(s.Labels) {
		return fmt.Errorf("dataset has %d examples but %d labels", len(s.Values), len(s.Labels))
	}
	for e, values := range s.Values {
		if err := s.validateExample(e, values); err != nil {
			return err
		}
	}
	return nil
}

func (s *Set) validateExample(e int, values []float64) error {
	if len(values) != len(s.Features) {
		return fmt.Errorf("example %d has %d values, expected %d", e, len(values), len(s.Features))
	}
	for i, f := range s.Features {
		ok, err := f.Valid(values[i])
		if err != nil {
			return fmt.Errorf("validating example %d: %w", e, err)
		}
		if !ok {
			return fmt.Errorf("example %d has invalid value %v for feature %s", e, values[i], f.Name())
		}
	}
	return nil
}

/*
Realizable returns whether some zero-error tree exists for the set, that is
whether no two examples share all their values while carrying different labels.
*/
func (s *Set) Realizable() bool {
	return s.Normalize().Realizable()
}

// Positives returns the number of examples labeled true
func (s *Set) Positives() int {
	var count int
	for _, l := range s.Labels {
		if l {
			count++
		}
	}
	return count
}

func (s *Set) String() string {
	var sb strings.Builder
	for e, values := range s.Values {
		fmt.Fprintf(&sb, "E%d %v: %v\n", e, s.Labels[e], values)
	}
	return sb.String()
}
