package feature

import (
	"fmt"
	"math"
)

/*
Feature represents a numeric property that can be observed on every
example of a dataset.

Its Range method returns the interval values are expected to fall in,
which may be unbounded on either end.
*/
type Feature interface {
	Name() string
	Valid(float64) (bool, error)
	Range() (float64, float64)
}

/*
ContinuousFeature represents a property that can take any real value
within a range
*/
type ContinuousFeature struct {
	name         string
	lower, upper float64
}

/*
IntegerFeature represents a property that can only take integer values
within a range
*/
type IntegerFeature struct {
	name         string
	lower, upper float64
}

/*
NewContinuousFeature takes a name string and returns an unbounded continuous
feature with the given name.
*/
func NewContinuousFeature(name string) *ContinuousFeature {
	return &ContinuousFeature{name, math.Inf(-1), math.Inf(1)}
}

/*
NewBoundedContinuousFeature takes a name and the bounds of the interval
[lower, upper] and returns a continuous feature constrained to it.
*/
func NewBoundedContinuousFeature(name string, lower, upper float64) *ContinuousFeature {
	return &ContinuousFeature{name, lower, upper}
}

/*
NewIntegerFeature takes a name and the bounds of the interval [lower, upper]
and returns an integer feature constrained to it.
*/
func NewIntegerFeature(name string, lower, upper float64) *IntegerFeature {
	return &IntegerFeature{name, lower, upper}
}

/*
Name returns a string with the name of the feature
*/
func (cf *ContinuousFeature) Name() string {
	return cf.name
}

/*
Valid receives a value and returns true and nil when the value is a number in
the feature's range. Otherwise it returns false and an error describing the reason.
*/
func (cf *ContinuousFeature) Valid(value float64) (bool, error) {
	if math.IsNaN(value) {
		return false, fmt.Errorf("continuous feature %s got NaN", cf.name)
	}
	return inRange(cf.name, value, cf.lower, cf.upper)
}

// Range returns the bounds of the feature's values
func (cf *ContinuousFeature) Range() (float64, float64) {
	return cf.lower, cf.upper
}

func (cf *ContinuousFeature) String() string {
	return cf.name
}

/*
Name returns a string with the name of the feature
*/
func (inf *IntegerFeature) Name() string {
	return inf.name
}

/*
Valid receives a value and returns true and nil when the value is an integer
in the feature's range. Otherwise it returns false and an error describing the
reason.
*/
func (inf *IntegerFeature) Valid(value float64) (bool, error) {
	if value != math.Trunc(value) {
		return false, fmt.Errorf("integer feature %s got non-integer value %v", inf.name, value)
	}
	return inRange(inf.name, value, inf.lower, inf.upper)
}

// Range returns the bounds of the feature's values
func (inf *IntegerFeature) Range() (float64, float64) {
	return inf.lower, inf.upper
}

func (inf *IntegerFeature) String() string {
	return inf.name
}

func inRange(name string, value, lower, upper float64) (bool, error) {
	if value < lower || value > upper {
		return false, fmt.Errorf("feature %s got value %v out of range [%v, %v]", name, value, lower, upper)
	}
	return true, nil
}

// Names returns the names of the given features in order
func Names(features []Feature) []string {
	names := make([]string, len(features))
	for i, f := range features {
		names[i] = f.Name()
	}
	return names
}

// Anonymous returns d unbounded continuous features named after their
// 1-based position, the naming used for headerless data.
func Anonymous(d int) []Feature {
	features := make([]Feature, d)
	for i := range features {
		features[i] = NewContinuousFeature(fmt.Sprintf("%d", i+1))
	}
	return features
}
