package feature

import "fmt"

/*
Criterion represents a binary cut on a feature: values less than or equal
to Threshold satisfy it and go left in a decision tree, the others go right.
*/
type Criterion struct {
	// Dim is the position of the feature in the dataset
	Dim int
	// Feature is the feature the cut applies to, it may be nil when
	// feature metadata is not available.
	Feature   Feature
	Threshold float64
}

/*
SatisfiedBy takes the values of an example and returns whether the value
for the criterion's feature is less than or equal to the threshold.
*/
func (c Criterion) SatisfiedBy(values []float64) bool {
	return values[c.Dim] <= c.Threshold
}

func (c Criterion) String() string {
	if c.Feature == nil {
		return fmt.Sprintf("x[%d] <= %v", c.Dim, c.Threshold)
	}
	return fmt.Sprintf("%s <= %v", c.Feature.Name(), c.Threshold)
}
