package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		f     Feature
		value float64
		ok    bool
	}{
		{"unbounded real", NewContinuousFeature("a"), -1e9, true},
		{"NaN", NewContinuousFeature("a"), math.NaN(), false},
		{"bounded real in range", NewBoundedContinuousFeature("b", 0, 1), 0.5, true},
		{"bounded real out of range", NewBoundedContinuousFeature("b", 0, 1), 1.5, false},
		{"integer", NewIntegerFeature("c", 0, 10), 3, true},
		{"fractional integer", NewIntegerFeature("c", 0, 10), 3.5, false},
		{"integer out of range", NewIntegerFeature("c", 0, 10), 11, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.f.Valid(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCriterion(t *testing.T) {
	c := Criterion{Dim: 1, Threshold: 2.5}
	assert.True(t, c.SatisfiedBy([]float64{9, 2.5}))
	assert.False(t, c.SatisfiedBy([]float64{0, 3}))
	assert.Equal(t, "x[1] <= 2.5", c.String())
	c.Feature = NewContinuousFeature("width")
	assert.Equal(t, "width <= 2.5", c.String())
}

func TestAnonymous(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, Names(Anonymous(3)))
}
