package queue

import (
	"fmt"
	"time"
)

/*
Problem describes one experiment: searching a minimum-size tree for a
dataset, or a random subset of it, with a given algorithm.
*/
type Problem struct {
	// ID identifies the problem in the queue and in the results
	ID string `json:"id" yaml:"id"`
	// Dataset is the path to a CSV file or a database URL
	Dataset string `json:"dataset" yaml:"dataset"`
	// Table holds the examples when Dataset is a database URL
	Table string `json:"table,omitempty" yaml:"table,omitempty"`
	// SubsetRatio is the fraction of the examples to keep, 0 or 1 keep
	// them all
	SubsetRatio float64 `json:"subsetRatio,omitempty" yaml:"subsetRatio,omitempty"`
	SubsetSeed  int64   `json:"subsetSeed,omitempty" yaml:"subsetSeed,omitempty"`
	// Algorithm is the name of a solver preset
	Algorithm  string        `json:"algorithm" yaml:"algorithm"`
	MaxSize    int           `json:"maxSize,omitempty" yaml:"maxSize,omitempty"`
	UpperBound int           `json:"upperBound,omitempty" yaml:"upperBound,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Validate returns an error if the problem cannot be run
func (p *Problem) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("problem has no id")
	}
	if p.Dataset == "" {
		return fmt.Errorf("problem %s has no dataset", p.ID)
	}
	if p.Algorithm == "" {
		return fmt.Errorf("problem %s has no algorithm", p.ID)
	}
	if p.SubsetRatio < 0 || p.SubsetRatio > 1 {
		return fmt.Errorf("problem %s has subset ratio %v out of [0, 1]", p.ID, p.SubsetRatio)
	}
	if p.MaxSize < 0 || p.UpperBound < 0 || p.Timeout < 0 {
		return fmt.Errorf("problem %s has negative limits", p.ID)
	}
	return nil
}

func (p *Problem) String() string {
	return fmt.Sprintf("{Problem %s %s on %s}", p.ID, p.Algorithm, p.Dataset)
}
