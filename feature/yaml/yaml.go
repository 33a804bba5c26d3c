/*
Package yaml provides methods to parse feature.Feature descriptions
also known as metadata, from YAML documents.
*/
package yaml

import (
	"fmt"
	"math"
	"os"

	"github.com/pbanos/topiary/feature"
	yaml "gopkg.in/yaml.v2"
)

type featureSpec struct {
	Name string   `yaml:"name"`
	Type string   `yaml:"type"`
	Min  *float64 `yaml:"min"`
	Max  *float64 `yaml:"max"`
}

/*
ReadFeatures takes a slice of bytes with a feature description in YML and
returns a slice of features parsed from it or an error.
The YML is expected to be an object containing a features property. The value
for this should be a list of objects, each with the name of a feature, its type
('continuous' or 'integer', defaults to 'continuous') and optional min and max
bounds. Integer features require both bounds.
*/
func ReadFeatures(md []byte) ([]feature.Feature, error) {
	metadata := struct {
		Features []featureSpec `yaml:"features"`
	}{}
	err := yaml.Unmarshal(md, &metadata)
	if err != nil {
		return nil, fmt.Errorf("parsing yml features: %w", err)
	}
	if len(metadata.Features) == 0 {
		return nil, fmt.Errorf("metadata file has no feature information")
	}
	features := make([]feature.Feature, 0, len(metadata.Features))
	seen := make(map[string]bool)
	for i, fs := range metadata.Features {
		if fs.Name == "" {
			return nil, fmt.Errorf("feature %d has no name", i)
		}
		if seen[fs.Name] {
			return nil, fmt.Errorf("feature %s declared twice", fs.Name)
		}
		seen[fs.Name] = true
		lower, upper := math.Inf(-1), math.Inf(1)
		if fs.Min != nil {
			lower = *fs.Min
		}
		if fs.Max != nil {
			upper = *fs.Max
		}
		if lower > upper {
			return nil, fmt.Errorf("feature %s has min %v greater than max %v", fs.Name, lower, upper)
		}
		switch fs.Type {
		case "", "continuous":
			features = append(features, feature.NewBoundedContinuousFeature(fs.Name, lower, upper))
		case "integer":
			if fs.Min == nil || fs.Max == nil {
				return nil, fmt.Errorf("integer feature %s requires min and max", fs.Name)
			}
			features = append(features, feature.NewIntegerFeature(fs.Name, lower, upper))
		default:
			return nil, fmt.Errorf("invalid feature type %q for feature %s", fs.Type, fs.Name)
		}
	}
	return features, nil
}

/*
ReadFeaturesFromFile takes a filepath string, reads its contents and uses
ReadFeatures to parse it and return a slice of parsed features or an error.
If the file indicated by the filepath cannot be opened for reading an error
will be returned.
*/
func ReadFeaturesFromFile(filepath string) ([]feature.Feature, error) {
	md, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading features yml file %s: %w", filepath, err)
	}
	features, err := ReadFeatures(md)
	if err != nil {
		err = fmt.Errorf("parsing features yml file %s: %w", filepath, err)
	}
	return features, err
}
