package main

import (
	"context"
	"fmt"

	"github.com/pbanos/topiary/dataset"
	"github.com/pbanos/topiary/dataset/csv"
	"github.com/pbanos/topiary/dataset/sqlset"
	"github.com/pbanos/topiary/feature"
	"github.com/pbanos/topiary/feature/yaml"
)

// dataFlags are the flags shared by commands reading a dataset
type dataFlags struct {
	input         string
	table         string
	metadataInput string
}

func (df *dataFlags) Validate() error {
	if sqlset.IsDatabaseURL(df.input) && df.table == "" {
		return fmt.Errorf("required table flag was not set for database input %s", df.input)
	}
	return nil
}

// features returns the features described in the metadata file, or nil if
// none was given
func (df *dataFlags) features() ([]feature.Feature, error) {
	if df.metadataInput == "" {
		return nil, nil
	}
	return yaml.ReadFeaturesFromFile(df.metadataInput)
}

// readSet reads the dataset from a CSV file, STDIN or a database table
func (df *dataFlags) readSet(ctx context.Context) (*dataset.Set, error) {
	features, err := df.features()
	if err != nil {
		return nil, err
	}
	if !sqlset.IsDatabaseURL(df.input) {
		return csv.ReadSetFromFilePath(df.input, features)
	}
	a, err := sqlset.Open(df.input)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return sqlset.Load(ctx, a, df.table, "", features)
}

// writeSet writes s to a CSV file, STDOUT when output is "", or a database
// table
func writeSet(ctx context.Context, output, table string, s *dataset.Set) error {
	if !sqlset.IsDatabaseURL(output) {
		return csv.WriteSetToFilePath(ctx, output, s)
	}
	if table == "" {
		return fmt.Errorf("writing set to %s: no table given", output)
	}
	a, err := sqlset.Open(output)
	if err != nil {
		return err
	}
	defer a.Close()
	return sqlset.Write(ctx, a, table, "", s)
}
