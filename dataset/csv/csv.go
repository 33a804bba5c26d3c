/*
Package csv reads and writes datasets as CSV streams. The first row of a
stream holds the names of the features followed by the name of the label
column, every other row the values of an example followed by its label, 1
for true and 0 for false.
*/
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pbanos/topiary/dataset"
	"github.com/pbanos/topiary/feature"
)

// DefaultLabel is the name written for the label column
const DefaultLabel = "x"

/*
Writer is an interface for a set to which examples can be written to.
*/
type Writer interface {
	// Write will attempt to write the given example, returning an error if it
	// cannot be written
	Write(values []float64, label bool) error
	// Count returns the total number of examples written to the writer
	Count() int
	// Flush ensures any pending written operations finish before returning.
	// It returns an error if that cannot be ensured.
	Flush() error
}

type csvWriter struct {
	count    int
	features []feature.Feature
	w        *csv.Writer
}

/*
ReadSet takes an io.Reader for a CSV stream and a slice of features and
returns the dataset.Set parsed from the reader or an error.

The header or first row of the CSV content is expected to consist of the names
of features in the given slice, in any order, followed by the name of the label
column. If no features are given, every column but the last is taken as an
unbounded continuous feature named after it.
*/
func ReadSet(reader io.Reader, features []feature.Feature) (*dataset.Set, error) {
	var s *dataset.Set
	err := ReadSetByExample(reader, features, func(f []feature.Feature) {
		s = dataset.New(f, 0)
	}, func(_ int, values []float64, label bool) (bool, error) {
		s.Values = append(s.Values, values)
		s.Labels = append(s.Labels, label)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

/*
ReadSetByExample takes an io.Reader for a CSV stream, a slice of features, a
function that is called with the features of the stream in column order once
the header is parsed and a lambda function on an integer, the values and the
label of an example that returns a boolean value. It parses the examples from
the reader and for each it calls the lambda function with its index, values and
label as parameters. If the lambda function returns true, it will continue
processing the next example, otherwise it will stop. An error is returned if
something goes wrong when reading the stream or parsing an example.
*/
func ReadSetByExample(reader io.Reader, features []feature.Feature, header func([]feature.Feature), lambda func(int, []float64, bool) (bool, error)) error {
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true
	names, err := r.Read()
	if err == io.EOF {
		return dataset.ErrEmptyHeader
	}
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	columns, err := parseFeaturesFromCSVHeader(names, features)
	if err != nil {
		return err
	}
	header(columns)
	for l := 2; ; l++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		values, label, err := parseExampleFromCSVRow(row, columns)
		if err != nil {
			return fmt.Errorf("parsing line %d: %w", l, err)
		}
		ok, err := lambda(l-2, values, label)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return nil
}

/*
ReadSetFromFilePath takes a filepath string and a slice of features, opens
the file to which the filepath points to and uses ReadSet to return a
dataset.Set or an error read from it. If the filepath is "" os.Stdin is read
instead. It will return an error if the given filepath cannot be opened for
reading.
*/
func ReadSetFromFilePath(filepath string, features []feature.Feature) (*dataset.Set, error) {
	var f *os.File
	var err error
	if filepath == "" {
		f = os.Stdin
	} else {
		f, err = os.Open(filepath)
		if err != nil {
			return nil, fmt.Errorf("reading dataset: %w", err)
		}
	}
	defer f.Close()
	s, err := ReadSet(f, features)
	if err != nil {
		err = fmt.Errorf("parsing CSV file %s: %w", filepath, err)
	}
	return s, err
}

/*
NewWriter takes an io.Writer and a slice of feature.Features and returns a
Writer that will write any examples on the io.Writer after a header with the
names of the features.
*/
func NewWriter(writer io.Writer, features []feature.Feature) (Writer, error) {
	w := csv.NewWriter(writer)
	record := append(feature.Names(features), DefaultLabel)
	err := w.Write(record)
	if err != nil {
		return nil, fmt.Errorf("writing CSV header: %w", err)
	}
	return &csvWriter{features: features, w: w}, nil
}

/*
WriteSet takes a writer and a dataset.Set and dumps the set to the writer in
CSV format. It returns an error if something went wrong when writing to the
writer or the context is done.
*/
func WriteSet(ctx context.Context, writer io.Writer, s *dataset.Set) error {
	cw, err := NewWriter(writer, s.Features)
	if err != nil {
		return err
	}
	for e, values := range s.Values {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = cw.Write(values, s.Labels[e]); err != nil {
			return err
		}
	}
	return cw.Flush()
}

/*
WriteSetToFilePath creates (or truncates) the file at filepath and writes the
set on it with WriteSet. If the filepath is "" the set is written to os.Stdout.
*/
func WriteSetToFilePath(ctx context.Context, filepath string, s *dataset.Set) error {
	if filepath == "" {
		return WriteSet(ctx, os.Stdout, s)
	}
	f, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("creating CSV file %s: %w", filepath, err)
	}
	err = WriteSet(ctx, f, s)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func parseFeaturesFromCSVHeader(header []string, features []feature.Feature) ([]feature.Feature, error) {
	if len(header) < 2 {
		return nil, dataset.ErrNoFeatures
	}
	names := header[:len(header)-1]
	columns := make([]feature.Feature, len(names))
	if len(features) == 0 {
		for i, name := range names {
			columns[i] = feature.NewContinuousFeature(strings.TrimSpace(name))
		}
		return columns, nil
	}
	byName := make(map[string]feature.Feature, len(features))
	for _, f := range features {
		byName[f.Name()] = f
	}
	for i, name := range names {
		f, ok := byName[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("parsing header: reference to unknown feature %s", name)
		}
		columns[i] = f
	}
	return columns, nil
}

func parseExampleFromCSVRow(row []string, columns []feature.Feature) ([]float64, bool, error) {
	if len(row) != len(columns)+1 {
		return nil, false, fmt.Errorf("expected %d columns, got %d", len(columns)+1, len(row))
	}
	values := make([]float64, len(columns))
	for i, f := range columns {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return nil, false, fmt.Errorf("converting %s to float64: %w", row[i], err)
		}
		ok, err := f.Valid(v)
		if !ok {
			return nil, false, fmt.Errorf("invalid value %v for feature %s: %v", v, f.Name(), err)
		}
		values[i] = v
	}
	label, err := parseLabel(row[len(columns)])
	if err != nil {
		return nil, false, err
	}
	return values, label, nil
}

func parseLabel(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("%w %q", dataset.ErrInvalidLabel, s)
}

func (cw *csvWriter) Count() int {
	return cw.count
}

func (cw *csvWriter) Write(values []float64, label bool) error {
	record := make([]string, len(values)+1)
	for j, v := range values {
		record[j] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	record[len(values)] = "0"
	if label {
		record[len(values)] = "1"
	}
	err := cw.w.Write(record)
	if err != nil {
		return fmt.Errorf("writing CSV row for example %d: %w", cw.count+1, err)
	}
	cw.count++
	return nil
}

func (cw *csvWriter) Flush() error {
	cw.w.Flush()
	return cw.w.Error()
}
