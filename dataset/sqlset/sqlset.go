/*
Package sqlset stores datasets in SQL database tables and loads them back.

A dataset table has one REAL column per feature, named after it, an INTEGER
label column holding 1 for true and 0 for false, and an auto-incremented
"id" primary key that keeps the order of the examples.
*/
package sqlset

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/pbanos/topiary/dataset"
	"github.com/pbanos/topiary/feature"
)

const (
	// DefaultLabelColumn is the name of the label column when none is given
	DefaultLabelColumn = "label"

	// MaxExampleInsertionsPerStatement is the maximum number of examples
	// that are added with a single insert command by Write. Trying to add
	// more will result in making more insertion commands
	MaxExampleInsertionsPerStatement = 10
)

/*
Adapter is an interface providing the methods needed to store a dataset in a
database table and read it back.
*/
type Adapter interface {
	ColumnName(string) (string, error)

	CreateTable(ctx context.Context, table string, featureColumns []string, labelColumn string) error
	ListColumns(ctx context.Context, table string) ([]string, error)

	AddExamples(ctx context.Context, table string, featureColumns []string, labelColumn string, values [][]float64, labels []bool) (int, error)
	IterateOnExamples(ctx context.Context, table string, featureColumns []string, labelColumn string, lambda func(int, []float64, bool) (bool, error)) error
	CountExamples(ctx context.Context, table string) (int, error)

	Close() error
}

/*
dialect holds what differs between the SQL databases adapters work on.
*/
type dialect struct {
	driver        string
	primaryKey    string
	columnsQuery  string
	placeholderFn func(int) string
}

type adapter struct {
	db *sql.DB
	dialect
}

/*
Open takes a database URL and returns an Adapter on it. URLs starting with
postgres:// or postgresql:// are opened as PostgreSQL databases, those
starting with sqlite3:// as SQLite3 database files with the path following
the scheme.
*/
func Open(url string) (Adapter, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return newAdapter(postgres, url)
	case strings.HasPrefix(url, "sqlite3://"):
		return newAdapter(sqlite3, strings.TrimPrefix(url, "sqlite3://"))
	}
	return nil, fmt.Errorf("unsupported database url %q", url)
}

// IsDatabaseURL returns whether Open recognizes the string as a database URL
func IsDatabaseURL(s string) bool {
	for _, prefix := range []string{"postgres://", "postgresql://", "sqlite3://"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func newAdapter(d dialect, dsn string) (Adapter, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", d.driver, err)
	}
	return &adapter{db: db, dialect: d}, nil
}

/*
Load reads the examples in the given table of the database into a set. The
label column defaults to DefaultLabelColumn. If no features are given, every
column other than the label and the id is read as an unbounded continuous
feature named after it.
*/
func Load(ctx context.Context, a Adapter, table, labelColumn string, features []feature.Feature) (*dataset.Set, error) {
	if labelColumn == "" {
		labelColumn = DefaultLabelColumn
	}
	if len(features) == 0 {
		columns, err := a.ListColumns(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("listing columns of %s: %w", table, err)
		}
		for _, c := range columns {
			if c != "id" && c != labelColumn {
				features = append(features, feature.NewContinuousFeature(c))
			}
		}
		if len(features) == 0 {
			return nil, dataset.ErrNoFeatures
		}
	}
	columns, err := featureColumns(a, features)
	if err != nil {
		return nil, err
	}
	s := dataset.New(features, 0)
	err = a.IterateOnExamples(ctx, table, columns, labelColumn, func(_ int, values []float64, label bool) (bool, error) {
		return true, s.Add(values, label)
	})
	if err != nil {
		return nil, fmt.Errorf("loading examples from %s: %w", table, err)
	}
	return s, nil
}

/*
Write stores the examples of the set in the given table of the database,
creating it if it does not exist. It returns an error if the table cannot be
created or any example cannot be added.
*/
func Write(ctx context.Context, a Adapter, table, labelColumn string, s *dataset.Set) error {
	if labelColumn == "" {
		labelColumn = DefaultLabelColumn
	}
	columns, err := featureColumns(a, s.Features)
	if err != nil {
		return err
	}
	if slices.Contains(columns, labelColumn) {
		return fmt.Errorf("feature name '%s' collides with the label column", labelColumn)
	}
	if err = a.CreateTable(ctx, table, columns, labelColumn); err != nil {
		return err
	}
	n, err := a.AddExamples(ctx, table, columns, labelColumn, s.Values, s.Labels)
	if err != nil {
		return fmt.Errorf("writing examples to %s (%d written): %w", table, n, err)
	}
	return nil
}

func featureColumns(a Adapter, features []feature.Feature) ([]string, error) {
	columns := make([]string, len(features))
	for i, f := range features {
		c, err := a.ColumnName(f.Name())
		if err != nil {
			return nil, err
		}
		columns[i] = c
	}
	return columns, nil
}

func (a *adapter) ColumnName(featureName string) (string, error) {
	if featureName == "id" {
		return "", fmt.Errorf(`'%s' is reserved and cannot be used as feature name`, featureName)
	}
	if strings.ContainsAny(featureName, `"`) {
		return "", fmt.Errorf(`feature name '%s' contains invalid character '"'`, featureName)
	}
	return featureName, nil
}

func (a *adapter) CreateTable(ctx context.Context, table string, featureColumns []string, labelColumn string) error {
	var createStmtBuf bytes.Buffer
	fmt.Fprintf(&createStmtBuf, `CREATE TABLE IF NOT EXISTS "%s" (`, table)
	for _, c := range featureColumns {
		fmt.Fprintf(&createStmtBuf, `"%s" REAL NOT NULL, `, c)
	}
	fmt.Fprintf(&createStmtBuf, `"%s" INTEGER NOT NULL, %s)`, labelColumn, a.primaryKey)
	_, err := a.db.ExecContext(ctx, createStmtBuf.String())
	if err != nil {
		return fmt.Errorf("ensuring table %s exists: %w", table, err)
	}
	return nil
}

func (a *adapter) ListColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, a.columnsQuery, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, err
		}
		result = append(result, name)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return result, nil
}

func (a *adapter) AddExamples(ctx context.Context, table string, featureColumns []string, labelColumn string, values [][]float64, labels []bool) (int, error) {
	var chunkStart int
	if len(values) == 0 {
		return 0, nil
	}
	for chunkStart < len(values) {
		chunkEnd := min(chunkStart+MaxExampleInsertionsPerStatement, len(values))
		stmt := a.insertStatement(table, featureColumns, labelColumn, chunkEnd-chunkStart)
		args := make([]any, 0, (chunkEnd-chunkStart)*(len(featureColumns)+1))
		for e := chunkStart; e < chunkEnd; e++ {
			for _, v := range values[e] {
				args = append(args, v)
			}
			label := 0
			if labels[e] {
				label = 1
			}
			args = append(args, label)
		}
		if _, err := a.db.ExecContext(ctx, stmt, args...); err != nil {
			return chunkStart, fmt.Errorf("inserting examples %d to %d: %w", chunkStart, chunkEnd-1, err)
		}
		chunkStart = chunkEnd
	}
	return chunkStart, nil
}

func (a *adapter) insertStatement(table string, featureColumns []string, labelColumn string, rows int) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `INSERT INTO "%s" ("`, table)
	buf.WriteString(strings.Join(append(slices.Clone(featureColumns), labelColumn), `", "`))
	buf.WriteString(`") VALUES `)
	width := len(featureColumns) + 1
	for r := range rows {
		if r > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString("(")
		for c := range width {
			if c > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(a.placeholderFn(r*width + c + 1))
		}
		buf.WriteString(")")
	}
	return buf.String()
}

func (a *adapter) IterateOnExamples(ctx context.Context, table string, featureColumns []string, labelColumn string, lambda func(int, []float64, bool) (bool, error)) error {
	query := fmt.Sprintf(`SELECT "%s" FROM "%s" ORDER BY "id"`,
		strings.Join(append(slices.Clone(featureColumns), labelColumn), `", "`), table)
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for j := 0; rows.Next(); j++ {
		values := make([]sql.NullFloat64, len(featureColumns))
		var label sql.NullInt64
		dest := make([]any, 0, len(featureColumns)+1)
		for i := range values {
			dest = append(dest, &values[i])
		}
		dest = append(dest, &label)
		if err = rows.Scan(dest...); err != nil {
			return err
		}
		example := make([]float64, len(values))
		for i, v := range values {
			if !v.Valid {
				return fmt.Errorf("example %d has no value for %s", j, featureColumns[i])
			}
			example[i] = v.Float64
		}
		if !label.Valid || (label.Int64 != 0 && label.Int64 != 1) {
			return fmt.Errorf("example %d: %w", j, dataset.ErrInvalidLabel)
		}
		ok, err := lambda(j, example, label.Int64 == 1)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return rows.Err()
}

func (a *adapter) CountExamples(ctx context.Context, table string) (int, error) {
	var count int
	err := a.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting examples in %s: %w", table, err)
	}
	return count, nil
}

func (a *adapter) Close() error {
	return a.db.Close()
}
