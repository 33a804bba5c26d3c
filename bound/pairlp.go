package bound

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/pbanos/topiary/dataset"
)

/*
Oracle is an interface for lower bounds computed once on a whole dataset,
before searching it.
*/
type Oracle interface {
	LowerBound(ctx context.Context, data *dataset.Normalized) (int, error)
}

const pairLPSlack = 1e-5

/*
PairLP is an Oracle solving the linear relaxation of the problem of choosing
the fewest cuts so that every pair of examples with different labels is split
by one of them. Any decision tree classifying the dataset correctly splits
every such pair at one of its inner vertices, so the rounded-up optimum is a
lower bound on its size.

The relaxation has one row per pair of examples and is solved densely, so it
is only practical on datasets of a few hundred examples.
*/
type PairLP struct {
	// Tolerance is passed on to the simplex solver, 0 selects 1e-10
	Tolerance float64
	// MaxRows is the largest number of distinct pairs the relaxation is
	// built for, 0 selects DefaultMaxRows. Larger relaxations fail with
	// ErrTooManyRows.
	MaxRows int
}

// DefaultMaxRows is the row limit of a PairLP with no MaxRows set
const DefaultMaxRows = 4000

// ErrTooManyRows is returned by PairLP when the relaxation exceeds its row
// limit
var ErrTooManyRows = errors.New("too many rows in pair relaxation")

// LowerBound returns the rounded-up optimum of the pair relaxation of data
func (p PairLP) LowerBound(ctx context.Context, data *dataset.Normalized) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	columns, rows := pairRows(data)
	if len(rows) == 0 {
		return 0, nil
	}
	limit := p.MaxRows
	if limit <= 0 {
		limit = DefaultMaxRows
	}
	if len(rows) > limit {
		return 0, fmt.Errorf("solving pair relaxation of %d rows: %w", len(rows), ErrTooManyRows)
	}
	for _, row := range rows {
		if len(row) == 0 {
			return 0, fmt.Errorf("solving pair relaxation: %w", lp.ErrInfeasible)
		}
	}
	m := len(rows)
	a := mat.NewDense(m, columns+m, nil)
	for i, row := range rows {
		for _, j := range row {
			a.Set(i, j, 1)
		}
		a.Set(i, columns+i, -1)
	}
	c := make([]float64, columns+m)
	for j := range columns {
		c[j] = 1
	}
	b := make([]float64, m)
	for i := range b {
		b[i] = 1
	}
	tol := p.Tolerance
	if tol == 0 {
		tol = 1e-10
	}
	opt, _, err := lp.Simplex(c, a, b, tol, nil)
	if err != nil {
		return 0, fmt.Errorf("solving pair relaxation: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int(math.Ceil(opt - pairLPSlack)), nil
}

/*
pairRows returns the number of cuts splitting at least one pair of examples
with different labels, and the distinct sets of those cuts, as column
indexes, splitting each such pair.
*/
func pairRows(data *dataset.Normalized) (int, [][]int) {
	offset := make([]int, data.D())
	cuts := 0
	for dim, size := range data.DSizes {
		offset[dim] = cuts
		cuts += max(size-1, 0)
	}
	column := make([]int, cuts)
	for i := range column {
		column[i] = -1
	}
	columns := 0

	var rows [][]int
	seen := make(map[string]bool)
	var key strings.Builder
	for t := range data.N() {
		if !data.Labels[t] {
			continue
		}
		for f := range data.N() {
			if data.Labels[f] {
				continue
			}
			var row []int
			for dim := range data.D() {
				lo, hi := data.Values[t][dim], data.Values[f][dim]
				if lo > hi {
					lo, hi = hi, lo
				}
				for thr := lo; thr < hi; thr++ {
					row = append(row, offset[dim]+thr)
				}
			}
			key.Reset()
			for _, cut := range row {
				key.WriteString(strconv.Itoa(cut))
				key.WriteByte(',')
			}
			if seen[key.String()] {
				continue
			}
			seen[key.String()] = true
			for i, cut := range row {
				if column[cut] == -1 {
					column[cut] = columns
					columns++
				}
				row[i] = column[cut]
			}
			slices.Sort(row)
			rows = append(rows, row)
		}
	}
	return columns, rows
}
