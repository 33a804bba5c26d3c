/*
Package results records the outcome of experiments as ';'-separated lines, one
per solved problem, reads them back and prints them for humans.
*/
package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"
)

// Columns is the number of fields of a record line
const Columns = 21

/*
Record is the outcome of one experiment. Its fields are written in this order,
as columns 0 to 20 of a line.
*/
type Record struct {
	ProblemID   string
	AlgorithmID int
	Dataset     string
	// DatasetSize is the number of examples before taking a subset
	DatasetSize int
	SubsetRatio float64
	SubsetSeed  int64
	Dimensions  int
	// MaxSize is the size limit the search ran with
	MaxSize        int
	TimeoutSeconds int64
	Time           time.Duration
	MemoryMiB      uint64
	TimedOut       bool
	Found          bool
	TreeSize       int
	// CorrectRatio is the accuracy of the tree found on the examples it was
	// trained on
	CorrectRatio float64

	SearchNodes            int
	LowerBoundEffect       int
	SubsetConstraintEffect int
	UniqueSets             int
	CopiedSets             int
	SetTrieSize            int
}

func (r *Record) fields() []string {
	return []string{
		r.ProblemID,
		strconv.Itoa(r.AlgorithmID),
		r.Dataset,
		strconv.Itoa(r.DatasetSize),
		strconv.FormatFloat(r.SubsetRatio, 'f', -1, 64),
		strconv.FormatInt(r.SubsetSeed, 10),
		strconv.Itoa(r.Dimensions),
		strconv.Itoa(r.MaxSize),
		strconv.FormatInt(r.TimeoutSeconds, 10),
		strconv.FormatInt(r.Time.Milliseconds(), 10),
		strconv.FormatUint(r.MemoryMiB, 10),
		strconv.FormatBool(r.TimedOut),
		strconv.FormatBool(r.Found),
		strconv.Itoa(r.TreeSize),
		strconv.FormatFloat(r.CorrectRatio, 'f', 2, 64),
		strconv.Itoa(r.SearchNodes),
		strconv.Itoa(r.LowerBoundEffect),
		strconv.Itoa(r.SubsetConstraintEffect),
		strconv.Itoa(r.UniqueSets),
		strconv.Itoa(r.CopiedSets),
		strconv.Itoa(r.SetTrieSize),
	}
}

func parseRecord(fields []string) (*Record, error) {
	if len(fields) != Columns {
		return nil, fmt.Errorf("expected %d fields, got %d", Columns, len(fields))
	}
	p := &parser{fields: fields}
	r := &Record{
		ProblemID:              fields[0],
		AlgorithmID:            p.int(1),
		Dataset:                fields[2],
		DatasetSize:            p.int(3),
		SubsetRatio:            p.float(4),
		SubsetSeed:             p.int64(5),
		Dimensions:             p.int(6),
		MaxSize:                p.int(7),
		TimeoutSeconds:         p.int64(8),
		Time:                   time.Duration(p.int64(9)) * time.Millisecond,
		MemoryMiB:              uint64(p.int64(10)),
		TimedOut:               p.bool(11),
		Found:                  p.bool(12),
		TreeSize:               p.int(13),
		CorrectRatio:           p.float(14),
		SearchNodes:            p.int(15),
		LowerBoundEffect:       p.int(16),
		SubsetConstraintEffect: p.int(17),
		UniqueSets:             p.int(18),
		CopiedSets:             p.int(19),
		SetTrieSize:            p.int(20),
	}
	if p.err != nil {
		return nil, p.err
	}
	return r, nil
}

// parser keeps the first error found converting fields
type parser struct {
	fields []string
	err    error
}

func (p *parser) int64(i int) int64 {
	v, err := strconv.ParseInt(p.fields[i], 10, 64)
	p.fail(i, err)
	return v
}

func (p *parser) int(i int) int {
	return int(p.int64(i))
}

func (p *parser) float(i int) float64 {
	v, err := strconv.ParseFloat(p.fields[i], 64)
	p.fail(i, err)
	return v
}

func (p *parser) bool(i int) bool {
	v, err := strconv.ParseBool(p.fields[i])
	p.fail(i, err)
	return v
}

func (p *parser) fail(i int, err error) {
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %d: %w", i, err)
	}
}

/*
Writer appends records to an io.Writer, one line each. It is safe for
concurrent use, so that workers in a process can share it.
*/
type Writer struct {
	lock sync.Mutex
	w    *csv.Writer
}

// NewWriter returns a Writer on w
func NewWriter(w io.Writer) *Writer {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	return &Writer{w: cw}
}

// Write appends r and flushes it
func (w *Writer) Write(r *Record) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if err := w.w.Write(r.fields()); err != nil {
		return fmt.Errorf("writing result of problem %s: %w", r.ProblemID, err)
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("writing result of problem %s: %w", r.ProblemID, err)
	}
	return nil
}

// Read parses the record lines of r
func Read(r io.Reader) ([]*Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = Columns
	var records []*Record
	for line := 1; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading results: %w", err)
		}
		rec, err := parseRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("reading results: line %d: %w", line, err)
		}
		records = append(records, rec)
	}
}
