package topiary

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pbanos/topiary/dataset"
	"github.com/pbanos/topiary/dataset/csv"
	"github.com/pbanos/topiary/dataset/sqlset"
	"github.com/pbanos/topiary/feature"
	"github.com/pbanos/topiary/queue"
)

/*
Loader is an interface wrapping the Load method, that reads the dataset a
problem refers to.
*/
type Loader interface {
	Load(ctx context.Context, p *queue.Problem) (*dataset.Set, error)
}

// LoaderFunc wraps a function with the Load method signature to implement
// the Loader interface
type LoaderFunc func(ctx context.Context, p *queue.Problem) (*dataset.Set, error)

// Load invokes the LoaderFunc
func (lf LoaderFunc) Load(ctx context.Context, p *queue.Problem) (*dataset.Set, error) {
	return lf(ctx, p)
}

type fileLoader struct {
	features []feature.Feature
	lock     sync.Mutex
	sets     map[string]*dataset.Set
}

/*
NewLoader returns a Loader that reads CSV files, or tables of databases when
the dataset of the problem is a database URL. Every dataset is read once and
kept in memory for the problems that follow. Features may be nil to read
every column as an unbounded continuous feature.
*/
func NewLoader(features []feature.Feature) Loader {
	return &fileLoader{features: features, sets: make(map[string]*dataset.Set)}
}

func (fl *fileLoader) Load(ctx context.Context, p *queue.Problem) (*dataset.Set, error) {
	key := p.Dataset + "#" + p.Table
	fl.lock.Lock()
	defer fl.lock.Unlock()
	if s, ok := fl.sets[key]; ok {
		return s, nil
	}
	var s *dataset.Set
	var err error
	if sqlset.IsDatabaseURL(p.Dataset) {
		s, err = fl.loadTable(ctx, p)
	} else {
		s, err = csv.ReadSetFromFilePath(p.Dataset, fl.features)
	}
	if err != nil {
		return nil, err
	}
	fl.sets[key] = s
	return s, nil
}

func (fl *fileLoader) loadTable(ctx context.Context, p *queue.Problem) (*dataset.Set, error) {
	if p.Table == "" {
		return nil, fmt.Errorf("loading dataset of problem %s: no table given for database", p.ID)
	}
	a, err := sqlset.Open(p.Dataset)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return sqlset.Load(ctx, a, p.Table, "", fl.features)
}

// DatasetName returns the name results are recorded under for the dataset
// of p: its table or the base name of its file
func DatasetName(p *queue.Problem) string {
	if sqlset.IsDatabaseURL(p.Dataset) {
		return p.Table
	}
	base := filepath.Base(p.Dataset)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
