package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v2"

	"github.com/pbanos/topiary"
	"github.com/pbanos/topiary/queue"
	queuejson "github.com/pbanos/topiary/queue/json"
	"github.com/pbanos/topiary/queue/redisq"
	"github.com/pbanos/topiary/tree"
	treejson "github.com/pbanos/topiary/tree/json"
	"github.com/pbanos/topiary/tree/redisstore"
)

// queueFlags are the flags shared by commands using a Redis problem queue
type queueFlags struct {
	redisURL string
	queueID  string
	maxRun   time.Duration
	lockTTL  time.Duration
}

func (qf *queueFlags) redisClient(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(qf.redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rc := redis.NewClient(opts)
	if err = rc.Ping(ctx).Err(); err != nil {
		rc.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return rc, nil
}

func (qf *queueFlags) redisQueue(rc *redis.Client) queue.Queue {
	return redisq.New(qf.queueID, rc, qf.maxRun, qf.lockTTL, queuejson.New())
}

func (qf *queueFlags) treeStore(rc *redis.Client) tree.Store {
	return redisstore.New(rc, qf.queueID+":tree:", treejson.New())
}

/*
experiment is the content of an experiment file: a list of problems and a
grid of problems, one per combination of its dataset, ratio, seed and
algorithm values.
*/
type experiment struct {
	Problems []*queue.Problem `yaml:"problems"`
	Grid     *grid            `yaml:"grid"`
}

type grid struct {
	Datasets   []string      `yaml:"datasets"`
	Table      string        `yaml:"table"`
	Algorithms []string      `yaml:"algorithms"`
	Ratios     []float64     `yaml:"ratios"`
	Seeds      []int64       `yaml:"seeds"`
	MaxSize    int           `yaml:"maxSize"`
	UpperBound int           `yaml:"upperBound"`
	Timeout    time.Duration `yaml:"timeout"`
}

// readExperiment returns the problems described in the experiment file at
// path
func readExperiment(path string) ([]*queue.Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment file %s: %w", path, err)
	}
	e := &experiment{}
	if err = yaml.UnmarshalStrict(data, e); err != nil {
		return nil, fmt.Errorf("parsing experiment file %s: %w", path, err)
	}
	problems := e.Problems
	if e.Grid != nil {
		problems = append(problems, e.Grid.problems()...)
	}
	if len(problems) == 0 {
		return nil, fmt.Errorf("experiment file %s has no problems", path)
	}
	return problems, nil
}

func (g *grid) problems() []*queue.Problem {
	ratios, seeds := g.Ratios, g.Seeds
	if len(ratios) == 0 {
		ratios = []float64{1}
	}
	if len(seeds) == 0 {
		seeds = []int64{0}
	}
	var problems []*queue.Problem
	for _, d := range g.Datasets {
		for _, ratio := range ratios {
			for _, seed := range seeds {
				for _, algorithm := range g.Algorithms {
					p := &queue.Problem{
						Dataset:     d,
						Table:       g.Table,
						SubsetRatio: ratio,
						SubsetSeed:  seed,
						Algorithm:   algorithm,
						MaxSize:     g.MaxSize,
						UpperBound:  g.UpperBound,
						Timeout:     g.Timeout,
					}
					p.ID = fmt.Sprintf("%s-%v-%d-%s", topiary.DatasetName(p), ratio, seed, algorithm)
					problems = append(problems, p)
				}
			}
		}
	}
	return problems
}
