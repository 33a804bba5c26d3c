package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pbanos/topiary"
	"github.com/pbanos/topiary/metrics"
	"github.com/pbanos/topiary/queue"
	"github.com/pbanos/topiary/results"
	"github.com/pbanos/topiary/tree"
)

type workCmdConfig struct {
	*rootCmdConfig
	queueFlags
	experimentInput string
	metadataInput   string
	resultsOutput   string
	storeTrees      bool
	metricsAddr     string
	workers         int
	emptyQueueSleep time.Duration
}

func workCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &workCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "work",
		Short: "Solve the problems of a queue",
		Long: `Solve the problems pushed to a Redis queue until it is drained, appending a result line per problem.

Without a Redis URL, the problems of an experiment file are solved by workers
sharing an in-memory queue.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				config.fail(1, err)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			logger := config.Logger()

			features, err := (&dataFlags{metadataInput: config.metadataInput}).features()
			if err != nil {
				config.fail(2, err)
			}
			q, store, closeQueue, err := config.queue(ctx)
			if err != nil {
				config.fail(3, err)
			}
			defer closeQueue()

			out, closeOut, err := config.results()
			if err != nil {
				config.fail(4, err)
			}
			defer closeOut()

			var m *metrics.Metrics
			if config.metricsAddr != "" {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				m = metrics.New(reg)
				go config.serveMetrics(reg)
			}

			err = config.work(ctx, q, topiary.NewLoader(features), store, results.NewWriter(out),
				topiary.WorkLogger(logger), topiary.WorkMetrics(m), topiary.EmptyQueueSleep(config.emptyQueueSleep))
			if err != nil {
				closeOut()
				closeQueue()
				config.fail(5, err)
			}
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&(config.redisURL), "redis", "", "URL of the Redis server holding the queue")
	flags.StringVarP(&(config.queueID), "queue", "q", "topiary", "name of the queue")
	flags.DurationVar(&(config.maxRun), "max-run", 0, "time after which a problem still running is considered dropped by a failed worker (defaults to 0: never)")
	flags.DurationVar(&(config.lockTTL), "lock-ttl", 10*time.Second, "expiration of the locks on the problems of the queue")
	flags.StringVarP(&(config.experimentInput), "experiment", "e", "", "path to a YAML experiment file to solve without a Redis queue")
	flags.StringVarP(&(config.metadataInput), "metadata", "m", "", "path to a YML file with metadata describing the features of the datasets (optional)")
	flags.StringVarP(&(config.resultsOutput), "results", "r", "", "path to a file to append the result lines to (defaults to STDOUT)")
	flags.BoolVar(&(config.storeTrees), "store-trees", false, "store the trees found on Redis, under the name of the queue")
	flags.StringVar(&(config.metricsAddr), "metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9100 (disabled if not set)")
	flags.IntVarP(&(config.workers), "workers", "w", 1, "number of problems solved at a time")
	flags.DurationVar(&(config.emptyQueueSleep), "sleep", topiary.DefaultEmptyQueueSleep, "time to wait before pulling again from a queue with no pending problems")
	return cmd
}

func (wcc *workCmdConfig) Validate() error {
	if wcc.redisURL == "" && wcc.experimentInput == "" {
		return fmt.Errorf("either the redis or the experiment flag must be set")
	}
	if wcc.redisURL == "" && wcc.storeTrees {
		return fmt.Errorf("store-trees requires the redis flag")
	}
	if wcc.workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", wcc.workers)
	}
	return nil
}

// queue returns the queue to work on, the store for the trees found (nil if
// they are not stored) and the function releasing both
func (wcc *workCmdConfig) queue(ctx context.Context) (queue.Queue, tree.Store, func(), error) {
	if wcc.redisURL == "" {
		problems, err := readExperiment(wcc.experimentInput)
		if err != nil {
			return nil, nil, nil, err
		}
		q := queue.New()
		if err = topiary.Enqueue(ctx, q, problems...); err != nil {
			return nil, nil, nil, err
		}
		return q, nil, func() { q.Stop(context.Background()) }, nil
	}
	rc, err := wcc.redisClient(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	q := wcc.redisQueue(rc)
	if wcc.experimentInput != "" {
		problems, err := readExperiment(wcc.experimentInput)
		if err == nil {
			err = topiary.Enqueue(ctx, q, problems...)
		}
		if err != nil {
			q.Stop(ctx)
			rc.Close()
			return nil, nil, nil, err
		}
	}
	var store tree.Store
	if wcc.storeTrees {
		store = wcc.treeStore(rc)
	}
	var once sync.Once
	return q, store, func() {
		once.Do(func() {
			q.Stop(context.Background())
			rc.Close()
		})
	}, nil
}

func (wcc *workCmdConfig) results() (io.Writer, func(), error) {
	if wcc.resultsOutput == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(wcc.resultsOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening results file %s: %w", wcc.resultsOutput, err)
	}
	var once sync.Once
	return f, func() { once.Do(func() { f.Close() }) }, nil
}

// work runs the configured number of workers on the queue and returns the
// first error any of them returns
func (wcc *workCmdConfig) work(ctx context.Context, q queue.Queue, loader topiary.Loader, store tree.Store, sink *results.Writer, opts ...topiary.WorkOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errs := make([]error, wcc.workers)
	var wg sync.WaitGroup
	for i := range wcc.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = topiary.Work(ctx, q, loader, store, sink, opts...)
			if errs[i] != nil {
				cancel()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (wcc *workCmdConfig) serveMetrics(reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	server := &http.Server{Addr: wcc.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := server.ListenAndServe(); err != nil {
		wcc.Logger().Error("serving metrics", zap.Error(err))
	}
}
