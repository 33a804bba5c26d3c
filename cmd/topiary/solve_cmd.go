package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/pbanos/topiary"
	"github.com/pbanos/topiary/dataset"
	"github.com/pbanos/topiary/queue"
	"github.com/pbanos/topiary/results"
	"github.com/pbanos/topiary/tree/json"
)

type solveCmdConfig struct {
	*rootCmdConfig
	dataFlags
	configInput   string
	algorithm     string
	strategy      string
	maxSize       int
	upperBound    int
	timeout       time.Duration
	cacheMaxSize  int
	oracleFailure string
	ratio         float64
	seed          int64
	output        string
	resultsOutput string
}

func solveCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &solveCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Search the smallest tree classifying a set of data",
		Long: `Search the smallest binary decision tree classifying every example of a set of data correctly.

The algorithm is one of the presets (` + fmt.Sprint(topiary.PresetNames()) + `), whose settings may be
overridden by a YAML configuration file and then by explicit flags.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				config.fail(1, err)
			}
			solverConfig, err := config.solverConfig(cmd)
			if err != nil {
				config.fail(2, err)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			logger := config.Logger()

			full, err := config.readSet(ctx)
			if err != nil {
				config.fail(3, err)
			}
			set := full
			if config.ratio > 0 && config.ratio < 1 {
				set, _ = full.RandomSubset(dataset.SubsetSize(full.N(), config.ratio), config.seed)
			}
			logger.Info("solving", zap.Int("examples", set.N()), zap.Int("dimensions", set.D()), zap.String("algorithm", config.algorithm))

			solver, err := topiary.NewSolver(solverConfig, topiary.WithLogger(logger))
			if err != nil {
				config.fail(2, err)
			}
			sampler := results.SampleMemory(50 * time.Millisecond)
			res, err := solver.Solve(ctx, set)
			peak := sampler.Stop()
			if err != nil {
				config.fail(4, fmt.Errorf("solving: %w", err))
			}
			if res.Found {
				logger.Debug("tree found\n" + res.Tree.Format(set.Features))
				if err = config.writeTree(ctx, res); err != nil {
					config.fail(5, err)
				}
			}
			record := topiary.ResultRecord(config.problem(), solverConfig, full, set, res, peak)
			if err = results.WriteConsole(os.Stderr, record); err != nil {
				config.fail(5, err)
			}
			if err = config.appendResult(record); err != nil {
				config.fail(6, err)
			}
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&(config.input), "input", "i", "", "path to an input CSV file, or a SQLite3 (sqlite3://path) or PostgreSQL (postgres://...) database URL with the data (defaults to STDIN, interpreted as CSV)")
	flags.StringVar(&(config.table), "table", "", "table holding the data when the input is a database URL")
	flags.StringVarP(&(config.metadataInput), "metadata", "m", "", "path to a YML file with metadata describing the features on the input (optional, every column but the last one is read as a continuous feature otherwise)")
	flags.StringVar(&(config.configInput), "config", "", "path to a YAML file with solver settings applied over the algorithm preset")
	flags.StringVarP(&(config.algorithm), "algorithm", "a", "strategy1", "solver preset to use")
	flags.StringVar(&(config.strategy), "strategy", "", "strategy of sizes to probe: decision, increasing, decreasing or bisection")
	flags.IntVarP(&(config.maxSize), "max-size", "s", 0, "size to probe with the decision strategy")
	flags.IntVar(&(config.upperBound), "upper-bound", 0, "size where the decreasing and bisection strategies start (defaults to the number of examples minus one)")
	flags.DurationVarP(&(config.timeout), "timeout", "t", 0, "stop searching after this time and report the best tree found (defaults to 0: no timeout)")
	flags.IntVar(&(config.cacheMaxSize), "cache-max-set-size", topiary.DefaultCacheMaxSetSize, "largest leaf solved on its own to fill the subset cache")
	flags.StringVar(&(config.oracleFailure), "oracle-failure", string(topiary.OracleFallback), "what to do when the LP lower bound fails: fallback or abort")
	flags.Float64Var(&(config.ratio), "ratio", 1, "ratio of the examples of a random subset to solve instead of the whole input")
	flags.Int64Var(&(config.seed), "seed", 0, "seed of the random subset")
	flags.StringVarP(&(config.output), "output", "o", "", "path to a file to which the tree found will be written in JSON format (defaults to STDOUT)")
	flags.StringVar(&(config.resultsOutput), "results", "", "path to a file to append the result record line to")
	return cmd
}

func (scc *solveCmdConfig) Validate() error {
	if err := scc.dataFlags.Validate(); err != nil {
		return err
	}
	if topiary.PresetID(scc.algorithm) < 0 {
		return fmt.Errorf("invalid algorithm %q: %w", scc.algorithm, topiary.ErrUnknownAlgorithm)
	}
	if scc.ratio <= 0 || scc.ratio > 1 {
		return fmt.Errorf("ratio must be in (0, 1], got %v", scc.ratio)
	}
	return nil
}

// solverConfig returns the preset configuration, overridden by the config
// file and then by the flags set explicitly
func (scc *solveCmdConfig) solverConfig(cmd *cobra.Command) (*topiary.Config, error) {
	c, err := topiary.Preset(scc.algorithm)
	if err != nil {
		return nil, err
	}
	if scc.configInput != "" {
		data, err := os.ReadFile(scc.configInput)
		if err != nil {
			return nil, fmt.Errorf("reading solver config file %s: %w", scc.configInput, err)
		}
		if err = yaml.UnmarshalStrict(data, c); err != nil {
			return nil, fmt.Errorf("parsing solver config file %s: %w", scc.configInput, err)
		}
	}
	flags := cmd.Flags()
	if flags.Changed("strategy") {
		if c.Strategy, err = topiary.ParseStrategy(scc.strategy); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-size") {
		c.MaxSize = scc.maxSize
	}
	if flags.Changed("upper-bound") {
		c.UpperBound = scc.upperBound
	}
	if flags.Changed("timeout") {
		c.Timeout = scc.timeout
	}
	if flags.Changed("cache-max-set-size") {
		c.CacheMaxSetSize = scc.cacheMaxSize
	}
	if flags.Changed("oracle-failure") {
		c.OracleFailure = topiary.OracleFailure(scc.oracleFailure)
	}
	if err = c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// problem describes the run the way queued experiments are described
func (scc *solveCmdConfig) problem() *queue.Problem {
	source := scc.input
	if source == "" {
		source = "stdin"
	}
	return &queue.Problem{
		ID:          "solve",
		Dataset:     source,
		Table:       scc.table,
		SubsetRatio: scc.ratio,
		SubsetSeed:  scc.seed,
		Algorithm:   scc.algorithm,
	}
}

func (scc *solveCmdConfig) writeTree(ctx context.Context, res *topiary.Result) error {
	var w io.Writer = os.Stdout
	if scc.output != "" {
		f, err := os.Create(scc.output)
		if err != nil {
			return fmt.Errorf("creating tree file %s: %w", scc.output, err)
		}
		defer f.Close()
		w = f
	}
	if err := json.WriteJSONTree(ctx, res.Tree, w); err != nil {
		return fmt.Errorf("writing tree: %w", err)
	}
	if scc.output == "" {
		fmt.Println()
	}
	return nil
}

func (scc *solveCmdConfig) appendResult(r *results.Record) error {
	if scc.resultsOutput == "" {
		return nil
	}
	f, err := os.OpenFile(scc.resultsOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening results file %s: %w", scc.resultsOutput, err)
	}
	defer f.Close()
	return results.NewWriter(f).Write(r)
}
