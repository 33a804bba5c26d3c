package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pbanos/topiary/dataset"
)

type subsetCmdConfig struct {
	*rootCmdConfig
	dataFlags
	ratio       float64
	seed        int64
	output      string
	restOutput  string
	outputTable string
	restTable   string
}

func subsetCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &subsetCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "subset",
		Short: "Split a set of data into a random subset and the rest",
		Long:  `Split a set of data into a random subset with a ratio of its examples and the rest of them, keeping their order. The same seed yields the same split.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				config.fail(1, err)
			}
			ctx := context.Background()
			s, err := config.readSet(ctx)
			if err != nil {
				config.fail(2, err)
			}
			subset, rest := s.RandomSubset(dataset.SubsetSize(s.N(), config.ratio), config.seed)
			config.Logger().Debug("split set", zap.Int("subset", subset.N()), zap.Int("rest", rest.N()))
			if err = writeSet(ctx, config.output, config.outputTable, subset); err != nil {
				config.fail(3, err)
			}
			if config.restOutput != "" {
				if err = writeSet(ctx, config.restOutput, config.restTable, rest); err != nil {
					config.fail(4, err)
				}
			}
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&(config.input), "input", "i", "", "path to an input CSV file or a database URL with the data (defaults to STDIN, interpreted as CSV)")
	flags.StringVar(&(config.table), "table", "", "table holding the data when the input is a database URL")
	flags.StringVarP(&(config.metadataInput), "metadata", "m", "", "path to a YML file with metadata describing the features on the input (optional)")
	flags.Float64VarP(&(config.ratio), "ratio", "r", 0.5, "ratio of the examples to keep in the subset")
	flags.Int64Var(&(config.seed), "seed", 0, "seed of the random split")
	flags.StringVarP(&(config.output), "output", "o", "", "path to an output CSV file, or a database URL for the subset (defaults to STDOUT, as CSV)")
	flags.StringVar(&(config.outputTable), "output-table", "", "table to write the subset to when the output is a database URL")
	flags.StringVar(&(config.restOutput), "rest-output", "", "path to an output CSV file, or a database URL for the rest of the examples (discarded if not set)")
	flags.StringVar(&(config.restTable), "rest-table", "", "table to write the rest to when the rest output is a database URL")
	return cmd
}

func (scc *subsetCmdConfig) Validate() error {
	if err := scc.dataFlags.Validate(); err != nil {
		return err
	}
	if scc.ratio < 0 || scc.ratio > 1 {
		return fmt.Errorf("ratio must be in [0, 1], got %v", scc.ratio)
	}
	return nil
}
