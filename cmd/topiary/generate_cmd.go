package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pbanos/topiary/dataset"
	"github.com/pbanos/topiary/feature/yaml"
	"github.com/pbanos/topiary/tree"
	"github.com/pbanos/topiary/tree/json"
)

type generateCmdConfig struct {
	*rootCmdConfig
	metadataInput string
	treeInput     string
	examples      int
	seed          int64
	output        string
	table         string
}

func generateCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &generateCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random set of data",
		Long: `Generate a random set of data within the ranges of the features described in a metadata file.

Labels are drawn uniformly, unless a tree is given: then every example is drawn
within the region of a random leaf of the tree and labeled with its class.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				config.fail(1, err)
			}
			features, err := yaml.ReadFeaturesFromFile(config.metadataInput)
			if err != nil {
				config.fail(2, err)
			}
			ctx := context.Background()
			var s *dataset.Set
			if config.treeInput == "" {
				s, err = dataset.Generate(config.examples, features, config.seed)
			} else {
				t, rerr := readTree(ctx, config.treeInput)
				if rerr != nil {
					config.fail(3, rerr)
				}
				s, err = dataset.GenerateFromTree(config.examples, features, config.seed, t)
			}
			if err != nil {
				config.fail(4, err)
			}
			config.Logger().Debug(fmt.Sprintf("generated %d examples", s.N()))
			if err = writeSet(ctx, config.output, config.table, s); err != nil {
				config.fail(5, err)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.metadataInput), "metadata", "m", "", "path to a YML file with metadata describing the features to generate, every one bounded (required)")
	cmd.PersistentFlags().StringVar(&(config.treeInput), "tree", "", "path to a JSON tree labeling the examples")
	cmd.PersistentFlags().IntVarP(&(config.examples), "examples", "n", 100, "number of examples to generate")
	cmd.PersistentFlags().Int64Var(&(config.seed), "seed", 0, "seed of the random generator")
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "", "path to an output CSV file, or a database URL (defaults to STDOUT, as CSV)")
	cmd.PersistentFlags().StringVar(&(config.table), "table", "", "table to write the data to when the output is a database URL")
	return cmd
}

func readTree(ctx context.Context, path string) (*tree.DecisionTree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening tree file %s: %w", path, err)
	}
	defer f.Close()
	return json.ReadJSONTree(ctx, f)
}

func (gcc *generateCmdConfig) Validate() error {
	if gcc.metadataInput == "" {
		return fmt.Errorf("required metadata flag was not set")
	}
	if gcc.examples < 0 {
		return fmt.Errorf("number of examples must not be negative, got %d", gcc.examples)
	}
	return nil
}
