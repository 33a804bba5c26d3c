package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type testCmdConfig struct {
	*rootCmdConfig
	dataFlags
	treeInput string
}

func testCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &testCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the accuracy of a tree",
		Long:  `Test the accuracy of a tree against a set of data, printing the ratio of examples it classifies correctly and the number it misclassifies`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				config.fail(1, err)
			}
			ctx := context.Background()
			t, err := readTree(ctx, config.treeInput)
			if err != nil {
				config.fail(2, err)
			}
			s, err := config.readSet(ctx)
			if err != nil {
				config.fail(3, err)
			}
			if err = t.Validate(); err != nil {
				config.fail(4, err)
			}
			for v := range t.Inner() {
				if t.Dim[v] >= s.D() {
					config.fail(4, fmt.Errorf("tree splits on dimension %d but the data has %d", t.Dim[v], s.D()))
				}
			}
			config.Logger().Debug("testing tree", zap.Int("examples", s.N()), zap.Int("size", t.Inner()))
			var errors int
			for i, x := range s.Values {
				if t.Classify(x) != s.Labels[i] {
					errors++
				}
			}
			fmt.Printf("%f accuracy, misclassified %d examples\n", t.Accuracy(s.Values, s.Labels), errors)
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&(config.input), "input", "i", "", "path to an input CSV file or a database URL with the data to test the tree against (defaults to STDIN, interpreted as CSV)")
	flags.StringVar(&(config.table), "table", "", "table holding the data when the input is a database URL")
	flags.StringVarP(&(config.metadataInput), "metadata", "m", "", "path to a YML file with metadata describing the features on the input (optional)")
	flags.StringVarP(&(config.treeInput), "tree", "t", "", "path to a file from which the tree to test will be read and parsed as JSON (required)")
	return cmd
}

func (tcc *testCmdConfig) Validate() error {
	if tcc.treeInput == "" {
		return fmt.Errorf("required tree flag was not set")
	}
	return tcc.dataFlags.Validate()
}
