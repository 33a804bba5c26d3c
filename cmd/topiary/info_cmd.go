package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pbanos/topiary/dataset"
)

type infoCmdConfig struct {
	*rootCmdConfig
	dataFlags
}

func infoCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &infoCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print statistics of a set of data",
		Long:  `Print the size, dimensions and cut statistics of a set of data, before and after reducing it.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				config.fail(1, err)
			}
			s, err := config.readSet(context.Background())
			if err != nil {
				config.fail(2, err)
			}
			if err = writeInfo(s); err != nil {
				config.fail(3, err)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.input), "input", "i", "", "path to an input CSV file or a database URL with the data (defaults to STDIN, interpreted as CSV)")
	cmd.PersistentFlags().StringVar(&(config.table), "table", "", "table holding the data when the input is a database URL")
	cmd.PersistentFlags().StringVarP(&(config.metadataInput), "metadata", "m", "", "path to a YML file with metadata describing the features on the input (optional)")
	return cmd
}

func writeInfo(s *dataset.Set) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Examples:\t%d\n", s.N())
	fmt.Fprintf(tw, "Positive examples:\t%d\n", s.Positives())
	fmt.Fprintf(tw, "Realizable:\t%v\n", s.Realizable())
	fmt.Fprintln(tw, "\t")
	fmt.Fprintln(tw, "\tnormalized\treduced")
	normalized, reduced := s.Normalize(), s.ReduceAndNormalize()
	rows := []struct {
		name string
		stat func(*dataset.Normalized) int
	}{
		{"Examples", (*dataset.Normalized).N},
		{"Dimensions", (*dataset.Normalized).D},
		{"Cuts", (*dataset.Normalized).NumberOfCuts},
		{"Largest dimension", (*dataset.Normalized).BigD},
		{"Max differing dimensions", (*dataset.Normalized).Delta},
		{"Max cuts between examples", (*dataset.Normalized).MaxCuts},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s:\t%d\t%d\n", r.name, r.stat(normalized), r.stat(reduced))
	}
	return tw.Flush()
}
