package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootCmdConfig struct {
	verbose bool
	logger  *zap.Logger
}

func main() {
	config := &rootCmdConfig{}
	err := cliParser(config).Execute()
	config.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func cliParser(config *rootCmdConfig) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "topiary",
		Short: "topiary is a tool to find minimum-size decision trees",
		Long:  `A tool to search the smallest binary decision trees classifying your data without error, and to run experiments on them`,
	}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "log debug messages in a human-friendly format")
	rootCmd.AddCommand(
		versionCmd(),
		solveCmd(config),
		infoCmd(config),
		generateCmd(config),
		subsetCmd(config),
		testCmd(config),
		enqueueCmd(config),
		workCmd(config),
	)
	return rootCmd
}
