package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pbanos/topiary"
)

type enqueueCmdConfig struct {
	*rootCmdConfig
	queueFlags
	experimentInput string
}

func enqueueCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &enqueueCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Push the problems of an experiment to a queue",
		Long: `Push the problems described in an experiment file to a Redis queue, for workers to solve them.

The experiment file is a YAML document with a list of problems and/or a grid,
for example:

  problems:
    - id: iris-full
      dataset: data/iris.csv
      algorithm: strategy1
  grid:
    datasets: [data/appendicitis.csv]
    algorithms: [basic, strategy1, strategy3]
    ratios: [0.2, 0.5]
    seeds: [1, 2, 3]
    timeout: 10m`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				config.fail(1, err)
			}
			problems, err := readExperiment(config.experimentInput)
			if err != nil {
				config.fail(2, err)
			}
			ctx := context.Background()
			rc, err := config.redisClient(ctx)
			if err != nil {
				config.fail(3, err)
			}
			defer rc.Close()
			q := config.redisQueue(rc)
			defer q.Stop(ctx)
			if err = topiary.Enqueue(ctx, q, problems...); err != nil {
				config.fail(4, err)
			}
			config.Logger().Info("enqueued problems", zap.Int("problems", len(problems)), zap.String("queue", config.queueID))
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.experimentInput), "experiment", "e", "", "path to a YAML experiment file (required)")
	cmd.PersistentFlags().StringVar(&(config.redisURL), "redis", "", "URL of the Redis server holding the queue (required)")
	cmd.PersistentFlags().StringVarP(&(config.queueID), "queue", "q", "topiary", "name of the queue")
	return cmd
}

func (ecc *enqueueCmdConfig) Validate() error {
	if ecc.experimentInput == "" {
		return fmt.Errorf("required experiment flag was not set")
	}
	if ecc.redisURL == "" {
		return fmt.Errorf("required redis flag was not set")
	}
	return nil
}
