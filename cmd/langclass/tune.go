package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"langclass/pipeline"
	"langclass/tuning"
)

type tuneOptions struct {
	minDepth   int
	maxDepth   int
	metric     string
	workers    int
	validation float64
	seed       int64
}

func newTuneCmd(a *app) *cobra.Command {
	opts := &tuneOptions{}
	cmd := &cobra.Command{
		Use:   "tune <examples>",
		Short: "Search for the decision tree depth that generalises best",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				opts.seed = a.cfg.ML.Seed
			}
			return a.runTune(cmd, args[0], opts)
		},
	}
	cmd.Flags().IntVar(&opts.minDepth, "min-depth", 1, "smallest depth to try")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 10, "largest depth to try")
	cmd.Flags().StringVar(&opts.metric, "metric", "accuracy", "selection metric: accuracy or f1")
	cmd.Flags().IntVar(&opts.workers, "workers", 4, "concurrent trainings")
	cmd.Flags().Float64Var(&opts.validation, "validation", 0.25, "fraction of examples held out for scoring")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "shuffle seed for the validation split")
	return cmd
}

func (a *app) runTune(cmd *cobra.Command, examplesPath string, opts *tuneOptions) error {
	metric, err := tuning.ParseMetric(opts.metric)
	if err != nil {
		return err
	}
	search, err := tuning.NewDepthSearch(tuning.SearchConfig{
		MinDepth: opts.minDepth,
		MaxDepth: opts.maxDepth,
		Metric:   metric,
		Workers:  opts.workers,
	}, a.logger)
	if err != nil {
		return err
	}

	ds, _, err := pipeline.LoadLabeledFile(examplesPath)
	if err != nil {
		return fmt.Errorf("load examples: %w", err)
	}
	train, validation := pipeline.SplitDataset(ds, opts.validation, opts.seed)
	if len(validation) == 0 {
		// No hold-out requested: score on the training data itself.
		validation = train
	}

	result, err := search.Run(cmd.Context(), train, validation)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "DEPTH\t%s\tNODES\tLEAVES\tHEIGHT\n", metric)
	for _, it := range result.Iterations {
		fmt.Fprintf(tw, "%d\t%.4f\t%d\t%d\t%d\n", it.Depth, it.Metric, it.Nodes, it.Leaves, it.Height)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "best depth: %d (%s=%.4f)\n", result.Best.Depth, metric, result.Best.Metric)
	return nil
}
