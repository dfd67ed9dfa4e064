package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"langclass/db"
	"langclass/ml"
	"langclass/pipeline"
)

type trainOptions struct {
	learner   string
	maxDepth  int
	testRatio float64
	seed      int64
	name      string
	register  bool
}

func newTrainCmd(a *app) *cobra.Command {
	opts := &trainOptions{}
	cmd := &cobra.Command{
		Use:   "train <examples> <model-out>",
		Short: "Train a classifier from lang|sentence lines",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("max-depth") {
				opts.maxDepth = a.cfg.ML.MaxTreeDepth
			}
			if !cmd.Flags().Changed("test-ratio") {
				opts.testRatio = a.cfg.ML.TestRatio
			}
			if !cmd.Flags().Changed("seed") {
				opts.seed = a.cfg.ML.Seed
			}
			return a.runTrain(cmd, args[0], args[1], opts)
		},
	}
	cmd.Flags().StringVar(&opts.learner, "learner", "dt", "learner to use: dt or ada")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", ml.DefaultMaxDepth, "maximum decision tree depth")
	cmd.Flags().Float64Var(&opts.testRatio, "test-ratio", 0, "fraction of examples held out for evaluation")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "shuffle seed for the hold-out split")
	cmd.Flags().StringVar(&opts.name, "name", "", "model name in the registry (default: output file name)")
	cmd.Flags().BoolVar(&opts.register, "register", false, "store the model and its training log in the database")
	return cmd
}

func (a *app) runTrain(cmd *cobra.Command, examplesPath, modelPath string, opts *trainOptions) error {
	logger := a.logger.Named("train")
	kind, err := ml.ParseKind(opts.learner)
	if err != nil {
		return err
	}

	ds, stats, err := pipeline.LoadLabeledFile(examplesPath)
	if err != nil {
		return fmt.Errorf("load examples: %w", err)
	}
	logger.Info("examples loaded",
		zap.String("path", examplesPath),
		zap.Int("examples", stats.Examples),
		zap.Int("en", stats.English),
		zap.Int("nl", stats.Dutch),
		zap.Int("dropped_lines", stats.Cleaning.Dropped),
	)

	train, test := pipeline.SplitDataset(ds, opts.testRatio, opts.seed)
	m, err := ml.Train(kind, train, opts.maxDepth)
	if err != nil {
		return fmt.Errorf("train %s: %w", kind, err)
	}
	if dt, ok := m.(*ml.DecisionTree); ok {
		logger.Info("tree induced", zap.Int("nodes", len(dt.Nodes)), zap.Int("leaves", len(dt.Leaves)), zap.Int("depth", dt.Depth()))
	}

	trainReport, err := ml.Evaluate(m, train)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "train (%d): %s\n", trainReport.Total, trainReport)

	report := trainReport
	if len(test) > 0 {
		report, err = ml.Evaluate(m, test)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "test  (%d): %s\n", report.Total, report)
	}

	if err := ml.SaveModel(modelPath, m); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	fmt.Fprintf(out, "model saved to %s\n", modelPath)

	if opts.register {
		name := opts.name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(modelPath), filepath.Ext(modelPath))
		}
		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		rec, err := store.SaveModel(ctx, name, m, len(train))
		if err != nil {
			return fmt.Errorf("register model: %w", err)
		}
		if err := store.LogTraining(ctx, db.NewTrainingLog(rec, report)); err != nil {
			return fmt.Errorf("log training: %w", err)
		}
		fmt.Fprintf(out, "registered %s as %s\n", name, rec.ID)
	}
	return nil
}
