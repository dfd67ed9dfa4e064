package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"langclass/features"
	"langclass/ml"
	"langclass/pipeline"
)

func newPredictCmd(a *app) *cobra.Command {
	var (
		fromDB  bool
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "predict <model> <sentences>",
		Short: "Print one label per input sentence",
		Long: `predict reads one sentence per line and prints "en" or "nl" for each.
With --from-db, <model> is a registered model name or id instead of a file.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadModel(cmd, args[0], fromDB)
			if err != nil {
				return err
			}
			sentences, err := pipeline.LoadSentencesFile(args[1])
			if err != nil {
				return fmt.Errorf("load sentences: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, s := range sentences {
				label, err := m.Predict(features.Extract(s))
				if err != nil {
					return err
				}
				if verbose {
					fmt.Fprintf(out, "%s\t%s\n", label, s)
				} else {
					fmt.Fprintln(out, label)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromDB, "from-db", false, "load the model from the database")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the sentence next to its label")
	return cmd
}

func newEvalCmd(a *app) *cobra.Command {
	var fromDB bool
	cmd := &cobra.Command{
		Use:   "eval <model> <examples>",
		Short: "Score a model against labelled examples",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadModel(cmd, args[0], fromDB)
			if err != nil {
				return err
			}
			ds, _, err := pipeline.LoadLabeledFile(args[1])
			if err != nil {
				return fmt.Errorf("load examples: %w", err)
			}
			report, err := ml.Evaluate(m, ds)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report)
			fmt.Fprintf(out, "confusion (rows actual, cols predicted; en nl)\n  en %5d %5d\n  nl %5d %5d\n",
				report.TrueNegative, report.FalsePositive, report.FalseNegative, report.TruePositive)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromDB, "from-db", false, "load the model from the database")
	return cmd
}

func (a *app) loadModel(cmd *cobra.Command, ref string, fromDB bool) (ml.Model, error) {
	if !fromDB {
		return ml.LoadModel(ref)
	}
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	ctx := cmd.Context()
	m, _, err := store.LoadModel(ctx, ref)
	return m, err
}
