package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newModelsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List registered models and recent training runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			records, err := store.ListModels(ctx)
			if err != nil {
				return err
			}
			logs, err := store.TrainingLogs(ctx, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tKIND\tDEPTH\tEXAMPLES\tCREATED")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", r.ID, r.Name, r.Kind, r.MaxDepth, r.Examples, r.CreatedAt.Format(time.RFC3339))
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "MODEL\tKIND\tACCURACY\tPRECISION\tRECALL\tF1\tTRAINED")
			for _, l := range logs {
				fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.3f\t%.3f\t%.3f\t%s\n", l.ModelName, l.Kind, l.Accuracy, l.Precision, l.Recall, l.F1, l.TrainedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of training runs to show (0 for all)")
	return cmd
}
