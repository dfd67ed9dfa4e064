package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"langclass/features"
)

func newFeaturesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "features <sentence>...",
		Short: "Show the feature vector of a sentence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sentence := strings.Join(args, " ")
			v := features.Extract(sentence)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tokens: %s\n", strings.Join(features.Tokenize(sentence), " "))
			for i, name := range features.Names() {
				fmt.Fprintf(out, "%d %-13s %t\n", i, name, v[i])
			}
			return nil
		},
	}
}
