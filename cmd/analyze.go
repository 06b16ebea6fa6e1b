package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/webtailor-studio/leadgen-cli/internal/analyzer"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <lead-id>",
	Short: "Analyze a lead's website",
	Long:  "Fetches the lead's website, scores performance, SEO and mobile readiness, and records the found issues.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		a := analyzer.New(st, newFetcher())
		wa, err := a.Analyze(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "analyze website")
		}
		return printJSON(wa)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
