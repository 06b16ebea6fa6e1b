package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webtailor-studio/leadgen-cli/internal/qualifier"
)

var (
	qualifyAI          bool
	qualifyConcurrency int
	qualifyHot         bool
	qualifyHotLimit    int
)

var qualifyCmd = &cobra.Command{
	Use:   "qualify [lead-id]",
	Short: "Score new leads",
	Long:  "Qualifies every NEW lead, or a single lead when its id is given. With --ai the provider chain scores first and rules are the fallback.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		q := qualifier.New(st, newChain())

		if qualifyHot {
			leads, err := q.HotLeads(ctx, qualifyHotLimit)
			if err != nil {
				return eris.Wrap(err, "list hot leads")
			}
			return printJSON(leads)
		}

		useAI := qualifyAI || cfg.Qualify.UseAI

		if len(args) == 1 {
			var lead any
			if useAI {
				lead, err = q.QualifyLeadAI(ctx, args[0])
			} else {
				lead, err = q.QualifyLead(ctx, args[0])
			}
			if err != nil {
				return eris.Wrap(err, "qualify lead")
			}
			return printJSON(lead)
		}

		concurrency := qualifyConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Qualify.Concurrency
		}
		summary, err := q.QualifyAllNew(ctx, useAI, concurrency)
		if err != nil {
			return eris.Wrap(err, "qualify batch")
		}

		zap.L().Info("qualification complete",
			zap.Int("qualified", summary.Qualified),
			zap.Int("disqualified", summary.Disqualified),
			zap.Int("spam", summary.Spam),
		)
		return printJSON(summary)
	},
}

func init() {
	qualifyCmd.Flags().BoolVar(&qualifyAI, "ai", false, "qualify through the AI provider chain")
	qualifyCmd.Flags().IntVar(&qualifyConcurrency, "concurrency", 0, "parallel qualifications (default from config)")
	qualifyCmd.Flags().BoolVar(&qualifyHot, "hot", false, "list hot leads instead of qualifying")
	qualifyCmd.Flags().IntVar(&qualifyHotLimit, "limit", 20, "max hot leads to list")
	rootCmd.AddCommand(qualifyCmd)
}
