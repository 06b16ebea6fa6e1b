package main

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webtailor-studio/leadgen-cli/internal/finder"
	"github.com/webtailor-studio/leadgen-cli/internal/model"
)

var (
	searchTypes       []string
	searchMax         int
	searchConcurrency int
	searchParser      string
	searchName        string
	searchSettings    []string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Scan sources for new leads",
	Long:  "Scans all active sources concurrently, or a single ad-hoc source when --parser is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		f := finder.New(st)

		if searchParser != "" {
			settings, err := parseSettings(searchSettings)
			if err != nil {
				return err
			}
			result, err := f.SearchCustom(ctx, model.SourceType(searchParser), settings, searchName, searchMax)
			if err != nil {
				return eris.Wrap(err, "custom search")
			}
			return printJSON(result)
		}

		var types []model.SourceType
		for _, t := range searchTypes {
			types = append(types, model.SourceType(t))
		}

		opts := finder.Options{
			Types:            types,
			MaxPerSource:     searchMax,
			Concurrency:      searchConcurrency,
			PerSourceTimeout: time.Duration(cfg.Search.SourceTimeoutSecs) * time.Second,
			NewFetcher:       newFetcher,
		}
		if opts.MaxPerSource <= 0 {
			opts.MaxPerSource = cfg.Search.MaxPerSource
		}
		if opts.Concurrency <= 0 {
			opts.Concurrency = cfg.Search.Concurrency
		}

		summary, err := f.SearchAll(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "search run")
		}

		zap.L().Info("search complete",
			zap.Int("total_found", summary.TotalFound),
			zap.Int("errors", len(summary.Errors)),
		)
		return printJSON(summary)
	},
}

func parseSettings(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	settings := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, eris.Errorf("invalid --set %q, want key=value", pair)
		}
		settings[key] = value
	}
	return settings, nil
}

func init() {
	searchCmd.Flags().StringSliceVar(&searchTypes, "type", nil, "restrict to source types (telegram_channel, classified_ads, freelance_platform, forum)")
	searchCmd.Flags().IntVar(&searchMax, "max", 0, "max candidates per source (default from config)")
	searchCmd.Flags().IntVar(&searchConcurrency, "concurrency", 0, "parallel source scans (default from config)")
	searchCmd.Flags().StringVar(&searchParser, "parser", "", "run a single ad-hoc source with this parser type")
	searchCmd.Flags().StringVar(&searchName, "name", "", "source name for --parser runs")
	searchCmd.Flags().StringSliceVar(&searchSettings, "set", nil, "parser setting key=value for --parser runs (repeatable)")
	rootCmd.AddCommand(searchCmd)
}
