package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List active lead sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sources, err := st.ListActiveSources(ctx, nil)
		if err != nil {
			return eris.Wrap(err, "list sources")
		}
		return printJSON(sources)
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
