package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/webtailor-studio/leadgen-cli/internal/proposal"
)

var (
	proposeChannel     string
	proposeTone        string
	proposeAI          bool
	proposeNoPortfolio bool
	proposeNoFindings  bool
)

var proposeCmd = &cobra.Command{
	Use:   "propose <lead-id>",
	Short: "Compose an outreach proposal for a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lib := proposal.DefaultLibrary()
		if cfg.Proposal.LibraryPath != "" {
			lib, err = proposal.LoadLibrary(cfg.Proposal.LibraryPath)
			if err != nil {
				return eris.Wrap(err, "load proposal library")
			}
		}

		c := proposal.New(st, newChain(), lib, proposal.Sender{
			Name:     cfg.Proposal.SenderName,
			Company:  cfg.Proposal.SenderCompany,
			Contacts: cfg.Proposal.SenderContacts,
		})

		opts := proposal.Options{
			Tone:             proposeTone,
			SkipPortfolio:    proposeNoPortfolio,
			SkipSiteFindings: proposeNoFindings,
		}
		channel := proposal.Channel(proposeChannel)

		var p *proposal.Proposal
		if proposeAI {
			p, err = c.ComposeAI(ctx, args[0], channel, opts)
		} else {
			p, err = c.ComposeForLead(ctx, args[0], channel, opts)
		}
		if err != nil {
			return eris.Wrap(err, "compose proposal")
		}
		return printJSON(p)
	},
}

func init() {
	proposeCmd.Flags().StringVar(&proposeChannel, "channel", "email", "outreach channel (email, telegram)")
	proposeCmd.Flags().StringVar(&proposeTone, "tone", "professional", "proposal tone (professional, friendly, casual)")
	proposeCmd.Flags().BoolVar(&proposeAI, "ai", false, "compose through the AI provider chain")
	proposeCmd.Flags().BoolVar(&proposeNoPortfolio, "no-portfolio", false, "omit portfolio examples")
	proposeCmd.Flags().BoolVar(&proposeNoFindings, "no-site-findings", false, "omit website analysis findings")
	rootCmd.AddCommand(proposeCmd)
}
