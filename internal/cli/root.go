package cli

import (
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/lazyswap/internal/config"
)

// NewRootCommand builds the lazyswap command tree around cfg.
func NewRootCommand(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "lazyswap",
		Short: "Conversational fixed-rate crypto swaps",
		Long: `lazyswap turns plain-language swap requests into fixed-rate exchange
orders. Describe the swap, give a destination address, and confirm the
quote to receive a deposit address.

Examples:
  lazyswap serve
  lazyswap chat
  lazyswap coins --symbol usdc
  lazyswap status <shift-id>`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")

	root.AddCommand(
		newServeCommand(cfg),
		newChatCommand(cfg),
		newCoinsCommand(cfg),
		newStatusCommand(cfg),
	)
	return root
}
