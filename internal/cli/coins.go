package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/lazyswap/internal/config"
	"github.com/MikeSquared-Agency/lazyswap/internal/sideshift"
)

func newCoinsCommand(cfg config.Config) *cobra.Command {
	var symbol, network string
	cmd := &cobra.Command{
		Use:     "coins",
		Aliases: []string{"tokens", "ls"},
		Short:   "List coins the exchange supports",
		Long: `List every coin the exchange supports, optionally filtered.

Examples:
  lazyswap coins
  lazyswap coins --symbol usdc
  lazyswap coins --network solana`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
			if !jsonOutput && !color.NoColor {
				s.Suffix = " Fetching supported coins..."
				s.Start()
			}
			coins, err := newExchange(cfg).ListCoins(cmd.Context())
			s.Stop()
			if err != nil {
				return err
			}

			coins = filterCoins(coins, symbol, network)
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(coins)
			}

			fmt.Fprintf(out, "\n%s\n\n", color.GreenString("Supported coins (%d)", len(coins)))
			for _, c := range coins {
				var flags []string
				if c.FixedOnly {
					flags = append(flags, color.RedString("fixed only"))
				}
				if c.VariableOnly {
					flags = append(flags, color.YellowString("variable only"))
				}
				if c.HasMemo {
					flags = append(flags, color.MagentaString("memo"))
				}
				fmt.Fprintf(out, "  %-10s %-24s %s %s\n",
					color.CyanString(c.Coin), c.Name,
					color.HiBlackString(strings.Join(c.Networks, ", ")),
					strings.Join(flags, " "))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "Filter by coin symbol or name")
	cmd.Flags().StringVar(&network, "network", "", "Filter by network")
	return cmd
}

func filterCoins(coins []sideshift.Coin, symbol, network string) []sideshift.Coin {
	symbol = strings.ToLower(symbol)
	network = strings.ToLower(network)
	var out []sideshift.Coin
	for _, c := range coins {
		if symbol != "" && !strings.EqualFold(c.Coin, symbol) && !strings.Contains(strings.ToLower(c.Name), symbol) {
			continue
		}
		if network != "" && !hasNetwork(c, network) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Coin < out[j].Coin })
	return out
}

func hasNetwork(c sideshift.Coin, network string) bool {
	for _, n := range c.Networks {
		if strings.EqualFold(n, network) {
			return true
		}
	}
	return false
}
