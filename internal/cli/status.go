package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/lazyswap/internal/config"
	"github.com/MikeSquared-Agency/lazyswap/internal/sideshift"
)

func newStatusCommand(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status <shift-id>",
		Short: "Show the status of a swap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")

			s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
			if !jsonOutput && !color.NoColor {
				s.Suffix = " Checking swap status..."
				s.Start()
			}
			shift, err := newExchange(cfg).GetShift(cmd.Context(), args[0])
			s.Stop()
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(shift)
			}
			displayShift(cmd.OutOrStdout(), shift)
			return nil
		},
	}
}

func displayShift(out io.Writer, s sideshift.Shift) {
	fmt.Fprintln(out, "\n"+strings.Repeat("=", 60))
	fmt.Fprintln(out, color.GreenString("                     SWAP STATUS"))
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "\n  Swap ID:          %s\n", color.CyanString(s.ID))
	fmt.Fprintf(out, "  Status:           %s\n", colorStatus(s.Status))
	fmt.Fprintf(out, "  Deposit:          %s %s\n", s.DepositAmount, color.YellowString(strings.ToUpper(s.DepositCoin)))
	fmt.Fprintf(out, "  Settle:           %s %s\n", s.SettleAmount, color.YellowString(strings.ToUpper(s.SettleCoin)))
	fmt.Fprintf(out, "  Deposit Address:  %s\n", color.CyanString(s.DepositAddress))
	if s.DepositMemo != "" {
		fmt.Fprintf(out, "  Memo:             %s\n", color.MagentaString(s.DepositMemo))
	}
	if !s.ExpiresAt.IsZero() {
		fmt.Fprintf(out, "  Expires:          %s\n", s.ExpiresAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(out, "  Track:            %s\n\n", sideshift.OrderURL(s.ID))
}

func colorStatus(status string) string {
	switch status {
	case "settled":
		return color.GreenString(status)
	case "waiting", "pending", "processing", "settling":
		return color.YellowString(status)
	case "refund", "refunding", "refunded", "expired":
		return color.RedString(status)
	default:
		return color.MagentaString(status)
	}
}
