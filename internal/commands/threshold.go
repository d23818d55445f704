package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newThresholdCommand(opts *rootOptions) *cobra.Command {
	var spend string

	cmd := &cobra.Command{
		Use:   "threshold <account>",
		Short: "Check how safe it is to spend from an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseMoney("spend", spend)
			if err != nil {
				return err
			}
			if amount.IsNegative() {
				return fmt.Errorf("--spend must not be negative")
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				acct, err := a.accounts.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				p, err := a.journal.ThresholdPreview(ctx, acct.ID, amount, a.eval)
				if err != nil {
					return err
				}
				r := p.Evaluation
				fmt.Fprintf(a.out, "%s: %s\n", acct.Name, r.Status)
				fmt.Fprintf(a.out, "Balance: %s\nThreshold: %s\n", a.money(r.Balance), a.money(r.Threshold))
				if amount.IsPositive() {
					fmt.Fprintf(a.out, "After spending %s: %s\n", a.money(amount), a.money(p.NewBalance))
				}
				fmt.Fprintf(a.out, "Spendable: %s (%s%% of threshold)\n", a.money(r.Spendable), r.PercentRemaining.StringFixed(0))
				fmt.Fprintln(a.out, r.Message)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&spend, "spend", "0", "amount you are about to spend")
	return cmd
}
