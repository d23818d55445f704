package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const defaultHistoryDays = 30

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var from, to string
	var netWorth bool

	cmd := &cobra.Command{
		Use:   "history [account]",
		Short: "Show daily balances of an account, or net worth",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if netWorth == (len(args) == 1) {
				return errors.New("give either an account or --net-worth")
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				start, end, err := a.dayRange(from, to)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				if netWorth {
					points, err := a.history.NetWorthSeries(ctx, start, end)
					if err != nil {
						return err
					}
					fmt.Fprintln(tw, "DATE\tASSETS\tLIABILITIES\tNET WORTH")
					for _, p := range points {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Date.Format(time.DateOnly),
							a.money(p.Assets), a.money(p.Liabilities), a.money(p.NetWorth))
					}
					return tw.Flush()
				}

				acct, err := a.accounts.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				points, err := a.history.AccountSeries(ctx, acct.ID, start, end)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "DATE\t%s\n", acct.Name)
				prev := decimal.Zero
				for i, p := range points {
					change := ""
					if i > 0 && !p.Balance.Equal(prev) {
						change = fmt.Sprintf("\t(%s)", p.Balance.Sub(prev).StringFixed(2))
					}
					fmt.Fprintf(tw, "%s\t%s%s\n", p.Date.Format(time.DateOnly), a.money(p.Balance), change)
					prev = p.Balance
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (default 30 days ago)")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&netWorth, "net-worth", false, "show net worth instead of one account")
	return cmd
}

func (a *app) dayRange(from, to string) (time.Time, time.Time, error) {
	end := a.today()
	if to != "" {
		d, err := a.parseDay("to", to)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = d
	}
	start := end.AddDate(0, 0, -defaultHistoryDays)
	if from != "" {
		d, err := a.parseDay("from", from)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = d
	}
	return start, end, nil
}
