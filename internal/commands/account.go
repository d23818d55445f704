package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/moneymngr/moneymngr/internal/accounts"
	"github.com/moneymngr/moneymngr/internal/model"
)

func newAccountCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}
	cmd.AddCommand(
		newAccountAddCommand(opts),
		newAccountListCommand(opts),
		newAccountUpdateCommand(opts),
		newAccountDeleteCommand(opts),
	)
	return cmd
}

func newAccountAddCommand(opts *rootOptions) *cobra.Command {
	var typ, balance, thresholdValue, group string
	var exclude, liability bool

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opening, err := parseMoney("balance", balance)
			if err != nil {
				return err
			}
			th, err := parseMoney("threshold", thresholdValue)
			if err != nil {
				return err
			}
			p := accounts.CreateParams{
				Name:           args[0],
				Type:           model.MigrateAccountType(typ),
				OpeningBalance: opening,
				ThresholdValue: th,
				Group:          group,
				IsLiability:    liability,
			}
			if exclude {
				include := false
				p.IncludeInNetWorth = &include
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				acct, err := a.accounts.Create(ctx, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Added %s account %s (%s)\n", acct.Type, acct.Name, a.money(acct.Balance))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&typ, "type", "BANK", "account type")
	cmd.Flags().StringVar(&balance, "balance", "0", "opening balance")
	cmd.Flags().StringVar(&thresholdValue, "threshold", "0", "minimum balance to keep")
	cmd.Flags().StringVar(&group, "group", "", "display group")
	cmd.Flags().BoolVar(&exclude, "exclude-net-worth", false, "leave out of net worth")
	cmd.Flags().BoolVar(&liability, "liability", false, "count the balance as a liability")
	return cmd
}

func newAccountListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with balances and threshold status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				all, err := a.accounts.All(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tTYPE\tBALANCE\tTHRESHOLD\tSTATUS")
				for _, acct := range all {
					res := a.eval.Evaluate(acct.Balance, acct.ThresholdValue, decimal.Zero)
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						acct.Name, acct.Type, a.money(acct.Balance), a.money(acct.ThresholdValue), res.Status)
				}
				return tw.Flush()
			})
		},
	}
}

func newAccountUpdateCommand(opts *rootOptions) *cobra.Command {
	var name, typ, thresholdValue, group string
	var include, liability bool

	cmd := &cobra.Command{
		Use:   "update <account>",
		Short: "Edit account details; the balance only changes through transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p accounts.UpdateParams
			flags := cmd.Flags()
			if flags.Changed("name") {
				p.Name = &name
			}
			if flags.Changed("type") {
				at := model.MigrateAccountType(typ)
				p.Type = &at
			}
			if flags.Changed("threshold") {
				th, err := parseMoney("threshold", thresholdValue)
				if err != nil {
					return err
				}
				p.ThresholdValue = &th
			}
			if flags.Changed("group") {
				p.Group = &group
			}
			if flags.Changed("net-worth") {
				p.IncludeInNetWorth = &include
			}
			if flags.Changed("liability") {
				p.IsLiability = &liability
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				acct, err := a.accounts.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				acct, err = a.accounts.Update(ctx, acct.ID, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Updated account %s\n", acct.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&typ, "type", "", "new type")
	cmd.Flags().StringVar(&thresholdValue, "threshold", "", "new threshold")
	cmd.Flags().StringVar(&group, "group", "", "new group")
	cmd.Flags().BoolVar(&include, "net-worth", true, "include in net worth")
	cmd.Flags().BoolVar(&liability, "liability", false, "count as a liability")
	return cmd
}

func newAccountDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <account>",
		Short: "Delete an account no transaction references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				acct, err := a.accounts.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.accounts.Delete(ctx, acct.ID); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted account %s\n", acct.Name)
				return nil
			})
		},
	}
}

func parseMoney(flag, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: %q is not a number", flag, v)
	}
	return d, nil
}
