package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moneymngr/moneymngr/internal/id"
	"github.com/moneymngr/moneymngr/internal/journal"
	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/store"
)

func newTxCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Record and edit transactions",
	}
	cmd.AddCommand(
		newTxAddCommand(opts),
		newTxEditCommand(opts),
		newTxDeleteCommand(opts),
		newTxListCommand(opts),
		newTxStatusCommand(opts, "confirm", "Confirm a pending transaction", (*journal.Service).Confirm),
		newTxStatusCommand(opts, "reject", "Reject a pending transaction and undo its balance effect", (*journal.Service).Reject),
	)
	return cmd
}

// refs resolves the account and category flags of a transaction. Empty
// refs stay empty.
type refs struct {
	from, to, category, person string
}

func (r refs) resolve(ctx context.Context, a *app) (refs, error) {
	var out refs
	for _, f := range []struct {
		in  string
		out *string
	}{{r.from, &out.from}, {r.to, &out.to}, {r.person, &out.person}} {
		if f.in == "" {
			continue
		}
		acct, err := a.accounts.Resolve(ctx, f.in)
		if err != nil {
			return refs{}, err
		}
		*f.out = acct.ID
	}
	if r.category != "" {
		c, err := a.categories.Resolve(ctx, r.category)
		if err != nil {
			return refs{}, err
		}
		out.category = c.ID
	}
	return out, nil
}

func newTxAddCommand(opts *rootOptions) *cobra.Command {
	var typ, amount, date, desc string
	var in refs
	var pending bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			txType, err := model.ParseTransactionType(typ)
			if err != nil {
				return err
			}
			amt, err := parseMoney("amount", amount)
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				r, err := in.resolve(ctx, a)
				if err != nil {
					return err
				}
				p := journal.CreateParams{
					Amount:          amt,
					Type:            txType,
					FromAccountID:   r.from,
					ToAccountID:     r.to,
					CategoryID:      r.category,
					Description:     desc,
					IsLinked:        r.person != "",
					PersonAccountID: r.person,
				}
				if pending {
					p.Status = model.StatusPending
				}
				if date != "" {
					if p.Date, err = a.parseDay("date", date); err != nil {
						return err
					}
				}
				t, err := a.journal.Create(ctx, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Added %s %s %s (%s)\n", t.Type, a.money(t.Amount), t.Description, id.Short(t.ID))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&typ, "type", "expense", "expense, income or transfer")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, always positive")
	cmd.Flags().StringVar(&in.from, "from", "", "account debited (expense, transfer)")
	cmd.Flags().StringVar(&in.to, "to", "", "account credited (income, transfer)")
	cmd.Flags().StringVar(&in.category, "category", "", "category name or id")
	cmd.Flags().StringVar(&in.person, "on-behalf-of", "", "PERSON account to record a receivable on")
	cmd.Flags().StringVar(&date, "date", "", "YYYY-MM-DD, default now")
	cmd.Flags().StringVar(&desc, "desc", "", "description")
	cmd.Flags().BoolVar(&pending, "pending", false, "record as PENDING")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

// findTx accepts a full id or the short prefix printed by other commands.
func findTx(ctx context.Context, a *app, ref string) (model.Transaction, error) {
	if id.Valid(ref) {
		return a.journal.Get(ctx, ref)
	}
	all, err := a.journal.List(ctx, store.TransactionFilter{})
	if err != nil {
		return model.Transaction{}, err
	}
	var found []model.Transaction
	for _, c := range all {
		if id.Short(c.ID) == ref {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 0:
		return model.Transaction{}, fmt.Errorf("transaction %q: %w", ref, store.ErrTransactionNotFound)
	case 1:
		return found[0], nil
	default:
		return model.Transaction{}, fmt.Errorf("%q matches %d transactions, use the full id", ref, len(found))
	}
}

func newTxEditCommand(opts *rootOptions) *cobra.Command {
	var typ, amount, date, desc string
	var in refs

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a transaction; balances are reconciled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				t, err := findTx(ctx, a, args[0])
				if err != nil {
					return err
				}
				r, err := in.resolve(ctx, a)
				if err != nil {
					return err
				}

				var p journal.UpdateParams
				if flags.Changed("type") {
					txType, err := model.ParseTransactionType(typ)
					if err != nil {
						return err
					}
					p.Type = &txType
				}
				if flags.Changed("amount") {
					amt, err := parseMoney("amount", amount)
					if err != nil {
						return err
					}
					p.Amount = &amt
				}
				if flags.Changed("date") {
					d, err := a.parseDay("date", date)
					if err != nil {
						return err
					}
					p.Date = &d
				}
				if flags.Changed("desc") {
					p.Description = &desc
				}
				if flags.Changed("from") {
					p.FromAccountID = &r.from
				}
				if flags.Changed("to") {
					p.ToAccountID = &r.to
				}
				if flags.Changed("category") {
					p.CategoryID = &r.category
				}

				t, err = a.journal.Update(ctx, t.ID, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Updated %s: %s %s\n", id.Short(t.ID), t.Type, a.money(t.Amount))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&typ, "type", "", "new type")
	cmd.Flags().StringVar(&amount, "amount", "", "new amount")
	cmd.Flags().StringVar(&in.from, "from", "", "new debited account")
	cmd.Flags().StringVar(&in.to, "to", "", "new credited account")
	cmd.Flags().StringVar(&in.category, "category", "", "new category")
	cmd.Flags().StringVar(&date, "date", "", "new date, YYYY-MM-DD")
	cmd.Flags().StringVar(&desc, "desc", "", "new description")
	return cmd
}

func newTxDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete transactions and reverse their balance effect",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				ids := make([]string, 0, len(args))
				for _, ref := range args {
					t, err := findTx(ctx, a, ref)
					if err != nil {
						return err
					}
					ids = append(ids, t.ID)
				}
				if len(ids) == 1 {
					if err := a.journal.Delete(ctx, ids[0]); err != nil {
						return err
					}
					fmt.Fprintf(a.out, "Deleted %s\n", id.Short(ids[0]))
					return nil
				}
				res, err := a.journal.BulkDelete(ctx, ids)
				if err != nil {
					return err
				}
				for _, e := range res.Errors {
					fmt.Fprintf(a.out, "  skipped: %s\n", e)
				}
				fmt.Fprintf(a.out, "Deleted %d transaction(s)\n", res.Affected)
				return nil
			})
		},
	}
}

func newTxListCommand(opts *rootOptions) *cobra.Command {
	var account, category, typ, status, from, to, search string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				r, err := refs{from: account, category: category}.resolve(ctx, a)
				if err != nil {
					return err
				}
				f := store.TransactionFilter{
					AccountID:  r.from,
					CategoryID: r.category,
					Status:     model.TransactionStatus(status),
					Search:     search,
					Limit:      limit,
				}
				if typ != "" {
					if f.Type, err = model.ParseTransactionType(typ); err != nil {
						return err
					}
				}
				if from != "" {
					if f.From, err = a.parseDay("from", from); err != nil {
						return err
					}
				}
				if to != "" {
					day, err := a.parseDay("to", to)
					if err != nil {
						return err
					}
					f.To = day.AddDate(0, 0, 1)
				}

				txns, err := a.journal.List(ctx, f)
				if err != nil {
					return err
				}
				names, err := a.names(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tFROM\tTO\tCATEGORY\tSTATUS\tDESCRIPTION")
				for _, t := range txns {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						id.Short(t.ID), t.Date.In(a.loc).Format("2006-01-02"), t.Type, a.money(t.Amount),
						names[t.FromAccountID], names[t.ToAccountID], names[t.CategoryID], t.Status, t.Description)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "only rows touching this account")
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.Flags().StringVar(&typ, "type", "", "only this type")
	cmd.Flags().StringVar(&status, "status", "", "CONFIRMED, PENDING or REJECTED")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&search, "search", "", "description contains")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows, 0 for all")
	return cmd
}

// names maps account and category ids to names for display.
func (a *app) names(ctx context.Context) (map[string]string, error) {
	accts, err := a.accounts.All(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := a.categories.All(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(accts)+len(cats))
	for _, x := range accts {
		names[x.ID] = x.Name
	}
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}

func newTxStatusCommand(opts *rootOptions, use, short string, fn func(*journal.Service, context.Context, string) (model.Transaction, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				t, err := findTx(ctx, a, args[0])
				if err != nil {
					return err
				}
				t, err = fn(a.journal, ctx, t.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s is now %s\n", id.Short(t.ID), t.Status)
				return nil
			})
		},
	}
}
