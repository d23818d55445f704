package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moneymngr/moneymngr/internal/actionlog"
	"github.com/moneymngr/moneymngr/internal/id"
	"github.com/moneymngr/moneymngr/internal/parser"
)

func newMagicCommand(opts *rootOptions) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   `magic "<text>"`,
		Short: `Parse a quick entry such as "200 chai cash"`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				accts, err := a.accounts.All(ctx)
				if err != nil {
					return err
				}
				cats, err := a.categories.All(ctx)
				if err != nil {
					return err
				}
				e := a.magic.Parse(text, parser.AccountCandidates(accts), parser.CategoryCandidates(cats))
				a.actions.Record(actionlog.MagicBoxParse, "", text)
				printQuickEntry(a, e)
				if !save {
					return nil
				}
				t, err := a.journal.CreateFromQuickEntry(ctx, e)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Saved %s\n", id.Short(t.ID))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "store the parsed transaction")
	return cmd
}

func printQuickEntry(a *app, e parser.QuickEntry) {
	amount := "-"
	if e.HasAmount {
		amount = a.money(e.Amount)
	}
	fmt.Fprintf(a.out, "Amount: %s\nType: %s\n", amount, e.Type)
	printMatch(a, "Account", e.Account)
	printMatch(a, "Category", e.Category)
	if e.Description != "" {
		fmt.Fprintf(a.out, "Description: %s\n", e.Description)
	}
}

func printMatch(a *app, label string, m *parser.Match) {
	switch {
	case m == nil:
		fmt.Fprintf(a.out, "%s: -\n", label)
	case m.Hint:
		fmt.Fprintf(a.out, "%s: %s (not created yet)\n", label, m.Name)
	default:
		fmt.Fprintf(a.out, "%s: %s (%.0f%%)\n", label, m.Name, m.Confidence*100)
	}
}
