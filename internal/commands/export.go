package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/moneymngr/moneymngr/internal/accounts"
	"github.com/moneymngr/moneymngr/internal/journal"
	"github.com/moneymngr/moneymngr/internal/store"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write accounts.csv and transactions.csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				out := a.path(dir)
				if err := os.MkdirAll(out, 0o755); err != nil {
					return fmt.Errorf("creating export dir: %w", err)
				}

				accts, err := a.accounts.All(ctx)
				if err != nil {
					return err
				}
				txns, err := a.journal.List(ctx, store.TransactionFilter{})
				if err != nil {
					return err
				}

				if err := writeFile(filepath.Join(out, "accounts.csv"), func(w io.Writer) error {
					return accounts.WriteAccounts(w, accts)
				}); err != nil {
					return err
				}
				if err := writeFile(filepath.Join(out, "transactions.csv"), func(w io.Writer) error {
					return journal.WriteTransactions(w, txns)
				}); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Exported %d accounts and %d transactions to %s\n", len(accts), len(txns), out)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "exports", "output directory")
	return cmd
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
