package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/moneymngr/moneymngr/internal/accounts"
	"github.com/moneymngr/moneymngr/internal/categories"
	"github.com/moneymngr/moneymngr/internal/config"
	"github.com/moneymngr/moneymngr/internal/store"
)

func newInitCommand() *cobra.Command {
	var currency, symbol string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir, currency, symbol)
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "INR", "ISO currency code")
	cmd.Flags().StringVar(&symbol, "symbol", "₹", "currency symbol used in output")

	return cmd
}

// runInit creates the directory layout, writes moneymngr.yaml unless one
// exists, migrates the database and seeds default accounts and categories.
// Running it twice is harmless.
func runInit(cmd *cobra.Command, dir, currency, symbol string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	cfg, err := config.Load(cfgPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
		cfg.Currency.Code = currency
		cfg.Currency.Symbol = symbol
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
	case err != nil:
		return err
	}

	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	dirs := []string{
		filepath.Dir(resolve(cfg.Log.File)),
		resolve(cfg.Import.Dir),
		filepath.Join(resolve(cfg.Import.Dir), "processed"),
	}
	if cfg.Backup.Bucket == "" {
		dirs = append(dirs, resolve(cfg.Backup.LocalDir))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	s, err := store.Open(resolve(cfg.Database.Path))
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	nAccounts, err := accounts.NewService(s, nil).Seed(ctx)
	if err != nil {
		return fmt.Errorf("seeding accounts: %w", err)
	}
	nCategories, err := categories.NewService(s, nil).Seed(ctx)
	if err != nil {
		return fmt.Errorf("seeding categories: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized ledger at %s (%d accounts, %d categories added)\n", dir, nAccounts, nCategories)
	return nil
}
