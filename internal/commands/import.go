package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moneymngr/moneymngr/internal/importer"
	"github.com/moneymngr/moneymngr/internal/logger"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	var scan bool

	cmd := &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Import transactions from a CSV export",
		Long: "Import one CSV file, or with --scan every CSV file in the import directory.\n" +
			"Scanned files that import are moved to the processed/ subdirectory.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if scan == (len(args) == 1) {
				return errors.New("give either a file or --scan")
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				if !scan {
					return importOne(ctx, a, args[0])
				}
				dir := a.path(a.cfg.Import.Dir)
				files, err := importer.Scan(dir)
				if err != nil {
					return err
				}
				if len(files) == 0 {
					fmt.Fprintf(a.out, "No CSV files in %s\n", dir)
					return nil
				}
				for _, f := range files {
					if err := importOne(ctx, a, f.Path); err != nil {
						fmt.Fprintf(a.out, "%s: %v\n", f.Name, err)
						continue
					}
					if err := importer.MarkProcessed(dir, f.Name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&scan, "scan", false, "import every CSV in the import directory")
	return cmd
}

func importOne(ctx context.Context, a *app, path string) error {
	log := logger.FromContext(ctx)
	res, err := a.importer.ImportFile(ctx, path, func(p importer.Progress) {
		log.Debug().Str("phase", p.Phase.String()).Float64("fraction", p.Fraction).Msg("import progress")
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported %d transaction(s) from %s\n", res.Imported, path)
	for _, e := range res.Errors {
		fmt.Fprintf(a.out, "  skipped: %s\n", e.Message)
	}
	return nil
}
