package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moneymngr/moneymngr/internal/buildinfo"
	"github.com/moneymngr/moneymngr/internal/config"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:     "moneymngr",
		Short:   "Personal finance ledger",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", config.FileName, "path to moneymngr.yaml")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountCommand(opts),
		newCategoryCommand(opts),
		newTxCommand(opts),
		newImportCommand(opts),
		newMagicCommand(opts),
		newSMSCommand(opts),
		newHistoryCommand(opts),
		newThresholdCommand(opts),
		newBackupCommand(opts),
		newSnapshotCommand(opts),
		newExportCommand(opts),
		newLogCommand(opts),
		newServeCommand(opts),
	)
	return rootCmd
}
