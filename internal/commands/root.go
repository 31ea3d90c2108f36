package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger-import/internal/buildinfo"
	"github.com/cleared-dev/ledger-import/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "ledger-import",
		Short:   "Import QIF and OFX bank exports into a ledger",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.FileName, "path to "+config.FileName)

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountCommand(&configPath),
		newImportCommand(&configPath),
		newCommitCommand(&configPath),
		newRowsCommand(&configPath),
		newRematchCommand(&configPath),
		newScanCommand(&configPath),
		newHistoryCommand(&configPath),
	)

	return rootCmd
}
