package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger-import/internal/importer"
	"github.com/cleared-dev/ledger-import/internal/importlog"
	"github.com/cleared-dev/ledger-import/internal/logger"
)

func newScanCommand(configPath *string) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Import every bank export in the import directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ctx, err := openEnv(cmd, *configPath)
			if err != nil {
				return err
			}
			defer e.Close()

			dir := e.importDir()
			files, err := importer.Scan(dir)
			if err != nil {
				return err
			}

			log := logger.FromContext(ctx)
			svc := e.service()
			out := cmd.OutOrStdout()
			var logged []importlog.Entry
			failed := 0
			for _, f := range files {
				data, err := os.ReadFile(f.Path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", f.Name, err)
				}
				res, err := svc.Run(ctx, importer.Upload{FileName: f.Name, Data: data, AccountID: accountID})
				if err != nil {
					log.Warn().Err(err).Str("file", f.Name).Msg("import failed")
					failed++
					continue
				}
				if err := importer.MarkProcessed(dir, f.Name); err != nil {
					return err
				}
				imp, err := e.store.GetImport(ctx, res.ImportID)
				if err != nil {
					return err
				}
				logged = append(logged, logEntry(imp.AccountID, f.Name, string(imp.Format), res))
				fmt.Fprintf(out, "%s: ", f.Name)
				printResult(out, res)
			}

			if len(logged) > 0 {
				if err := importlog.Append(e.root, logged); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "Imported %d of %d files\n", len(logged), len(files))
			if failed > 0 {
				return fmt.Errorf("%d files failed to import", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "target account for every file (default: link by OFX ACCTID)")

	return cmd
}
