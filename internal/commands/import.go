package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger-import/internal/anchor"
	"github.com/cleared-dev/ledger-import/internal/importer"
	"github.com/cleared-dev/ledger-import/internal/importlog"
	"github.com/cleared-dev/ledger-import/internal/review"
)

func newImportCommand(configPath *string) *cobra.Command {
	var accountID string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a QIF, OFX or QFX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			e, ctx, err := openEnv(cmd, *configPath)
			if err != nil {
				return err
			}
			defer e.Close()

			svc := e.service()
			pv, err := svc.Prepare(ctx, importer.Upload{
				FileName:  filepath.Base(args[0]),
				Data:      data,
				AccountID: accountID,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printPreview(out, pv)
			if dryRun {
				fmt.Fprintf(out, "Dry run: commit later with `ledger-import commit %s`\n", pv.Import.ID)
				return nil
			}

			res, err := svc.Commit(ctx, pv.Import.ID)
			if err != nil {
				return err
			}
			printResult(out, res)
			return importlog.Append(e.root, []importlog.Entry{logEntry(pv.Import.AccountID, pv.Import.FileName, string(pv.Import.Format), res)})
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "target account id (default: link by OFX ACCTID)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "prepare and preview without committing")

	return cmd
}

func newCommitCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "commit <import-id>",
		Short: "Commit a prepared import to the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ctx, err := openEnv(cmd, *configPath)
			if err != nil {
				return err
			}
			defer e.Close()

			svc := e.service()
			pv, err := svc.Preview(ctx, args[0])
			if err != nil {
				return err
			}
			res, err := svc.Commit(ctx, args[0])
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return importlog.Append(e.root, []importlog.Entry{logEntry(pv.Import.AccountID, pv.Import.FileName, string(pv.Import.Format), res)})
		},
	}
}

func newRowsCommand(configPath *string) *cobra.Command {
	var unmatched bool

	cmd := &cobra.Command{
		Use:   "rows <import-id>",
		Short: "Export an import's rows as CSV for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ctx, err := openEnv(cmd, *configPath)
			if err != nil {
				return err
			}
			defer e.Close()

			pv, err := e.service().Preview(ctx, args[0])
			if err != nil {
				return err
			}
			rows := pv.Rows
			if unmatched {
				rows = review.Unmatched(rows)
			}
			return review.WriteRows(cmd.OutOrStdout(), rows)
		},
	}

	cmd.Flags().BoolVar(&unmatched, "unmatched", false, "only rows a commit would create entries for")

	return cmd
}

func newRematchCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rematch <import-id>",
		Short: "Recompute duplicate matches of a prepared import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ctx, err := openEnv(cmd, *configPath)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := e.service().Rematch(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows matched\n", n)
			return nil
		},
	}
}

func newHistoryCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show committed imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(filepath.Dir(*configPath))
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			entries, err := importlog.Read(root)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, le := range entries {
				fmt.Fprintf(out, "%s  %s  %-4s %s -> %s  rows=%d matched=%d created=%d anchor=%s\n",
					le.Timestamp.Format(time.RFC3339), le.ImportID, le.Format, le.FileName, le.AccountID,
					le.Rows, le.Matched, le.Created, le.AnchorAction)
			}
			return nil
		},
	}
}

func printPreview(w io.Writer, pv *importer.Preview) {
	imp := pv.Import
	fmt.Fprintf(w, "Import %s (%s, %s) -> account %s\n", imp.ID, imp.Format, imp.FileName, imp.AccountID)
	if imp.BankName != "" {
		fmt.Fprintf(w, "  bank: %s\n", imp.BankName)
	}
	fmt.Fprintf(w, "  rows: %d  matched: %d  dropped: %d\n", len(pv.Rows), pv.Matched, pv.Dropped)
	fmt.Fprintf(w, "  anchor: %s\n", describeAnchor(pv.Anchor))
}

func printResult(w io.Writer, res *importer.CommitResult) {
	fmt.Fprintf(w, "Committed %s: %d entries created, %d duplicates skipped\n", res.ImportID, res.Created, res.Matched)
}

func describeAnchor(d anchor.Decision) string {
	switch d.Action {
	case anchor.ActionSet:
		return fmt.Sprintf("set to %s balance %s", d.Date, d.Balance.String())
	case anchor.ActionMove:
		return fmt.Sprintf("move to %s", d.Date)
	}
	return "unchanged"
}

func logEntry(accountID, fileName, format string, res *importer.CommitResult) importlog.Entry {
	return importlog.Entry{
		Timestamp:    time.Now(),
		ImportID:     res.ImportID,
		AccountID:    accountID,
		FileName:     fileName,
		Format:       format,
		Rows:         res.Rows,
		Matched:      res.Matched,
		Created:      res.Created,
		AnchorAction: string(res.Anchor.Action),
	}
}
