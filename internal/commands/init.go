package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger-import/internal/config"
	"github.com/cleared-dev/ledger-import/internal/store"
)

func newInitCommand() *cobra.Command {
	var driver, dsn string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a ledger project",
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

			if err := runInit(cmd, absDir, driver, dsn); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized ledger at %s\n", absDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "sqlite", "ledger driver (sqlite or mysql)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "ledger DSN (default ledger.db for sqlite)")

	return cmd
}

func runInit(cmd *cobra.Command, dir, driver, dsn string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default()
	cfg.Ledger.Driver = driver
	if dsn != "" {
		cfg.Ledger.DSN = dsn
	} else if driver != string(store.DialectSQLite) {
		return fmt.Errorf("--dsn is required for driver %q", driver)
	}

	dirs := []string{
		"logs",
		cfg.Import.Dir,
		filepath.Join(cfg.Import.Dir, "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	st, err := store.Open(cfg.Ledger.Driver, resolveDSN(dir, cfg.Ledger.Driver, cfg.Ledger.DSN))
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
