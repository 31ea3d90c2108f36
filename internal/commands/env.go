package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger-import/internal/accounts"
	"github.com/cleared-dev/ledger-import/internal/config"
	"github.com/cleared-dev/ledger-import/internal/importer"
	"github.com/cleared-dev/ledger-import/internal/logger"
	"github.com/cleared-dev/ledger-import/internal/store"
)

// env is the loaded project a command works on.
type env struct {
	root  string // directory holding the config file
	cfg   *config.Config
	store *store.Store
}

// openEnv loads the config, puts a logger on the command context, opens
// and migrates the store and syncs configured bank accounts into it.
func openEnv(cmd *cobra.Command, configPath string) (*env, context.Context, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.Load(absPath)
	if err != nil {
		return nil, nil, err
	}
	e := &env{root: filepath.Dir(absPath), cfg: cfg}

	ctx := logger.WithContext(cmd.Context(), logger.New(cfg.Log.Level))

	st, err := store.Open(cfg.Ledger.Driver, e.dsn())
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, nil, err
	}
	for _, a := range accounts.FromConfig(cfg.BankAccounts) {
		if err := st.UpsertAccount(ctx, a); err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("syncing account %s: %w", a.ID, err)
		}
	}
	e.store = st
	return e, ctx, nil
}

func (e *env) Close() error {
	return e.store.Close()
}

// dsn resolves a relative SQLite path against the project root.
func (e *env) dsn() string {
	return resolveDSN(e.root, e.cfg.Ledger.Driver, e.cfg.Ledger.DSN)
}

func resolveDSN(root, driver, dsn string) string {
	if driver != string(store.DialectSQLite) {
		return dsn
	}
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") || filepath.IsAbs(dsn) {
		return dsn
	}
	return filepath.Join(root, dsn)
}

func (e *env) importDir() string {
	if filepath.IsAbs(e.cfg.Import.Dir) {
		return e.cfg.Import.Dir
	}
	return filepath.Join(e.root, e.cfg.Import.Dir)
}

func (e *env) service() *importer.Service {
	return importer.NewService(e.store, importer.DefaultRegistry(), importer.Options{
		DefaultCurrency: e.cfg.Import.DefaultCurrency,
		DefaultRowName:  e.cfg.Import.DefaultRowName,
	})
}
