package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Ledger = LedgerConfig{Driver: "mysql", DSN: "user:pw@tcp(localhost:3306)/ledger"}
	cfg.BankAccounts = []BankAccount{
		{Name: "Chase Checking", AccountID: "checking", ExternalID: "000123456789", Currency: "USD", Sign: "inflow-positive"},
	}

	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Ledger, got.Ledger)
	assert.Equal(t, cfg.Import, got.Import)
	assert.Equal(t, cfg.Log.Level, got.Log.Level)
	require.Len(t, got.BankAccounts, 1)
	assert.Equal(t, "Chase Checking", got.BankAccounts[0].Name)
	assert.Equal(t, "checking", got.BankAccounts[0].AccountID)
	assert.Equal(t, "000123456789", got.BankAccounts[0].ExternalID)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "sqlite", cfg.Ledger.Driver)
	assert.Equal(t, "ledger.db", cfg.Ledger.DSN)
	assert.Equal(t, "USD", cfg.Import.DefaultCurrency)
	assert.Equal(t, "Imported item", cfg.Import.DefaultRowName)
	assert.Equal(t, "import", cfg.Import.Dir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.BankAccounts)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("import:\n  default_currency: EUR\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "EUR", cfg.Import.DefaultCurrency)
	assert.Equal(t, "Imported item", cfg.Import.DefaultRowName)
	assert.Equal(t, "sqlite", cfg.Ledger.Driver)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("ledger: [not a map"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing config")
}
