package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = "ledger-import.yaml"

// Config represents the top-level ledger-import.yaml configuration.
type Config struct {
	Ledger       LedgerConfig  `yaml:"ledger"`
	Import       ImportConfig  `yaml:"import"`
	Log          LogConfig     `yaml:"log"`
	BankAccounts []BankAccount `yaml:"bank_accounts,omitempty"`
}

// LedgerConfig selects the SQL store.
type LedgerConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "mysql"
	DSN    string `yaml:"dsn"`
}

// ImportConfig holds parse defaults and the watched import directory.
type ImportConfig struct {
	DefaultCurrency string `yaml:"default_currency"`
	DefaultRowName  string `yaml:"default_row_name"`
	Dir             string `yaml:"dir"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// BankAccount maps a bank feed to a ledger account.
type BankAccount struct {
	Name       string `yaml:"name"`
	AccountID  string `yaml:"account_id"`
	ExternalID string `yaml:"external_id,omitempty"` // OFX ACCTID
	Currency   string `yaml:"currency,omitempty"`
	Sign       string `yaml:"sign,omitempty"` // inflow-positive | inflow-negative
}

// Load reads a ledger-import.yaml file from disk. Missing fields take
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Driver: "sqlite",
			DSN:    "ledger.db",
		},
		Import: ImportConfig{
			DefaultCurrency: "USD",
			DefaultRowName:  "Imported item",
			Dir:             "import",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
