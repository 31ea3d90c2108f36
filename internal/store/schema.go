package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateKeyName is ER_DUP_KEYNAME, raised when an index exists.
const mysqlDuplicateKeyName = 1061

// tables returns the CREATE TABLE statements; sourceType holds whole files.
func tables(sourceType string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			external_id VARCHAR(128) NOT NULL DEFAULT '',
			currency VARCHAR(8) NOT NULL DEFAULT '',
			sign VARCHAR(32) NOT NULL DEFAULT 'inflow-positive'
		)`,
		`CREATE TABLE IF NOT EXISTS imports (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			account_id VARCHAR(64) NOT NULL,
			format VARCHAR(8) NOT NULL,
			file_name VARCHAR(255) NOT NULL DEFAULT '',
			source `+sourceType+` NOT NULL,
			currency VARCHAR(8) NOT NULL DEFAULT '',
			external_account_id VARCHAR(128) NOT NULL DEFAULT '',
			bank_name VARCHAR(255) NOT NULL DEFAULT '',
			status VARCHAR(16) NOT NULL,
			created_at VARCHAR(40) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS import_rows (
			import_id VARCHAR(64) NOT NULL,
			pos INTEGER NOT NULL,
			posted_on VARCHAR(10) NOT NULL,
			amount VARCHAR(64) NOT NULL,
			currency VARCHAR(8) NOT NULL DEFAULT '',
			name VARCHAR(512) NOT NULL DEFAULT '',
			notes VARCHAR(2048) NOT NULL DEFAULT '',
			category VARCHAR(255) NOT NULL DEFAULT '',
			tags VARCHAR(1024) NOT NULL DEFAULT '',
			external_id VARCHAR(255) NOT NULL DEFAULT '',
			qty VARCHAR(64) NOT NULL DEFAULT '',
			ticker VARCHAR(32) NOT NULL DEFAULT '',
			price VARCHAR(64) NOT NULL DEFAULT '',
			matched_entry_id VARCHAR(64) NULL,
			PRIMARY KEY (import_id, pos)
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			account_id VARCHAR(64) NOT NULL,
			kind VARCHAR(32) NOT NULL,
			posted_on VARCHAR(10) NOT NULL,
			amount VARCHAR(64) NOT NULL,
			currency VARCHAR(8) NOT NULL DEFAULT '',
			name VARCHAR(512) NOT NULL DEFAULT '',
			notes VARCHAR(2048) NOT NULL DEFAULT '',
			external_id VARCHAR(255) NOT NULL DEFAULT '',
			import_id VARCHAR(64) NOT NULL DEFAULT '',
			category_id VARCHAR(64) NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS entry_tags (
			entry_id VARCHAR(64) NOT NULL,
			tag_id VARCHAR(64) NOT NULL,
			PRIMARY KEY (entry_id, tag_id)
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			description VARCHAR(1024) NOT NULL DEFAULT '',
			income INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			description VARCHAR(1024) NOT NULL DEFAULT ''
		)`,
	}
}

var indexes = []struct{ name, table, columns string }{
	{"idx_entries_account_date", "entries", "account_id, posted_on"},
	{"idx_entries_account_external", "entries", "account_id, external_id"},
	{"idx_imports_account", "imports", "account_id"},
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	sourceType := "TEXT"
	if s.dialect == DialectMySQL {
		sourceType = "LONGTEXT"
	}
	for _, stmt := range tables(sourceType) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}

	for _, ix := range indexes {
		if err := s.createIndex(ctx, ix.name, ix.table, ix.columns); err != nil {
			return fmt.Errorf("creating index %s: %w", ix.name, err)
		}
	}
	return nil
}

func (s *Store) createIndex(ctx context.Context, name, table, columns string) error {
	if s.dialect == DialectMySQL {
		// MySQL has no CREATE INDEX IF NOT EXISTS.
		_, err := s.db.ExecContext(ctx, fmt.Sprintf("CREATE INDEX %s ON %s (%s)", name, table, columns))
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateKeyName {
			return nil
		}
		return err
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", name, table, columns))
	return err
}
