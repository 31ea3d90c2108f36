package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cleared-dev/ledger-import/internal/model"
)

const importColumns = "id, account_id, format, file_name, source, currency, external_account_id, bank_name, status, created_at"

// CreateImport inserts imp.
func (r repo) CreateImport(ctx context.Context, imp *model.Import) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO imports (`+importColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		imp.ID, imp.AccountID, string(imp.Format), imp.FileName, imp.Source, imp.Currency,
		imp.ExternalAccountID, imp.BankName, string(imp.Status), imp.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting import %s: %w", imp.ID, err)
	}
	return nil
}

// GetImport returns the import with id, or ErrNotFound.
func (r repo) GetImport(ctx context.Context, id string) (*model.Import, error) {
	var imp model.Import
	var format, status, created string
	err := r.q.QueryRowContext(ctx, `SELECT `+importColumns+` FROM imports WHERE id = ?`, id).Scan(
		&imp.ID, &imp.AccountID, &format, &imp.FileName, &imp.Source, &imp.Currency,
		&imp.ExternalAccountID, &imp.BankName, &status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("import %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading import %s: %w", id, err)
	}
	imp.Format = model.ImportFormat(format)
	imp.Status = model.ImportStatus(status)
	imp.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	return &imp, nil
}

// SetImportStatus updates the lifecycle state of an import.
func (r repo) SetImportStatus(ctx context.Context, id string, status model.ImportStatus) error {
	if _, err := r.q.ExecContext(ctx, `UPDATE imports SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return fmt.Errorf("updating import %s status: %w", id, err)
	}
	return nil
}
