package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cleared-dev/ledger-import/internal/model"
)

const accountColumns = "id, name, external_id, currency, sign"

// UpsertAccount inserts an account or updates it by ID.
func (r repo) UpsertAccount(ctx context.Context, a model.Account) error {
	if a.Sign == "" {
		a.Sign = model.SignInflowPositive
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET name = ?, external_id = ?, currency = ?, sign = ? WHERE id = ?`,
		a.Name, a.ExternalID, a.Currency, string(a.Sign), a.ID)
	if err != nil {
		return fmt.Errorf("updating account %s: %w", a.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	if _, err := r.GetAccount(ctx, a.ID); err == nil {
		// MySQL reports zero affected rows when nothing changed.
		return nil
	}
	_, err = r.q.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.ExternalID, a.Currency, string(a.Sign))
	if err != nil {
		return fmt.Errorf("inserting account %s: %w", a.ID, err)
	}
	return nil
}

// GetAccount returns the account with id, or ErrNotFound.
func (r repo) GetAccount(ctx context.Context, id string) (model.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("reading account %s: %w", id, err)
	}
	return a, nil
}

// ListAccounts returns all accounts ordered by ID.
func (r repo) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accts = append(accts, a)
	}
	return accts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (model.Account, error) {
	var a model.Account
	var sign string
	if err := s.Scan(&a.ID, &a.Name, &a.ExternalID, &a.Currency, &sign); err != nil {
		return model.Account{}, err
	}
	a.Sign = model.SignConvention(sign)
	return a, nil
}
