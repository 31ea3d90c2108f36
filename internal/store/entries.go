package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger-import/internal/model"
)

const (
	entryColumns      = "id, account_id, kind, posted_on, amount, currency, name, notes, external_id, import_id, category_id"
	anchorDefaultName = "Opening balance"
)

// CreateEntry inserts e and its tag links. An empty ID is assigned.
func (r repo) CreateEntry(ctx context.Context, e *model.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Kind == "" {
		e.Kind = model.EntryKindTransaction
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AccountID, string(e.Kind), e.Date.String(), e.Amount.String(), e.Currency,
		e.Name, e.Notes, e.ExternalID, e.ImportID, e.CategoryID)
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	for _, tagID := range e.TagIDs {
		if _, err := r.q.ExecContext(ctx, `INSERT INTO entry_tags (entry_id, tag_id) VALUES (?, ?)`, e.ID, tagID); err != nil {
			return fmt.Errorf("tagging entry %s: %w", e.ID, err)
		}
	}
	return nil
}

// Entries returns the account's transaction entries, oldest first. Tag
// links are not loaded.
func (r repo) Entries(ctx context.Context, accountID string) ([]model.LedgerEntry, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE account_id = ? AND kind = ? ORDER BY posted_on, id`,
		accountID, string(model.EntryKindTransaction))
	if err != nil {
		return nil, fmt.Errorf("listing entries of %s: %w", accountID, err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EntryTagIDs returns the tag IDs linked to an entry.
func (r repo) EntryTagIDs(ctx context.Context, entryID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT tag_id FROM entry_tags WHERE entry_id = ? ORDER BY tag_id`, entryID)
	if err != nil {
		return nil, fmt.Errorf("listing tags of entry %s: %w", entryID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning tag id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Anchor returns the account's opening anchor, or nil if it has none.
func (r repo) Anchor(ctx context.Context, accountID string) (*model.Anchor, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE account_id = ? AND kind = ? ORDER BY posted_on LIMIT 1`,
		accountID, string(model.EntryKindOpeningAnchor))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading anchor of %s: %w", accountID, err)
	}
	return &model.Anchor{ID: e.ID, AccountID: e.AccountID, Date: e.Date, Balance: e.Amount}, nil
}

// SetAnchor sets the account's anchor date and balance, creating the
// anchor if the account has none.
func (r repo) SetAnchor(ctx context.Context, accountID string, date civil.Date, balance decimal.Decimal) error {
	current, err := r.Anchor(ctx, accountID)
	if err != nil {
		return err
	}
	if current != nil {
		_, err := r.q.ExecContext(ctx, `UPDATE entries SET posted_on = ?, amount = ? WHERE id = ?`,
			date.String(), balance.String(), current.ID)
		if err != nil {
			return fmt.Errorf("updating anchor of %s: %w", accountID, err)
		}
		return nil
	}

	acct, err := r.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	return r.CreateEntry(ctx, &model.LedgerEntry{
		AccountID: accountID,
		Kind:      model.EntryKindOpeningAnchor,
		Date:      date,
		Amount:    balance,
		Currency:  acct.Currency,
		Name:      anchorDefaultName,
	})
}

// MoveAnchor changes only the anchor's date. The account must have an
// anchor.
func (r repo) MoveAnchor(ctx context.Context, accountID string, date civil.Date) error {
	current, err := r.Anchor(ctx, accountID)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("anchor of %s: %w", accountID, ErrNotFound)
	}
	if _, err := r.q.ExecContext(ctx, `UPDATE entries SET posted_on = ? WHERE id = ?`, date.String(), current.ID); err != nil {
		return fmt.Errorf("moving anchor of %s: %w", accountID, err)
	}
	return nil
}

func scanEntry(s scanner) (model.LedgerEntry, error) {
	var e model.LedgerEntry
	var kind, date, amount string
	if err := s.Scan(&e.ID, &e.AccountID, &kind, &date, &amount, &e.Currency,
		&e.Name, &e.Notes, &e.ExternalID, &e.ImportID, &e.CategoryID); err != nil {
		return model.LedgerEntry{}, err
	}
	e.Kind = model.EntryKind(kind)
	var err error
	if e.Date, err = civil.ParseDate(date); err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing entry date %q: %w", date, err)
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing entry amount %q: %w", amount, err)
	}
	return e, nil
}
