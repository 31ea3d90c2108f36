package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger-import/internal/model"
)

const (
	rowColumns    = "import_id, pos, posted_on, amount, currency, name, notes, category, tags, external_id, qty, ticker, price, matched_entry_id"
	rowNumColumns = 14
	// rowBatchSize keeps a bulk insert under SQLite's bound-parameter limit.
	rowBatchSize = 500
)

// ReplaceRows deletes the import's rows and bulk-inserts rows in their place.
func (r repo) ReplaceRows(ctx context.Context, importID string, rows []model.ImportRow) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM import_rows WHERE import_id = ?`, importID); err != nil {
		return fmt.Errorf("clearing rows of import %s: %w", importID, err)
	}

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", rowNumColumns), ", ") + ")"
	for start := 0; start < len(rows); start += rowBatchSize {
		batch := rows[start:min(start+rowBatchSize, len(rows))]
		values := make([]string, len(batch))
		args := make([]any, 0, len(batch)*rowNumColumns)
		for i, row := range batch {
			values[i] = placeholder
			args = append(args,
				importID, row.Position, row.Date.String(), row.Amount.String(), row.Currency,
				row.Name, row.Notes, row.Category, row.JoinedTags(), row.ExternalID,
				row.Qty, row.Ticker, row.Price, nullable(row.MatchedEntryID))
		}
		query := `INSERT INTO import_rows (` + rowColumns + `) VALUES ` + strings.Join(values, ", ")
		if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting rows of import %s: %w", importID, err)
		}
	}
	return nil
}

// Rows returns the import's rows in file order.
func (r repo) Rows(ctx context.Context, importID string) ([]model.ImportRow, error) {
	rs, err := r.q.QueryContext(ctx, `SELECT `+rowColumns+` FROM import_rows WHERE import_id = ? ORDER BY pos`, importID)
	if err != nil {
		return nil, fmt.Errorf("listing rows of import %s: %w", importID, err)
	}
	defer rs.Close()

	var rows []model.ImportRow
	for rs.Next() {
		var row model.ImportRow
		var date, amount, tags string
		var matched sql.NullString
		if err := rs.Scan(&row.ImportID, &row.Position, &date, &amount, &row.Currency,
			&row.Name, &row.Notes, &row.Category, &tags, &row.ExternalID,
			&row.Qty, &row.Ticker, &row.Price, &matched); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if row.Date, err = civil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parsing row date %q: %w", date, err)
		}
		if row.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parsing row amount %q: %w", amount, err)
		}
		row.Tags = model.SplitTags(tags)
		row.MatchedEntryID = matched.String
		rows = append(rows, row)
	}
	return rows, rs.Err()
}

// SaveMatches writes each row's MatchedEntryID.
func (r repo) SaveMatches(ctx context.Context, importID string, rows []model.ImportRow) error {
	for _, row := range rows {
		_, err := r.q.ExecContext(ctx,
			`UPDATE import_rows SET matched_entry_id = ? WHERE import_id = ? AND pos = ?`,
			nullable(row.MatchedEntryID), importID, row.Position)
		if err != nil {
			return fmt.Errorf("saving match of row %d: %w", row.Position, err)
		}
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
