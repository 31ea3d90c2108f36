// Package review exports an import's rows as CSV for manual duplicate
// review.
package review

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cleared-dev/ledger-import/internal/model"
)

// Header is the CSV header of a review export.
const Header = "position,date,amount,currency,name,notes,category,tags,external_id,qty,ticker,price,matched,matched_entry_id"

const (
	numFields    = 14
	colPosition  = 0
	colDate      = 1
	colAmount    = 2
	colCurrency  = 3
	colName      = 4
	colNotes     = 5
	colCategory  = 6
	colTags      = 7
	colExternal  = 8
	colQty       = 9
	colTicker    = 10
	colPrice     = 11
	colMatched   = 12
	colMatchedID = 13
)

// WriteRows writes rows to w, header first.
func WriteRows(w io.Writer, rows []model.ImportRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range rows {
		if err := cw.Write(MarshalRow(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRow converts an ImportRow to a CSV record.
func MarshalRow(row model.ImportRow) []string {
	rec := make([]string, numFields)
	rec[colPosition] = strconv.Itoa(row.Position)
	rec[colDate] = row.Date.String()
	rec[colAmount] = row.Amount.String()
	rec[colCurrency] = row.Currency
	rec[colName] = row.Name
	rec[colNotes] = row.Notes
	rec[colCategory] = row.Category
	rec[colTags] = row.JoinedTags()
	rec[colExternal] = row.ExternalID
	rec[colQty] = row.Qty
	rec[colTicker] = row.Ticker
	rec[colPrice] = row.Price
	rec[colMatched] = strconv.FormatBool(row.Matched())
	rec[colMatchedID] = row.MatchedEntryID
	return rec
}

// Unmatched returns the rows a commit would turn into ledger entries.
func Unmatched(rows []model.ImportRow) []model.ImportRow {
	var out []model.ImportRow
	for _, r := range rows {
		if !r.Matched() {
			out = append(out, r)
		}
	}
	return out
}
