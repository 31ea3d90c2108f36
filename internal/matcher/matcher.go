// Package matcher marks imported rows that duplicate existing ledger entries.
package matcher

import (
	"cloud.google.com/go/civil"

	"github.com/cleared-dev/ledger-import/internal/model"
)

// Index holds an account's existing entries keyed for matching.
type Index struct {
	account    model.Account
	byExternal map[string]model.LedgerEntry
	byDate     map[civil.Date][]model.LedgerEntry
}

// NewIndex indexes the transaction entries of account. Entries belonging to
// other accounts and anchor entries are ignored.
func NewIndex(account model.Account, entries []model.LedgerEntry) *Index {
	idx := &Index{
		account:    account,
		byExternal: make(map[string]model.LedgerEntry),
		byDate:     make(map[civil.Date][]model.LedgerEntry),
	}
	for _, e := range entries {
		if e.AccountID != account.ID || e.Kind == model.EntryKindOpeningAnchor {
			continue
		}
		if e.ExternalID != "" {
			if _, dup := idx.byExternal[e.ExternalID]; !dup {
				idx.byExternal[e.ExternalID] = e
			}
		}
		idx.byDate[e.Date] = append(idx.byDate[e.Date], e)
	}
	return idx
}

// Lookup returns the entry row duplicates. An external id match wins;
// otherwise the row matches an entry with the same date and the same
// amount after conversion to the account's sign convention.
func (idx *Index) Lookup(row model.ImportRow) (model.LedgerEntry, bool) {
	if row.ExternalID != "" {
		if e, ok := idx.byExternal[row.ExternalID]; ok {
			return e, true
		}
	}
	if !row.Date.IsValid() {
		return model.LedgerEntry{}, false
	}
	amount := idx.account.Sign.Apply(row.Amount)
	for _, e := range idx.byDate[row.Date] {
		if e.Amount.Equal(amount) {
			return e, true
		}
	}
	return model.LedgerEntry{}, false
}

// Match sets MatchedEntryID on every row from scratch and returns the
// number of matched rows. Only MatchedEntryID is modified.
func Match(rows []model.ImportRow, account model.Account, entries []model.LedgerEntry) int {
	idx := NewIndex(account, entries)
	matched := 0
	for i := range rows {
		rows[i].MatchedEntryID = ""
		if e, ok := idx.Lookup(rows[i]); ok {
			rows[i].MatchedEntryID = e.ID
			matched++
		}
	}
	return matched
}
