// Package anchor decides where an account's opening balance marker sits
// after an import.
package anchor

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger-import/internal/model"
)

// Action is what an import does to the account's anchor.
type Action string

const (
	// ActionNone leaves the anchor as it is (or absent).
	ActionNone Action = "none"
	// ActionSet overwrites date and balance with the file's opening balance.
	ActionSet Action = "set"
	// ActionMove moves the anchor date back, keeping its balance.
	ActionMove Action = "move"
)

// Decision is the resolved anchor change for one import.
type Decision struct {
	Action  Action
	Date    civil.Date
	Balance decimal.Decimal
}

// WillAdjust reports whether committing the import changes the anchor.
func (d Decision) WillAdjust() bool {
	return d.Action != ActionNone
}

// AdjustedDate returns the anchor date after commit, if it changes.
func (d Decision) AdjustedDate() (civil.Date, bool) {
	if !d.WillAdjust() {
		return civil.Date{}, false
	}
	return d.Date, true
}

// Resolve applies the anchor rules:
//
//   - a declared opening balance always sets date and balance;
//   - with no declaration and no anchor nothing happens;
//   - with an anchor on or before the earliest row nothing happens;
//   - otherwise the anchor moves to the day before the earliest row and
//     keeps its balance.
//
// Resolve has no side effects, so it serves both preview and commit.
func Resolve(declared *model.OpeningBalance, current *model.Anchor, rows []model.ImportRow) Decision {
	if declared != nil {
		return Decision{Action: ActionSet, Date: declared.Date, Balance: declared.Amount}
	}
	if current == nil {
		return Decision{Action: ActionNone}
	}
	earliest, ok := EarliestDate(rows)
	if !ok || !earliest.Before(current.Date) {
		return Decision{Action: ActionNone}
	}
	return Decision{Action: ActionMove, Date: earliest.AddDays(-1), Balance: current.Balance}
}

// EarliestDate returns the smallest valid row date.
func EarliestDate(rows []model.ImportRow) (civil.Date, bool) {
	var earliest civil.Date
	found := false
	for _, r := range rows {
		if !r.Date.IsValid() {
			continue
		}
		if !found || r.Date.Before(earliest) {
			earliest = r.Date
			found = true
		}
	}
	return earliest, found
}

// Writer persists anchor changes.
type Writer interface {
	SetAnchor(ctx context.Context, accountID string, date civil.Date, balance decimal.Decimal) error
	MoveAnchor(ctx context.Context, accountID string, date civil.Date) error
}

// Apply carries out d on accountID through w.
func Apply(ctx context.Context, w Writer, accountID string, d Decision) error {
	switch d.Action {
	case ActionSet:
		return w.SetAnchor(ctx, accountID, d.Date, d.Balance)
	case ActionMove:
		return w.MoveAnchor(ctx, accountID, d.Date)
	}
	return nil
}
