package model

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// EntryKind distinguishes real movements from synthetic ledger markers.
type EntryKind string

const (
	EntryKindTransaction   EntryKind = "transaction"
	EntryKindOpeningAnchor EntryKind = "opening_anchor"
)

// LedgerEntry is a row in an account's ledger.
type LedgerEntry struct {
	ID         string
	AccountID  string
	Kind       EntryKind
	Date       civil.Date
	Amount     decimal.Decimal // in the account's sign convention
	Currency   string
	Name       string
	Notes      string
	ExternalID string
	ImportID   string
	CategoryID string
	TagIDs     []string
}

// Anchor is an account's opening balance marker. History before Date is
// not tracked.
type Anchor struct {
	ID        string
	AccountID string
	Date      civil.Date
	Balance   decimal.Decimal
}
