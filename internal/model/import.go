package model

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ImportFormat identifies the file format of an import.
type ImportFormat string

const (
	FormatQIF ImportFormat = "qif"
	FormatOFX ImportFormat = "ofx"
)

// ImportStatus is the lifecycle state of an import.
type ImportStatus string

const (
	ImportPending  ImportStatus = "pending"
	ImportComplete ImportStatus = "complete"
)

// Import is one uploaded file targeted at an account.
type Import struct {
	ID                string
	AccountID         string
	Format            ImportFormat
	FileName          string
	Source            string // UTF-8 normalized file contents
	Currency          string // statement currency (OFX CURDEF)
	ExternalAccountID string // OFX ACCTID
	BankName          string
	Status            ImportStatus
	CreatedAt         time.Time
}

// TagDelimiter joins tag labels in an ImportRow's stored form.
const TagDelimiter = "|"

// ImportRow is the materialized, persisted form of a parsed transaction.
// Rows are keyed by (ImportID, Position).
type ImportRow struct {
	ImportID   string
	Position   int
	Date       civil.Date
	Amount     decimal.Decimal
	Currency   string
	Name       string
	Notes      string
	Category   string
	Tags       []string
	ExternalID string

	// Investment columns shared with other import variants; always empty here.
	Qty    string
	Ticker string
	Price  string

	MatchedEntryID string // empty when the row is not a duplicate
}

// Matched reports whether the row duplicates an existing ledger entry.
func (r ImportRow) Matched() bool {
	return r.MatchedEntryID != ""
}

// JoinedTags returns the row's tags in stored form.
func (r ImportRow) JoinedTags() string {
	return strings.Join(r.Tags, TagDelimiter)
}

// SplitTags parses the stored form of a row's tags.
func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, TagDelimiter)
}
