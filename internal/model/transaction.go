package model

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ParsedTransaction is one movement extracted from a bank export.
type ParsedTransaction struct {
	Date       civil.Date
	Amount     decimal.Decimal // signed as in the source file
	Name       string          // payee (QIF) or NAME/MEMO (OFX); may be empty
	Memo       string
	Category   string   // empty for transfers and uncategorized movements
	Tags       []string // nil if none
	ExternalID string   // OFX FITID; empty for QIF
	Currency   string
}

// ParsedCategory is a record from a QIF !Type:Cat section.
type ParsedCategory struct {
	Name        string // may be a "Parent:Child" path
	Description string
	Income      bool
}

// ParsedTag is a record from a QIF !Type:Tag section.
type ParsedTag struct {
	Name        string
	Description string
}

// OpeningBalance is a file's declaration of an account's starting balance.
type OpeningBalance struct {
	Date   civil.Date
	Amount decimal.Decimal
}
