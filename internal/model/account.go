package model

import "github.com/shopspring/decimal"

// SignConvention describes how an account's ledger stores amounts relative
// to the bank's sign (bank files always use negative = money out).
type SignConvention string

const (
	// SignInflowPositive stores amounts as the bank reports them.
	SignInflowPositive SignConvention = "inflow-positive"
	// SignInflowNegative stores inflows as negative amounts and outflows as positive.
	SignInflowNegative SignConvention = "inflow-negative"
)

// Apply converts a bank-signed amount to the ledger's convention.
func (s SignConvention) Apply(amount decimal.Decimal) decimal.Decimal {
	if s == SignInflowNegative {
		return amount.Neg()
	}
	return amount
}

// Valid reports whether s is a known convention.
func (s SignConvention) Valid() bool {
	return s == SignInflowPositive || s == SignInflowNegative
}

// Account is a ledger account that imports land in.
type Account struct {
	ID         string
	Name       string
	ExternalID string // OFX ACCTID used for automatic linking
	Currency   string
	Sign       SignConvention
}
