// Package ofx extracts transactions from OFX and QFX statements.
//
// Both the SGML dialect (unclosed leaf elements) and the XML dialect are
// read by the same field primitive: aggregates such as STMTTRN are closed
// in both, so transaction blocks are delimited reliably, and a leaf's value
// runs from its tag to the next tag or line break.
package ofx

import (
	"html"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger-import/internal/model"
)

const (
	// DefaultCurrency applies when a statement has no CURDEF.
	DefaultCurrency = "USD"
	// DefaultName labels a transaction with neither NAME nor MEMO.
	DefaultName = "Imported transaction"

	dateLayout = "20060102"
)

var amountShape = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)$`)

// Statement is everything the parser extracts from one OFX file.
type Statement struct {
	Currency     string
	AccountID    string
	BankName     string
	Transactions []model.ParsedTransaction
	Dropped      int // STMTTRN blocks missing a usable date or amount
}

// IsValid reports whether text has an <OFX> element and at least one
// complete STMTTRN block.
func IsValid(text string) bool {
	c := newCursor(normalizeNewlines(text))
	if _, _, ok := c.open("OFX"); !ok {
		return false
	}
	_, ok := nextBlock(c, "STMTTRN")
	return ok
}

// Parse returns the statement's transactions.
func Parse(text string) []model.ParsedTransaction {
	return ParseStatement(text).Transactions
}

// AccountID returns the ACCTID of the statement.
func AccountID(text string) (string, bool) {
	v := field(body(text), "ACCTID")
	return v, v != ""
}

// BankName returns ORG, falling back to BANKID. Display only.
func BankName(text string) (string, bool) {
	b := body(text)
	v := field(b, "ORG")
	if v == "" {
		v = field(b, "BANKID")
	}
	return v, v != ""
}

// Currency returns CURDEF, or DefaultCurrency.
func Currency(text string) string {
	if v := field(body(text), "CURDEF"); v != "" {
		return strings.ToUpper(v)
	}
	return DefaultCurrency
}

// ParseStatement runs every extraction over text in one call.
func ParseStatement(text string) *Statement {
	b := body(text)
	st := &Statement{Currency: Currency(text)}
	st.AccountID, _ = AccountID(text)
	st.BankName, _ = BankName(text)
	if b == "" {
		return st
	}

	c := newCursor(b)
	for {
		block, ok := nextBlock(c, "STMTTRN")
		if !ok {
			break
		}
		txn, ok := buildTransaction(block, st.Currency)
		if !ok {
			st.Dropped++
			continue
		}
		st.Transactions = append(st.Transactions, txn)
	}
	return st
}

func buildTransaction(block, currency string) (model.ParsedTransaction, bool) {
	date, ok := ParseDate(field(block, "DTPOSTED"))
	if !ok {
		return model.ParsedTransaction{}, false
	}
	amount, ok := ParseAmount(field(block, "TRNAMT"))
	if !ok {
		return model.ParsedTransaction{}, false
	}
	memo := field(block, "MEMO")
	name := field(block, "NAME")
	if name == "" {
		name = memo
	}
	if name == "" {
		name = DefaultName
	}
	return model.ParsedTransaction{
		Date:       date,
		Amount:     amount,
		Name:       name,
		Memo:       memo,
		ExternalID: field(block, "FITID"),
		Currency:   currency,
	}, true
}

// ParseDate decodes YYYYMMDD[HHMMSS[.fff[-offset:TZ]]]; only the date part
// is significant.
func ParseDate(s string) (civil.Date, bool) {
	if len(s) < len(dateLayout) {
		return civil.Date{}, false
	}
	t, err := time.Parse(dateLayout, s[:len(dateLayout)])
	if err != nil {
		return civil.Date{}, false
	}
	return civil.DateOf(t), true
}

// ParseAmount decodes a TRNAMT value. OFX allows a comma as the decimal
// separator and never uses thousands separators.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	if !amountShape.MatchString(s) {
		return decimal.Decimal{}, false
	}
	s = strings.TrimSuffix(s, ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	} else if strings.HasPrefix(s, "-.") {
		s = "-0" + s[1:]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// field returns the trimmed value of the first <name> element in text.
func field(text, name string) string {
	c := newCursor(text)
	_, end, ok := c.open(name)
	if !ok {
		return ""
	}
	return html.UnescapeString(c.value(end))
}

// nextBlock returns the content of the next <name>...</name> aggregate.
func nextBlock(c *cursor, name string) (string, bool) {
	_, start, ok := c.open(name)
	if !ok {
		return "", false
	}
	end, _, ok := c.close(name)
	if !ok {
		return "", false
	}
	return c.src[start:end], true
}

// body returns text from the first <OFX> tag on, skipping the SGML header.
func body(text string) string {
	text = normalizeNewlines(text)
	c := newCursor(text)
	start, _, ok := c.open("OFX")
	if !ok {
		return ""
	}
	return text[start:]
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
