package qif

import "strings"

// field is one "<code><value>" line of a QIF record.
type field struct {
	code  byte
	value string
}

// record is the raw field list between two "^" terminators.
type record []field

// lookup returns the value of the last occurrence of code.
func (r record) lookup(code byte) (string, bool) {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i].code == code {
			return r[i].value, true
		}
	}
	return "", false
}

func (r record) get(code byte) string {
	v, _ := r.lookup(code)
	return v
}

func (r record) has(code byte) bool {
	_, ok := r.lookup(code)
	return ok
}

// transactionRecord is a record from an account section (Bank, CCard, Cash...).
type transactionRecord struct {
	date      string
	amount    string
	hasAmount bool
	payee     string
	memo      string
	category  string
	number    string
}

func newTransactionRecord(r record) transactionRecord {
	amount, ok := r.lookup('T')
	if !ok {
		amount, ok = r.lookup('U')
	}
	return transactionRecord{
		date:      r.get('D'),
		amount:    amount,
		hasAmount: ok,
		payee:     r.get('P'),
		memo:      r.get('M'),
		category:  r.get('L'),
		number:    r.get('N'),
	}
}

// isOpeningBalance reports whether the record is Quicken's synthetic
// starting-balance record rather than a real movement.
func (t transactionRecord) isOpeningBalance() bool {
	return t.payee == openingBalancePayee
}

// categoryRecord is a record from a !Type:Cat section.
type categoryRecord struct {
	name        string
	description string
	income      bool
	expense     bool
}

func newCategoryRecord(r record) categoryRecord {
	return categoryRecord{
		name:        r.get('N'),
		description: r.get('D'),
		income:      r.has('I'),
		expense:     r.has('E'),
	}
}

// tagRecord is a record from a !Type:Tag section.
type tagRecord struct {
	name        string
	description string
}

func newTagRecord(r record) tagRecord {
	return tagRecord{name: r.get('N'), description: r.get('D')}
}

// splitRecords tokenizes a section body into records. Empty records are
// discarded and an unterminated trailing record is kept.
func splitRecords(section string) []record {
	var records []record
	var current record
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "^":
			if len(current) > 0 {
				records = append(records, current)
			}
			current = nil
		case line[0] == '!':
			// Option and account-list headers carry no record fields.
			continue
		default:
			current = append(current, field{code: line[0], value: strings.TrimSpace(line[1:])})
		}
	}
	if len(current) > 0 {
		records = append(records, current)
	}
	return records
}
