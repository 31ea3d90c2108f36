// Package qif parses Quicken Interchange Format exports.
//
// A QIF file is a sequence of sections, each introduced by a "!Type:<name>"
// header. Records inside a section are separated by a line holding only
// "^", and every record line is a one-letter field code followed directly
// by its value.
package qif

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger-import/internal/model"
)

const (
	typeHeader          = "!Type:"
	sectionCategories   = "Cat"
	sectionTags         = "Tag"
	openingBalancePayee = "Opening Balance"
)

var (
	// 6/ 4'20, 3/29'21, 12/31'2019
	apostropheDate = regexp.MustCompile(`^(\d{1,2})/\s?(\d{1,2})'(\d{2}|\d{4})$`)
	// 06/04/2020
	slashDate   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	amountShape = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// File is everything the parser extracts from one QIF export.
type File struct {
	AccountType    string
	Transactions   []model.ParsedTransaction
	OpeningBalance *model.OpeningBalance
	Categories     []model.ParsedCategory
	Tags           []model.ParsedTag
	Dropped        int // records skipped for an unparseable date or amount
}

// IsValid reports whether text looks like a QIF export.
func IsValid(text string) bool {
	return strings.Contains(text, typeHeader)
}

// AccountType returns the first section type that is not category or tag
// metadata.
func AccountType(text string) (string, bool) {
	for _, line := range lines(text) {
		name, ok := sectionName(line)
		if !ok || name == sectionCategories || name == sectionTags {
			continue
		}
		return name, true
	}
	return "", false
}

// Parse returns the transactions of the account section. The
// "Opening Balance" record is excluded; see ParseOpeningBalance.
// currency is assigned to every transaction since QIF carries none.
func Parse(text, currency string) []model.ParsedTransaction {
	txns, _ := parseTransactions(text, currency)
	return txns
}

// ParseOpeningBalance returns the account section's "Opening Balance"
// record, or nil when absent or unparseable.
func ParseOpeningBalance(text string) *model.OpeningBalance {
	accountType, ok := AccountType(text)
	if !ok {
		return nil
	}
	for _, r := range splitRecords(section(text, accountType)) {
		rec := newTransactionRecord(r)
		if !rec.isOpeningBalance() {
			continue
		}
		date, ok := ParseDate(rec.date)
		if !ok || !rec.hasAmount {
			return nil
		}
		amount, ok := ParseAmount(rec.amount)
		if !ok {
			return nil
		}
		return &model.OpeningBalance{Date: date, Amount: amount}
	}
	return nil
}

// ParseCategories returns the records of the Cat section.
func ParseCategories(text string) []model.ParsedCategory {
	var cats []model.ParsedCategory
	for _, r := range splitRecords(section(text, sectionCategories)) {
		rec := newCategoryRecord(r)
		if rec.name == "" {
			continue
		}
		cats = append(cats, model.ParsedCategory{
			Name:        rec.name,
			Description: rec.description,
			Income:      rec.income && !rec.expense,
		})
	}
	return cats
}

// ParseTags returns the records of the Tag section.
func ParseTags(text string) []model.ParsedTag {
	var tags []model.ParsedTag
	for _, r := range splitRecords(section(text, sectionTags)) {
		rec := newTagRecord(r)
		if rec.name == "" {
			continue
		}
		tags = append(tags, model.ParsedTag{Name: rec.name, Description: rec.description})
	}
	return tags
}

// ParseFile runs every extraction over text in one call.
func ParseFile(text, currency string) *File {
	text = normalizeNewlines(text)
	accountType, _ := AccountType(text)
	txns, dropped := parseTransactions(text, currency)
	return &File{
		AccountType:    accountType,
		Transactions:   txns,
		OpeningBalance: ParseOpeningBalance(text),
		Categories:     ParseCategories(text),
		Tags:           ParseTags(text),
		Dropped:        dropped,
	}
}

func parseTransactions(text, currency string) ([]model.ParsedTransaction, int) {
	accountType, ok := AccountType(text)
	if !ok {
		return nil, 0
	}
	var txns []model.ParsedTransaction
	dropped := 0
	for _, r := range splitRecords(section(text, accountType)) {
		rec := newTransactionRecord(r)
		if rec.isOpeningBalance() {
			continue
		}
		txn, ok := buildTransaction(rec, currency)
		if !ok {
			dropped++
			continue
		}
		txns = append(txns, txn)
	}
	return txns, dropped
}

func buildTransaction(rec transactionRecord, currency string) (model.ParsedTransaction, bool) {
	date, ok := ParseDate(rec.date)
	if !ok || !rec.hasAmount {
		return model.ParsedTransaction{}, false
	}
	amount, ok := ParseAmount(rec.amount)
	if !ok {
		return model.ParsedTransaction{}, false
	}
	category, tags := ParseCategoryField(rec.category)
	return model.ParsedTransaction{
		Date:     date,
		Amount:   amount,
		Name:     rec.payee,
		Memo:     rec.memo,
		Category: category,
		Tags:     tags,
		Currency: currency,
	}, true
}

// ParseDate decodes a QIF D field. Two-digit apostrophe years are 20YY.
func ParseDate(s string) (civil.Date, bool) {
	var m []string
	if m = apostropheDate.FindStringSubmatch(s); m == nil {
		if m = slashDate.FindStringSubmatch(s); m == nil {
			return civil.Date{}, false
		}
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	}
	d := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !d.IsValid() {
		return civil.Date{}, false
	}
	return d, true
}

// ParseAmount decodes a QIF T/U field, stripping thousands separators.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(s, ",", "")
	if !amountShape.MatchString(s) {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseCategoryField splits an L field into a category and tags.
// "[Account]" transfer references carry neither.
func ParseCategoryField(s string) (string, []string) {
	if s == "" || strings.HasPrefix(s, "[") {
		return "", nil
	}
	category, rest, hasTags := strings.Cut(s, "/")
	category = strings.TrimSpace(category)
	if !hasTags {
		return category, nil
	}
	var tags []string
	for _, t := range strings.Split(rest, ":") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return category, tags
}

// section returns the body of the first section named name: the lines
// after its header up to the next header or end of input.
func section(text, name string) string {
	ls := lines(text)
	for i, line := range ls {
		got, ok := sectionName(line)
		if !ok || got != name {
			continue
		}
		end := len(ls)
		for j := i + 1; j < len(ls); j++ {
			if strings.HasPrefix(ls[j], typeHeader) {
				end = j
				break
			}
		}
		return strings.Join(ls[i+1:end], "\n")
	}
	return ""
}

func sectionName(line string) (string, bool) {
	if !strings.HasPrefix(line, typeHeader) {
		return "", false
	}
	name := strings.TrimSpace(line[len(typeHeader):])
	return name, name != ""
}

func lines(text string) []string {
	return strings.Split(normalizeNewlines(text), "\n")
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
