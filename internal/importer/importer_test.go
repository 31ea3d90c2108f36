package importer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger-import/internal/model"
)

var testOpts = Options{DefaultCurrency: "CAD", DefaultRowName: "Imported item"}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("csv"))
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&QIFParser{})
	p := r.Get("qif")
	require.NotNil(t, p)
	assert.Equal(t, model.FormatQIF, p.Format())
}

func TestRegistry_CaseAndExtension(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("QIF"))
	assert.NotNil(t, r.Get(".ofx"))
	p := r.Get("qfx")
	require.NotNil(t, p)
	assert.Equal(t, model.FormatOFX, p.Format())
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&OFXParser{})
	assert.Panics(t, func() { r.Register(&OFXParser{}) })
}

func TestDetect(t *testing.T) {
	r := DefaultRegistry()

	p, err := r.Detect(readTestdata(t, "checking.ofx"))
	require.NoError(t, err)
	assert.Equal(t, model.FormatOFX, p.Format())

	p, err = r.Detect(readTestdata(t, "checking.qif"))
	require.NoError(t, err)
	assert.Equal(t, model.FormatQIF, p.Format())

	_, err = r.Detect([]byte("Date,Amount\n2024-01-01,1.00\n"))
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)

	_, err = r.Detect([]byte{0xff, 0xfe, 0x00})
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)
}

func TestQIFParser_Parse(t *testing.T) {
	p := &QIFParser{}
	parsed := p.Parse(p.Normalize(readTestdata(t, "checking.qif")), testOpts)

	require.Len(t, parsed.Transactions, 2)
	assert.Equal(t, 1, parsed.Dropped)
	assert.Equal(t, "CAD", parsed.Currency)
	assert.Len(t, parsed.Categories, 2)
	assert.Len(t, parsed.Tags, 1)
	require.NotNil(t, parsed.OpeningBalance)
	assert.Equal(t, date(2024, 1, 1), parsed.OpeningBalance.Date)
	assert.True(t, dec("1000.00").Equal(parsed.OpeningBalance.Amount))
}

func TestOFXParser_Parse(t *testing.T) {
	p := &OFXParser{}
	parsed := p.Parse(p.Normalize(readTestdata(t, "checking.ofx")), testOpts)

	require.Len(t, parsed.Transactions, 2)
	assert.Equal(t, 1, parsed.Dropped)
	assert.Equal(t, "USD", parsed.Currency)
	assert.Equal(t, "000123456789", parsed.AccountID)
	assert.Equal(t, "First Test Bank", parsed.BankName)
	assert.Nil(t, parsed.OpeningBalance)
	assert.Equal(t, "Payroll", parsed.Transactions[1].Name)
}

func TestMaterialize(t *testing.T) {
	txns := []model.ParsedTransaction{
		{Date: date(2024, 1, 5), Amount: dec("-28.50"), Name: "Cafe", Memo: "Coffee", Category: "Food", Tags: []string{"a", "b"}},
		{Date: date(2024, 1, 6), Amount: dec("10"), ExternalID: "X1", Currency: "USD"},
	}

	rows := Materialize("imp-1", txns, testOpts)
	require.Len(t, rows, 2)

	assert.Equal(t, "imp-1", rows[0].ImportID)
	assert.Equal(t, 0, rows[0].Position)
	assert.Equal(t, "Cafe", rows[0].Name)
	assert.Equal(t, "Coffee", rows[0].Notes)
	assert.Equal(t, "CAD", rows[0].Currency)
	assert.Equal(t, "a|b", rows[0].JoinedTags())
	assert.Empty(t, rows[0].Qty)
	assert.Empty(t, rows[0].Ticker)
	assert.Empty(t, rows[0].Price)
	assert.False(t, rows[0].Matched())

	assert.Equal(t, 1, rows[1].Position)
	assert.Equal(t, "Imported item", rows[1].Name)
	assert.Equal(t, "USD", rows[1].Currency)
	assert.Equal(t, "X1", rows[1].ExternalID)

	txns[0].Tags[0] = "changed"
	assert.Equal(t, "a", rows[0].Tags[0], "rows do not alias parsed tags")
}

func TestMaterialize_Idempotent(t *testing.T) {
	p := &QIFParser{}
	text := p.Normalize(readTestdata(t, "checking.qif"))

	first := Materialize("imp-1", p.Parse(text, testOpts).Transactions, testOpts)
	second := Materialize("imp-1", p.Parse(text, testOpts).Transactions, testOpts)
	assert.Equal(t, first, second)
}

func TestScan_FindsBankExports(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.qif", "b.OFX", "c.qfx", "notes.txt", "export.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644))
	}

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "a.qif", files[0].Name)
	assert.Equal(t, "b.OFX", files[1].Name)
	assert.Equal(t, "c.qfx", files[2].Name)
	assert.Equal(t, int64(4), files[0].Size)
	assert.Equal(t, filepath.Join(dir, "a.qif"), files[0].Path)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, processedDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.qif"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, processedDir, "old.qif"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "new.qif", files[0].Name)
}

func TestScan_MissingDir(t *testing.T) {
	files, err := Scan(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank.ofx"), []byte("data"), 0o644))

	require.NoError(t, MarkProcessed(dir, "bank.ofx"))

	_, err := os.Stat(filepath.Join(dir, "bank.ofx"))
	assert.True(t, os.IsNotExist(err))

	info, err := os.Stat(filepath.Join(dir, processedDir, "bank.ofx"))
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestMarkProcessed_MissingFile(t *testing.T) {
	err := MarkProcessed(t.TempDir(), "ghost.qif")
	assert.ErrorContains(t, err, "moving ghost.qif")
}
