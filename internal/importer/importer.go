package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/ledger-import/internal/model"
	"github.com/cleared-dev/ledger-import/internal/ofx"
	"github.com/cleared-dev/ledger-import/internal/qif"
	"github.com/cleared-dev/ledger-import/internal/textenc"
)

// ErrUnrecognizedFormat is returned for uploads no parser accepts.
var ErrUnrecognizedFormat = errors.New("unrecognized file format")

// Options are the caller-supplied fallbacks threaded through parsing and
// materialization.
type Options struct {
	DefaultCurrency string
	DefaultRowName  string
}

// Parsed is a parser's output for one file.
type Parsed struct {
	Transactions   []model.ParsedTransaction
	Categories     []model.ParsedCategory
	Tags           []model.ParsedTag
	OpeningBalance *model.OpeningBalance
	Currency       string
	AccountID      string
	BankName       string
	Dropped        int
}

// Parser turns a bank export into parsed records.
type Parser interface {
	Format() model.ImportFormat
	// Valid reports whether raw looks like this format. It must not fail
	// on malformed encodings.
	Valid(raw []byte) bool
	// Normalize converts raw to UTF-8 text.
	Normalize(raw []byte) string
	Parse(text string, opts Options) *Parsed
}

// Registry holds parsers in detection order.
type Registry struct {
	parsers map[model.ImportFormat]Parser
	order   []Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[model.ImportFormat]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := p.Format()
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + string(key))
	}
	r.parsers[key] = p
	r.order = append(r.order, p)
}

// Get returns the parser for format, or nil. "qfx" is an alias of "ofx".
func (r *Registry) Get(format string) Parser {
	f := strings.ToLower(strings.TrimPrefix(format, "."))
	if f == "qfx" {
		f = string(model.FormatOFX)
	}
	return r.parsers[model.ImportFormat(f)]
}

// Detect returns the first registered parser that accepts raw.
func (r *Registry) Detect(raw []byte) (Parser, error) {
	for _, p := range r.order {
		if p.Valid(raw) {
			return p, nil
		}
	}
	return nil, ErrUnrecognizedFormat
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&OFXParser{})
	r.Register(&QIFParser{})
	return r
}

// QIFParser adapts package qif.
type QIFParser struct{}

// Format returns the parser name.
func (p *QIFParser) Format() model.ImportFormat { return model.FormatQIF }

// Valid checks for a !Type: header on the raw bytes.
func (p *QIFParser) Valid(raw []byte) bool { return qif.IsValid(string(raw)) }

// Normalize decodes as UTF-8 or Windows-1252.
func (p *QIFParser) Normalize(raw []byte) string { return textenc.NormalizeLegacy(raw) }

// Parse extracts transactions, categories, tags and the opening balance.
func (p *QIFParser) Parse(text string, opts Options) *Parsed {
	f := qif.ParseFile(text, opts.DefaultCurrency)
	return &Parsed{
		Transactions:   f.Transactions,
		Categories:     f.Categories,
		Tags:           f.Tags,
		OpeningBalance: f.OpeningBalance,
		Currency:       opts.DefaultCurrency,
		Dropped:        f.Dropped,
	}
}

// OFXParser adapts package ofx. It also reads QFX.
type OFXParser struct{}

// Format returns the parser name.
func (p *OFXParser) Format() model.ImportFormat { return model.FormatOFX }

// Valid checks for an <OFX> element and a STMTTRN block.
func (p *OFXParser) Valid(raw []byte) bool { return ofx.IsValid(textenc.Normalize(raw)) }

// Normalize decodes using the header's CHARSET.
func (p *OFXParser) Normalize(raw []byte) string { return textenc.Normalize(raw) }

// Parse extracts transactions and statement metadata.
func (p *OFXParser) Parse(text string, _ Options) *Parsed {
	st := ofx.ParseStatement(text)
	return &Parsed{
		Transactions: st.Transactions,
		Currency:     st.Currency,
		AccountID:    st.AccountID,
		BankName:     st.BankName,
		Dropped:      st.Dropped,
	}
}

// importExtensions are the file types Scan picks up.
var importExtensions = map[string]bool{".qif": true, ".ofx": true, ".qfx": true}

// FileInfo describes a bank export in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// processedDir is the subdirectory committed files are moved to.
const processedDir = "processed"

// Scan returns the bank exports directly inside dir.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !importExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from dir to dir/processed.
func MarkProcessed(dir, fileName string) error {
	src := filepath.Join(dir, fileName)
	dstDir := filepath.Join(dir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
