package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/ledger-import/internal/accounts"
	"github.com/cleared-dev/ledger-import/internal/anchor"
	"github.com/cleared-dev/ledger-import/internal/logger"
	"github.com/cleared-dev/ledger-import/internal/matcher"
	"github.com/cleared-dev/ledger-import/internal/model"
	"github.com/cleared-dev/ledger-import/internal/store"
)

// ErrAlreadyCommitted is returned when an import's rows were already
// turned into ledger entries.
var ErrAlreadyCommitted = errors.New("import already committed")

// Upload is a bank export handed to the Service.
type Upload struct {
	FileName  string
	Data      []byte
	AccountID string // optional; linked by OFX ACCTID when empty
}

// Preview describes what committing an import would do.
type Preview struct {
	Import  *model.Import
	Rows    []model.ImportRow
	Matched int
	Dropped int
	Anchor  anchor.Decision
}

// CommitResult summarizes a committed import.
type CommitResult struct {
	ImportID string
	Rows     int
	Matched  int
	Created  int
	Anchor   anchor.Decision
}

// Service runs imports against the ledger store. Every public method is a
// single unit of work.
type Service struct {
	store    *store.Store
	registry *Registry
	opts     Options
	now      func() time.Time
}

// NewService creates a Service. A nil registry means DefaultRegistry.
func NewService(st *store.Store, reg *Registry, opts Options) *Service {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Service{store: st, registry: reg, opts: opts, now: time.Now}
}

// Prepare detects, parses and materializes an upload, runs the matcher for
// OFX and returns the preview. Nothing is written to the ledger.
func (s *Service) Prepare(ctx context.Context, up Upload) (*Preview, error) {
	var pv *Preview
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		imp, err := s.prepare(ctx, tx, up)
		if err != nil {
			return err
		}
		pv, err = s.preview(ctx, tx, imp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pv, nil
}

// Preview reports the rows, matches and anchor decision of an import
// without changing anything.
func (s *Service) Preview(ctx context.Context, importID string) (*Preview, error) {
	var pv *Preview
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		imp, err := tx.GetImport(ctx, importID)
		if err != nil {
			return err
		}
		pv, err = s.preview(ctx, tx, imp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pv, nil
}

// Rematerialize rebuilds the import's rows from its stored source text,
// replacing the previous row set, and re-runs matching.
func (s *Service) Rematerialize(ctx context.Context, importID string) ([]model.ImportRow, error) {
	var rows []model.ImportRow
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		imp, err := s.pending(ctx, tx, importID)
		if err != nil {
			return err
		}
		parsed, err := s.reparse(imp)
		if err != nil {
			return err
		}
		rows, err = s.materialize(ctx, tx, imp, parsed.Transactions)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Rematch recomputes the import's matches from scratch and returns how
// many rows matched.
func (s *Service) Rematch(ctx context.Context, importID string) (int, error) {
	var matched int
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		imp, err := s.pending(ctx, tx, importID)
		if err != nil {
			return err
		}
		rows, err := tx.Rows(ctx, importID)
		if err != nil {
			return err
		}
		matched, err = s.match(ctx, tx, imp, rows)
		return err
	})
	return matched, err
}

// Commit adjusts the account's anchor and creates ledger entries for every
// unmatched row. A failure leaves the ledger untouched.
func (s *Service) Commit(ctx context.Context, importID string) (*CommitResult, error) {
	var res *CommitResult
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		res, err = s.commit(ctx, tx, importID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Run prepares and commits an upload in one unit of work.
func (s *Service) Run(ctx context.Context, up Upload) (*CommitResult, error) {
	var res *CommitResult
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		imp, err := s.prepare(ctx, tx, up)
		if err != nil {
			return err
		}
		res, err = s.commit(ctx, tx, imp.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) prepare(ctx context.Context, tx *store.Tx, up Upload) (*model.Import, error) {
	log := logger.FromContext(ctx).With().Str("file", up.FileName).Logger()

	parser, err := s.registry.Detect(up.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", up.FileName, err)
	}
	text := parser.Normalize(up.Data)
	parsed := parser.Parse(text, s.opts)
	log.Debug().
		Str("format", string(parser.Format())).
		Int("transactions", len(parsed.Transactions)).
		Int("dropped", parsed.Dropped).
		Msg("parsed upload")

	accts, err := accounts.Load(ctx, tx)
	if err != nil {
		return nil, err
	}
	acct, err := accts.Resolve(up.AccountID, parsed.AccountID)
	if err != nil {
		return nil, err
	}

	imp := &model.Import{
		ID:                uuid.NewString(),
		AccountID:         acct.ID,
		Format:            parser.Format(),
		FileName:          up.FileName,
		Source:            text,
		Currency:          parsed.Currency,
		ExternalAccountID: parsed.AccountID,
		BankName:          parsed.BankName,
		Status:            model.ImportPending,
		CreatedAt:         s.now(),
	}
	if err := tx.CreateImport(ctx, imp); err != nil {
		return nil, err
	}
	if _, err := s.materialize(ctx, tx, imp, parsed.Transactions); err != nil {
		return nil, err
	}
	log.Debug().Str("import_id", imp.ID).Str("account", acct.ID).Msg("import prepared")
	return imp, nil
}

func (s *Service) materialize(ctx context.Context, tx *store.Tx, imp *model.Import, txns []model.ParsedTransaction) ([]model.ImportRow, error) {
	rows := Materialize(imp.ID, txns, s.opts)
	if err := tx.ReplaceRows(ctx, imp.ID, rows); err != nil {
		return nil, err
	}
	if _, err := s.match(ctx, tx, imp, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// match runs the matcher for OFX imports and persists the result. QIF rows
// are left unmatched.
func (s *Service) match(ctx context.Context, tx *store.Tx, imp *model.Import, rows []model.ImportRow) (int, error) {
	if imp.Format != model.FormatOFX {
		return 0, nil
	}
	acct, err := tx.GetAccount(ctx, imp.AccountID)
	if err != nil {
		return 0, err
	}
	entries, err := tx.Entries(ctx, acct.ID)
	if err != nil {
		return 0, err
	}
	matched := matcher.Match(rows, acct, entries)
	if err := tx.SaveMatches(ctx, imp.ID, rows); err != nil {
		return 0, err
	}
	log := logger.FromContext(ctx)
	log.Debug().
		Str("import_id", imp.ID).
		Int("rows", len(rows)).
		Int("matched", matched).
		Msg("matched rows")
	return matched, nil
}

func (s *Service) preview(ctx context.Context, tx *store.Tx, imp *model.Import) (*Preview, error) {
	rows, err := tx.Rows(ctx, imp.ID)
	if err != nil {
		return nil, err
	}
	parsed, err := s.reparse(imp)
	if err != nil {
		return nil, err
	}
	current, err := tx.Anchor(ctx, imp.AccountID)
	if err != nil {
		return nil, err
	}
	matched := 0
	for _, r := range rows {
		if r.Matched() {
			matched++
		}
	}
	return &Preview{
		Import:  imp,
		Rows:    rows,
		Matched: matched,
		Dropped: parsed.Dropped,
		Anchor:  anchor.Resolve(parsed.OpeningBalance, current, rows),
	}, nil
}

func (s *Service) commit(ctx context.Context, tx *store.Tx, importID string) (*CommitResult, error) {
	log := logger.FromContext(ctx).With().Str("import_id", importID).Logger()

	imp, err := s.pending(ctx, tx, importID)
	if err != nil {
		return nil, err
	}
	acct, err := tx.GetAccount(ctx, imp.AccountID)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Rows(ctx, importID)
	if err != nil {
		return nil, err
	}
	parsed, err := s.reparse(imp)
	if err != nil {
		return nil, err
	}

	labels, err := seedLabels(ctx, tx, parsed)
	if err != nil {
		return nil, err
	}

	current, err := tx.Anchor(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	decision := anchor.Resolve(parsed.OpeningBalance, current, rows)
	if err := anchor.Apply(ctx, tx, acct.ID, decision); err != nil {
		return nil, fmt.Errorf("adjusting anchor: %w", err)
	}
	log.Debug().Str("anchor_action", string(decision.Action)).Msg("anchor resolved")

	res := &CommitResult{ImportID: importID, Rows: len(rows), Anchor: decision}
	for _, row := range rows {
		if row.Matched() {
			res.Matched++
			continue
		}
		entry, err := labels.entryFor(ctx, tx, acct, imp, row)
		if err != nil {
			return nil, err
		}
		if err := tx.CreateEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("creating entry for row %d: %w", row.Position, err)
		}
		res.Created++
	}

	if err := tx.SetImportStatus(ctx, importID, model.ImportComplete); err != nil {
		return nil, err
	}
	logCommit(log, res)
	return res, nil
}

// pending loads an import that has not been committed yet.
func (s *Service) pending(ctx context.Context, tx *store.Tx, importID string) (*model.Import, error) {
	imp, err := tx.GetImport(ctx, importID)
	if err != nil {
		return nil, err
	}
	if imp.Status == model.ImportComplete {
		return nil, fmt.Errorf("import %s: %w", importID, ErrAlreadyCommitted)
	}
	return imp, nil
}

// reparse parses the import's stored source again to recover what rows do
// not carry: declared categories, tags and the opening balance.
func (s *Service) reparse(imp *model.Import) (*Parsed, error) {
	parser := s.registry.Get(string(imp.Format))
	if parser == nil {
		return nil, fmt.Errorf("import %s format %q: %w", imp.ID, imp.Format, ErrUnrecognizedFormat)
	}
	return parser.Parse(imp.Source, s.opts), nil
}

// labelIDs caches category and tag IDs by exact label.
type labelIDs struct {
	categories map[string]string
	tags       map[string]string
}

// seedLabels creates the categories and tags the file declares.
func seedLabels(ctx context.Context, tx *store.Tx, parsed *Parsed) (*labelIDs, error) {
	l := &labelIDs{categories: make(map[string]string), tags: make(map[string]string)}
	for _, c := range parsed.Categories {
		id, err := tx.EnsureCategory(ctx, c)
		if err != nil {
			return nil, err
		}
		l.categories[c.Name] = id
	}
	for _, t := range parsed.Tags {
		id, err := tx.EnsureTag(ctx, t)
		if err != nil {
			return nil, err
		}
		l.tags[t.Name] = id
	}
	return l, nil
}

func (l *labelIDs) category(ctx context.Context, tx *store.Tx, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	if id, ok := l.categories[name]; ok {
		return id, nil
	}
	id, err := tx.EnsureCategory(ctx, model.ParsedCategory{Name: name})
	if err != nil {
		return "", err
	}
	l.categories[name] = id
	return id, nil
}

func (l *labelIDs) tag(ctx context.Context, tx *store.Tx, name string) (string, error) {
	if id, ok := l.tags[name]; ok {
		return id, nil
	}
	id, err := tx.EnsureTag(ctx, model.ParsedTag{Name: name})
	if err != nil {
		return "", err
	}
	l.tags[name] = id
	return id, nil
}

// entryFor builds the ledger entry for an unmatched row, amount converted
// to the account's sign convention.
func (l *labelIDs) entryFor(ctx context.Context, tx *store.Tx, acct model.Account, imp *model.Import, row model.ImportRow) (*model.LedgerEntry, error) {
	categoryID, err := l.category(ctx, tx, row.Category)
	if err != nil {
		return nil, err
	}
	var tagIDs []string
	seen := make(map[string]bool, len(row.Tags))
	for _, name := range row.Tags {
		id, err := l.tag(ctx, tx, name)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		tagIDs = append(tagIDs, id)
	}
	return &model.LedgerEntry{
		AccountID:  acct.ID,
		Kind:       model.EntryKindTransaction,
		Date:       row.Date,
		Amount:     acct.Sign.Apply(row.Amount),
		Currency:   row.Currency,
		Name:       row.Name,
		Notes:      row.Notes,
		ExternalID: row.ExternalID,
		ImportID:   imp.ID,
		CategoryID: categoryID,
		TagIDs:     tagIDs,
	}, nil
}

func logCommit(log zerolog.Logger, res *CommitResult) {
	log.Info().
		Int("rows", res.Rows).
		Int("matched", res.Matched).
		Int("created", res.Created).
		Str("anchor_action", string(res.Anchor.Action)).
		Msg("import committed")
}
