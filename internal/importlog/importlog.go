// Package importlog keeps an append-only CSV audit trail of committed
// imports.
package importlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Entry is one committed import.
type Entry struct {
	Timestamp    time.Time
	ImportID     string
	AccountID    string
	FileName     string
	Format       string
	Rows         int
	Matched      int
	Created      int
	AnchorAction string
}

// Header is the CSV header for import-log.csv.
const Header = "timestamp,import_id,account_id,file_name,format,rows,matched,created,anchor_action"

const (
	numFields       = 9
	logDir          = "logs"
	logFile         = "logs/import-log.csv"
	colTimestamp    = 0
	colImportID     = 1
	colAccountID    = 2
	colFileName     = 3
	colFormat       = 4
	colRows         = 5
	colMatched      = 6
	colCreated      = 7
	colAnchorAction = 8
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colImportID] = e.ImportID
	row[colAccountID] = e.AccountID
	row[colFileName] = e.FileName
	row[colFormat] = e.Format
	row[colRows] = strconv.Itoa(e.Rows)
	row[colMatched] = strconv.Itoa(e.Matched)
	row[colCreated] = strconv.Itoa(e.Created)
	row[colAnchorAction] = e.AnchorAction
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	counts := make([]int, 3)
	for i, col := range []int{colRows, colMatched, colCreated} {
		counts[i], err = strconv.Atoi(record[col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing count %q: %w", record[col], err)
		}
	}

	return Entry{
		Timestamp:    ts,
		ImportID:     record[colImportID],
		AccountID:    record[colAccountID],
		FileName:     record[colFileName],
		Format:       record[colFormat],
		Rows:         counts[0],
		Matched:      counts[1],
		Created:      counts[2],
		AnchorAction: record[colAnchorAction],
	}, nil
}

// Append writes entries to <root>/logs/import-log.csv, creating the file
// and header if needed.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all entries from <root>/logs/import-log.csv, or nil if the
// file does not exist.
func Read(root string) ([]Entry, error) {
	path := filepath.Join(root, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
