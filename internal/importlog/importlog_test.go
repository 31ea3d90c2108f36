package importlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp:    testTime,
		ImportID:     "7b1c9a54-0d4e-4a55-9d0b-2f1f5f0d7e11",
		AccountID:    "checking",
		FileName:     "chase-jan.ofx",
		Format:       "ofx",
		Rows:         42,
		Matched:      3,
		Created:      39,
		AnchorAction: "move",
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testEntry(), entries[0])
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	e2 := testEntry()
	e2.FileName = "checking.qif"
	e2.Format = "qif"
	require.NoError(t, Append(dir, []Entry{e2}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ofx", entries[0].Format)
	assert.Equal(t, "qif", entries[1].Format)

	data, err := os.ReadFile(filepath.Join(dir, logFile))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "timestamp,"), "header written once")
}

func TestRead_NotFound(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_HeaderOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, logDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, logFile), []byte(Header+"\n"), 0o644))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_BadCount(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, logDir), 0o755))
	body := Header + "\n2025-01-15T10:30:00Z,id,checking,a.qif,qif,many,0,0,none\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, logFile), []byte(body), 0o644))

	_, err := Read(dir)
	assert.ErrorContains(t, err, "row 2")
}

func TestUnmarshalEntry_BadFieldCount(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	assert.ErrorContains(t, err, "expected 9 fields")
}

func TestTimestampFormat(t *testing.T) {
	e := testEntry()
	e.Timestamp = time.Date(2025, 1, 15, 5, 30, 0, 0, time.FixedZone("EST", -5*3600))
	row := MarshalEntry(e)
	assert.Equal(t, "2025-01-15T10:30:00Z", row[colTimestamp])
}
