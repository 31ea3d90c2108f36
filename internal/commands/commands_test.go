package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger-import/internal/commands"
	"github.com/cleared-dev/ledger-import/internal/config"
)

const statementOFX = `<?xml version="1.0" encoding="UTF-8"?>
<?OFX OFXHEADER="200" VERSION="220" SECURITY="NONE" OLDFILEUID="NONE" NEWFILEUID="NONE"?>
<OFX>
  <SIGNONMSGSRSV1><SONRS><FI><ORG>First Test Bank</ORG><FID>1001</FID></FI></SONRS></SIGNONMSGSRSV1>
  <BANKMSGSRSV1><STMTTRNRS><STMTRS>
    <CURDEF>USD</CURDEF>
    <BANKACCTFROM><BANKID>021000021</BANKID><ACCTID>000123456789</ACCTID><ACCTTYPE>CHECKING</ACCTTYPE></BANKACCTFROM>
    <BANKTRANLIST>
      <STMTTRN><TRNTYPE>DEBIT</TRNTYPE><DTPOSTED>20240105</DTPOSTED><TRNAMT>-28.50</TRNAMT><FITID>F1</FITID><NAME>Caf&eacute; de Flore</NAME></STMTTRN>
      <STMTTRN><TRNTYPE>CREDIT</TRNTYPE><DTPOSTED>20240110</DTPOSTED><TRNAMT>2500.00</TRNAMT><FITID>F2</FITID><MEMO>Payroll</MEMO></STMTTRN>
    </BANKTRANLIST>
  </STMTRS></STMTTRNRS></BANKMSGSRSV1>
</OFX>
`

const statementQIF = `!Type:Bank
D2/ 1'24
T-12.00
PBakery
LFood
^
D2/ 3'24
T-40.00
PGas station
LAuto:Fuel
^
`

var importIDPattern = regexp.MustCompile(`Import (\S+) \(`)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// newProject initializes a ledger in a temp dir with a checking account
// linked to the OFX fixture's ACCTID.
func newProject(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	_, err := run(t, "init", dir)
	require.NoError(t, err)
	cfgPath = filepath.Join(dir, config.FileName)

	_, err = run(t, "--config", cfgPath, "account", "add",
		"--id", "checking", "--name", "Checking", "--external-id", "000123456789")
	require.NoError(t, err)
	return dir, cfgPath
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInit_CreatesProject(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized ledger at")

	for _, d := range []string{"logs", "import", filepath.Join("import", "processed")} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir())
	}

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Ledger.Driver)

	_, err = os.Stat(filepath.Join(dir, "ledger.db"))
	assert.NoError(t, err)
}

func TestInit_RefusesExistingProject(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "init", dir)
	require.NoError(t, err)

	_, err = run(t, "init", dir)
	assert.ErrorContains(t, err, "already exists")
}

func TestInit_MySQLNeedsDSN(t *testing.T) {
	_, err := run(t, "init", t.TempDir(), "--driver", "mysql")
	assert.ErrorContains(t, err, "--dsn is required")
}

func TestAccount_AddAndList(t *testing.T) {
	_, cfgPath := newProject(t)

	_, err := run(t, "--config", cfgPath, "account", "add", "--id", "visa", "--name", "Visa", "--sign", "inflow-negative")
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "checking")
	assert.Contains(t, out, "000123456789")
	assert.Contains(t, out, "inflow-negative")
}

func TestAccount_InvalidSign(t *testing.T) {
	_, cfgPath := newProject(t)
	_, err := run(t, "--config", cfgPath, "account", "add", "--id", "x", "--name", "X", "--sign", "backwards")
	assert.ErrorContains(t, err, "invalid --sign")
}

func TestAccount_FromConfig(t *testing.T) {
	dir, cfgPath := newProject(t)
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	cfg.BankAccounts = []config.BankAccount{{Name: "Amex", AccountID: "amex", Sign: "inflow-negative"}}
	require.NoError(t, config.Save(filepath.Join(dir, config.FileName), cfg))

	out, err := run(t, "--config", cfgPath, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "amex")
}

func TestImport_DryRunThenCommit(t *testing.T) {
	dir, cfgPath := newProject(t)
	file := writeFile(t, filepath.Join(dir, "january.ofx"), statementOFX)

	out, err := run(t, "--config", cfgPath, "import", file, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "account checking")
	assert.Contains(t, out, "bank: First Test Bank")
	assert.Contains(t, out, "rows: 2  matched: 0  dropped: 0")
	assert.Contains(t, out, "Dry run")

	m := importIDPattern.FindStringSubmatch(out)
	require.Len(t, m, 2)
	importID := m[1]

	out, err = run(t, "--config", cfgPath, "rows", importID)
	require.NoError(t, err)
	assert.Contains(t, out, "position,date,amount")
	assert.Contains(t, out, "Café de Flore")
	assert.Contains(t, out, "2024-01-10,2500,USD,Payroll")

	out, err = run(t, "--config", cfgPath, "rematch", importID)
	require.NoError(t, err)
	assert.Contains(t, out, "0 rows matched")

	out, err = run(t, "--config", cfgPath, "commit", importID)
	require.NoError(t, err)
	assert.Contains(t, out, "2 entries created")

	_, err = run(t, "--config", cfgPath, "commit", importID)
	assert.ErrorContains(t, err, "already committed")

	out, err = run(t, "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, importID)
	assert.Contains(t, out, "january.ofx")
}

func TestImport_SecondImportSkipsDuplicates(t *testing.T) {
	dir, cfgPath := newProject(t)
	file := writeFile(t, filepath.Join(dir, "january.ofx"), statementOFX)

	_, err := run(t, "--config", cfgPath, "import", file)
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "matched: 2")
	assert.Contains(t, out, "0 entries created, 2 duplicates skipped")

	m := importIDPattern.FindStringSubmatch(out)
	require.Len(t, m, 2)
	out, err = run(t, "--config", cfgPath, "rows", m[1], "--unmatched")
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("\n")), "header only")
}

func TestImport_QIFNeedsAccount(t *testing.T) {
	dir, cfgPath := newProject(t)
	file := writeFile(t, filepath.Join(dir, "feb.qif"), statementQIF)

	_, err := run(t, "--config", cfgPath, "import", file)
	assert.ErrorContains(t, err, "unknown account")

	out, err := run(t, "--config", cfgPath, "import", file, "--account", "checking")
	require.NoError(t, err)
	assert.Contains(t, out, "2 entries created")
}

func TestImport_UnrecognizedFile(t *testing.T) {
	dir, cfgPath := newProject(t)
	file := writeFile(t, filepath.Join(dir, "export.ofx"), "Date,Amount\n2024-01-01,1.00\n")

	_, err := run(t, "--config", cfgPath, "import", file, "--account", "checking")
	assert.ErrorContains(t, err, "unrecognized file format")
}

func TestScan_ImportsAndMovesFiles(t *testing.T) {
	dir, cfgPath := newProject(t)
	importDir := filepath.Join(dir, "import")
	writeFile(t, filepath.Join(importDir, "january.qfx"), statementOFX)
	writeFile(t, filepath.Join(importDir, "notes.txt"), "ignored")

	out, err := run(t, "--config", cfgPath, "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "january.qfx: Committed")
	assert.Contains(t, out, "Imported 1 of 1 files")

	_, err = os.Stat(filepath.Join(importDir, "processed", "january.qfx"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(importDir, "notes.txt"))
	assert.NoError(t, err)
}

func TestScan_LeavesFailedFiles(t *testing.T) {
	dir, cfgPath := newProject(t)
	importDir := filepath.Join(dir, "import")
	writeFile(t, filepath.Join(importDir, "feb.qif"), statementQIF)

	// No --account and QIF carries no ACCTID.
	_, err := run(t, "--config", cfgPath, "scan")
	assert.ErrorContains(t, err, "1 files failed")

	_, err = os.Stat(filepath.Join(importDir, "feb.qif"))
	assert.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "scan", "--account", "checking")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 of 1 files")
}
