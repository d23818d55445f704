package commands_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymngr/moneymngr/internal/accounts"
	"github.com/moneymngr/moneymngr/internal/commands"
	"github.com/moneymngr/moneymngr/internal/config"
	"github.com/moneymngr/moneymngr/internal/journal"
)

// ledger is an initialized workspace driven through the root command
// in-process.
type ledger struct {
	dir string
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	l := &ledger{dir: t.TempDir()}
	_, err := l.exec("init", l.dir)
	require.NoError(t, err)
	return l
}

func (l *ledger) exec(args ...string) (string, error) {
	var out bytes.Buffer
	root := commands.NewRootCommand()
	root.SetArgs(append([]string{"--config", filepath.Join(l.dir, config.FileName)}, args...))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.Execute()
	return out.String(), err
}

func (l *ledger) run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := l.exec(args...)
	require.NoError(t, err, out)
	return out
}

func TestAccountCommands(t *testing.T) {
	l := newLedger(t)

	out := l.run(t, "account", "add", "HDFC Bank", "--balance", "10000", "--threshold", "2000")
	assert.Contains(t, out, "Added BANK account HDFC Bank (₹10000.00)")

	_, err := l.exec("account", "add", "HDFC Bank")
	assert.Error(t, err, "names are unique")

	out = l.run(t, "account", "list")
	assert.Contains(t, out, "HDFC Bank")
	assert.Contains(t, out, "SAFE")
	assert.Contains(t, out, "Cash")

	l.run(t, "account", "update", "HDFC Bank", "--threshold", "9500")
	out = l.run(t, "account", "list")
	assert.Contains(t, out, "CRITICAL")

	_, err = l.exec("account", "add", "Broken", "--balance", "abc")
	assert.Error(t, err)

	l.run(t, "account", "delete", "HDFC Bank")
	out = l.run(t, "account", "list")
	assert.NotContains(t, out, "HDFC Bank")
}

func TestTxCommands(t *testing.T) {
	l := newLedger(t)
	l.run(t, "account", "add", "HDFC Bank", "--balance", "10000", "--threshold", "2000")

	out := l.run(t, "tx", "add", "--amount", "250", "--from", "HDFC Bank", "--category", "Food", "--desc", "lunch")
	assert.Contains(t, out, "Added EXPENSE ₹250.00 lunch")

	l.run(t, "tx", "add", "--type", "income", "--amount", "1000", "--to", "HDFC Bank", "--category", "Salary")
	l.run(t, "tx", "add", "--type", "transfer", "--amount", "500", "--from", "HDFC Bank", "--to", "Cash")

	out = l.run(t, "account", "list")
	assert.Contains(t, out, "₹10250.00")
	assert.Contains(t, out, "₹500.00")

	out = l.run(t, "tx", "list", "--account", "HDFC Bank")
	assert.Contains(t, out, "lunch")
	assert.Contains(t, out, "TRANSFER")

	out = l.run(t, "tx", "list", "--type", "expense")
	assert.Contains(t, out, "lunch")
	assert.NotContains(t, out, "TRANSFER")

	// An expense without an account is rejected before anything is written.
	_, err := l.exec("tx", "add", "--amount", "10")
	assert.Error(t, err)

	// A category in use cannot be deleted.
	_, err = l.exec("category", "delete", "Food")
	assert.Error(t, err)
}

func TestTxPending(t *testing.T) {
	l := newLedger(t)
	out := l.run(t, "tx", "add", "--amount", "40", "--from", "Cash", "--category", "Food", "--pending")
	assert.Contains(t, out, "Added EXPENSE")

	out = l.run(t, "tx", "list", "--status", "PENDING")
	assert.Contains(t, out, "PENDING")

	out = l.run(t, "account", "list")
	assert.Contains(t, out, "-40.00")
}

func TestThresholdCommand(t *testing.T) {
	l := newLedger(t)
	l.run(t, "account", "add", "HDFC Bank", "--balance", "10000", "--threshold", "2000")

	out := l.run(t, "threshold", "HDFC Bank")
	assert.Contains(t, out, "HDFC Bank: SAFE")
	assert.Contains(t, out, "Spendable: ₹8000.00")

	out = l.run(t, "threshold", "HDFC Bank", "--spend", "7700")
	assert.Contains(t, out, "HDFC Bank: CRITICAL")
	assert.Contains(t, out, "After spending ₹7700.00: ₹2300.00")

	_, err := l.exec("threshold", "Nowhere")
	assert.Error(t, err)
}

func TestMagicCommand(t *testing.T) {
	l := newLedger(t)
	l.run(t, "account", "add", "HDFC Bank", "--balance", "10000")

	out := l.run(t, "magic", "250 lunch hdfc")
	assert.Contains(t, out, "Amount: 250")
	assert.Contains(t, out, "HDFC Bank")
	assert.NotContains(t, out, "Saved")

	out = l.run(t, "magic", "250 lunch hdfc", "--save")
	assert.Contains(t, out, "Saved")

	out = l.run(t, "account", "list")
	assert.Contains(t, out, "₹9750.00")
}

func TestSMSCommand(t *testing.T) {
	l := newLedger(t)
	l.run(t, "account", "add", "HDFC Bank", "--balance", "10000")

	sms := "Rs.1,500.00 debited from HDFC Bank A/c XX1234 on 05-01-24 at SWIGGY. Avl Bal Rs 10,250.75"
	out := l.run(t, "sms", sms)
	assert.Contains(t, out, "1500")
	assert.Contains(t, out, "SWIGGY")

	l.run(t, "sms", sms, "--save", "--category", "Food")
	out = l.run(t, "account", "list")
	assert.Contains(t, out, "₹8500.00")

	_, err := l.exec("sms", "hello, see you at the station")
	assert.Error(t, err)
}

func TestImportCommand(t *testing.T) {
	l := newLedger(t)
	csv := "Date,Account,Category,Amount,Type\n" +
		"01-01-2024,Wallet,Food,100,Expense\n" +
		"02-01-2024,Wallet,Salary,300,Income\n"
	path := filepath.Join(l.dir, "inbox", "jan.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	out := l.run(t, "import", "--scan")
	assert.Contains(t, out, "Imported 2 transaction(s)")

	_, err := os.Stat(filepath.Join(l.dir, "inbox", "processed", "jan.csv"))
	require.NoError(t, err)

	out = l.run(t, "account", "list")
	assert.Contains(t, out, "Wallet")
	assert.Contains(t, out, "₹200.00")

	out = l.run(t, "import", "--scan")
	assert.Contains(t, out, "No CSV files")
}

func TestBackupAndSnapshotCommands(t *testing.T) {
	l := newLedger(t)
	l.run(t, "account", "add", "HDFC Bank", "--balance", "10000")

	out := l.run(t, "backup", "push")
	assert.Contains(t, out, "Pushed 3 accounts, 15 categories, 0 transactions")

	_, err := os.Stat(filepath.Join(l.dir, "backups", "backup", "latest.json"))
	require.NoError(t, err)

	l.run(t, "account", "add", "Later")

	_, err = l.exec("backup", "pull")
	assert.Error(t, err, "pull needs --yes")

	out = l.run(t, "backup", "pull", "--yes")
	assert.Contains(t, out, "Restored 3 accounts")
	out = l.run(t, "account", "list")
	assert.NotContains(t, out, "Later")

	out = l.run(t, "snapshot", "list")
	assert.Contains(t, out, "No snapshots")
	out = l.run(t, "snapshot", "create")
	assert.Contains(t, out, "Created ")
}

func TestHistoryCommand(t *testing.T) {
	l := newLedger(t)
	l.run(t, "account", "add", "HDFC Bank", "--balance", "1000")

	out := l.run(t, "history", "HDFC Bank", "--from", "2024-01-01", "--to", "2024-01-03")
	assert.Contains(t, out, "2024-01-01")
	assert.Contains(t, out, "2024-01-03")

	out = l.run(t, "history", "--net-worth", "--from", "2024-01-01", "--to", "2024-01-02")
	assert.Contains(t, out, "NET WORTH")

	_, err := l.exec("history")
	assert.Error(t, err)
}

func TestSMSCommand_File(t *testing.T) {
	l := newLedger(t)
	path := filepath.Join(l.dir, "messages.txt")
	msgs := "Rs.1,500.00 debited from HDFC Bank A/c XX1234 at SWIGGY\n" +
		"see you at the station\n" +
		"\n" +
		"INR 2,000 credited to SBI A/c XX9876\n"
	require.NoError(t, os.WriteFile(path, []byte(msgs), 0o644))

	out := l.run(t, "sms", "--file", path)
	assert.Contains(t, out, "2 transaction message(s) found")
	assert.Contains(t, out, "SWIGGY")

	_, err := l.exec("sms")
	assert.Error(t, err)
}

func TestExportCommand(t *testing.T) {
	l := newLedger(t)
	l.run(t, "tx", "add", "--amount", "40", "--from", "Cash", "--category", "Food", "--desc", "tea")

	out := l.run(t, "export")
	assert.Contains(t, out, "Exported 2 accounts and 1 transactions")

	f, err := os.Open(filepath.Join(l.dir, "exports", "transactions.csv"))
	require.NoError(t, err)
	defer f.Close()
	txns, err := journal.ReadTransactions(f)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "tea", txns[0].Description)
	assert.Equal(t, "40.00", txns[0].Amount.StringFixed(2))

	f2, err := os.Open(filepath.Join(l.dir, "exports", "accounts.csv"))
	require.NoError(t, err)
	defer f2.Close()
	accts, err := accounts.ReadAccounts(f2)
	require.NoError(t, err)
	assert.Len(t, accts, 2)
}

func TestLogCommand(t *testing.T) {
	l := newLedger(t)
	l.run(t, "account", "add", "HDFC Bank")
	l.run(t, "category", "add", "Pets")

	out := l.run(t, "log")
	assert.Contains(t, out, "ACCOUNT_CREATE")
	assert.Contains(t, out, "CATEGORY_CREATE")

	out = l.run(t, "log", "--limit", "1")
	assert.NotContains(t, out, "ACCOUNT_CREATE")
}
