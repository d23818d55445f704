package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/parser"
)

func TestQuickEntryParams(t *testing.T) {
	acct := &parser.Match{ID: "bank", Name: "Bank", Confidence: 1}
	food := &parser.Match{ID: "food", Name: "Food", Confidence: 0.85}
	hint := &parser.Match{Name: "Travel", Confidence: 0.7, Hint: true}

	tests := []struct {
		name    string
		entry   parser.QuickEntry
		wantErr string
		check   func(t *testing.T, p CreateParams)
	}{
		{
			name:    "no amount",
			entry:   parser.QuickEntry{Account: acct},
			wantErr: "amount",
		},
		{
			name:    "no account",
			entry:   parser.QuickEntry{HasAmount: true, Amount: dec("5")},
			wantErr: "fromAccountId",
		},
		{
			name:  "expense debits account",
			entry: parser.QuickEntry{HasAmount: true, Amount: dec("200"), Account: acct, Category: food, Type: model.TransactionTypeExpense},
			check: func(t *testing.T, p CreateParams) {
				assert.Equal(t, "bank", p.FromAccountID)
				assert.Empty(t, p.ToAccountID)
				assert.Equal(t, "food", p.CategoryID)
				assert.Equal(t, "Food", p.Description)
				assert.Equal(t, model.SourceMagicBox, p.Source)
			},
		},
		{
			name:  "income credits account",
			entry: parser.QuickEntry{HasAmount: true, Amount: dec("10"), Account: acct, Type: model.TransactionTypeIncome, Description: "refund"},
			check: func(t *testing.T, p CreateParams) {
				assert.Equal(t, "bank", p.ToAccountID)
				assert.Empty(t, p.FromAccountID)
				assert.Equal(t, "refund", p.Description)
			},
		},
		{
			name:  "category hint dropped",
			entry: parser.QuickEntry{HasAmount: true, Amount: dec("10"), Account: acct, Category: hint, Type: model.TransactionTypeExpense},
			check: func(t *testing.T, p CreateParams) {
				assert.Empty(t, p.CategoryID)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := QuickEntryParams(tt.entry)
			if tt.wantErr != "" {
				var ve ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.wantErr, ve.Field)
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestCreateFromQuickEntry(t *testing.T) {
	f := newFixture(t)
	mb := parser.NewMagicBox(parser.DefaultThresholds())
	e := mb.Parse("200 bank food lunch",
		[]parser.Candidate{{ID: "bank", Name: "Bank"}, {ID: "cash", Name: "Cash"}},
		[]parser.Candidate{{ID: "food", Name: "Food"}})

	tx, err := f.svc.CreateFromQuickEntry(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, model.SourceMagicBox, tx.Source)
	assert.Equal(t, "food", tx.CategoryID)
	assert.Equal(t, "800.00", f.balance(t, f.bank))
}

func TestCreateFromSMS(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	sms := parser.SMS{Amount: dec("150"), Type: model.TransactionTypeExpense, Merchant: "SWIGGY", Date: &date, Confidence: 80}

	tx, err := f.svc.CreateFromSMS(context.Background(), sms, f.bank, f.food, true)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, tx.Status)
	assert.Equal(t, model.SourceSMS, tx.Source)
	assert.Equal(t, "SWIGGY", tx.Description)
	assert.True(t, date.Equal(tx.Date))
	assert.Equal(t, "850.00", f.balance(t, f.bank))

	credit := parser.SMS{Amount: dec("40"), Type: model.TransactionTypeIncome, Bank: "HDFC"}
	tx, err = f.svc.CreateFromSMS(context.Background(), credit, f.cash, "", false)
	require.NoError(t, err)
	assert.Equal(t, f.cash, tx.ToAccountID)
	assert.Equal(t, "HDFC INCOME", tx.Description)
	assert.Equal(t, "140.00", f.balance(t, f.cash))

	_, err = f.svc.CreateFromSMS(context.Background(), credit, "", "", false)
	assert.Error(t, err)
}
