package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymngr/moneymngr/internal/model"
)

func newTestMagicBox() *MagicBox {
	p := NewMagicBox(DefaultThresholds())
	p.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return p
}

func TestMagicBox_InitialsAndAlias(t *testing.T) {
	p := newTestMagicBox()
	got := p.Parse("200 chai DB",
		[]Candidate{{ID: "1", Name: "Deutsche Bank"}},
		[]Candidate{{ID: "2", Name: "Food"}})

	require.True(t, got.HasAmount)
	assert.Equal(t, "200", got.Amount.String())
	require.NotNil(t, got.Account)
	assert.Equal(t, Match{ID: "1", Name: "Deutsche Bank", Confidence: 0.9}, *got.Account)
	require.NotNil(t, got.Category)
	assert.Equal(t, Match{ID: "2", Name: "Food", Confidence: 0.85}, *got.Category)
	assert.Equal(t, "", got.Description)
	assert.Empty(t, got.Unmatched)
	assert.Equal(t, model.TransactionTypeExpense, got.Type)
	assert.Equal(t, 2024, got.Date.Year())
}

func TestMagicBox_Cases(t *testing.T) {
	accounts := []Candidate{{ID: "a1", Name: "HDFC Bank"}, {ID: "a2", Name: "Cash"}}
	categories := []Candidate{{ID: "c1", Name: "Food"}, {ID: "c2", Name: "Salary"}, {ID: "c3", Name: "Travel"}}

	tests := []struct {
		name     string
		input    string
		amount   string
		typ      model.TransactionType
		account  string
		category *Match
		desc     string
	}{
		{
			name:   "currency prefix and leftovers",
			input:  "₹1,250.50 cash dinner with friends",
			amount: "1250.5", typ: model.TransactionTypeExpense,
			account:  "a2",
			category: &Match{ID: "c1", Name: "Food", Confidence: 0.85},
			desc:     "with friends",
		},
		{
			name:   "income keyword is consumed",
			input:  "salary 50000 hdfc received",
			amount: "50000", typ: model.TransactionTypeIncome,
			account: "a1",
			desc:    "",
		},
		{
			name:   "transfer keyword",
			input:  "send 300 cash",
			amount: "300", typ: model.TransactionTypeTransfer,
			account: "a2",
		},
		{
			name:   "alias hint for a category not created yet",
			input:  "rs.80 uber",
			amount: "80", typ: model.TransactionTypeExpense,
			category: &Match{Name: "Transport", Confidence: 0.7, Hint: true},
		},
		{
			name:   "fuzzy category",
			input:  "900 travl",
			amount: "900", typ: model.TransactionTypeExpense,
			category: &Match{ID: "c3", Name: "Travel", Confidence: 0.83},
		},
		{
			name:  "no amount",
			input: "just words here",
			typ:   model.TransactionTypeExpense,
			desc:  "just words here",
		},
	}
	p := newTestMagicBox()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.input, accounts, categories)
			if tt.amount == "" {
				assert.False(t, got.HasAmount)
			} else {
				require.True(t, got.HasAmount)
				assert.Equal(t, tt.amount, got.Amount.String())
			}
			assert.Equal(t, tt.typ, got.Type)
			if tt.account == "" {
				assert.Nil(t, got.Account)
			} else {
				require.NotNil(t, got.Account)
				assert.Equal(t, tt.account, got.Account.ID)
			}
			if tt.category == nil {
				assert.Nil(t, got.Category)
			} else {
				require.NotNil(t, got.Category)
				assert.Equal(t, tt.category.ID, got.Category.ID)
				assert.Equal(t, tt.category.Name, got.Category.Name)
				assert.Equal(t, tt.category.Hint, got.Category.Hint)
				assert.InDelta(t, tt.category.Confidence, got.Category.Confidence, 1e-9)
			}
			assert.Equal(t, tt.desc, got.Description)
		})
	}
}

func TestMagicBox_Deterministic(t *testing.T) {
	p := newTestMagicBox()
	accounts := []Candidate{{ID: "1", Name: "Deutsche Bank"}, {ID: "2", Name: "Dena Bank"}}
	categories := []Candidate{{ID: "3", Name: "Food"}}
	first := p.Parse("99 db lunch", accounts, categories)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, p.Parse("99 db lunch", accounts, categories))
	}
	assert.Equal(t, "1", first.Account.ID)
}

func TestMagicBox_Empty(t *testing.T) {
	got := newTestMagicBox().Parse("   ", nil, nil)
	assert.False(t, got.HasAmount)
	assert.Nil(t, got.Account)
	assert.Equal(t, "", got.Description)
}
