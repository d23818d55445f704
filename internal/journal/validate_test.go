package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moneymngr/moneymngr/internal/model"
)

func draft(typ model.TransactionType, from, to, cat, amount string) Draft {
	return Draft{Transaction: model.Transaction{
		Type:          typ,
		FromAccountID: from,
		ToAccountID:   to,
		CategoryID:    cat,
		Amount:        dec(amount),
		Status:        model.StatusConfirmed,
	}}
}

func fields(errs []ValidationError) []string {
	var out []string
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		want  []string
	}{
		{"valid expense", draft(model.TransactionTypeExpense, "a", "", "c", "10"), nil},
		{"valid income", draft(model.TransactionTypeIncome, "", "a", "c", "10"), nil},
		{"valid transfer", draft(model.TransactionTypeTransfer, "a", "b", "", "10"), nil},
		{"zero amount", draft(model.TransactionTypeExpense, "a", "", "c", "0"), []string{"amount"}},
		{"negative amount", draft(model.TransactionTypeExpense, "a", "", "c", "-1"), []string{"amount"}},
		{"expense missing all", draft(model.TransactionTypeExpense, "", "", "", "1"), []string{"fromAccountId", "categoryId"}},
		{"income missing account", draft(model.TransactionTypeIncome, "a", "", "c", "1"), []string{"toAccountId"}},
		{"transfer same account", draft(model.TransactionTypeTransfer, "a", "a", "", "1"), []string{"toAccountId"}},
		{"transfer missing both", draft(model.TransactionTypeTransfer, "", "", "", "1"), []string{"fromAccountId", "toAccountId"}},
		{"unknown type", draft("GIFT", "a", "", "c", "1"), []string{"transactionType"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fields(Validate(tt.draft)))
		})
	}
}

func TestValidate_Linked(t *testing.T) {
	d := draft(model.TransactionTypeExpense, "a", "", "c", "10")
	d.IsLinked = true
	assert.Equal(t, []string{"personAccountId"}, fields(Validate(d)))

	d.PersonAccountID = "a"
	assert.Equal(t, []string{"personAccountId"}, fields(Validate(d)), "person must differ from payer")

	d.PersonAccountID = "p"
	assert.Empty(t, Validate(d))

	inc := draft(model.TransactionTypeIncome, "", "a", "c", "10")
	inc.IsLinked = true
	inc.PersonAccountID = "p"
	assert.Equal(t, []string{"isLinkedTransaction"}, fields(Validate(inc)))
}

func TestValidate_RejectedStatus(t *testing.T) {
	d := draft(model.TransactionTypeExpense, "a", "", "c", "10")
	d.Transaction.Status = model.StatusRejected
	assert.Equal(t, []string{"status"}, fields(Validate(d)))
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "amount", Message: "must be a positive number"}
	assert.Equal(t, "invalid amount: must be a positive number", err.Error())
}
