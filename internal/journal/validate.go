package journal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/moneymngr/moneymngr/internal/model"
)

// ValidationError describes one rejected field of a transaction draft.
type ValidationError = model.ValidationError

// Draft is a transaction before it is stored, plus the optional request to
// create a linked receivable on a person account.
type Draft struct {
	Transaction     model.Transaction
	IsLinked        bool
	PersonAccountID string
}

// Validate checks the structural rules of a draft and returns every
// violation found. Referential checks (accounts exist, category type) need
// the store and run inside Service.Create.
func Validate(d Draft) []ValidationError {
	var errs []ValidationError
	t := d.Transaction

	if !t.Amount.GreaterThan(decimal.Zero) {
		errs = append(errs, ValidationError{Field: "amount", Message: "must be a positive number"})
	}

	switch t.Type {
	case model.TransactionTypeExpense:
		if t.FromAccountID == "" {
			errs = append(errs, ValidationError{Field: "fromAccountId", Message: "required for EXPENSE"})
		}
		if t.CategoryID == "" {
			errs = append(errs, ValidationError{Field: "categoryId", Message: "required for EXPENSE"})
		}
	case model.TransactionTypeIncome:
		if t.ToAccountID == "" {
			errs = append(errs, ValidationError{Field: "toAccountId", Message: "required for INCOME"})
		}
		if t.CategoryID == "" {
			errs = append(errs, ValidationError{Field: "categoryId", Message: "required for INCOME"})
		}
	case model.TransactionTypeTransfer:
		if t.FromAccountID == "" {
			errs = append(errs, ValidationError{Field: "fromAccountId", Message: "required for TRANSFER"})
		}
		if t.ToAccountID == "" {
			errs = append(errs, ValidationError{Field: "toAccountId", Message: "required for TRANSFER"})
		}
		if t.FromAccountID != "" && t.FromAccountID == t.ToAccountID {
			errs = append(errs, ValidationError{Field: "toAccountId", Message: "cannot transfer to the same account"})
		}
	default:
		errs = append(errs, ValidationError{Field: "transactionType", Message: fmt.Sprintf("unknown type %q", t.Type)})
	}

	switch t.Status {
	case model.StatusConfirmed, model.StatusPending:
	default:
		errs = append(errs, ValidationError{Field: "status", Message: fmt.Sprintf("must be CONFIRMED or PENDING, got %q", t.Status)})
	}

	if d.IsLinked {
		if t.Type != model.TransactionTypeExpense {
			errs = append(errs, ValidationError{Field: "isLinkedTransaction", Message: "only expenses can be linked"})
		}
		if d.PersonAccountID == "" {
			errs = append(errs, ValidationError{Field: "personAccountId", Message: "select a person for the linked transaction"})
		} else if d.PersonAccountID == t.FromAccountID {
			errs = append(errs, ValidationError{Field: "personAccountId", Message: "must differ from the paying account"})
		}
	}

	return errs
}

// firstError returns the first violation as an error, or nil.
func firstError(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// categoryMatches reports whether a category of type ct may be used on a
// transaction of type tt.
func categoryMatches(tt model.TransactionType, ct model.CategoryType) bool {
	switch tt {
	case model.TransactionTypeExpense:
		return ct == model.CategoryTypeExpense
	case model.TransactionTypeIncome:
		return ct == model.CategoryTypeIncome
	}
	return false
}
