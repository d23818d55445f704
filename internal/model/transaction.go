package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType decides which account slots a transaction uses.
type TransactionType string

const (
	TransactionTypeExpense  TransactionType = "EXPENSE"
	TransactionTypeIncome   TransactionType = "INCOME"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// ParseTransactionType accepts the canonical names case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToUpper(strings.TrimSpace(s))) {
	case TransactionTypeExpense:
		return TransactionTypeExpense, nil
	case TransactionTypeIncome:
		return TransactionTypeIncome, nil
	case TransactionTypeTransfer:
		return TransactionTypeTransfer, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// TransactionStatus is the lifecycle state of a stored transaction.
type TransactionStatus string

const (
	StatusConfirmed TransactionStatus = "CONFIRMED"
	StatusPending   TransactionStatus = "PENDING"
	StatusRejected  TransactionStatus = "REJECTED"
)

// Affects reports whether rows in this status carry a balance effect.
// Rejected rows are kept for the record but never touch balances.
func (s TransactionStatus) Affects() bool {
	return s == StatusConfirmed || s == StatusPending
}

// TransactionSource records where a transaction came from.
type TransactionSource string

const (
	SourceManual    TransactionSource = "MANUAL"
	SourceCSVImport TransactionSource = "CSV_IMPORT"
	SourceMagicBox  TransactionSource = "MAGIC_BOX"
	SourceSMS       TransactionSource = "SMS_PARSER"
)

// Transaction moves Amount (always >= 0) according to Type:
//
//	EXPENSE:  FromAccountID debited, CategoryID set, ToAccountID empty
//	INCOME:   ToAccountID credited,  CategoryID set, FromAccountID empty
//	TRANSFER: FromAccountID debited, ToAccountID credited, CategoryID empty
type Transaction struct {
	ID                  string
	Date                time.Time
	Amount              decimal.Decimal
	Type                TransactionType
	FromAccountID       string
	ToAccountID         string
	CategoryID          string
	Description         string
	Status              TransactionStatus
	Source              TransactionSource
	LinkedTransactionID string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Accounts returns the ids of the accounts this transaction touches.
func (t Transaction) Accounts() []string {
	var ids []string
	if t.FromAccountID != "" {
		ids = append(ids, t.FromAccountID)
	}
	if t.ToAccountID != "" && t.ToAccountID != t.FromAccountID {
		ids = append(ids, t.ToAccountID)
	}
	return ids
}

// Touches reports whether the transaction debits or credits accountID.
func (t Transaction) Touches(accountID string) bool {
	return accountID != "" && (t.FromAccountID == accountID || t.ToAccountID == accountID)
}

// Normalize clears the account/category slots that Type does not use, so
// a transaction has exactly the shape documented on Transaction.
func (t Transaction) Normalize() Transaction {
	switch t.Type {
	case TransactionTypeExpense:
		t.ToAccountID = ""
	case TransactionTypeIncome:
		t.FromAccountID = ""
	case TransactionTypeTransfer:
		t.CategoryID = ""
	}
	return t
}
