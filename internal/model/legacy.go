package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LegacyTransaction is the loosely-typed shape older backups carry, where
// transfer-ness, category names and ids coexist and INCOME may be credited
// through FromAccountID.
type LegacyTransaction struct {
	ID                  string          `json:"id"`
	Date                time.Time       `json:"date"`
	Amount              decimal.Decimal `json:"amount"`
	TransactionType     string          `json:"transactionType,omitempty"`
	IsTransfer          bool            `json:"isTransfer,omitempty"`
	FromAccountID       string          `json:"fromAccountId,omitempty"`
	ToAccountID         string          `json:"toAccountId,omitempty"`
	CategoryID          string          `json:"categoryId,omitempty"`
	ToCategoryID        string          `json:"toCategoryId,omitempty"`
	Category            string          `json:"category,omitempty"`
	Description         string          `json:"description,omitempty"`
	Note                string          `json:"note,omitempty"`
	Status              string          `json:"status,omitempty"`
	Source              string          `json:"source,omitempty"`
	LinkedTransactionID string          `json:"linkedTransactionId,omitempty"`
	ImportedAt          *time.Time      `json:"importedAt,omitempty"`
}

// CategoryLookup resolves a category name to its id.
type CategoryLookup func(name string) (string, bool)

// MigrateLegacy converts a legacy row into the canonical Transaction shape.
// It is meant to run once per row when old data is restored.
func MigrateLegacy(lt LegacyTransaction, lookup CategoryLookup) Transaction {
	txType, err := ParseTransactionType(lt.TransactionType)
	if err != nil {
		txType = TransactionTypeExpense
		if lt.IsTransfer {
			txType = TransactionTypeTransfer
		}
	}

	categoryID := lt.CategoryID
	if categoryID == "" {
		categoryID = lt.ToCategoryID
	}
	if categoryID == "" && lt.Category != "" && lookup != nil {
		if id, ok := lookup(lt.Category); ok {
			categoryID = id
		}
	}

	from, to := lt.FromAccountID, lt.ToAccountID
	if txType == TransactionTypeIncome && to == "" {
		to, from = from, ""
	}

	status := TransactionStatus(strings.ToUpper(lt.Status))
	switch status {
	case StatusConfirmed, StatusPending, StatusRejected:
	default:
		status = StatusConfirmed
	}

	source := TransactionSource(strings.ToUpper(lt.Source))
	switch source {
	case SourceManual, SourceCSVImport, SourceMagicBox, SourceSMS:
	default:
		source = SourceManual
		if lt.ImportedAt != nil {
			source = SourceCSVImport
		}
	}

	desc := lt.Description
	if desc == "" {
		desc = lt.Note
	}
	if desc == "" {
		desc = lt.Category
	}

	return Transaction{
		ID:                  lt.ID,
		Date:                lt.Date,
		Amount:              lt.Amount.Abs(),
		Type:                txType,
		FromAccountID:       from,
		ToAccountID:         to,
		CategoryID:          categoryID,
		Description:         desc,
		Status:              status,
		Source:              source,
		LinkedTransactionID: lt.LinkedTransactionID,
	}.Normalize()
}

// MigrateAccountType maps retired account type names onto current ones.
func MigrateAccountType(s string) AccountType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CREDIT_CARD":
		return AccountTypeCredit
	case "":
		return AccountTypeBank
	}
	at := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	if !at.Valid() {
		return AccountTypeOther
	}
	return at
}
